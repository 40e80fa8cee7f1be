package ingest

import (
	"errors"
	"strings"

	"github.com/envidicy/insights/internal/models"
)

var (
	ErrEmpty        = errors.New("no non-blank lines")
	ErrNoDateColumn = errors.New("no date column")
)

// Error is a structural ingestion failure. Message is safe to show to the
// person who uploaded the file.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

const (
	msgEmpty      = "CSV пустой."
	msgNoDate     = "Не найден столбец с датой."
	msgUnreadable = "Не удалось прочитать CSV."
)

// StatusMessage returns the user-facing text for err.
func StatusMessage(err error) string {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Message
	}
	return msgUnreadable
}

// Result is the outcome of parsing one export.
type Result struct {
	Rows             []models.MetricRow
	Delimiter        byte
	Headers          []string
	Index            ColumnIndex
	ImpressionsLabel string
	ImpressionsKind  models.ImpressionsKind
}

// Parse turns the full text of an export into MetricRows. It fails only on
// structural problems; bad cells default to zero values.
func Parse(text string) (*Result, error) {
	lines := splitLines(text)
	if len(lines) == 0 {
		return nil, &Error{Message: msgEmpty, Err: ErrEmpty}
	}

	delim := DetectDelimiter(lines[0])
	raw := ParseLine(lines[0], delim)
	headers := make([]string, len(raw))
	for i, h := range raw {
		headers[i] = NormalizeHeader(h)
	}
	idx := BuildIndex(headers)
	if idx.Col(FieldDate) == NotFound {
		return nil, &Error{Message: msgNoDate, Err: ErrNoDateColumn}
	}

	rows := make([]models.MetricRow, 0, len(lines)-1)
	for _, line := range lines[1:] {
		rows = append(rows, toRow(ParseLine(line, delim), idx))
	}

	label, views := impressionsCaption(cell(headers, idx.Col(FieldImpressions)))
	kind := models.KindImpressions
	if views {
		kind = models.KindViews
	}
	return &Result{
		Rows:             rows,
		Delimiter:        delim,
		Headers:          headers,
		Index:            idx,
		ImpressionsLabel: label,
		ImpressionsKind:  kind,
	}, nil
}

func toRow(cells []string, idx ColumnIndex) models.MetricRow {
	str := func(f Field) string { return strings.TrimSpace(cell(cells, idx.Col(f))) }
	num := func(f Field) float64 { return ParseNumber(cell(cells, idx.Col(f))) }
	return models.MetricRow{
		Date:        str(FieldDate),
		Impressions: num(FieldImpressions),
		Clicks:      num(FieldClicks),
		Spend:       num(FieldSpend),
		Conversions: num(FieldConversions),
		Platform:    str(FieldPlatform),
		Source:      str(FieldSource),
		Channel:     str(FieldChannel),
		Campaign:    str(FieldCampaign),
		Account:     str(FieldAccount),
	}
}

// splitLines splits on \n or \r\n and drops blank lines.
func splitLines(text string) []string {
	parts := strings.Split(text, "\n")
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSuffix(p, "\r")
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
