package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/envidicy/insights/internal/config"
	"github.com/envidicy/insights/internal/models"
	"github.com/envidicy/insights/internal/store"
	"github.com/envidicy/insights/internal/telemetry"
	"github.com/envidicy/insights/internal/utils"
)

var (
	ErrTooLarge = errors.New("upload exceeds size limit")
	ErrFetch    = errors.New("remote export fetch failed")
	ErrImport   = errors.New("import url not allowed")
)

// Ingestor runs uploads through Parse and swaps the session's dataset.
type Ingestor struct {
	c   HTTPClient
	st  store.Store
	log *slog.Logger
	cfg config.Config
	m   *telemetry.Metrics
	bo  utils.Backoff
	now func() time.Time
}

func NewIngestor(c HTTPClient, st store.Store, log *slog.Logger, cfg config.Config, m *telemetry.Metrics) *Ingestor {
	return &Ingestor{
		c:   c,
		st:  st,
		log: log,
		cfg: cfg,
		m:   m,
		bo:  utils.NewBackoff(100*time.Millisecond, 2),
		now: time.Now,
	}
}

// Outcome is what an upload produced, including the status line shown
// next to the file picker.
type Outcome struct {
	Dataset *models.Dataset
	Status  string
}

// Ingest reads r, parses it and makes the result the session's current
// dataset. A structural failure clears the session instead of leaving the
// previous file's metrics on screen.
func (e *Ingestor) Ingest(ctx context.Context, session, fileName string, r io.Reader) (*Outcome, error) {
	start := e.now()
	gen, err := e.st.Begin(ctx, session)
	if err != nil {
		e.m.Ingests.WithLabelValues(telemetry.OutcomeFailed).Inc()
		return nil, err
	}
	return e.ingest(ctx, session, gen, start, fileName, r)
}

// ingest finishes an upload whose generation is already reserved.
func (e *Ingestor) ingest(ctx context.Context, session string, gen uint64, start time.Time, fileName string, r io.Reader) (*Outcome, error) {
	text, err := e.readText(r)
	if err != nil {
		e.m.Ingests.WithLabelValues(telemetry.OutcomeFailed).Inc()
		return nil, e.fail(ctx, session, gen, err)
	}

	res, err := Parse(text)
	if err != nil {
		e.m.Ingests.WithLabelValues(telemetry.OutcomeStructural).Inc()
		e.log.Info("ingest rejected",
			slog.String("session", session),
			slog.String("file", fileName),
			slog.String("reason", StatusMessage(err)))
		return nil, e.fail(ctx, session, gen, err)
	}

	ds := &models.Dataset{
		ID:               uuid.NewString(),
		Session:          session,
		FileName:         fileName,
		Generation:       gen,
		Delimiter:        delimiterName(res.Delimiter),
		ImpressionsLabel: res.ImpressionsLabel,
		ImpressionsKind:  res.ImpressionsKind,
		Headers:          res.Headers,
		Rows:             res.Rows,
		LoadedAt:         e.now().UTC(),
	}
	if err := e.st.Commit(ctx, session, gen, ds); err != nil {
		if errors.Is(err, store.ErrStale) {
			e.m.Ingests.WithLabelValues(telemetry.OutcomeStale).Inc()
			e.log.Warn("ingest superseded", slog.String("session", session), slog.Uint64("generation", gen))
		} else {
			e.m.Ingests.WithLabelValues(telemetry.OutcomeFailed).Inc()
		}
		return nil, err
	}

	e.m.Ingests.WithLabelValues(telemetry.OutcomeOK).Inc()
	e.m.RowsIngested.Add(float64(len(ds.Rows)))
	e.m.IngestSeconds.Observe(e.now().Sub(start).Seconds())
	e.log.Info("ingest complete",
		slog.String("session", session),
		slog.String("file", fileName),
		slog.String("dataset", ds.ID),
		slog.Int("rows", len(ds.Rows)),
		slog.String("delimiter", ds.Delimiter))

	return &Outcome{Dataset: ds, Status: fmt.Sprintf("Файл \"%s\" загружен.", fileName)}, nil
}

// ImportURL downloads an export (for instance a scheduled report link from
// an ad cabinet) and ingests it like an upload. Only hosts listed in
// import_hosts are fetched. A failed download clears the session just like
// a broken upload.
func (e *Ingestor) ImportURL(ctx context.Context, session, rawURL string) (*Outcome, error) {
	u, err := CheckImportURL(e.cfg.ImportHosts, rawURL)
	if err != nil {
		return nil, err
	}

	start := e.now()
	gen, err := e.st.Begin(ctx, session)
	if err != nil {
		e.m.Ingests.WithLabelValues(telemetry.OutcomeFailed).Inc()
		return nil, err
	}

	body, err := GetWithRetry(ctx, e.c, u.String(), e.cfg.MaxUploadBytes+1, e.bo, func(err error) {
		result := "ok"
		if err != nil {
			result = "error"
		}
		e.m.FetchAttempts.WithLabelValues(result).Inc()
	})
	if err != nil {
		e.m.Ingests.WithLabelValues(telemetry.OutcomeFailed).Inc()
		e.log.Error("remote export fetch failed",
			slog.String("session", session),
			slog.String("host", u.Host),
			slog.String("err", err.Error()))
		return nil, e.fail(ctx, session, gen, fmt.Errorf("%w: %w", ErrFetch, err))
	}
	return e.ingest(ctx, session, gen, start, fileNameFromURL(rawURL), bytes.NewReader(body))
}

// Clear drops the session's dataset.
func (e *Ingestor) Clear(ctx context.Context, session string) error {
	gen, err := e.st.Begin(ctx, session)
	if err != nil {
		return err
	}
	return e.st.Commit(ctx, session, gen, nil)
}

func (e *Ingestor) fail(ctx context.Context, session string, gen uint64, cause error) error {
	if err := e.st.Commit(ctx, session, gen, nil); err != nil && !errors.Is(err, store.ErrStale) {
		e.log.Error("clear after failed ingest", slog.String("session", session), slog.String("err", err.Error()))
	}
	return cause
}

func (e *Ingestor) readText(r io.Reader) (string, error) {
	return Decode(r, e.cfg.MaxUploadBytes)
}

// Decode reads at most limit bytes of r as UTF-8, or UTF-16 when a BOM says
// so. The UTF-8 BOM is removed as well. More than limit bytes is ErrTooLarge.
func Decode(r io.Reader, limit int64) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(raw)) > limit {
		return "", ErrTooLarge
	}
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, raw)
	if err != nil {
		return "", fmt.Errorf("decode upload: %w", err)
	}
	return string(out), nil
}

func fileNameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if name := path.Base(u.Path); name != "." && name != "/" {
		return name
	}
	return u.Host
}
