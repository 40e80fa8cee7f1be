package ingest

import (
	"strings"
	"unicode"
)

// Field is a canonical column every recognised header maps onto.
type Field string

const (
	FieldDate        Field = "date"
	FieldImpressions Field = "impressions"
	FieldClicks      Field = "clicks"
	FieldSpend       Field = "spend"
	FieldConversions Field = "conversions"
	FieldPlatform    Field = "platform"
	FieldSource      Field = "source"
	FieldChannel     Field = "channel"
	FieldCampaign    Field = "campaign"
	FieldAccount     Field = "account"
)

// NotFound marks a canonical field with no matching column.
const NotFound = -1

// Synonym lists the normalized header tokens accepted for one field, in
// priority order.
type Synonym struct {
	Field  Field    `json:"field"`
	Tokens []string `json:"tokens"`
}

// Synonyms is the header alias table. Platform deliberately also accepts
// the source tokens: exports that only carry "source" still get a platform.
var Synonyms = []Synonym{
	{FieldDate, []string{"date", "day", "дата"}},
	{FieldImpressions, []string{"impressions", "impr", "показы", "views", "view", "просмотры"}},
	{FieldClicks, []string{"clicks", "click", "клики"}},
	{FieldSpend, []string{"spend", "cost", "расход", "затраты", "стоимость"}},
	{FieldConversions, []string{"conversions", "conv", "лиды", "leads", "lead", "конверсии"}},
	{FieldPlatform, []string{"platform", "платформа", "source", "источник"}},
	{FieldSource, []string{"source", "источник"}},
	{FieldChannel, []string{"channel", "канал"}},
	{FieldCampaign, []string{"campaign", "кампания"}},
	{FieldAccount, []string{"account", "аккаунт"}},
}

// ColumnIndex maps each canonical field to its column position or NotFound.
type ColumnIndex map[Field]int

// Col returns the column for f, NotFound when absent.
func (ci ColumnIndex) Col(f Field) int {
	if i, ok := ci[f]; ok {
		return i
	}
	return NotFound
}

// NormalizeHeader lowercases a raw header, turns whitespace runs into a
// single underscore and drops anything outside [a-z0-9а-я_].
func NormalizeHeader(s string) string {
	s = strings.TrimPrefix(s, "\uFEFF")
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte('_')
				inSpace = true
			}
			continue
		}
		inSpace = false
		if allowedHeaderRune(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func allowedHeaderRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
		return true
	case r >= 'а' && r <= 'я':
		return true
	}
	return false
}

// BuildIndex resolves normalized headers against Synonyms. Within a field
// the earlier synonym wins, then the leftmost header.
func BuildIndex(headers []string) ColumnIndex {
	ci := make(ColumnIndex, len(Synonyms))
	for _, syn := range Synonyms {
		ci[syn.Field] = findIndex(headers, syn.Tokens)
	}
	return ci
}

func findIndex(headers, tokens []string) int {
	for _, tok := range tokens {
		for i, h := range headers {
			if h == tok {
				return i
			}
		}
	}
	return NotFound
}

const (
	LabelImpressions  = "Показы"
	LabelViews        = "Просмотры"
	LabelUnknownViews = "Показы/просмотры"
)

// impressionsCaption tells "views" exports apart from "impressions" ones
// for the summary card title.
func impressionsCaption(header string) (string, bool) {
	if strings.Contains(header, "view") || strings.Contains(header, "просмотр") {
		return LabelViews, true
	}
	return LabelImpressions, false
}
