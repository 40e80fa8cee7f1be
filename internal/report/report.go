package report

import (
	"math"

	"github.com/envidicy/insights/internal/format"
	"github.com/envidicy/insights/internal/ingest"
	"github.com/envidicy/insights/internal/metrics"
	"github.com/envidicy/insights/internal/models"
)

type Card struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Ring is a KPI progress ring; Progress is Value/Max capped at 1.
type Ring struct {
	Label    string  `json:"label"`
	Value    float64 `json:"value"`
	Max      float64 `json:"max"`
	Progress float64 `json:"progress"`
	Display  string  `json:"display"`
}

type Slice struct {
	Label   string  `json:"label"`
	Spend   float64 `json:"spend"`
	Display string  `json:"display"`
	Percent float64 `json:"percent"`
}

type Donut struct {
	Total   float64 `json:"total"`
	Display string  `json:"display"`
	Slices  []Slice `json:"slices"`
}

type Line struct {
	Date        string          `json:"date"`
	Impressions string          `json:"impressions"`
	Clicks      string          `json:"clicks"`
	Spend       string          `json:"spend"`
	CTR         string          `json:"ctr"`
	CPC         string          `json:"cpc"`
	CPM         string          `json:"cpm"`
	Conversions string          `json:"conversions"`
	Raw         models.TableRow `json:"raw"`
}

// Dashboard is everything the upload page renders for one dataset. An
// empty dataset yields an empty dashboard rather than zeros.
type Dashboard struct {
	FileName         string               `json:"file_name,omitempty"`
	Currency         string               `json:"currency"`
	ImpressionsLabel string               `json:"impressions_label"`
	Summary          models.Summary       `json:"summary"`
	Cards            []Card               `json:"cards"`
	Rings            []Ring               `json:"rings"`
	Donut            *Donut               `json:"donut"`
	Series           []models.SeriesPoint `json:"series"`
	Table            []Line               `json:"table"`
}

const shareLimit = 5

// Build assembles the dashboard. ds may be nil.
func Build(ds *models.Dataset, currency string) Dashboard {
	d := Dashboard{
		Currency:         currency,
		ImpressionsLabel: ingest.LabelUnknownViews,
		Cards:            []Card{},
		Rings:            []Ring{},
		Series:           []models.SeriesPoint{},
		Table:            []Line{},
	}
	if ds == nil || len(ds.Rows) == 0 {
		return d
	}
	d.FileName = ds.FileName
	if ds.ImpressionsLabel != "" {
		d.ImpressionsLabel = ds.ImpressionsLabel
	}

	s := metrics.Summarize(ds.Rows)
	d.Summary = s
	d.Cards = cards(s, d.ImpressionsLabel, currency)
	d.Rings = rings(s)
	d.Donut = donut(metrics.Share(metrics.GroupSpend(ds.Rows), shareLimit))
	d.Series = metrics.Series(ds.Rows)
	for _, r := range metrics.Table(ds.Rows) {
		d.Table = append(d.Table, NewLine(r, currency))
	}
	return d
}

func money(currency string) func(float64) string {
	return func(v float64) string { return format.MoneyWith(v, currency) }
}

func cards(s models.Summary, impressionsLabel, currency string) []Card {
	return []Card{
		{Label: impressionsLabel, Value: format.Int(s.Impressions)},
		{Label: "Клики", Value: format.Int(s.Clicks)},
		{Label: "Расход", Value: format.MoneyWith(s.Spend, currency)},
		{Label: "CTR", Value: format.Pct(s.CTR)},
		{Label: "CPC", Value: format.OrDash(s.Clicks, s.CPC, money(currency))},
		{Label: "CPM", Value: format.OrDash(s.Impressions, s.CPM, money(currency))},
		{Label: "Конверсии", Value: format.Int(s.Conversions)},
	}
}

// CTR is scaled against 10%; CPC and CPM against twice their own value so
// the ring sits half full whenever they are non-zero.
func rings(s models.Summary) []Ring {
	scaled := func(v float64) float64 {
		if v == 0 {
			return 1
		}
		return v * 2
	}
	out := []Ring{
		{Label: "CTR", Value: s.CTR, Max: 0.1, Display: format.Pct(s.CTR)},
		{Label: "CPC", Value: s.CPC, Max: scaled(s.CPC), Display: format.OrDash(s.CPC, s.CPC, format.Money)},
		{Label: "CPM", Value: s.CPM, Max: scaled(s.CPM), Display: format.OrDash(s.CPM, s.CPM, format.Money)},
	}
	for i := range out {
		out[i].Progress = math.Min(out[i].Value/out[i].Max, 1)
	}
	return out
}

func donut(share []models.Bucket) *Donut {
	if len(share) == 0 {
		return nil
	}
	var total float64
	for _, b := range share {
		total += b.Spend
	}
	d := &Donut{Total: total, Display: format.Money(total), Slices: make([]Slice, 0, len(share))}
	for _, b := range share {
		d.Slices = append(d.Slices, Slice{
			Label:   b.Label,
			Spend:   b.Spend,
			Display: format.Money(b.Spend),
			Percent: b.Spend / total,
		})
	}
	return d
}

// NewLine formats one table row; ratios without a denominator show a dash.
func NewLine(r models.TableRow, currency string) Line {
	return Line{
		Date:        orDash(r.Date),
		Impressions: format.Int(r.Impressions),
		Clicks:      format.Int(r.Clicks),
		Spend:       format.OrDash(r.Spend, r.Spend, money(currency)),
		CTR:         format.OrDash(r.Impressions, r.CTR, format.Pct),
		CPC:         format.OrDash(r.Clicks, r.CPC, money(currency)),
		CPM:         format.OrDash(r.Impressions, r.CPM, money(currency)),
		Conversions: format.OrDash(r.Conversions, r.Conversions, format.Int),
		Raw:         r,
	}
}

func orDash(s string) string {
	if s == "" {
		return format.Dash
	}
	return s
}
