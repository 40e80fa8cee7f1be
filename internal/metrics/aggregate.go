package metrics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/envidicy/insights/internal/models"
)

const (
	LabelUnspecified = "Не указано"
	LabelNoDate      = "Без даты"
	LabelOther       = "Другое"
)

// DimensionOrder is the preference order for spend breakdowns.
var DimensionOrder = []string{"platform", "source", "channel", "campaign", "account"}

func dimension(r models.MetricRow, name string) string {
	switch name {
	case "platform":
		return r.Platform
	case "source":
		return r.Source
	case "channel":
		return r.Channel
	case "campaign":
		return r.Campaign
	case "account":
		return r.Account
	}
	return ""
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// Derived returns ctr, cpc and cpm; each is 0 when its denominator is 0.
func Derived(impressions, clicks, spend float64) (ctr, cpc, cpm float64) {
	return safeDiv(clicks, impressions), safeDiv(spend, clicks), safeDiv(spend, impressions) * 1000
}

func Summarize(rows []models.MetricRow) models.Summary {
	var s models.Summary
	spend := decimal.Zero
	for _, r := range rows {
		s.Impressions += r.Impressions
		s.Clicks += r.Clicks
		s.Conversions += r.Conversions
		spend = spend.Add(decimal.NewFromFloat(r.Spend))
	}
	s.Spend = spend.InexactFloat64()
	s.CTR, s.CPC, s.CPM = Derived(s.Impressions, s.Clicks, s.Spend)
	return s
}

// GroupSpend sums spend per value of the first dimension populated on any
// row. With no dimension at all rows are keyed on their date.
func GroupSpend(rows []models.MetricRow) models.Breakdown {
	dim := ""
	for _, name := range DimensionOrder {
		if anyRow(rows, name) {
			dim = name
			break
		}
	}

	sums := map[string]decimal.Decimal{}
	var order []string
	for _, r := range rows {
		label := bucketLabel(r, dim)
		if _, ok := sums[label]; !ok {
			order = append(order, label)
		}
		sums[label] = sums[label].Add(decimal.NewFromFloat(r.Spend))
	}

	out := models.Breakdown{Dimension: dim, Buckets: make([]models.Bucket, 0, len(order))}
	for _, label := range order {
		out.Buckets = append(out.Buckets, models.Bucket{Label: label, Spend: sums[label].InexactFloat64()})
	}
	return out
}

func anyRow(rows []models.MetricRow, dim string) bool {
	for _, r := range rows {
		if dimension(r, dim) != "" {
			return true
		}
	}
	return false
}

func bucketLabel(r models.MetricRow, dim string) string {
	if dim == "" {
		if r.Date == "" {
			return LabelNoDate
		}
		return r.Date
	}
	if v := dimension(r, dim); v != "" {
		return v
	}
	return LabelUnspecified
}

// Share keeps buckets with positive spend, largest first, and folds
// everything after the first limit into LabelOther.
func Share(b models.Breakdown, limit int) []models.Bucket {
	if limit <= 0 {
		limit = 5
	}
	data := make([]models.Bucket, 0, len(b.Buckets))
	for _, bk := range b.Buckets {
		if bk.Spend > 0 {
			data = append(data, bk)
		}
	}
	sort.SliceStable(data, func(i, j int) bool { return data[i].Spend > data[j].Spend })
	if len(data) <= limit {
		return data
	}
	rest := decimal.Zero
	for _, bk := range data[limit:] {
		rest = rest.Add(decimal.NewFromFloat(bk.Spend))
	}
	out := append([]models.Bucket{}, data[:limit]...)
	return append(out, models.Bucket{Label: LabelOther, Spend: rest.InexactFloat64()})
}

func byDate(rows []models.MetricRow) []models.MetricRow {
	out := append([]models.MetricRow(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// Series is spend and clicks in date order for the line chart. Dates are
// compared as raw strings (byte order), which is chronological for ISO
// dates; free-form or Cyrillic dates sort by byte value, not by locale
// collation.
func Series(rows []models.MetricRow) []models.SeriesPoint {
	sorted := byDate(rows)
	out := make([]models.SeriesPoint, 0, len(sorted))
	for _, r := range sorted {
		out = append(out, models.SeriesPoint{Date: r.Date, Spend: r.Spend, Clicks: r.Clicks})
	}
	return out
}

// Table adds per-row ratios, rows in date order.
func Table(rows []models.MetricRow) []models.TableRow {
	sorted := byDate(rows)
	out := make([]models.TableRow, 0, len(sorted))
	for _, r := range sorted {
		tr := models.TableRow{MetricRow: r}
		tr.CTR, tr.CPC, tr.CPM = Derived(r.Impressions, r.Clicks, r.Spend)
		out = append(out, tr)
	}
	return out
}
