package metrics

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/envidicy/insights/internal/models"
)

func sampleRows() []models.MetricRow {
	return []models.MetricRow{
		{Date: "2024-01-02", Impressions: 2000, Clicks: 40, Spend: 53, Conversions: 3, Platform: "Google"},
		{Date: "2024-01-01", Impressions: 1000, Clicks: 10, Spend: 12.5, Conversions: 2, Platform: "Meta"},
	}
}

func TestDerivedZeroGuards(t *testing.T) {
	ctr, cpc, cpm := Derived(0, 0, 100)
	assert.Zero(t, ctr)
	assert.Zero(t, cpc)
	assert.Zero(t, cpm)

	ctr, cpc, cpm = Derived(1000, 10, 5)
	assert.InDelta(t, 0.01, ctr, 1e-12)
	assert.InDelta(t, 0.5, cpc, 1e-12)
	assert.InDelta(t, 5, cpm, 1e-12)
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleRows())
	assert.Equal(t, 3000.0, s.Impressions)
	assert.Equal(t, 50.0, s.Clicks)
	assert.Equal(t, 65.5, s.Spend)
	assert.Equal(t, 5.0, s.Conversions)
	assert.InDelta(t, 0.016667, s.CTR, 1e-6)
	assert.InDelta(t, 1.31, s.CPC, 1e-9)
	assert.InDelta(t, 21.8333, s.CPM, 1e-4)

	assert.Equal(t, models.Summary{}, Summarize(nil))
}

func TestSummarizeReferenceExport(t *testing.T) {
	s := Summarize([]models.MetricRow{
		{Date: "2024-01-01", Impressions: 1000, Clicks: 50, Spend: 25, Conversions: 5},
		{Date: "2024-01-02", Impressions: 2000, Spend: 40.5},
	})
	assert.Equal(t, models.Summary{
		Impressions: 3000, Clicks: 50, Spend: 65.5, Conversions: 5,
		CTR: s.CTR, CPC: s.CPC, CPM: s.CPM,
	}, s)
	assert.InDelta(t, 0.0167, s.CTR, 1e-4)
	assert.InDelta(t, 1.31, s.CPC, 1e-9)
	assert.InDelta(t, 21.83, s.CPM, 1e-2)
}

func TestSummarizeSpendIsExact(t *testing.T) {
	rows := make([]models.MetricRow, 10)
	for i := range rows {
		rows[i].Spend = 0.1
	}
	assert.Equal(t, 1.0, Summarize(rows).Spend)
}

func TestGroupSpend(t *testing.T) {
	rows := []models.MetricRow{
		{Date: "d1", Spend: 5, Channel: "search"},
		{Date: "d2", Spend: 7},
		{Date: "d3", Spend: 3, Channel: "search"},
		{Date: "d4", Spend: 1, Campaign: "brand"},
	}
	b := GroupSpend(rows)
	want := models.Breakdown{Dimension: "channel", Buckets: []models.Bucket{
		{Label: "search", Spend: 8},
		{Label: LabelUnspecified, Spend: 8},
	}}
	if diff := cmp.Diff(want, b); diff != "" {
		t.Fatalf("breakdown mismatch (-want +got):\n%s", diff)
	}
}

func TestGroupSpendByDateFallback(t *testing.T) {
	rows := []models.MetricRow{
		{Date: "2024-01-01", Spend: 1},
		{Spend: 2},
		{Date: "2024-01-01", Spend: 4},
	}
	b := GroupSpend(rows)
	assert.Equal(t, "", b.Dimension)
	assert.Equal(t, []models.Bucket{{Label: "2024-01-01", Spend: 5}, {Label: LabelNoDate, Spend: 2}}, b.Buckets)
}

func TestShare(t *testing.T) {
	b := models.Breakdown{Buckets: []models.Bucket{
		{Label: "a", Spend: 1}, {Label: "b", Spend: 6}, {Label: "zero", Spend: 0},
		{Label: "c", Spend: 5}, {Label: "d", Spend: 4}, {Label: "e", Spend: 3},
		{Label: "f", Spend: 2}, {Label: "neg", Spend: -3},
	}}
	got := Share(b, 5)
	want := []models.Bucket{
		{Label: "b", Spend: 6}, {Label: "c", Spend: 5}, {Label: "d", Spend: 4},
		{Label: "e", Spend: 3}, {Label: "f", Spend: 2}, {Label: LabelOther, Spend: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("share mismatch (-want +got):\n%s", diff)
	}

	assert.Len(t, Share(b, 0), 6, "non-positive limit means the default of five")
	assert.Empty(t, Share(models.Breakdown{Buckets: []models.Bucket{{Label: "x"}}}, 5))
}

func TestSeriesAndTableSortByDate(t *testing.T) {
	rows := sampleRows()
	s := Series(rows)
	assert.Equal(t, []models.SeriesPoint{
		{Date: "2024-01-01", Spend: 12.5, Clicks: 10},
		{Date: "2024-01-02", Spend: 53, Clicks: 40},
	}, s)
	assert.Equal(t, "2024-01-02", rows[0].Date, "input must not be reordered")

	tbl := Table(rows)
	assert.Equal(t, "2024-01-01", tbl[0].Date)
	assert.InDelta(t, 0.01, tbl[0].CTR, 1e-12)
	assert.InDelta(t, 1.25, tbl[0].CPC, 1e-12)
	assert.InDelta(t, 12.5, tbl[0].CPM, 1e-12)
}
