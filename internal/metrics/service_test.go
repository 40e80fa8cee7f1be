package metrics

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envidicy/insights/internal/models"
	"github.com/envidicy/insights/internal/store"
)

func serviceWith(t *testing.T, rows []models.MetricRow) *Service {
	t.Helper()
	st := store.NewMemoryStore(0)
	ctx := context.Background()
	gen, err := st.Begin(ctx, "s")
	require.NoError(t, err)
	require.NoError(t, st.Commit(ctx, "s", gen, &models.Dataset{ID: "x", Rows: rows}))
	return NewService(st)
}

func TestServiceNotFound(t *testing.T) {
	svc := NewService(store.NewMemoryStore(0))
	_, err := svc.Summary(context.Background(), "nobody")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestServiceSummaryAndBreakdown(t *testing.T) {
	svc := serviceWith(t, sampleRows())
	ctx := context.Background()

	s, err := svc.Summary(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, 65.5, s.Spend)

	b, err := svc.Breakdown(ctx, "s", url.Values{"limit": {"1"}})
	require.NoError(t, err)
	assert.Equal(t, "platform", b.Dimension)
	assert.Equal(t, []models.Bucket{{Label: "Google", Spend: 53}, {Label: LabelOther, Spend: 12.5}}, b.Share)
}

func TestServiceRowsSortAndPaginate(t *testing.T) {
	rows := []models.MetricRow{
		{Date: "2024-01-03", Spend: 1},
		{Date: "2024-01-01", Spend: 9},
		{Date: "2024-01-02", Spend: 5},
	}
	svc := serviceWith(t, rows)
	ctx := context.Background()

	got, err := svc.Rows(ctx, "s", url.Values{"sort": {"Spend"}, "order": {"desc"}, "limit": {"2"}})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 9.0, got[0].Spend)
	assert.Equal(t, 5.0, got[1].Spend)

	got, err = svc.Rows(ctx, "s", url.Values{"offset": {"2"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2024-01-03", got[0].Date)

	got, err = svc.Rows(ctx, "s", url.Values{"offset": {"10"}})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClampLimitOffset(t *testing.T) {
	l, o := clampLimitOffset(5000, -1, 10)
	assert.Equal(t, 1000, l)
	assert.Equal(t, 0, o)

	l, o = clampLimitOffset(0, 20, 10)
	assert.Equal(t, 10, l)
	assert.Equal(t, 10, o)
}
