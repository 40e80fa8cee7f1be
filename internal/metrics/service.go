package metrics

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/envidicy/insights/internal/models"
	"github.com/envidicy/insights/internal/store"
)

// Service answers dashboard queries against a session's current dataset.
type Service struct{ st store.Store }

func NewService(st store.Store) *Service { return &Service{st: st} }
func norm(s string) string               { return strings.ToLower(strings.TrimSpace(s)) }

func (s *Service) Dataset(ctx context.Context, session string) (*models.Dataset, error) {
	return s.st.Current(ctx, session)
}

func (s *Service) Summary(ctx context.Context, session string) (models.Summary, error) {
	ds, err := s.st.Current(ctx, session)
	if err != nil {
		return models.Summary{}, err
	}
	return Summarize(ds.Rows), nil
}

type BreakdownResult struct {
	models.Breakdown
	Share []models.Bucket `json:"share"`
}

func (s *Service) Breakdown(ctx context.Context, session string, v url.Values) (BreakdownResult, error) {
	ds, err := s.st.Current(ctx, session)
	if err != nil {
		return BreakdownResult{}, err
	}
	b := GroupSpend(ds.Rows)
	return BreakdownResult{Breakdown: b, Share: Share(b, atoiDef(v.Get("limit"), 5))}, nil
}

func (s *Service) Series(ctx context.Context, session string) ([]models.SeriesPoint, error) {
	ds, err := s.st.Current(ctx, session)
	if err != nil {
		return nil, err
	}
	return Series(ds.Rows), nil
}

// Rows returns the table, optionally sorted by a column (sort=, order=asc|desc)
// and paginated (limit=, offset=).
func (s *Service) Rows(ctx context.Context, session string, v url.Values) ([]models.TableRow, error) {
	ds, err := s.st.Current(ctx, session)
	if err != nil {
		return nil, err
	}
	rows := Table(ds.Rows)
	SortRows(rows, norm(v.Get("sort")), norm(v.Get("order")) == "desc")

	limit := atoiDef(v.Get("limit"), 100)
	offset := atoiDef(v.Get("offset"), 0)
	limit, offset = clampLimitOffset(limit, offset, len(rows))
	return paginate(rows, limit, offset), nil
}

var sortKeys = map[string]func(models.TableRow) float64{
	"impressions": func(r models.TableRow) float64 { return r.Impressions },
	"clicks":      func(r models.TableRow) float64 { return r.Clicks },
	"spend":       func(r models.TableRow) float64 { return r.Spend },
	"conversions": func(r models.TableRow) float64 { return r.Conversions },
	"ctr":         func(r models.TableRow) float64 { return r.CTR },
	"cpc":         func(r models.TableRow) float64 { return r.CPC },
	"cpm":         func(r models.TableRow) float64 { return r.CPM },
}

// SortRows orders rows by column; unknown columns sort by date. Ties keep
// date order.
func SortRows(rows []models.TableRow, column string, desc bool) {
	key, ok := sortKeys[column]
	if !ok {
		sort.SliceStable(rows, func(i, j int) bool {
			if desc {
				return rows[i].Date > rows[j].Date
			}
			return rows[i].Date < rows[j].Date
		})
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if desc {
			return key(rows[i]) > key(rows[j])
		}
		return key(rows[i]) < key(rows[j])
	})
}

func paginate[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

func atoiDef(s string, d int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}

func clampLimitOffset(limit, offset, n int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = n
	}
	if limit > 1000 {
		limit = 1000
	}
	if offset > n {
		offset = n
	}
	return limit, offset
}
