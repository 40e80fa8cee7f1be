package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/envidicy/insights/internal/format"
	"github.com/envidicy/insights/internal/metrics"
	"github.com/envidicy/insights/internal/models"
	"github.com/envidicy/insights/internal/report"
)

func newSummaryCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "summary FILE...",
		Short: "Totals and CTR/CPC/CPM per file",
		Example: `  insights summary meta.csv google.csv
  insights summary -o json export.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := o.loadFiles(cmd.Context(), args)
			if err != nil {
				return err
			}
			return o.renderSummary(cmd.OutOrStdout(), files)
		},
	}
}

func newRowsCommand(o *options) *cobra.Command {
	var (
		sortBy string
		desc   bool
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "rows FILE",
		Short: "Per-row table with derived ratios",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := o.loadFiles(cmd.Context(), args)
			if err != nil {
				return err
			}
			rows := metrics.Table(files[0].Rows)
			metrics.SortRows(rows, sortBy, desc)
			if limit > 0 && limit < len(rows) {
				rows = rows[:limit]
			}
			return o.renderRows(cmd.OutOrStdout(), rows, files[0].ImpressionsLabel)
		},
	}
	cmd.Flags().StringVar(&sortBy, "sort", "", "Sort column (impressions|clicks|spend|conversions|ctr|cpc|cpm)")
	cmd.Flags().BoolVar(&desc, "desc", false, "Sort descending")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most n rows")
	return cmd
}

func newBreakdownCommand(o *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "breakdown FILE",
		Short: "Spend by platform, source, channel, campaign or account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := o.loadFiles(cmd.Context(), args)
			if err != nil {
				return err
			}
			b := metrics.GroupSpend(files[0].Rows)
			return o.renderBreakdown(cmd.OutOrStdout(), b, metrics.Share(b, limit))
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Slices before the rest is folded into \""+metrics.LabelOther+"\"")
	return cmd
}

type fileSummary struct {
	File    string         `json:"file"`
	Rows    int            `json:"rows"`
	Summary models.Summary `json:"summary"`
}

func (o *options) renderSummary(w io.Writer, files []loaded) error {
	var (
		out []fileSummary
		all []models.MetricRow
	)
	for _, f := range files {
		out = append(out, fileSummary{File: filepath.Base(f.Path), Rows: len(f.Rows), Summary: metrics.Summarize(f.Rows)})
		all = append(all, f.Rows...)
	}
	if o.output == "json" {
		return writeJSON(w, out)
	}

	t := newTable(w)
	label := files[0].ImpressionsLabel
	t.AppendHeader(table.Row{"Файл", "Строк", label, "Клики", "Расход", "CTR", "CPC", "CPM", "Конверсии"})
	for _, f := range files {
		t.AppendRow(summaryRow(filepath.Base(f.Path), f.dataset(), o.currency))
	}
	if len(files) > 1 {
		t.AppendSeparator()
		t.AppendRow(summaryRow("Итого", &models.Dataset{Rows: all}, o.currency))
	}
	t.Render()
	return nil
}

// summaryRow reuses the dashboard cards so the CLI prints what the page shows.
func summaryRow(name string, ds *models.Dataset, currency string) table.Row {
	row := table.Row{name, len(ds.Rows)}
	cards := report.Build(ds, currency).Cards
	if len(cards) == 0 {
		return append(row, format.Dash, format.Dash, format.Dash, format.Dash, format.Dash, format.Dash, format.Dash)
	}
	for _, c := range cards {
		row = append(row, c.Value)
	}
	return row
}

func (o *options) renderRows(w io.Writer, rows []models.TableRow, impressionsLabel string) error {
	if o.output == "json" {
		return writeJSON(w, rows)
	}
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"Дата", impressionsLabel, "Клики", "Расход", "CTR", "CPC", "CPM", "Конверсии"})
	for _, r := range rows {
		l := report.NewLine(r, o.currency)
		t.AppendRow(table.Row{l.Date, l.Impressions, l.Clicks, l.Spend, l.CTR, l.CPC, l.CPM, l.Conversions})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(rows))
	return nil
}

func (o *options) renderBreakdown(w io.Writer, b models.Breakdown, share []models.Bucket) error {
	if o.output == "json" {
		return writeJSON(w, struct {
			models.Breakdown
			Share []models.Bucket `json:"share"`
		}{b, share})
	}

	dim := b.Dimension
	if dim == "" {
		dim = "date"
	}
	t := newTable(w)
	t.SetTitle("Расход по: " + dim)
	t.AppendHeader(table.Row{"", "Расход"})
	for _, bk := range b.Buckets {
		t.AppendRow(table.Row{bk.Label, format.MoneyWith(bk.Spend, o.currency)})
	}
	t.Render()

	if len(share) == 0 {
		return nil
	}
	var total float64
	for _, bk := range share {
		total += bk.Spend
	}
	s := newTable(w)
	s.SetTitle("Доля расхода")
	s.AppendHeader(table.Row{"", "Расход", "%"})
	for _, bk := range share {
		s.AppendRow(table.Row{bk.Label, format.MoneyWith(bk.Spend, o.currency), format.Pct(bk.Spend / total)})
	}
	s.Render()
	return nil
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	return t
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
