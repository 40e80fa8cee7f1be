// Package cli is the insights command line: the same parsing and
// aggregation as the server, run over local export files.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/envidicy/insights/internal/ingest"
	"github.com/envidicy/insights/internal/models"
)

var Version = "dev"

type options struct {
	output   string
	currency string
	maxBytes int64
	jobs     int
	verbose  bool
	log      *slog.Logger
}

// NewRootCmd builds the insights command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:     "insights",
		Short:   "Summarize ad-platform CSV exports",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch opts.output {
			case "table", "json":
			default:
				return fmt.Errorf("unknown output %q (table|json)", opts.output)
			}
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			opts.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.output, "output", "o", "table", "Output format (table|json)")
	pf.StringVar(&opts.currency, "currency", "KZT", "Currency code shown next to money values")
	pf.Int64Var(&opts.maxBytes, "max-bytes", 10<<20, "Largest file accepted, in bytes")
	pf.IntVarP(&opts.jobs, "jobs", "j", 4, "Files parsed in parallel")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Log parse details to stderr")

	_ = root.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(newSummaryCommand(opts))
	root.AddCommand(newRowsCommand(opts))
	root.AddCommand(newBreakdownCommand(opts))
	return root
}

// loaded is one parsed export file.
type loaded struct {
	Path string
	*ingest.Result
}

func (l loaded) dataset() *models.Dataset {
	return &models.Dataset{
		FileName:         filepath.Base(l.Path),
		ImpressionsLabel: l.ImpressionsLabel,
		ImpressionsKind:  l.ImpressionsKind,
		Headers:          l.Headers,
		Rows:             l.Rows,
	}
}

// loadFiles parses paths concurrently; results keep argument order.
func (o *options) loadFiles(ctx context.Context, paths []string) ([]loaded, error) {
	out := make([]loaded, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	if o.jobs > 0 {
		g.SetLimit(o.jobs)
	}
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := o.loadFile(p)
			if err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
			out[i] = loaded{Path: p, Result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (o *options) loadFile(path string) (*ingest.Result, error) {
	start := time.Now()
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	text, err := ingest.Decode(f, o.maxBytes)
	if err != nil {
		return nil, err
	}
	res, err := ingest.Parse(text)
	if err != nil {
		return nil, err
	}
	o.logger().Debug("parsed",
		slog.String("file", path),
		slog.Int("rows", len(res.Rows)),
		slog.String("delimiter", string(res.Delimiter)),
		slog.Duration("took", time.Since(start)))
	return res, nil
}

func (o *options) logger() *slog.Logger {
	if o.log == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.log
}
