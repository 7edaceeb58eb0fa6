package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/wallpaperverse/api/internal/config"
	"github.com/wallpaperverse/api/internal/entrypoint"
	"github.com/wallpaperverse/api/internal/ingest"
)

// SyncCommand runs one ingestion pass without starting the server.
type SyncCommand struct {
	Category string

	config *config.Config
	logger *slog.Logger
	out    io.Writer
}

func NewSyncCommand(cfg *config.Config, logger *slog.Logger, out io.Writer) *SyncCommand {
	return &SyncCommand{config: cfg, logger: logger, out: out}
}

func (cmd *SyncCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)

	fs.StringVar(&cmd.Category, "category", "", "Sync only the category with this slug (default: all active categories)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s sync [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Fetch wallpapers from every configured provider and store them.\n")
		fmt.Fprintf(os.Stderr, "Providers are enabled by UNSPLASH_ACCESS_KEY, PEXELS_API_KEY and PIXABAY_API_KEY.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s sync\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s sync -category nature\n", os.Args[0])
	}

	return fs.Parse(args)
}

func (cmd *SyncCommand) Run(ctx context.Context) error {
	app, err := entrypoint.NewApp(cmd.config, cmd.logger)
	if err != nil {
		return err
	}
	defer app.Close()

	if cmd.Category != "" {
		report, err := app.Pipeline.SyncCategoryBySlug(ctx, cmd.Category)
		if err != nil {
			return err
		}
		printCategoryReport(cmd.out, report)
		return nil
	}

	report, err := app.Pipeline.SyncFromAllSources(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.out, "Sync complete")
	fmt.Fprintln(cmd.out, "=============")
	for i := range report.PerCategory {
		printCategoryReport(cmd.out, &report.PerCategory[i])
	}
	fmt.Fprintf(cmd.out, "\nCategories: %d synced, %d failed\n", report.Categories, report.FailedCategories)
	fmt.Fprintf(cmd.out, "Wallpapers: %d fetched, %d saved, %d new, %d failed\n",
		report.Fetched, report.Saved, report.Created, report.Failed)
	fmt.Fprintf(cmd.out, "Duration:   %s\n", report.Duration.Round(time.Millisecond))
	return nil
}

func printCategoryReport(out io.Writer, r *ingest.CategoryReport) {
	fmt.Fprintf(out, "%-14s query=%q fetched=%d saved=%d new=%d failed=%d\n",
		r.Category, r.Query, r.Fetched, r.Saved, r.Created, r.Failed)
	for _, s := range r.Sources {
		fmt.Fprintf(out, "  %-10s %d\n", s.Source, s.Fetched)
	}
}
