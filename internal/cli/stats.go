package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/wallpaperverse/api/internal/config"
	"github.com/wallpaperverse/api/internal/entrypoint"
)

// StatsCommand prints the gallery overview served by GET /api/stats.
type StatsCommand struct {
	Recompute bool

	config *config.Config
	logger *slog.Logger
	out    io.Writer
}

func NewStatsCommand(cfg *config.Config, logger *slog.Logger, out io.Writer) *StatsCommand {
	return &StatsCommand{config: cfg, logger: logger, out: out}
}

func (cmd *StatsCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)

	fs.BoolVar(&cmd.Recompute, "recompute", false, "Recompute category and tag counts before printing")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s stats [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Print gallery statistics as JSON.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *StatsCommand) Run(ctx context.Context) error {
	app, err := entrypoint.NewApp(cmd.config, cmd.logger)
	if err != nil {
		return err
	}
	defer app.Close()

	if cmd.Recompute {
		if err := app.Pipeline.UpdateStatistics(ctx); err != nil {
			return fmt.Errorf("update statistics: %w", err)
		}
	}

	stats, err := app.Query.Stats(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.out)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}
