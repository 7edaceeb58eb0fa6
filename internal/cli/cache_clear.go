package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/wallpaperverse/api/internal/cache"
	"github.com/wallpaperverse/api/internal/config"
)

// CacheClearCommand drops cached query results, e.g. after editing rows by hand.
// Only useful with Redis; the in-memory cache lives inside the server process.
type CacheClearCommand struct {
	Pattern string

	config *config.Config
	logger *slog.Logger
	out    io.Writer
}

func NewCacheClearCommand(cfg *config.Config, logger *slog.Logger, out io.Writer) *CacheClearCommand {
	return &CacheClearCommand{config: cfg, logger: logger, out: out}
}

func (cmd *CacheClearCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("cache-clear", flag.ContinueOnError)

	fs.StringVar(&cmd.Pattern, "pattern", "*", "Glob pattern of keys to delete")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s cache-clear [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Delete cached entries from Redis (REDIS_URL).\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s cache-clear -pattern 'search_*'\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Pattern == "" {
		return fmt.Errorf("-pattern must not be empty")
	}
	return nil
}

func (cmd *CacheClearCommand) Run(ctx context.Context) error {
	if cmd.config.Cache.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is not set; the in-memory cache can only be cleared through the admin API")
	}

	store, err := cache.New(cmd.config.Cache, cmd.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	removed, err := store.ClearPattern(ctx, cmd.Pattern)
	if err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	fmt.Fprintf(cmd.out, "Removed %d cache entries matching %q\n", removed, cmd.Pattern)
	return nil
}
