package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/wallpaperverse/api/internal/cli"
	"github.com/wallpaperverse/api/internal/config"
	"github.com/wallpaperverse/api/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

type command interface {
	ParseFlags(args []string) error
	Run(ctx context.Context) error
}

func main() {
	// If no arguments or "serve" command, run the HTTP server
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		cfg := config.NewConfig()
		logger := entrypoint.NewLogger(cfg.Log, os.Stdout)
		if err := entrypoint.Run(cfg, logger, Version+" ("+Commit+")"); err != nil {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
		return
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "admin-token":
		cmd := cli.NewAdminTokenCommand(os.Stdout)
		if err := cmd.ParseFlags(args); err != nil {
			exit(err)
		}
		if err := cmd.Run(); err != nil {
			exit(err)
		}

	case "sync", "stats", "cache-clear":
		cfg := config.NewConfig()
		// Logs go to stderr so stdout stays machine-readable.
		logger := entrypoint.NewLogger(cfg.Log, os.Stderr)

		var cmd command
		switch command {
		case "sync":
			cmd = cli.NewSyncCommand(cfg, logger, os.Stdout)
		case "stats":
			cmd = cli.NewStatsCommand(cfg, logger, os.Stdout)
		case "cache-clear":
			cmd = cli.NewCacheClearCommand(cfg, logger, os.Stdout)
		}

		if err := cmd.ParseFlags(args); err != nil {
			exit(err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		err := cmd.Run(ctx)
		stop()
		if err != nil {
			exit(err)
		}

	case "version":
		fmt.Printf("%s (%s)\n", Version, Commit)

	case "-h", "--help", "help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func exit(err error) {
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve        Start the HTTP server (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  sync         Fetch wallpapers from the configured providers once\n")
	fmt.Fprintf(os.Stderr, "  stats        Print gallery statistics as JSON\n")
	fmt.Fprintf(os.Stderr, "  cache-clear  Delete cached entries from Redis\n")
	fmt.Fprintf(os.Stderr, "  admin-token  Generate an admin API token and its hash\n")
	fmt.Fprintf(os.Stderr, "  version      Print the version\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}
