package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/refstorm/internal/app"
	"github.com/dshills/refstorm/internal/config"
)

var version = "dev"

func main() {
	var root, configPath string

	rootCmd := &cobra.Command{
		Use:     "refstorm",
		Short:   "refstorm - live section reference index for config-driven projects",
		Version: version,
	}
	rootCmd.PersistentFlags().StringVar(&root, "root", ".", "Workspace root directory")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (TOML or YAML)")

	rootCmd.AddCommand(idsCmd(&root, &configPath))
	rootCmd.AddCommand(refsCmd(&root, &configPath))
	rootCmd.AddCommand(resolveCmd(&root, &configPath))
	rootCmd.AddCommand(viewCmd(&root, &configPath))
	rootCmd.AddCommand(watchCmd(&root, &configPath))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadService builds a scanned, idle service for one-shot commands.
func loadService(cmd *cobra.Command, root, configPath string) (*app.Service, error) {
	cfg, err := config.Load(root, configPath)
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg.Logging.Level)
	svc := app.New(cfg, app.WithLogger(logger))

	svc.RefreshAll("startup")
	if err := svc.AwaitIdle(cmd.Context()); err != nil {
		return nil, err
	}
	return svc, nil
}

// newLogger builds the process logger at the configured level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
