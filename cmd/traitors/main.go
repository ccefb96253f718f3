package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/traitors/server/internal/infra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the traitors command. Running it without a subcommand serves the API.
func newRootCmd() *cobra.Command {
	var cfg *infra.Config
	var logger *slog.Logger

	cmd := &cobra.Command{
		Use:           "traitors",
		Short:         "The Traitors game server",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = infra.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err = newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return reportErr(logger, "server failed", serve(cmd.Context(), cfg, logger))
		},
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return reportErr(logger, "server failed", serve(cmd.Context(), cfg, logger))
		},
	}

	migrateCmd := &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply (up, default) or roll back one (down) database migration",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := "up"
			if len(args) == 1 {
				direction = args[0]
			}
			return reportErr(logger, "migration failed", migrateDB(cfg, logger, direction))
		},
	}

	cmd.AddCommand(serveCmd, migrateCmd)
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	return cmd
}

func reportErr(logger *slog.Logger, msg string, err error) error {
	if err != nil {
		logger.Error(msg, "error", err)
	}
	return err
}

// newLogger returns the JSON stdout logger at the named level.
func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL %q: %w", level, err)
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})), nil
}

func migrateDB(cfg *infra.Config, logger *slog.Logger, direction string) error {
	if direction == "down" {
		return infra.RollbackMigrations(cfg.DSN(), logger)
	}
	return infra.RunMigrations(cfg.DSN(), logger)
}
