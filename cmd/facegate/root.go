package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/facegate/internal/app"
	"github.com/saturnino-fabrica-de-software/facegate/internal/config"
)

// Version is the CLI version
const Version = "0.3.0"

var (
	// cfg and logger are loaded once for every subcommand
	cfg    *config.Config
	logger *slog.Logger
	// application is built lazily by the commands that need it
	application *app.App

	verbose bool
)

var rootCmd = &cobra.Command{
	Use:           "facegate",
	Short:         "Face authentication kiosk",
	Long:          "Facegate logs people in by looking at them through a camera and enrolls new identities from pose images.",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		// stdout fica livre para o resultado e a barra de progresso
		if verbose {
			logger = config.NewLoggerTo(cfg.Environment, os.Stderr)
		} else {
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		}
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if application == nil {
			return
		}
		// o contexto do comando pode já estar cancelado (Ctrl+C)
		if err := application.Close(); err != nil {
			logger.Error("close error", slog.Any("error", err))
		}
	},
}

// buildApp wires the components for commands that touch the database
func buildApp(ctx context.Context, opts app.Options) (*app.App, error) {
	a, err := app.Build(ctx, cfg, logger, opts)
	if err != nil {
		return nil, err
	}
	application = a
	return a, nil
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(enrollCmd)
	rootCmd.AddCommand(identitiesCmd)
	rootCmd.AddCommand(loginsCmd)
}
