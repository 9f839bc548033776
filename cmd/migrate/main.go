package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/saturnino-fabrica-de-software/facegate/internal/config"
	"github.com/saturnino-fabrica-de-software/facegate/internal/database"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	actionFlag := fs.String("action", "up", "up, down, version or force")
	version := fs.Int("version", 0, "version written by -action=force")
	if err := fs.Parse(args); err != nil {
		return err
	}

	action, err := database.ParseAction(*actionFlag)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := config.NewLogger(cfg.Environment)

	// golang-migrate fala database/sql
	db, err := database.NewPool(database.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	migrator, err := database.NewMigrator(db, database.DatabaseName(cfg.DatabaseURL), logger)
	if err != nil {
		return err
	}
	defer func() { _ = migrator.Close() }()

	status, err := migrator.Run(action, *version)
	if err != nil {
		return err
	}
	if status.Dirty {
		logger.Warn("schema is dirty, fix it and run -action=force", slog.Uint64("version", uint64(status.Version)))
	}
	return nil
}
