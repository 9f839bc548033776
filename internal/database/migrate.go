package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Action is a schema operation understood by Migrator.Run
type Action string

const (
	ActionUp      Action = "up"
	ActionDown    Action = "down"
	ActionVersion Action = "version"
	ActionForce   Action = "force"
)

// ParseAction validates a command line action
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionUp, ActionDown, ActionVersion, ActionForce:
		return a, nil
	}
	return "", fmt.Errorf("invalid action %q (use: up, down, version, force)", s)
}

// Status is the schema version after an action ran. Version zero means
// no migration was ever applied.
type Status struct {
	Version uint
	Dirty   bool
}

// Migrator applies the embedded migrations to one database
type Migrator struct {
	m      *migrate.Migrate
	logger *slog.Logger
}

func NewMigrator(db *sql.DB, dbName string, logger *slog.Logger) (*Migrator, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{DatabaseName: dbName})
	if err != nil {
		return nil, fmt.Errorf("postgres driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, dbName, driver)
	if err != nil {
		return nil, fmt.Errorf("migrator: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &Migrator{m: m, logger: logger.With(slog.String("component", "migrator"))}, nil
}

// Run executes action. force is the version written by ActionForce and
// must be positive; the other actions ignore it.
func (m *Migrator) Run(action Action, force int) (Status, error) {
	var err error
	switch action {
	case ActionUp:
		err = m.m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info("schema already up to date")
			err = nil
		}
	case ActionDown:
		// só um passo por vez
		err = m.m.Steps(-1)
	case ActionVersion:
	case ActionForce:
		if force <= 0 {
			return Status{}, errors.New("force needs a positive version")
		}
		err = m.m.Force(force)
	default:
		return Status{}, fmt.Errorf("invalid action %q", action)
	}
	if err != nil {
		return Status{}, fmt.Errorf("migrate %s: %w", action, err)
	}

	status, err := m.status()
	if err != nil {
		return Status{}, err
	}
	m.logger.Info("schema status",
		slog.String("action", string(action)),
		slog.Uint64("version", uint64(status.Version)),
		slog.Bool("dirty", status.Dirty),
	)
	return status, nil
}

func (m *Migrator) status() (Status, error) {
	version, dirty, err := m.m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return Status{}, nil
	case err != nil:
		return Status{}, fmt.Errorf("read version: %w", err)
	}
	return Status{Version: version, Dirty: dirty}, nil
}

// Close releases the source and the database driver
func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	return errors.Join(srcErr, dbErr)
}

// MigrateUp opens dsn, applies every pending migration and closes again
func MigrateUp(dsn string, logger *slog.Logger) error {
	db, err := NewPool(DefaultPoolConfig(dsn))
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	migrator, err := NewMigrator(db, DatabaseName(dsn), logger)
	if err != nil {
		return err
	}
	defer func() { _ = migrator.Close() }()

	_, err = migrator.Run(ActionUp, 0)
	return err
}
