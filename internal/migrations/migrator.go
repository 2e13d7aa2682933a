package migrations

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // registers the pgx5:// scheme
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed schema/*.sql
var migrationFiles embed.FS

// Migrator applies the embedded analytics schema.
type Migrator struct {
	databaseURL string
	logger      *zap.Logger
}

// NewMigrator creates a migrator for a postgres:// or postgresql:// URL.
func NewMigrator(databaseURL string, logger *zap.Logger) *Migrator {
	return &Migrator{
		databaseURL: databaseURL,
		logger:      logger,
	}
}

// RunUp applies all pending migrations.
func (m *Migrator) RunUp() error {
	m.logger.Info("starting database migrations")

	instance, err := m.instance()
	if err != nil {
		return err
	}
	defer instance.Close()

	err = instance.Up()

	switch {
	case errors.Is(err, migrate.ErrNoChange):
		m.logger.Info("no migrations to apply")
	case err != nil:
		return fmt.Errorf("failed to run migrations: %w", err)
	default:
		m.logger.Info("migrations applied")
	}

	return nil
}

// Version returns the current schema version and whether it is dirty.
func (m *Migrator) Version() (uint, bool, error) {
	instance, err := m.instance()
	if err != nil {
		return 0, false, err
	}
	defer instance.Close()

	return instance.Version()
}

func (m *Migrator) instance() (*migrate.Migrate, error) {
	source, err := iofs.New(migrationFiles, "schema")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	instance, err := migrate.NewWithSourceInstance("iofs", source, DriverURL(m.databaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return instance, nil
}

// DriverURL rewrites a libpq style URL to the scheme the pgx driver registers.
func DriverURL(databaseURL string) string {
	for _, scheme := range []string{"postgresql://", "postgres://"} {
		if rest, ok := strings.CutPrefix(databaseURL, scheme); ok {
			return "pgx5://" + rest
		}
	}

	return databaseURL
}
