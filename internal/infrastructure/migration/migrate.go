package migration

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// Migrator runs schema migrations from a file source against postgres.
type Migrator struct {
	migrate *migrate.Migrate
	logger  *zap.Logger
}

// New creates a Migrator over an existing database connection
func New(db *sql.DB, migrationsPath string, logger *zap.Logger) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return &Migrator{migrate: m, logger: logger}, nil
}

// Up applies all pending migrations
func (mg *Migrator) Up() error {
	return mg.apply("up", mg.migrate.Up)
}

// Down rolls back all applied migrations
func (mg *Migrator) Down() error {
	return mg.apply("down", mg.migrate.Down)
}

// Steps applies n migrations; negative n rolls back
func (mg *Migrator) Steps(n int) error {
	return mg.apply(fmt.Sprintf("step %d", n), func() error { return mg.migrate.Steps(n) })
}

// GoTo migrates up or down to the given version
func (mg *Migrator) GoTo(version uint) error {
	return mg.apply(fmt.Sprintf("goto %d", version), func() error { return mg.migrate.Migrate(version) })
}

// apply runs one migration operation, treating an unchanged schema as
// success, and logs the resulting version.
func (mg *Migrator) apply(op string, run func() error) error {
	mg.logger.Info("Applying migrations", zap.String("op", op))

	if err := run(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			mg.logger.Info("Schema already up to date", zap.String("op", op))
			return nil
		}
		return fmt.Errorf("migration %s failed: %w", op, err)
	}

	version, dirty, err := mg.Version()
	if err != nil {
		return err
	}
	mg.logger.Info("Migrations applied",
		zap.String("op", op),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
	)
	return nil
}

// Version returns the current schema version. A database with no
// applied migrations reports version 0.
func (mg *Migrator) Version() (uint, bool, error) {
	version, dirty, err := mg.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read migration version: %w", err)
	}
	return version, dirty, nil
}

// Force overwrites the recorded version without running migrations.
// Only for recovering a dirty schema state.
func (mg *Migrator) Force(version int) error {
	mg.logger.Warn("Forcing migration version", zap.Int("version", version))
	if err := mg.migrate.Force(version); err != nil {
		return fmt.Errorf("failed to force version %d: %w", version, err)
	}
	return nil
}

// Drop removes every object in the database
func (mg *Migrator) Drop() error {
	mg.logger.Warn("Dropping all database objects")
	if err := mg.migrate.Drop(); err != nil {
		return fmt.Errorf("failed to drop database: %w", err)
	}
	return nil
}

// Close releases the source and database handles
func (mg *Migrator) Close() error {
	sourceErr, dbErr := mg.migrate.Close()
	if sourceErr != nil {
		return fmt.Errorf("failed to close migration source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("failed to close migration database handle: %w", dbErr)
	}
	return nil
}
