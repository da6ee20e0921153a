package database

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/MarkoPoloResearchLab/interviewledger/internal/store/gormstore"
	"github.com/golang-migrate/migrate/v4"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// PrepareSchema brings the schema up to date: versioned SQL migrations on Postgres,
// AutoMigrate of the gorm models on SQLite.
func PrepareSchema(db *gorm.DB, driver Driver) error {
	switch driver {
	case DriverSQLite:
		if err := db.AutoMigrate(gormstore.Models()...); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	case DriverPostgres:
		return runMigrations(db)
	default:
		return fmt.Errorf("unsupported database driver %q", driver)
	}
}

func runMigrations(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("migration database handle: %w", err)
	}
	migrations, err := migrationSource()
	if err != nil {
		return err
	}
	instance, err := migratepostgres.WithInstance(sqlDB, &migratepostgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}
	migrator, err := migrate.NewWithInstance("iofs", migrations, "postgres", instance)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	// Closing the migrator would close the shared *sql.DB.
	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func migrationSource() (source.Driver, error) {
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	driver, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}
	return driver, nil
}
