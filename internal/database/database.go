// Package database opens the gorm handle shared by the ledger and interview repositories.
package database

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Driver names the SQL dialect behind a database url.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"

	defaultSQLiteFile  = "interviewd.db"
	sqliteMemory       = ":memory:"
	sqliteBusyPragma   = "_pragma=busy_timeout(5000)"
	sqliteMaxOpenConns = 1
)

// Open connects to dsn. postgres:// and postgresql:// select Postgres; sqlite:// urls and
// bare paths select SQLite, which is limited to a single connection.
func Open(ctx context.Context, dsn string, logger gormlogger.Interface) (*gorm.DB, func() error, Driver, error) {
	driver, sqlitePath, err := ResolveDriver(dsn)
	if err != nil {
		return nil, nil, "", err
	}
	config := &gorm.Config{}
	if logger != nil {
		config.Logger = logger
	}

	var db *gorm.DB
	switch driver {
	case DriverPostgres:
		db, err = gorm.Open(postgres.Open(dsn), config)
	case DriverSQLite:
		db, err = gorm.Open(sqlite.Open(withSQLitePragmas(sqlitePath)), config)
	default:
		return nil, nil, "", fmt.Errorf("unsupported database scheme %q", driver)
	}
	if err != nil {
		return nil, nil, "", err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, "", err
	}
	if driver == DriverSQLite {
		sqlDB.SetMaxOpenConns(sqliteMaxOpenConns)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, nil, "", fmt.Errorf("ping %s: %w", driver, err)
	}
	cleanup := func() error { return sqlDB.Close() }
	return db, cleanup, driver, nil
}

// ResolveDriver returns the driver and, for SQLite, the filesystem path to open.
func ResolveDriver(dsn string) (Driver, string, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return "", "", fmt.Errorf("database url is required")
	}
	if strings.HasPrefix(trimmed, "postgres://") || strings.HasPrefix(trimmed, "postgresql://") {
		return DriverPostgres, "", nil
	}
	if strings.HasPrefix(trimmed, "sqlite://") {
		parsed, err := url.Parse(trimmed)
		if err != nil {
			return "", "", fmt.Errorf("parse sqlite url: %w", err)
		}
		path := parsed.Path
		if path == "" {
			path = parsed.Host
		}
		if path == "" || path == "/" {
			path = defaultSQLiteFile
		}
		sqlitePath, err := normalizeSQLitePath(path)
		return DriverSQLite, sqlitePath, err
	}
	if strings.Contains(trimmed, "://") {
		return "", "", fmt.Errorf("unsupported database url %q", trimmed)
	}
	sqlitePath, err := normalizeSQLitePath(trimmed)
	return DriverSQLite, sqlitePath, err
}

func normalizeSQLitePath(path string) (string, error) {
	if path == sqliteMemory {
		return path, nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(".", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	return path, nil
}

func withSQLitePragmas(path string) string {
	if path == sqliteMemory {
		return path
	}
	return path + "?" + sqliteBusyPragma
}
