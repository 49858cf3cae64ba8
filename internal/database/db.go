package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

const sqliteParams = "_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL"

// DB is an open connection pool together with the driver and DSN it was opened with.
type DB struct {
	*sql.DB
	Driver string
	DSN    string
}

// Open connects to dsn using driver and verifies the connection.
// SQLite connections get WAL, a busy timeout and foreign keys, and the pool
// is limited to a single connection.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	connStr, err := connectionString(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := CheckHealth(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	return &DB{DB: db, Driver: driver, DSN: dsn}, nil
}

// Migrate applies the embedded migrations for this database's dialect.
func (db *DB) Migrate() error {
	return RunMigrations(db.Driver, db.DSN)
}

func connectionString(driver, dsn string) (string, error) {
	if dsn == "" {
		return "", fmt.Errorf("empty database DSN")
	}
	switch driver {
	case DriverSQLite:
		if strings.Contains(dsn, "?") {
			return dsn + "&" + sqliteParams, nil
		}
		return dsn + "?" + sqliteParams, nil
	case DriverPostgres:
		return dsn, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}
