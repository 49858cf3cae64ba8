package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// RunMigrations brings the schema for driver up to date. It opens and closes
// its own connection, so dsn must address a persistent database.
func RunMigrations(driver, dsn string) error {
	connStr, err := connectionString(driver, dsn)
	if err != nil {
		return err
	}

	db, err := sql.Open(driver, connStr)
	if err != nil {
		return fmt.Errorf("open database for migrations: %w", err)
	}
	defer db.Close()

	dbDriver, dir, err := migrationDriver(driver, db)
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations/"+dir)
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, dir, dbDriver)
	if err != nil {
		return fmt.Errorf("create migration instance: %w", err)
	}
	defer migrator.Close()

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func migrationDriver(driver string, db *sql.DB) (migratedb.Driver, string, error) {
	switch driver {
	case DriverSQLite:
		d, err := sqlite3.WithInstance(db, &sqlite3.Config{})
		return d, "sqlite", err
	case DriverPostgres:
		d, err := postgres.WithInstance(db, &postgres.Config{})
		return d, "postgres", err
	default:
		return nil, "", fmt.Errorf("unsupported database driver %q", driver)
	}
}
