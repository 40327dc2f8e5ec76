package storage

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*/*.sql
var migrationsFS embed.FS

// RunMigrations brings the schema of the configured store up to date.
func RunMigrations(cfg Config) error {
	// Create a separate connection for migrations; the migrate driver closes it.
	migrateDB, err := openDB(cfg, true)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}

	var (
		driver database.Driver
		name   string
	)
	switch cfg.Driver {
	case SQLite:
		driver, err = sqlite.WithInstance(migrateDB, &sqlite.Config{})
		name = "sqlite"
	case Postgres:
		driver, err = migratepgx.WithInstance(migrateDB, &migratepgx.Config{})
		name = "pgx5"
	case MySQL:
		driver, err = migratemysql.WithInstance(migrateDB, &migratemysql.Config{})
		name = "mysql"
	default:
		err = fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}
	if err != nil {
		migrateDB.Close()
		return fmt.Errorf("create %s migration driver: %w", cfg.Driver, err)
	}

	d, err := iofs.New(migrationsFS, "migrations/"+cfg.Driver.String())
	if err != nil {
		driver.Close()
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", d, name, driver)
	if err != nil {
		driver.Close()
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}
