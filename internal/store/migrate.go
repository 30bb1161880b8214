package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

// EnsureDatabase checks that the DSN is reachable and that the user may
// create tables, so that a bad DATABASE_URL fails before migrations start.
func EnsureDatabase(dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	var canCreate bool
	err = db.QueryRow(`SELECT has_schema_privilege(current_user, current_schema(), 'CREATE')`).Scan(&canCreate)
	if err != nil {
		return fmt.Errorf("check privileges: %w", err)
	}
	if !canCreate {
		return errors.New("database user lacks CREATE on the current schema; ask your database admin to grant it")
	}
	return nil
}

// RunMigrations runs SQL migrations from the given directory (e.g. "file://migrations") against the DSN.
func RunMigrations(dsn string, migrationsPath string) error {
	m, err := migrate.New(migrationsPath, dsn)
	if err != nil {
		return fmt.Errorf("migrate.New: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate.Up: %w", err)
	}
	return nil
}
