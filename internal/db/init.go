// Package db opens the SQL database that backs the session store.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Driver names registered by the imported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// schema is valid for both SQLite and PostgreSQL.
const schema = `
CREATE TABLE IF NOT EXISTS client_sessions (
    profile    TEXT PRIMARY KEY,
    token      TEXT NOT NULL DEFAULT '',
    user_json  TEXT NOT NULL DEFAULT '',
    redirect   TEXT NOT NULL DEFAULT '',
    expires_at BIGINT NOT NULL DEFAULT 0,
    updated_at BIGINT NOT NULL DEFAULT 0
);
`

// InitSQLite opens (creating if needed) a SQLite database file.
func InitSQLite(path string) (*sql.DB, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := open(DriverSQLite, path)
	if err != nil {
		return nil, err
	}
	// one writer at a time; SQLite serializes anyway
	db.SetMaxOpenConns(1)
	return db, nil
}

// InitPostgres opens a PostgreSQL connection for shared installations.
func InitPostgres(dsn string) (*sql.DB, error) {
	return open(DriverPostgres, dsn)
}

func open(driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate creates the session table if it does not exist.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}
