package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists the profile and debts in a SQLite file.
type SQLiteStore struct {
	sqlStore
}

// NewSQLiteStore opens (creating if needed) the database at dataSourceName and
// brings its schema up to date.
func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	if err := runMigrations("sqlite3", dataSourceName); err != nil {
		return nil, fmt.Errorf("could not initialize schema: %w", err)
	}

	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	// Manually enable foreign keys and WAL mode
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	return &SQLiteStore{sqlStore{db: db}}, nil
}
