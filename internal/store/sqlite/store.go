// Package sqlite implements the local leave-request store over SQLite.
// Uses WAL mode with a single writer connection.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	syncer "github.com/klauern/permisync/internal/sync"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added estado index for pending-count queries
const currentSchemaVersion = 1

// Store provides durable storage for leave requests and sync conflicts.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", syncer.ErrIO, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: connect to database: %v", syncer.ErrIO, err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := applySchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CheckSchema re-applies the schema and migrations, returning a
// description of each action actually performed. A fully migrated
// database yields no actions.
func (s *Store) CheckSchema(ctx context.Context) ([]string, error) {
	actions, err := applySchema(s.db)
	if err != nil {
		return nil, err
	}
	return actions, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("%w: execute %q: %v", syncer.ErrIO, pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) ([]string, error) {
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("%w: execute schema: %v", syncer.ErrIO, err)
	}
	return runMigrations(db)
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) ([]string, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return nil, fmt.Errorf("%w: get user_version: %v", syncer.ErrIO, err)
	}

	var actions []string
	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return nil, err
		}
		actions = append(actions, "added estado index on solicitudes")
		version = 1
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return nil, fmt.Errorf("%w: set user_version: %v", syncer.ErrIO, err)
	}

	return actions, nil
}

// migrateToV1 adds an estado index for existing databases. New databases
// become v1 directly but report the migration once, when user_version
// moves from 0.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_solicitudes_estado
		ON solicitudes(estado)
	`)
	if err != nil {
		return fmt.Errorf("%w: migrate to v1: %v", syncer.ErrIO, err)
	}
	return nil
}
