// Package db opens the SQLite journal database and owns its schema.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/hpungsan/thoughts/internal/config"
)

// FileName is the SQLite database inside the base directory.
const FileName = "thoughts.db"

// dsnPragmas apply to every pooled connection. _txlock=immediate takes the
// write lock at BEGIN so a read-then-write transaction cannot deadlock.
const dsnPragmas = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"

// migrations[v] upgrades the schema from user_version v to v+1.
var migrations = [...]string{
	// notes and the keystroke journal
	`
	CREATE TABLE IF NOT EXISTS notes (
	  id         INTEGER PRIMARY KEY AUTOINCREMENT,
	  content    TEXT NOT NULL,
	  created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_notes_created ON notes(created_at DESC);

	CREATE TABLE IF NOT EXISTS edit_operations (
	  id             TEXT PRIMARY KEY,
	  session_id     INTEGER NOT NULL,
	  sequence_num   INTEGER NOT NULL,
	  operation_type TEXT NOT NULL CHECK (operation_type IN ('insert', 'delete', 'replace')),
	  position       INTEGER NOT NULL,
	  content        TEXT NOT NULL,
	  content_length INTEGER NOT NULL,
	  timestamp_ms   INTEGER NOT NULL,
	  UNIQUE (session_id, sequence_num)
	);
	`,
	// replaced span length, identity aliases, discard tombstones
	`
	ALTER TABLE edit_operations ADD COLUMN replaced_length INTEGER NOT NULL DEFAULT 0;
	UPDATE edit_operations SET replaced_length = content_length WHERE operation_type = 'delete';

	CREATE TABLE IF NOT EXISTS session_aliases (
	  old_id INTEGER PRIMARY KEY,
	  new_id INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS discarded_sessions (
	  session_id   INTEGER PRIMARY KEY,
	  discarded_at INTEGER NOT NULL
	);
	`,
}

// CurrentSchemaVersion is the user_version after every migration has run.
const CurrentSchemaVersion = len(migrations)

// DBTX is satisfied by both *sql.DB and *sql.Tx so queries can run inside a
// store transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Init opens baseDir/thoughts.db, creating baseDir and its exports directory
// owner-only, and brings the schema up to date.
func Init(baseDir string) (*sql.DB, error) {
	for _, dir := range []string{baseDir, filepath.Join(baseDir, "exports")} {
		if err := privateDir(dir); err != nil {
			return nil, err
		}
	}

	dbPath := filepath.Join(baseDir, FileName)
	db, err := sql.Open("sqlite", dbPath+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := checkWAL(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// The file exists only after the first connection.
	_ = os.Chmod(dbPath, 0600)
	return db, nil
}

// privateDir creates dir with 0700 and tightens an existing one (best-effort).
func privateDir(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	_ = os.Chmod(dir, 0700)
	return nil
}

// ConfigurePool applies the pool limits set in cfg. Zero leaves the
// database/sql default.
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate runs each pending migration and its version bump in one
// transaction.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}
	for v := version; v < CurrentSchemaVersion; v++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
		if _, err := tx.Exec(migrations[v]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", v+1, err)
		}
		if err := SetUserVersion(tx, v+1); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
	}
	return nil
}

func checkWAL(db *sql.DB) error {
	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		return fmt.Errorf("failed to read journal_mode: %w", err)
	}
	if mode != "wal" {
		return fmt.Errorf("journal_mode is %s, want wal", mode)
	}
	return nil
}

// GetUserVersion returns the schema version stored in the user_version pragma.
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion overwrites the user_version pragma on db or inside a
// migration transaction.
func SetUserVersion(db interface {
	Exec(query string, args ...any) (sql.Result, error)
}, version int) error {
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version)); err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
