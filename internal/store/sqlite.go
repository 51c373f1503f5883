// This file implements the SQLite-backed history archive.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pettai/pettkeeper/internal/models"
)

// DefaultDirPermissions defines the permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteArchive stores history records in a local SQLite file.
type SQLiteArchive struct {
	db *sql.DB
}

// NewSQLiteArchive opens (creating if needed) the SQLite archive at the DSN
// file path and applies migrations.
func NewSQLiteArchive(opts ...Option) (*SQLiteArchive, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("archive DSN not set")
	}

	dir := filepath.Dir(cfg.DSN)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open sqlite archive: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite archive: %w", err)
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("run sqlite migrations: %w", err)
	}
	slog.Debug("store: sqlite archive ready", "path", cfg.DSN)
	return &SQLiteArchive{db: db}, nil
}

// ArchiveAction inserts one executed-action record.
func (s *SQLiteArchive) ArchiveAction(r models.ActionRecord) error {
	vitals, err := marshalVitals(r.Vitals)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO action_history (action_type, consumable_id, amount, accessory_id, hotel_tier, success, error, vitals, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(r.Action.Type), nilIfEmpty(r.Action.ConsumableID), r.Action.Amount,
		nilIfEmpty(r.Action.AccessoryID), nilIfEmpty(r.Action.HotelTier),
		r.Success, nilIfEmpty(r.Error), vitals, r.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert action record: %w", err)
	}
	return nil
}

// ArchiveMessage inserts one outbound-message record.
func (s *SQLiteArchive) ArchiveMessage(r models.SentMessageRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO message_history (message_type, success, timestamp) VALUES (?, ?, ?)`,
		r.Type, r.Success, r.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert message record: %w", err)
	}
	return nil
}

// Actions returns the most recent archived action records, newest first.
func (s *SQLiteArchive) Actions(limit int) ([]models.ActionRecord, error) {
	rows, err := s.db.Query(
		`SELECT action_type, consumable_id, amount, accessory_id, hotel_tier, success, error, vitals, timestamp
		 FROM action_history ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query action history: %w", err)
	}
	defer rows.Close()
	return scanActionRows(rows)
}

// Close releases the database handle.
func (s *SQLiteArchive) Close() error {
	return s.db.Close()
}
