// This file implements the PostgreSQL-backed history archive.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"

	"github.com/pettai/pettkeeper/internal/models"
)

// Connection pool configuration.
const (
	// DefaultMaxOpenConns is the maximum number of open connections.
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the maximum number of idle connections.
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime bounds how long a connection may be reused.
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresArchive stores history records in PostgreSQL.
type PostgresArchive struct {
	db *sql.DB
}

// NewPostgresArchive connects to the DSN, configures the pool, and applies
// migrations.
func NewPostgresArchive(opts ...Option) (*PostgresArchive, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("archive DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres archive: %w", err)
	}
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres archive: %w", err)
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("run postgres migrations: %w", err)
	}
	slog.Debug("store: postgres archive ready")
	return &PostgresArchive{db: db}, nil
}

// ArchiveAction inserts one executed-action record.
func (s *PostgresArchive) ArchiveAction(r models.ActionRecord) error {
	vitals, err := marshalVitals(r.Vitals)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO action_history (action_type, consumable_id, amount, accessory_id, hotel_tier, success, error, vitals, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
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
func (s *PostgresArchive) ArchiveMessage(r models.SentMessageRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO message_history (message_type, success, timestamp) VALUES ($1, $2, $3)`,
		r.Type, r.Success, r.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert message record: %w", err)
	}
	return nil
}

// Actions returns the most recent archived action records, newest first.
func (s *PostgresArchive) Actions(limit int) ([]models.ActionRecord, error) {
	rows, err := s.db.Query(
		`SELECT action_type, consumable_id, amount, accessory_id, hotel_tier, success, error, vitals, timestamp
		 FROM action_history ORDER BY timestamp DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query action history: %w", err)
	}
	defer rows.Close()
	return scanActionRows(rows)
}

// Close releases the database handle.
func (s *PostgresArchive) Close() error {
	return s.db.Close()
}
