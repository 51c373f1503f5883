// Package store provides the SQL history archive.
//
// The archive is a write-behind mirror of the in-memory history buffers:
// the daemon stays fully functional without it, and archive failures never
// propagate into the care loop. SQLite and PostgreSQL backends share one
// interface; the DSN decides which is used.
package store

import (
	"strings"

	"github.com/pettai/pettkeeper/internal/models"
)

// Archive persists history records beyond the in-memory retention bound.
type Archive interface {
	ArchiveAction(r models.ActionRecord) error
	ArchiveMessage(r models.SentMessageRecord) error
	Close() error
}

// Opts holds configuration options for archive backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for archive backends.
type Option func(*Opts)

// WithSQLiteDSN sets a SQLite file path as the archive DSN.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets a PostgreSQL connection string as the archive DSN.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType classifies a DSN as "postgres" or "sqlite3". Anything that
// does not look like a PostgreSQL URL or key=value string is treated as a
// SQLite file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres"
	}
	if strings.Contains(dsn, "host=") || strings.Contains(dsn, "dbname=") {
		return "postgres"
	}
	return "sqlite3"
}

// New opens the archive backend matching the DSN type.
func New(dsn string) (Archive, error) {
	if DetectDSNType(dsn) == "postgres" {
		return NewPostgresArchive(WithPostgresDSN(dsn))
	}
	return NewSQLiteArchive(WithSQLiteDSN(dsn))
}
