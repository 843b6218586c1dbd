package backend

import (
	"context"
	"log/slog"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// SQLite is the embedded SQLite backend. The connection string is a bare
// filesystem path; connecting opens the file handle and probes it.
type SQLite struct {
	sqlPool
}

func newSQLite(cfg Config, logger *slog.Logger) *SQLite {
	return &SQLite{sqlPool: sqlPool{engine: EngineSQLite, cfg: cfg, logger: logger}}
}

// Type returns EngineSQLite.
func (s *SQLite) Type() EngineType { return EngineSQLite }

// Connect opens the database file. database/sql opens lazily, so the ping
// inside open is what actually touches the file and surfaces a missing or
// unreadable path as a ConnectionError.
func (s *SQLite) Connect(ctx context.Context) error {
	return s.open(ctx, "sqlite", s.cfg.ConnString)
}

var _ Backend = (*SQLite)(nil)
