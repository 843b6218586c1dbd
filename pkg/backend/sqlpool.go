package backend

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"
)

// errNotConnected is returned when a query reaches a backend whose pool is
// not established.
var errNotConnected = errors.New("connection not established")

// sqlPool provides the shared database/sql plumbing for the MySQL and
// SQLite backends: pool sizing, probe-on-connect, result normalization,
// and deadline-raced teardown. Embed it in a concrete backend.
type sqlPool struct {
	engine    EngineType
	cfg       Config
	logger    *slog.Logger
	db        *sql.DB
	connected bool
}

// open establishes the pool for the given driver/DSN pair and validates it
// with a ping bounded by the connect timeout. On any failure the pool is
// torn down again before returning, so connected never disagrees with the
// underlying handle.
func (p *sqlPool) open(ctx context.Context, driverName, dsn string) error {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return connErr(p.engine, "failed to open connection", err)
	}

	db.SetMaxOpenConns(p.cfg.Pool.MaxConns)
	db.SetConnMaxIdleTime(p.cfg.Pool.IdleTimeout)

	pingCtx, cancel := context.WithTimeout(ctx, p.cfg.Pool.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return connErr(p.engine, "failed to validate connection", err)
	}

	p.db = db
	p.connected = true
	p.logger.Debug("connected", slog.String("engine", string(p.engine)))
	return nil
}

// Connected reports whether the pool is established.
func (p *sqlPool) Connected() bool { return p.connected }

// Query executes a statement with positional `?` parameters and normalizes
// the result.
func (p *sqlPool) Query(ctx context.Context, query string, args ...any) (*QueryResult, error) {
	if !p.connected || p.db == nil {
		return nil, dbErr(p.engine, "connection not established", errNotConnected)
	}

	start := time.Now()
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbErr(p.engine, "failed to execute query", err)
	}
	defer func() { _ = rows.Close() }()

	result, err := collectRows(rows)
	if err != nil {
		return nil, dbErr(p.engine, "failed to read result rows", err)
	}

	p.logger.Debug("query executed",
		slog.String("engine", string(p.engine)),
		slog.Int("rows", result.RowCount),
		slog.Duration("duration", time.Since(start)))
	return result, nil
}

// Execute runs a statement when the caller does not need the result.
func (p *sqlPool) Execute(ctx context.Context, query string, args ...any) error {
	_, err := p.Query(ctx, query, args...)
	return err
}

// Close tears down the pool, bounded by the close deadline. Safe to call
// more than once.
func (p *sqlPool) Close() error {
	if !p.connected || p.db == nil {
		return nil
	}
	db := p.db
	p.db = nil
	p.connected = false
	return closeWithDeadline(p.logger, p.engine, p.cfg.Pool.CloseDeadline, db.Close)
}

// collectRows drains a *sql.Rows into the normalized QueryResult shape.
// []byte values are converted to string so drivers that return raw bytes
// (notably MySQL) produce readable values.
func collectRows(rows *sql.Rows) (*QueryResult, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &QueryResult{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		valuePtrs := make([]any, len(cols))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = normalizeValue(values[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result.RowCount = len(result.Rows)
	return result, nil
}

// normalizeValue maps driver-native values onto the uniform value set:
// string, number, bool, nil, time.Time, nested object/array.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
