package backend

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is the PostgreSQL backend, pooled through pgxpool.
type Postgres struct {
	cfg       Config
	logger    *slog.Logger
	pool      *pgxpool.Pool
	connected bool
}

func newPostgres(cfg Config, logger *slog.Logger) *Postgres {
	return &Postgres{cfg: cfg, logger: logger}
}

// Type returns EnginePostgres.
func (p *Postgres) Type() EngineType { return EnginePostgres }

// Connected reports whether the pool is established.
func (p *Postgres) Connected() bool { return p.connected }

// Connect builds the pool from the connection string and validates it with
// a ping. TLS is resolved from the sslmode query parameter before pgx sees
// the string, so a malformed parameter degrades to permissive TLS instead
// of blocking an otherwise valid connection.
func (p *Postgres) Connect(ctx context.Context) error {
	mode, host := parseSSLMode(p.cfg.ConnString)

	pcfg, err := pgxpool.ParseConfig(p.cfg.ConnString)
	if err != nil {
		// Malformed query parameters must not fail the whole string.
		base, _, _ := strings.Cut(p.cfg.ConnString, "?")
		pcfg, err = pgxpool.ParseConfig(base)
		if err != nil {
			return connErr(EnginePostgres, "invalid connection string", err)
		}
	}

	pcfg.ConnConfig.TLSConfig = tlsForMode(mode, host)
	pcfg.ConnConfig.ConnectTimeout = p.cfg.Pool.ConnectTimeout
	pcfg.MaxConns = int32(p.cfg.Pool.MaxConns)
	pcfg.MaxConnIdleTime = p.cfg.Pool.IdleTimeout

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return connErr(EnginePostgres, "failed to create pool", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, p.cfg.Pool.ConnectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return connErr(EnginePostgres, "failed to validate connection", err)
	}

	p.pool = pool
	p.connected = true
	p.logger.Debug("connected", slog.String("engine", string(EnginePostgres)))
	return nil
}

// Query executes a statement with positional `?` parameters, rewriting
// them into $1..$N before execution.
func (p *Postgres) Query(ctx context.Context, query string, args ...any) (*QueryResult, error) {
	if !p.connected || p.pool == nil {
		return nil, dbErr(EnginePostgres, "connection not established", errNotConnected)
	}

	start := time.Now()
	rows, err := p.pool.Query(ctx, rebindPositional(query), args...)
	if err != nil {
		return nil, dbErr(EnginePostgres, "failed to execute query", err)
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	cols := make([]string, len(fds))
	for i, fd := range fds {
		cols[i] = string(fd.Name)
	}

	result := &QueryResult{Columns: cols}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, dbErr(EnginePostgres, "failed to read result rows", err)
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = normalizeValue(values[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr(EnginePostgres, "failed to read result rows", err)
	}

	result.RowCount = len(result.Rows)
	p.logger.Debug("query executed",
		slog.String("engine", string(EnginePostgres)),
		slog.Int("rows", result.RowCount),
		slog.Duration("duration", time.Since(start)))
	return result, nil
}

// Execute runs a statement when the caller does not need the result.
func (p *Postgres) Execute(ctx context.Context, query string, args ...any) error {
	_, err := p.Query(ctx, query, args...)
	return err
}

// Close tears down the pool, bounded by the close deadline. Safe to call
// more than once.
func (p *Postgres) Close() error {
	if !p.connected || p.pool == nil {
		return nil
	}
	pool := p.pool
	p.pool = nil
	p.connected = false
	return closeWithDeadline(p.logger, EnginePostgres, p.cfg.Pool.CloseDeadline, func() error {
		pool.Close()
		return nil
	})
}

// parseSSLMode extracts the sslmode query parameter and host from a
// connection URL. Anything unparseable yields "prefer", the permissive
// default.
func parseSSLMode(connString string) (mode, host string) {
	u, err := url.Parse(connString)
	if err != nil {
		return "prefer", ""
	}
	params, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return "prefer", u.Hostname()
	}
	mode = params.Get("sslmode")
	if mode == "" {
		mode = "prefer"
	}
	return mode, u.Hostname()
}

// tlsForMode maps an sslmode onto a TLS client config: disable turns TLS
// off, verify-ca/verify-full verify the server certificate, everything
// else uses TLS without verification.
func tlsForMode(mode, host string) *tls.Config {
	switch mode {
	case "disable":
		return nil
	case "verify-ca", "verify-full":
		return &tls.Config{ServerName: host}
	default: // require, prefer, and unknown values
		return &tls.Config{InsecureSkipVerify: true} //nolint:gosec // permissive modes skip verification by definition
	}
}

var _ Backend = (*Postgres)(nil)
