// Package orchestrator translates UI-level fetch, search, and export
// intents into backend queries.
//
// It owns the active backend for the session, enforces
// one-fetch-in-flight-per-table through the refresh guard, and applies
// pagination, sorting, and filtering at the data-source level. It never
// retries on failure; retry is a caller decision.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapdb/internal/registry"
	"github.com/leapstack-labs/leapdb/pkg/backend"
)

// ErrFetchInFlight is returned when a fetch for the same table is already
// pending. The request is dropped, not queued; the caller re-triggers
// after the pending fetch completes.
var ErrFetchInFlight = errors.New("fetch already in flight for this table")

// FetchRequest describes one table page.
type FetchRequest struct {
	Schema string
	Table  string
	Offset int
	Limit  int
	Sort   Sort
}

// TableData is one fetched page. HasMoreRows uses the full-page heuristic:
// a page with exactly Limit rows is assumed to have more behind it.
type TableData struct {
	Rows        []backend.Row
	Columns     []string
	Offset      int
	Limit       int
	HasMoreRows bool
}

// SearchRequest describes a paginated case-insensitive substring search
// across the table's textual columns.
type SearchRequest struct {
	Schema  string
	Table   string
	Columns []string
	Term    string
	Offset  int
	Limit   int
	Sort    Sort
}

// SearchResult is one page of matches plus the total match count.
type SearchResult struct {
	Rows       []backend.Row
	Columns    []string
	TotalCount int64
	HasMore    bool
}

// TableRef names a table, optionally schema-qualified.
type TableRef struct {
	Schema string
	Table  string
}

// Orchestrator drives the active backend on behalf of the UI.
type Orchestrator struct {
	logger *slog.Logger
	guard  *refreshGuard

	// newBackend is the backend factory, replaceable in tests.
	newBackend func(backend.Config, *slog.Logger) (backend.Backend, error)

	active    backend.Backend
	activeCfg backend.Config
}

// New creates an Orchestrator. If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{
		logger:     logger,
		guard:      newRefreshGuard(),
		newBackend: backend.New,
	}
}

// ensureBackend returns the active backend for cfg, creating it (and
// tearing down any previous one) when the target connection changed.
func (o *Orchestrator) ensureBackend(ctx context.Context, cfg backend.Config) (backend.Backend, error) {
	if o.active != nil && o.activeCfg.Engine == cfg.Engine && o.activeCfg.ConnString == cfg.ConnString {
		return o.active, nil
	}

	if o.active != nil {
		// Close is deadline-raced inside the backend; refresh state is
		// scoped to the connection and goes with it.
		if err := o.active.Close(); err != nil {
			o.logger.Warn("failed to close previous backend", slog.String("error", err.Error()))
		}
		o.active = nil
		o.guard.reset()
	}

	b, err := o.newBackend(cfg, o.logger)
	if err != nil {
		return nil, err
	}
	if err := b.Connect(ctx); err != nil {
		return nil, err
	}
	o.active = b
	o.activeCfg = cfg
	return b, nil
}

// Use establishes the backend for cfg ahead of the first fetch, so
// callers that fan out concurrent requests afterwards never race the
// connection swap.
func (o *Orchestrator) Use(ctx context.Context, cfg backend.Config) error {
	_, err := o.ensureBackend(ctx, cfg)
	return err
}

// FetchTableData runs a bounded SELECT for one table page. Overlapping
// fetches for the same table are dropped with ErrFetchInFlight.
func (o *Orchestrator) FetchTableData(ctx context.Context, cfg backend.Config, req FetchRequest) (*TableData, error) {
	b, err := o.ensureBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	key := refreshKey(req.Schema, req.Table)
	if !o.guard.begin(key) {
		return nil, ErrFetchInFlight
	}
	defer o.guard.end(key)

	query, args, err := buildSelect(b.Type(), req.Schema, req.Table, req.Sort, req.Limit, req.Offset)
	if err != nil {
		return nil, err
	}

	result, err := b.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &TableData{
		Rows:        result.Rows,
		Columns:     result.Columns,
		Offset:      req.Offset,
		Limit:       req.Limit,
		HasMoreRows: req.Limit > 0 && result.RowCount == req.Limit,
	}, nil
}

// SearchTableRows performs a paginated case-insensitive substring search.
// A blank or whitespace-only term is a deliberate no-op returning
// (nil, nil): it clears search state instead of scanning the whole table.
func (o *Orchestrator) SearchTableRows(ctx context.Context, cfg backend.Config, req SearchRequest) (*SearchResult, error) {
	if strings.TrimSpace(req.Term) == "" {
		o.guard.clear(refreshKey(req.Schema, req.Table))
		return nil, nil
	}

	b, err := o.ensureBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	key := refreshKey(req.Schema, req.Table)
	if !o.guard.begin(key) {
		return nil, ErrFetchInFlight
	}
	defer o.guard.end(key)

	dataSQL, countSQL, dataArgs, countArgs, err := buildSearch(
		b.Type(), req.Schema, req.Table, req.Columns, req.Term, req.Sort, req.Limit, req.Offset)
	if err != nil {
		return nil, err
	}

	// The row page and the total count are independent reads; run them
	// concurrently on the pool.
	var (
		page  *backend.QueryResult
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		page, err = b.Query(gctx, dataSQL, dataArgs...)
		return err
	})
	g.Go(func() error {
		res, err := b.Query(gctx, countSQL, countArgs...)
		if err != nil {
			return err
		}
		total = countFromResult(res)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &SearchResult{
		Rows:       page.Rows,
		Columns:    page.Columns,
		TotalCount: total,
		HasMore:    int64(req.Offset+page.RowCount) < total,
	}, nil
}

// ExecuteQuery runs an arbitrary statement and returns the result together
// with a history record ready to append. The record is returned even on
// failure, with its Error field set.
func (o *Orchestrator) ExecuteQuery(ctx context.Context, cfg backend.Config, connectionID, query string) (*backend.QueryResult, registry.QueryHistoryItem, error) {
	item := registry.QueryHistoryItem{
		ID:           uuid.NewString(),
		ConnectionID: connectionID,
		Query:        query,
		ExecutedAt:   time.Now().UTC().Format(time.RFC3339),
	}

	b, err := o.ensureBackend(ctx, cfg)
	if err != nil {
		item.Error = err.Error()
		return nil, item, err
	}

	start := time.Now()
	result, err := b.Query(ctx, query)
	item.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		item.Error = err.Error()
		return nil, item, err
	}
	item.RowCount = result.RowCount
	return result, item, nil
}

// ListTables enumerates user tables for the connected database.
func (o *Orchestrator) ListTables(ctx context.Context, cfg backend.Config) ([]TableRef, error) {
	b, err := o.ensureBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var query string
	switch b.Type() {
	case backend.EnginePostgres:
		query = `SELECT table_schema, table_name FROM information_schema.tables
			WHERE table_type = 'BASE TABLE'
			AND table_schema NOT IN ('pg_catalog', 'information_schema')
			ORDER BY table_schema, table_name`
	case backend.EngineMySQL:
		query = `SELECT table_schema, table_name FROM information_schema.tables
			WHERE table_schema = DATABASE()
			ORDER BY table_name`
	default: // sqlite
		query = `SELECT '' AS table_schema, name AS table_name FROM sqlite_master
			WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
			ORDER BY name`
	}

	result, err := b.Query(ctx, query)
	if err != nil {
		return nil, err
	}

	refs := make([]TableRef, 0, result.RowCount)
	for _, row := range result.Rows {
		refs = append(refs, TableRef{
			Schema: stringValue(row["table_schema"]),
			Table:  stringValue(row["table_name"]),
		})
	}
	return refs, nil
}

// ClearTable drops refresh state for one table, e.g. when the selection
// changes.
func (o *Orchestrator) ClearTable(schema, table string) {
	o.guard.clear(refreshKey(schema, table))
}

// LastRefreshed reports when the table's last fetch completed. Zero if
// never.
func (o *Orchestrator) LastRefreshed(schema, table string) time.Time {
	return o.guard.lastCompletedAt(refreshKey(schema, table))
}

// Reset closes the active backend and drops all refresh state.
func (o *Orchestrator) Reset() error {
	o.guard.reset()
	if o.active == nil {
		return nil
	}
	err := o.active.Close()
	o.active = nil
	o.activeCfg = backend.Config{}
	return err
}

// countFromResult pulls the single COUNT(*) value out of a result,
// tolerating the int width differences between drivers.
func countFromResult(res *backend.QueryResult) int64 {
	if res == nil || len(res.Rows) == 0 {
		return 0
	}
	for _, v := range res.Rows[0] {
		switch n := v.(type) {
		case int64:
			return n
		case int32:
			return int64(n)
		case int:
			return int64(n)
		case float64:
			return int64(n)
		case string:
			if parsed, err := strconv.ParseInt(n, 10, 64); err == nil {
				return parsed
			}
		}
	}
	return 0
}

func stringValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}
