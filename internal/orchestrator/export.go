package orchestrator

import (
	"context"

	"github.com/leapstack-labs/leapdb/pkg/backend"
)

// ExportFormat names a serialization handled by the export collaborator.
type ExportFormat string

const (
	FormatCSV   ExportFormat = "csv"
	FormatJSON  ExportFormat = "json"
	FormatTable ExportFormat = "table"
)

// ExportOptions is passed through to the export collaborator untouched.
type ExportOptions struct {
	Format         ExportFormat
	IncludeHeaders bool
}

// ExportData is the normalized rows-plus-columns pair handed to the
// export collaborator. The orchestrator never serializes or writes files
// itself.
type ExportData struct {
	Rows    []backend.Row
	Columns []string
}

// Exporter is the export collaborator contract.
type Exporter interface {
	Export(ctx context.Context, data ExportData, opts ExportOptions) error
}

// ExportRequest describes an export read. Limit 0 means unbounded.
type ExportRequest struct {
	Schema  string
	Table   string
	Limit   int
	Sort    Sort
	Options ExportOptions
}

// ExportTableData reads the target table (unbounded unless capped by the
// request) and hands the result to the exporter. Shares the per-table
// refresh guard with fetches.
func (o *Orchestrator) ExportTableData(ctx context.Context, cfg backend.Config, req ExportRequest, exp Exporter) error {
	b, err := o.ensureBackend(ctx, cfg)
	if err != nil {
		return err
	}

	key := refreshKey(req.Schema, req.Table)
	if !o.guard.begin(key) {
		return ErrFetchInFlight
	}
	defer o.guard.end(key)

	query, args, err := buildSelect(b.Type(), req.Schema, req.Table, req.Sort, req.Limit, 0)
	if err != nil {
		return err
	}

	result, err := b.Query(ctx, query, args...)
	if err != nil {
		return err
	}

	return exp.Export(ctx, ExportData{Rows: result.Rows, Columns: result.Columns}, req.Options)
}

// ExportRows hands an explicit, already-fetched row set to the exporter.
func (o *Orchestrator) ExportRows(ctx context.Context, data ExportData, opts ExportOptions, exp Exporter) error {
	return exp.Export(ctx, data, opts)
}
