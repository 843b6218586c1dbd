// Package export implements the orchestrator's export collaborator for
// CSV, JSON, and rendered-table output. It serializes to an io.Writer;
// opening files is the caller's job.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/leapdb/internal/orchestrator"
	"github.com/leapstack-labs/leapdb/pkg/backend"
)

// Writer serializes export data in one of the supported formats.
type Writer struct {
	w io.Writer
}

// NewWriter creates an exporter writing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Export dispatches on the requested format.
func (e *Writer) Export(_ context.Context, data orchestrator.ExportData, opts orchestrator.ExportOptions) error {
	switch opts.Format {
	case orchestrator.FormatCSV:
		return e.writeCSV(data, opts.IncludeHeaders)
	case orchestrator.FormatJSON:
		return e.writeJSON(data)
	case orchestrator.FormatTable, "":
		return e.writeTable(data, opts.IncludeHeaders)
	default:
		return fmt.Errorf("unsupported export format %q", opts.Format)
	}
}

func (e *Writer) writeCSV(data orchestrator.ExportData, headers bool) error {
	cw := csv.NewWriter(e.w)
	if headers {
		if err := cw.Write(data.Columns); err != nil {
			return err
		}
	}
	record := make([]string, len(data.Columns))
	for _, row := range data.Rows {
		for i, col := range data.Columns {
			record[i] = formatValue(row[col])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (e *Writer) writeJSON(data orchestrator.ExportData) error {
	rows := data.Rows
	if rows == nil {
		rows = []backend.Row{}
	}
	enc := json.NewEncoder(e.w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func (e *Writer) writeTable(data orchestrator.ExportData, headers bool) error {
	t := table.NewWriter()
	t.SetOutputMirror(e.w)
	t.SetStyle(table.StyleLight)

	if headers {
		headerRow := make(table.Row, len(data.Columns))
		for i, col := range data.Columns {
			headerRow[i] = col
		}
		t.AppendHeader(headerRow)
	}
	for _, row := range data.Rows {
		tr := make(table.Row, len(data.Columns))
		for i, col := range data.Columns {
			tr[i] = formatValue(row[col])
		}
		t.AppendRow(tr)
	}
	t.Render()
	_, err := fmt.Fprintf(e.w, "(%d rows)\n", len(data.Rows))
	return err
}

// formatValue renders one cell. NULLs print as empty in CSV-ish contexts;
// timestamps use RFC 3339.
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		return t.Format(time.RFC3339)
	case []byte:
		return string(t)
	default:
		return fmt.Sprintf("%v", v)
	}
}

var _ orchestrator.Exporter = (*Writer)(nil)
