package commands

import (
	"context"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/leapstack-labs/leapdb/internal/export"
	"github.com/leapstack-labs/leapdb/internal/orchestrator"
	"github.com/leapstack-labs/leapdb/pkg/backend"
)

// renderResult serializes a query result in the requested format.
// Table output on a terminal truncates wide cells to fit the screen.
func renderResult(ctx context.Context, w io.Writer, result *backend.QueryResult, format string) error {
	data := orchestrator.ExportData{Rows: result.Rows, Columns: result.Columns}
	opts := orchestrator.ExportOptions{
		Format:         orchestrator.ExportFormat(format),
		IncludeHeaders: true,
	}
	if opts.Format == orchestrator.FormatTable || opts.Format == "" {
		data.Rows = truncateForTerminal(data.Rows, data.Columns)
	}
	return export.NewWriter(w).Export(ctx, data, opts)
}

// truncateForTerminal caps string cells so a table row fits the terminal
// width. Non-terminal output is left untouched.
func truncateForTerminal(rows []backend.Row, columns []string) []backend.Row {
	if !term.IsTerminal(int(os.Stdout.Fd())) || len(columns) == 0 {
		return rows
	}
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return rows
	}

	maxCell := width/len(columns) - 3
	if maxCell < 8 {
		maxCell = 8
	}

	out := make([]backend.Row, len(rows))
	for i, row := range rows {
		clipped := make(backend.Row, len(row))
		for col, v := range row {
			if s, ok := v.(string); ok && len(s) > maxCell {
				clipped[col] = s[:maxCell-1] + "…"
			} else {
				clipped[col] = v
			}
		}
		out[i] = clipped
	}
	return out
}
