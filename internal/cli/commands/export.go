package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdb/internal/config"
	"github.com/leapstack-labs/leapdb/internal/export"
	"github.com/leapstack-labs/leapdb/internal/orchestrator"
)

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	var (
		connection string
		schema     string
		tableName  string
		format     string
		outPath    string
		limit      int
		sortCol    string
		sortDesc   bool
		noHeaders  bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a table as CSV, JSON, or a rendered table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if format == "" {
				format = config.GetConfig(ctx).Output
			}

			reg := openRegistry(ctx)
			conn, err := resolveConnection(reg, connection)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer func() { _ = f.Close() }()
				w = f
			}

			sort := orchestrator.Sort{}
			if sortCol != "" {
				sort = orchestrator.Sort{Column: sortCol, Direction: orchestrator.SortAsc}
				if sortDesc {
					sort.Direction = orchestrator.SortDesc
				}
			}

			orch := orchestrator.New(config.GetLogger(ctx))
			defer func() { _ = orch.Reset() }()

			req := orchestrator.ExportRequest{
				Schema: schema,
				Table:  tableName,
				Limit:  limit,
				Sort:   sort,
				Options: orchestrator.ExportOptions{
					Format:         orchestrator.ExportFormat(format),
					IncludeHeaders: !noHeaders,
				},
			}
			if err := orch.ExportTableData(ctx, backendConfig(ctx, conn), req, export.NewWriter(w)); err != nil {
				return err
			}
			if outPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", tableName, outPath)
			}
			return nil
		},
	}
	connectionFlag(cmd, &connection)
	cmd.Flags().StringVar(&schema, "schema", "", "Schema the table lives in")
	cmd.Flags().StringVarP(&tableName, "table", "t", "", "Table to export")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Export format (csv|json|table)")
	cmd.Flags().StringVar(&outPath, "out", "", "Output file (default: stdout)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum rows to export (0 = all)")
	cmd.Flags().StringVar(&sortCol, "sort", "", "Column to sort by")
	cmd.Flags().BoolVar(&sortDesc, "desc", false, "Sort descending")
	cmd.Flags().BoolVar(&noHeaders, "no-headers", false, "Omit the header row")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}
