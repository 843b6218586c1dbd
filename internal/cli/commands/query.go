package commands

import (
	"context"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdb/internal/config"
	"github.com/leapstack-labs/leapdb/internal/orchestrator"
	"github.com/leapstack-labs/leapdb/internal/registry"
)

// QueryOptions carries the query command flags.
type QueryOptions struct {
	Connection string
	Format     string
}

// NewQueryCommand creates the query command. With a SQL argument it runs
// one statement and exits; without one it starts an interactive REPL.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}
	cmd := &cobra.Command{
		Use:   "query [sql]",
		Short: "Run SQL against a saved connection",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if opts.Format == "" {
				opts.Format = config.GetConfig(ctx).Output
			}

			reg := openRegistry(ctx)
			conn, err := resolveConnection(reg, opts.Connection)
			if err != nil {
				return err
			}

			orch := orchestrator.New(config.GetLogger(ctx))
			defer func() { _ = orch.Reset() }()

			if err := orch.Use(ctx, backendConfig(ctx, conn)); err != nil {
				return err
			}

			if len(args) == 1 {
				return runQueryOnce(cmd, orch, reg, conn, args[0], opts.Format)
			}
			return runQueryREPL(cmd, orch, reg, conn, opts.Format)
		},
	}
	connectionFlag(cmd, &opts.Connection)
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format (table|csv|json)")
	return cmd
}

// runQueryOnce executes a single statement, renders it, and records it in
// the query history.
func runQueryOnce(cmd *cobra.Command, orch *orchestrator.Orchestrator, reg *registry.Registry, conn *registry.ConnectionInfo, query, format string) error {
	ctx := cmd.Context()

	result, item, execErr := orch.ExecuteQuery(ctx, backendConfig(ctx, conn), conn.ID, query)
	appendHistory(ctx, reg, item)
	if execErr != nil {
		return execErr
	}
	return renderResult(ctx, cmd.OutOrStdout(), result, format)
}

// appendHistory records an executed statement. History write failures are
// logged, never fatal.
func appendHistory(ctx context.Context, reg *registry.Registry, item registry.QueryHistoryItem) {
	items, err := reg.LoadQueryHistory()
	if err != nil {
		items = nil
	}
	if err := reg.SaveQueryHistory(append(items, item)); err != nil {
		config.GetLogger(ctx).Warn("failed to save query history", slog.String("error", err.Error()))
	}
}

// statementComplete reports whether the buffered input ends a statement.
func statementComplete(line string) bool {
	return strings.HasSuffix(strings.TrimSpace(line), ";")
}
