package commands

import (
	"fmt"
	"net/url"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdb/internal/config"
	"github.com/leapstack-labs/leapdb/internal/registry"
	"github.com/leapstack-labs/leapdb/pkg/backend"
)

// NewConnectionsCommand creates the connections command group.
func NewConnectionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "connections",
		Aliases: []string{"conn"},
		Short:   "Manage saved connections",
	}
	cmd.AddCommand(newConnectionsListCommand())
	cmd.AddCommand(newConnectionsAddCommand())
	cmd.AddCommand(newConnectionsRemoveCommand())
	return cmd
}

func newConnectionsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved connections",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := openRegistry(cmd.Context())
			result, err := reg.LoadConnections()
			if err != nil {
				return err
			}
			if result.Skipped > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %d invalid entries skipped\n", result.Skipped)
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"NAME", "TYPE", "CONNECTION", "UPDATED"})
			for _, c := range result.Connections {
				t.AppendRow(table.Row{c.Name, c.Type, redactConnString(c.ConnectionString), c.UpdatedAt})
			}
			t.Render()
			fmt.Fprintf(cmd.OutOrStdout(), "(%d connections)\n", len(result.Connections))
			return nil
		},
	}
}

func newConnectionsAddCommand() *cobra.Command {
	var (
		name       string
		engineName string
		connString string
		skipProbe  bool
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Save a new connection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			engine, err := backend.ParseEngineType(engineName)
			if err != nil {
				return err
			}

			conn := registry.NewConnectionInfo(name, engine, connString)
			if err := conn.Validate(); err != nil {
				return err
			}

			if !skipProbe {
				cfg := config.GetConfig(ctx)
				b, err := backend.New(backend.Config{
					Engine:     engine,
					ConnString: connString,
					Pool:       cfg.PoolOptions(),
				}, config.GetLogger(ctx))
				if err != nil {
					return err
				}
				if err := b.Connect(ctx); err != nil {
					return fmt.Errorf("connection probe failed: %w", err)
				}
				_ = b.Close()
			}

			reg := openRegistry(ctx)
			result, err := reg.LoadConnections()
			if err != nil {
				return err
			}
			if err := reg.SaveConnections(append(result.Connections, conn)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved connection %q (%s)\n", conn.Name, conn.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "Connection name")
	cmd.Flags().StringVarP(&engineName, "type", "t", "", "Engine type (postgres|mysql|sqlite)")
	cmd.Flags().StringVar(&connString, "conn", "", "Connection string (URL, or file path for sqlite)")
	cmd.Flags().BoolVar(&skipProbe, "skip-probe", false, "Save without testing the connection")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("conn")
	return cmd
}

func newConnectionsRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name-or-id>",
		Short: "Remove a saved connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := openRegistry(cmd.Context())
			target, err := resolveConnection(reg, args[0])
			if err != nil {
				return err
			}

			result, err := reg.LoadConnections()
			if err != nil {
				return err
			}
			kept := make([]registry.ConnectionInfo, 0, len(result.Connections))
			for _, c := range result.Connections {
				if c.ID != target.ID {
					kept = append(kept, c)
				}
			}
			if err := reg.SaveConnections(kept); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed connection %q\n", target.Name)
			return nil
		},
	}
}

// redactConnString hides credentials when listing connections.
func redactConnString(s string) string {
	u, err := url.Parse(s)
	if err != nil || u.User == nil {
		return s
	}
	return u.Redacted()
}
