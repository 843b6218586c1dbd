package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdb/internal/config"
	"github.com/leapstack-labs/leapdb/internal/orchestrator"
	"github.com/leapstack-labs/leapdb/internal/tui"
)

// NewBrowseCommand creates the browse command, the interactive TUI.
func NewBrowseCommand() *cobra.Command {
	var connection string
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse tables interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := config.GetConfig(ctx)
			logger := config.GetLogger(ctx)

			reg := openRegistry(ctx)
			orch := orchestrator.New(logger)
			defer func() { _ = orch.Reset() }()

			opts := tui.Options{
				Registry:     reg,
				Orchestrator: orch,
				Pool:         cfg.PoolOptions(),
				Logger:       logger,
			}
			if connection != "" {
				conn, err := resolveConnection(reg, connection)
				if err != nil {
					return err
				}
				opts.InitialConnection = conn
			}
			return tui.Run(ctx, opts)
		},
	}
	cmd.Flags().StringVarP(&connection, "connection", "c", "", "Open a saved connection directly")
	return cmd
}
