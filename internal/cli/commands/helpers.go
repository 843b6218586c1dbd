// Package commands implements the leapdb subcommands.
package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdb/internal/config"
	"github.com/leapstack-labs/leapdb/internal/registry"
	"github.com/leapstack-labs/leapdb/pkg/backend"
)

// openRegistry builds the registry for the configured data directory.
func openRegistry(ctx context.Context) *registry.Registry {
	cfg := config.GetConfig(ctx)
	return registry.New(cfg.DataDir, config.GetLogger(ctx))
}

// resolveConnection finds a saved connection by name or ID.
func resolveConnection(reg *registry.Registry, nameOrID string) (*registry.ConnectionInfo, error) {
	result, err := reg.LoadConnections()
	if err != nil {
		return nil, err
	}
	for i := range result.Connections {
		c := &result.Connections[i]
		if c.ID == nameOrID || strings.EqualFold(c.Name, nameOrID) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("no saved connection named %q (try 'leapdb connections list')", nameOrID)
}

// backendConfig builds a backend config from a saved connection plus the
// configured pool settings.
func backendConfig(ctx context.Context, conn *registry.ConnectionInfo) backend.Config {
	cfg := config.GetConfig(ctx)
	return backend.Config{
		Engine:     conn.Type,
		ConnString: conn.ConnectionString,
		Pool:       cfg.PoolOptions(),
	}
}

// connectionFlag registers the shared --connection flag.
func connectionFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "connection", "c", "", "Saved connection name or ID")
	_ = cmd.MarkFlagRequired("connection")
}
