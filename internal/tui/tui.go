// Package tui implements the interactive table browser.
package tui

import (
	"context"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/leapstack-labs/leapdb/internal/orchestrator"
	"github.com/leapstack-labs/leapdb/internal/registry"
	"github.com/leapstack-labs/leapdb/pkg/backend"
)

// pageSize is the number of rows fetched per data page.
const pageSize = 50

// Options wires the browser to its collaborators.
type Options struct {
	Registry     *registry.Registry
	Orchestrator *orchestrator.Orchestrator
	Pool         backend.PoolOptions
	Logger       *slog.Logger

	// InitialConnection skips the picker and opens this connection.
	InitialConnection *registry.ConnectionInfo
}

// Run starts the browser and blocks until the user quits.
func Run(ctx context.Context, opts Options) error {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	m := newModel(opts)
	m.ctx = ctx
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	// External edits to the saved-connection files refresh the picker.
	if opts.Registry != nil {
		go func() {
			err := opts.Registry.Watch(ctx, func() {
				p.Send(registryChangedMsg{})
			})
			if err != nil {
				opts.Logger.Warn("registry watch unavailable", slog.String("error", err.Error()))
			}
		}()
	}

	_, err := p.Run()
	return err
}
