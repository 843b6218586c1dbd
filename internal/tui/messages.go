package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/leapstack-labs/leapdb/internal/orchestrator"
	"github.com/leapstack-labs/leapdb/internal/registry"
	"github.com/leapstack-labs/leapdb/pkg/backend"
)

// registryChangedMsg signals that the saved-connection files changed on
// disk.
type registryChangedMsg struct{}

type connectionsLoadedMsg struct {
	connections []registry.ConnectionInfo
	skipped     int
	err         error
}

type tablesLoadedMsg struct {
	refs []orchestrator.TableRef
	err  error
}

type dataLoadedMsg struct {
	page *orchestrator.TableData
	err  error
}

type searchLoadedMsg struct {
	result *orchestrator.SearchResult
	offset int
	err    error
}

// loadConnections reads the saved-connection registry.
func loadConnections(reg *registry.Registry) tea.Cmd {
	return func() tea.Msg {
		result, err := reg.LoadConnections()
		if err != nil {
			return connectionsLoadedMsg{err: err}
		}
		return connectionsLoadedMsg{connections: result.Connections, skipped: result.Skipped}
	}
}

// loadTables lists the tables on the active connection.
func loadTables(ctx context.Context, orch *orchestrator.Orchestrator, cfg backend.Config) tea.Cmd {
	return func() tea.Msg {
		refs, err := orch.ListTables(ctx, cfg)
		return tablesLoadedMsg{refs: refs, err: err}
	}
}

// loadPage fetches one table page. A drop due to an in-flight fetch is
// silent; the pending fetch's result will arrive on its own.
func loadPage(ctx context.Context, orch *orchestrator.Orchestrator, cfg backend.Config, req orchestrator.FetchRequest) tea.Cmd {
	return func() tea.Msg {
		page, err := orch.FetchTableData(ctx, cfg, req)
		if errors.Is(err, orchestrator.ErrFetchInFlight) {
			return nil
		}
		return dataLoadedMsg{page: page, err: err}
	}
}

// runSearch executes a paginated substring search.
func runSearch(ctx context.Context, orch *orchestrator.Orchestrator, cfg backend.Config, req orchestrator.SearchRequest) tea.Cmd {
	return func() tea.Msg {
		result, err := orch.SearchTableRows(ctx, cfg, req)
		if errors.Is(err, orchestrator.ErrFetchInFlight) {
			return nil
		}
		return searchLoadedMsg{result: result, offset: req.Offset, err: err}
	}
}
