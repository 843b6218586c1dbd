package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/leapstack-labs/leapdb/internal/orchestrator"
	"github.com/leapstack-labs/leapdb/internal/registry"
	"github.com/leapstack-labs/leapdb/pkg/backend"
)

type viewState int

const (
	stateConnections viewState = iota
	stateTables
	stateData
)

// connItem adapts a saved connection to the picker list.
type connItem struct{ conn registry.ConnectionInfo }

func (i connItem) Title() string       { return i.conn.Name }
func (i connItem) Description() string { return string(i.conn.Type) }
func (i connItem) FilterValue() string { return i.conn.Name }

// tableItem adapts a table reference to the table list.
type tableItem struct{ ref orchestrator.TableRef }

func (i tableItem) Title() string {
	if i.ref.Schema != "" {
		return i.ref.Schema + "." + i.ref.Table
	}
	return i.ref.Table
}
func (i tableItem) Description() string { return "" }
func (i tableItem) FilterValue() string { return i.Title() }

// Model is the browser's bubbletea model.
type Model struct {
	opts Options
	ctx  context.Context
	keys keyMap
	st   styles

	state  viewState
	width  int
	height int

	connList  list.Model
	tableList list.Model
	search    textinput.Model
	searching bool

	activeConn *registry.ConnectionInfo
	cfg        backend.Config

	table      orchestrator.TableRef
	page       *orchestrator.TableData
	searchRes  *orchestrator.SearchResult
	searchTerm string
	offset     int
	sort       orchestrator.Sort
	loading    bool
	status     string
	lastErr    string
}

func newModel(opts Options) *Model {
	delegate := list.NewDefaultDelegate()
	connList := list.New(nil, delegate, 0, 0)
	connList.Title = "Connections"
	connList.SetShowStatusBar(false)

	tableDelegate := list.NewDefaultDelegate()
	tableDelegate.ShowDescription = false
	tableList := list.New(nil, tableDelegate, 0, 0)
	tableList.Title = "Tables"
	tableList.SetShowStatusBar(false)

	search := textinput.New()
	search.Placeholder = "search"
	search.Prompt = "/"

	m := &Model{
		opts:      opts,
		ctx:       context.Background(),
		keys:      newKeyMap(),
		st:        newStyles(),
		state:     stateConnections,
		connList:  connList,
		tableList: tableList,
		search:    search,
	}
	if opts.InitialConnection != nil {
		m.setConnection(*opts.InitialConnection)
	}
	return m
}

// setConnection activates a connection and moves to the table list.
func (m *Model) setConnection(conn registry.ConnectionInfo) {
	m.activeConn = &conn
	m.cfg = backend.Config{
		Engine:     conn.Type,
		ConnString: conn.ConnectionString,
		Pool:       m.opts.Pool,
	}
	m.state = stateTables
	m.loading = true
}

// Init loads the connection picker, or goes straight to the tables of a
// preselected connection.
func (m *Model) Init() tea.Cmd {
	if m.activeConn != nil {
		return loadTables(m.ctx, m.opts.Orchestrator, m.cfg)
	}
	return loadConnections(m.opts.Registry)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.connList.SetSize(msg.Width, msg.Height-2)
		m.tableList.SetSize(msg.Width, msg.Height-2)
		return m, nil

	case registryChangedMsg:
		return m, loadConnections(m.opts.Registry)

	case connectionsLoadedMsg:
		if msg.err != nil {
			m.lastErr = msg.err.Error()
			return m, nil
		}
		items := make([]list.Item, len(msg.connections))
		for i, c := range msg.connections {
			items[i] = connItem{conn: c}
		}
		if msg.skipped > 0 {
			m.status = fmt.Sprintf("%d invalid entries skipped", msg.skipped)
		}
		return m, m.connList.SetItems(items)

	case tablesLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.lastErr = msg.err.Error()
			m.state = stateConnections
			return m, nil
		}
		items := make([]list.Item, len(msg.refs))
		for i, ref := range msg.refs {
			items[i] = tableItem{ref: ref}
		}
		return m, m.tableList.SetItems(items)

	case dataLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.lastErr = msg.err.Error()
			return m, nil
		}
		m.lastErr = ""
		m.page = msg.page
		m.searchRes = nil
		m.offset = msg.page.Offset
		return m, nil

	case searchLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.lastErr = msg.err.Error()
			return m, nil
		}
		m.lastErr = ""
		if msg.result == nil {
			// Blank term: search state cleared, fall back to plain paging.
			return m, m.fetchPage(0)
		}
		m.searchRes = msg.result
		m.offset = msg.offset
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, m.updateChildren(msg)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		switch msg.Type {
		case tea.KeyEnter:
			m.searching = false
			m.searchTerm = m.search.Value()
			m.loading = true
			return m, m.fetchSearch(0)
		case tea.KeyEsc:
			m.searching = false
			m.search.SetValue("")
			m.searchTerm = ""
			m.searchRes = nil
			return m, m.fetchPage(0)
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.state == stateData {
			m.state = stateTables
			m.page, m.searchRes = nil, nil
			m.searchTerm = ""
			return m, nil
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Back):
		switch m.state {
		case stateData:
			m.state = stateTables
			m.page, m.searchRes = nil, nil
			m.searchTerm = ""
		case stateTables:
			m.state = stateConnections
		}
		return m, nil

	case key.Matches(msg, m.keys.Select):
		return m.handleSelect()

	case key.Matches(msg, m.keys.Refresh):
		switch m.state {
		case stateTables:
			m.loading = true
			return m, loadTables(m.ctx, m.opts.Orchestrator, m.cfg)
		case stateData:
			m.loading = true
			return m, m.refetch(m.offset)
		}

	case key.Matches(msg, m.keys.NextPage):
		if m.state == stateData && m.hasMore() {
			m.loading = true
			return m, m.refetch(m.offset + pageSize)
		}

	case key.Matches(msg, m.keys.PrevPage):
		if m.state == stateData && m.offset > 0 {
			next := m.offset - pageSize
			if next < 0 {
				next = 0
			}
			m.loading = true
			return m, m.refetch(next)
		}

	case key.Matches(msg, m.keys.Sort):
		if m.state == stateData {
			m.cycleSort()
			m.loading = true
			return m, m.refetch(0)
		}

	case key.Matches(msg, m.keys.Search):
		if m.state == stateData {
			m.searching = true
			m.search.Focus()
			return m, textinput.Blink
		}
	}

	return m, m.updateChildren(msg)
}

func (m *Model) handleSelect() (tea.Model, tea.Cmd) {
	switch m.state {
	case stateConnections:
		item, ok := m.connList.SelectedItem().(connItem)
		if !ok {
			return m, nil
		}
		m.setConnection(item.conn)
		return m, loadTables(m.ctx, m.opts.Orchestrator, m.cfg)

	case stateTables:
		item, ok := m.tableList.SelectedItem().(tableItem)
		if !ok {
			return m, nil
		}
		if m.table != item.ref {
			m.opts.Orchestrator.ClearTable(m.table.Schema, m.table.Table)
		}
		m.table = item.ref
		m.state = stateData
		m.sort = orchestrator.Sort{}
		m.searchTerm = ""
		m.loading = true
		return m, m.fetchPage(0)
	}
	return m, nil
}

// cycleSort rotates off -> asc -> desc on the first column.
func (m *Model) cycleSort() {
	col := ""
	if m.page != nil && len(m.page.Columns) > 0 {
		col = m.page.Columns[0]
	}
	if col == "" {
		return
	}
	switch m.sort.Direction {
	case orchestrator.SortOff:
		m.sort = orchestrator.Sort{Column: col, Direction: orchestrator.SortAsc}
	case orchestrator.SortAsc:
		m.sort = orchestrator.Sort{Column: col, Direction: orchestrator.SortDesc}
	default:
		m.sort = orchestrator.Sort{}
	}
}

// refetch re-reads the current view (search or plain page) at offset.
func (m *Model) refetch(offset int) tea.Cmd {
	if m.searchTerm != "" {
		return m.fetchSearch(offset)
	}
	return m.fetchPage(offset)
}

func (m *Model) fetchPage(offset int) tea.Cmd {
	return loadPage(m.ctx, m.opts.Orchestrator, m.cfg, orchestrator.FetchRequest{
		Schema: m.table.Schema,
		Table:  m.table.Table,
		Offset: offset,
		Limit:  pageSize,
		Sort:   m.sort,
	})
}

func (m *Model) fetchSearch(offset int) tea.Cmd {
	columns := []string(nil)
	if m.page != nil {
		columns = m.page.Columns
	}
	return runSearch(m.ctx, m.opts.Orchestrator, m.cfg, orchestrator.SearchRequest{
		Schema:  m.table.Schema,
		Table:   m.table.Table,
		Columns: columns,
		Term:    m.searchTerm,
		Offset:  offset,
		Limit:   pageSize,
		Sort:    m.sort,
	})
}

func (m *Model) hasMore() bool {
	if m.searchRes != nil {
		return m.searchRes.HasMore
	}
	return m.page != nil && m.page.HasMoreRows
}

func (m *Model) updateChildren(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch m.state {
	case stateConnections:
		m.connList, cmd = m.connList.Update(msg)
	case stateTables:
		m.tableList, cmd = m.tableList.Update(msg)
	}
	return cmd
}

func (m *Model) View() string {
	var body string
	switch m.state {
	case stateConnections:
		body = m.connList.View()
	case stateTables:
		body = m.tableList.View()
	case stateData:
		body = m.dataView()
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, m.statusView())
}

// dataView renders the current page (or search page) as a fixed-width grid.
func (m *Model) dataView() string {
	rows, columns := m.currentRows()
	if len(columns) == 0 {
		if m.loading {
			return m.st.dim.Render("loading...")
		}
		return m.st.dim.Render("no data")
	}

	colWidth := 16
	if m.width > 0 {
		if w := m.width/len(columns) - 1; w > 4 {
			colWidth = w
		}
	}

	var b strings.Builder
	header := make([]string, len(columns))
	for i, col := range columns {
		name := col
		if m.sort.Column == col && m.sort.Direction == orchestrator.SortAsc {
			name += " ↑"
		} else if m.sort.Column == col && m.sort.Direction == orchestrator.SortDesc {
			name += " ↓"
		}
		header[i] = pad(name, colWidth)
	}
	b.WriteString(m.st.header.Render(strings.Join(header, " ")))
	b.WriteString("\n")

	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			cells[i] = pad(cellString(row[col]), colWidth)
		}
		b.WriteString(strings.Join(cells, " "))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) currentRows() ([]backend.Row, []string) {
	if m.searchRes != nil {
		return m.searchRes.Rows, m.searchRes.Columns
	}
	if m.page != nil {
		return m.page.Rows, m.page.Columns
	}
	return nil, nil
}

func (m *Model) statusView() string {
	if m.searching {
		return m.search.View()
	}

	var parts []string
	if m.activeConn != nil {
		parts = append(parts, fmt.Sprintf("%s (%s)", m.activeConn.Name, m.activeConn.Type))
	}
	if m.state == stateData {
		pageNo := m.offset/pageSize + 1
		parts = append(parts, m.tableTitle(), fmt.Sprintf("page %d", pageNo))
		if m.searchRes != nil {
			parts = append(parts, fmt.Sprintf("%d matches for %q", m.searchRes.TotalCount, m.searchTerm))
		}
		if last := m.opts.Orchestrator.LastRefreshed(m.table.Schema, m.table.Table); !last.IsZero() {
			parts = append(parts, "refreshed "+last.Format("15:04:05"))
		}
	}
	if m.loading {
		parts = append(parts, "loading...")
	}

	bar := m.st.statusBar.Render(strings.Join(parts, " | "))
	if m.lastErr != "" {
		bar = lipgloss.JoinVertical(lipgloss.Left, bar, m.st.errText.Render(m.lastErr))
	}
	return bar
}

func (m *Model) tableTitle() string {
	if m.table.Schema != "" {
		return m.table.Schema + "." + m.table.Table
	}
	return m.table.Table
}

func cellString(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// pad clips or right-pads s to width.
func pad(s string, width int) string {
	r := []rune(s)
	if len(r) > width {
		if width > 1 {
			return string(r[:width-1]) + "…"
		}
		return string(r[:width])
	}
	return s + strings.Repeat(" ", width-len(r))
}
