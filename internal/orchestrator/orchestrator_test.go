package orchestrator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapdb/pkg/backend"
)

// stubBackend is a call-counting Backend with an optional block channel so
// tests can hold a query open while a second request comes in.
type stubBackend struct {
	engine     backend.EngineType
	queryCount atomic.Int64
	closeCount atomic.Int64
	connected  bool

	mu      sync.Mutex
	block   chan struct{}
	result  *backend.QueryResult
	results map[string]*backend.QueryResult // optional per-substring results
	err     error
}

func newStubBackend() *stubBackend {
	return &stubBackend{
		engine: backend.EngineSQLite,
		result: &backend.QueryResult{Columns: []string{"id"}},
	}
}

func (s *stubBackend) Type() backend.EngineType { return s.engine }
func (s *stubBackend) Connected() bool          { return s.connected }

func (s *stubBackend) Connect(context.Context) error {
	s.connected = true
	return nil
}

func (s *stubBackend) Query(_ context.Context, query string, _ ...any) (*backend.QueryResult, error) {
	s.queryCount.Add(1)
	s.mu.Lock()
	block := s.block
	s.mu.Unlock()
	if block != nil {
		<-block
	}
	if s.err != nil {
		return nil, s.err
	}
	for sub, res := range s.results {
		if sub != "" && strings.Contains(query, sub) {
			return res, nil
		}
	}
	return s.result, nil
}

func (s *stubBackend) Execute(ctx context.Context, query string, args ...any) error {
	_, err := s.Query(ctx, query, args...)
	return err
}

func (s *stubBackend) Close() error {
	s.closeCount.Add(1)
	s.connected = false
	return nil
}

var _ backend.Backend = (*stubBackend)(nil)

// newTestOrchestrator wires an Orchestrator to the given stub.
func newTestOrchestrator(stub *stubBackend) *Orchestrator {
	o := New(slog.New(slog.DiscardHandler))
	o.newBackend = func(backend.Config, *slog.Logger) (backend.Backend, error) {
		return stub, nil
	}
	return o
}

func testConfig() backend.Config {
	return backend.Config{Engine: backend.EngineSQLite, ConnString: "test.db"}
}

func rowsOfLen(n int) *backend.QueryResult {
	rows := make([]backend.Row, n)
	for i := range rows {
		rows[i] = backend.Row{"id": i}
	}
	return &backend.QueryResult{Rows: rows, RowCount: n, Columns: []string{"id"}}
}

func TestFetchTableData_HasMoreRowsHeuristic(t *testing.T) {
	stub := newStubBackend()
	o := newTestOrchestrator(stub)
	ctx := context.Background()

	// Page 1: full page of 50 means more rows are assumed.
	stub.result = rowsOfLen(50)
	page1, err := o.FetchTableData(ctx, testConfig(), FetchRequest{
		Schema: "public", Table: "users", Offset: 0, Limit: 50,
	})
	require.NoError(t, err)
	assert.True(t, page1.HasMoreRows)
	assert.Len(t, page1.Rows, 50)

	// Page 2: 30 of 50 means the end was reached.
	stub.result = rowsOfLen(30)
	page2, err := o.FetchTableData(ctx, testConfig(), FetchRequest{
		Schema: "public", Table: "users", Offset: 50, Limit: 50,
	})
	require.NoError(t, err)
	assert.False(t, page2.HasMoreRows)
	assert.Len(t, page2.Rows, 30)
}

func TestFetchTableData_OverlappingFetchDropped(t *testing.T) {
	stub := newStubBackend()
	stub.block = make(chan struct{})
	o := newTestOrchestrator(stub)
	ctx := context.Background()

	req := FetchRequest{Schema: "public", Table: "users", Limit: 10}

	firstDone := make(chan error, 1)
	go func() {
		_, err := o.FetchTableData(ctx, testConfig(), req)
		firstDone <- err
	}()

	// Wait for the first fetch to be issued and held open.
	require.Eventually(t, func() bool {
		return stub.queryCount.Load() == 1
	}, time.Second, time.Millisecond)

	// Second trigger while the first is pending: dropped, no second query.
	_, err := o.FetchTableData(ctx, testConfig(), req)
	assert.ErrorIs(t, err, ErrFetchInFlight)
	assert.Equal(t, int64(1), stub.queryCount.Load(), "exactly one backend query must be executed")

	close(stub.block)
	require.NoError(t, <-firstDone)

	// After completion the guard is clear and a re-trigger goes through.
	stub.block = nil
	_, err = o.FetchTableData(ctx, testConfig(), req)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), stub.queryCount.Load())
}

func TestFetchTableData_GuardClearsOnFailure(t *testing.T) {
	stub := newStubBackend()
	stub.err = assert.AnError
	o := newTestOrchestrator(stub)
	ctx := context.Background()

	req := FetchRequest{Table: "users", Limit: 10}
	_, err := o.FetchTableData(ctx, testConfig(), req)
	require.Error(t, err)

	// Failure released the guard; the next trigger is not dropped.
	stub.err = nil
	_, err = o.FetchTableData(ctx, testConfig(), req)
	assert.NoError(t, err)
}

func TestFetchTableData_DifferentTablesIndependent(t *testing.T) {
	stub := newStubBackend()
	stub.block = make(chan struct{})
	o := newTestOrchestrator(stub)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := o.FetchTableData(ctx, testConfig(), FetchRequest{Table: "a", Limit: 10})
		done <- err
	}()
	require.Eventually(t, func() bool {
		return stub.queryCount.Load() == 1
	}, time.Second, time.Millisecond)

	// A fetch for another table proceeds while "a" is in flight.
	secondDone := make(chan error, 1)
	go func() {
		_, err := o.FetchTableData(ctx, testConfig(), FetchRequest{Table: "b", Limit: 10})
		secondDone <- err
	}()
	require.Eventually(t, func() bool {
		return stub.queryCount.Load() == 2
	}, time.Second, time.Millisecond)

	close(stub.block)
	require.NoError(t, <-done)
	require.NoError(t, <-secondDone)
}

func TestSearchTableRows_BlankTermIsNoOp(t *testing.T) {
	stub := newStubBackend()
	o := newTestOrchestrator(stub)
	ctx := context.Background()

	for _, term := range []string{"", "   ", "\t\n"} {
		result, err := o.SearchTableRows(ctx, testConfig(), SearchRequest{
			Table: "users", Columns: []string{"name"}, Term: term, Limit: 10,
		})
		assert.NoError(t, err)
		assert.Nil(t, result)
	}
	assert.Equal(t, int64(0), stub.queryCount.Load(), "blank terms must not issue backend queries")
}

func TestSearchTableRows_ReturnsRowsAndTotal(t *testing.T) {
	stub := newStubBackend()
	stub.results = map[string]*backend.QueryResult{
		"COUNT(*)": {
			Rows:     []backend.Row{{"n": int64(123)}},
			RowCount: 1,
			Columns:  []string{"n"},
		},
	}
	stub.result = rowsOfLen(10)
	o := newTestOrchestrator(stub)

	result, err := o.SearchTableRows(context.Background(), testConfig(), SearchRequest{
		Schema: "public", Table: "users",
		Columns: []string{"name", "email"},
		Term:    "ali", Offset: 0, Limit: 10,
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Len(t, result.Rows, 10)
	assert.Equal(t, int64(123), result.TotalCount)
	assert.True(t, result.HasMore)
	assert.Equal(t, int64(2), stub.queryCount.Load(), "one page query plus one count query")
}

func TestSearchTableRows_NoMoreWhenPastEnd(t *testing.T) {
	stub := newStubBackend()
	stub.results = map[string]*backend.QueryResult{
		"COUNT(*)": {
			Rows:     []backend.Row{{"n": int64(13)}},
			RowCount: 1,
			Columns:  []string{"n"},
		},
	}
	stub.result = rowsOfLen(3)
	o := newTestOrchestrator(stub)

	result, err := o.SearchTableRows(context.Background(), testConfig(), SearchRequest{
		Table: "users", Columns: []string{"name"}, Term: "x", Offset: 10, Limit: 10,
	})
	require.NoError(t, err)
	assert.False(t, result.HasMore)
}

func TestExecuteQuery_RecordsHistory(t *testing.T) {
	stub := newStubBackend()
	stub.result = rowsOfLen(7)
	o := newTestOrchestrator(stub)

	result, item, err := o.ExecuteQuery(context.Background(), testConfig(), "conn-0001", "SELECT * FROM t")
	require.NoError(t, err)
	assert.Equal(t, 7, result.RowCount)
	assert.Equal(t, "conn-0001", item.ConnectionID)
	assert.Equal(t, "SELECT * FROM t", item.Query)
	assert.Equal(t, 7, item.RowCount)
	assert.Empty(t, item.Error)
	assert.NotEmpty(t, item.ID)
	assert.NotEmpty(t, item.ExecutedAt)
}

func TestExecuteQuery_RecordsFailure(t *testing.T) {
	stub := newStubBackend()
	stub.err = assert.AnError
	o := newTestOrchestrator(stub)

	result, item, err := o.ExecuteQuery(context.Background(), testConfig(), "conn-0001", "SELECT boom")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.NotEmpty(t, item.Error)
	assert.Equal(t, 0, item.RowCount)
}

func TestEnsureBackend_ReusedForSameConfig(t *testing.T) {
	stub := newStubBackend()
	o := newTestOrchestrator(stub)
	ctx := context.Background()

	_, err := o.FetchTableData(ctx, testConfig(), FetchRequest{Table: "a", Limit: 1})
	require.NoError(t, err)
	_, err = o.FetchTableData(ctx, testConfig(), FetchRequest{Table: "a", Limit: 1})
	require.NoError(t, err)

	assert.Equal(t, int64(0), stub.closeCount.Load(), "same config must reuse the backend")
}

func TestEnsureBackend_SwitchClosesPrevious(t *testing.T) {
	stub := newStubBackend()
	o := newTestOrchestrator(stub)
	ctx := context.Background()

	_, err := o.FetchTableData(ctx, testConfig(), FetchRequest{Table: "a", Limit: 1})
	require.NoError(t, err)

	other := backend.Config{Engine: backend.EngineSQLite, ConnString: "other.db"}
	_, err = o.FetchTableData(ctx, other, FetchRequest{Table: "a", Limit: 1})
	require.NoError(t, err)

	assert.Equal(t, int64(1), stub.closeCount.Load(), "switching connections closes the previous backend")
}

func TestReset_ClosesBackendAndGuard(t *testing.T) {
	stub := newStubBackend()
	o := newTestOrchestrator(stub)
	ctx := context.Background()

	_, err := o.FetchTableData(ctx, testConfig(), FetchRequest{Table: "a", Limit: 1})
	require.NoError(t, err)
	assert.False(t, o.LastRefreshed("", "a").IsZero())

	require.NoError(t, o.Reset())
	assert.Equal(t, int64(1), stub.closeCount.Load())
	assert.True(t, o.LastRefreshed("", "a").IsZero())
}

func TestListTables_SQLite(t *testing.T) {
	stub := newStubBackend()
	stub.result = &backend.QueryResult{
		Rows: []backend.Row{
			{"table_schema": "", "table_name": "users"},
			{"table_schema": "", "table_name": "orders"},
		},
		RowCount: 2,
		Columns:  []string{"table_schema", "table_name"},
	}
	o := newTestOrchestrator(stub)

	refs, err := o.ListTables(context.Background(), testConfig())
	require.NoError(t, err)
	assert.Equal(t, []TableRef{{Table: "users"}, {Table: "orders"}}, refs)
}
