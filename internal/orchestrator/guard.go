package orchestrator

import (
	"sync"
	"time"
)

// refreshKey derives the per-table identity used to deduplicate fetches.
// Schema may be empty for engines without schemas.
func refreshKey(schema, table string) string {
	if schema == "" {
		return table
	}
	return schema + "|" + table
}

// refreshEntry tracks one table's fetch state.
type refreshEntry struct {
	inFlight      bool
	lastCompleted time.Time
}

// refreshGuard is the arena of per-table fetch state. A second fetch for a
// key whose entry is in flight is dropped, never queued; fetches for
// different keys are fully independent.
type refreshGuard struct {
	mu      sync.Mutex
	entries map[string]*refreshEntry
}

func newRefreshGuard() *refreshGuard {
	return &refreshGuard{entries: make(map[string]*refreshEntry)}
}

// begin marks the key in flight. Returns false if a fetch for the key is
// already pending, in which case the new request must be dropped.
func (g *refreshGuard) begin(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.entries[key]
	if !ok {
		e = &refreshEntry{}
		g.entries[key] = e
	}
	if e.inFlight {
		return false
	}
	e.inFlight = true
	return true
}

// end clears the in-flight flag and stamps the completion time. Called on
// success and failure alike.
func (g *refreshGuard) end(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if e, ok := g.entries[key]; ok {
		e.inFlight = false
		e.lastCompleted = time.Now()
	}
}

// lastCompleted returns the last completion time for the key, zero if the
// key has never completed a fetch.
func (g *refreshGuard) lastCompletedAt(key string) time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	if e, ok := g.entries[key]; ok {
		return e.lastCompleted
	}
	return time.Time{}
}

// clear drops the entry for one key.
func (g *refreshGuard) clear(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.entries, key)
}

// reset drops all entries.
func (g *refreshGuard) reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entries = make(map[string]*refreshEntry)
}
