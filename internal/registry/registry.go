// Package registry persists saved connection profiles and query history as
// JSON documents under the application data directory.
//
// Loading is tolerant: individual entries that fail validation are
// recovered through the legacy shape or skipped with a warning, and
// duplicate profiles are collapsed. Only a wholly unparseable file is an
// error: corruption must not be mistaken for "no data".
package registry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const (
	connectionsFile = "connections.json"
	historyFile     = "query-history.json"

	// maxHistoryEntries caps query-history.json; oldest entries fall off.
	maxHistoryEntries = 500
)

// StorageError reports a directory or file I/O failure during load/save.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// LoadResult is the outcome of LoadConnections. Skipped counts both
// structurally invalid entries and collapsed duplicates.
type LoadResult struct {
	Connections []ConnectionInfo
	Normalized  int
	Skipped     int
}

// Registry reads and writes the JSON data files. The backing store is
// single-writer: callers serialize their own save operations.
type Registry struct {
	dir    string
	logger *slog.Logger
}

// New creates a Registry rooted at dir. If logger is nil, a discard logger
// is used.
func New(dir string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{dir: dir, logger: logger}
}

// Dir returns the data directory.
func (r *Registry) Dir() string { return r.dir }

// ensureDataDir creates the data directory if it does not exist yet.
func (r *Registry) ensureDataDir() error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return &StorageError{Op: "failed to ensure data directory", Path: r.dir, Err: err}
	}
	return nil
}

// LoadConnections reads, validates, migrates, and deduplicates the saved
// connection profiles. A missing or empty file is an empty registry; a
// non-parseable file is an error.
func (r *Registry) LoadConnections() (*LoadResult, error) {
	if err := r.ensureDataDir(); err != nil {
		return nil, err
	}

	path := filepath.Join(r.dir, connectionsFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) || (err == nil && len(data) == 0) {
		return &LoadResult{Connections: []ConnectionInfo{}}, nil
	}
	if err != nil {
		return nil, &StorageError{Op: "failed to read", Path: path, Err: err}
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		if !json.Valid(data) {
			return nil, &StorageError{Op: "failed to parse", Path: path, Err: err}
		}
		// Valid JSON that is not an array: drop it wholesale.
		r.logger.Warn("connections file is not an array, ignoring", slog.String("path", path))
		return &LoadResult{Connections: []ConnectionInfo{}, Skipped: 1}, nil
	}

	now := time.Now()
	result := &LoadResult{Connections: make([]ConnectionInfo, 0, len(raw))}
	for i, entry := range raw {
		var conn ConnectionInfo
		if err := json.Unmarshal(entry, &conn); err == nil && conn.Validate() == nil {
			result.Connections = append(result.Connections, conn)
			continue
		}

		// Fall back to the legacy shape before giving up on the entry.
		var legacy legacyConnection
		if err := json.Unmarshal(entry, &legacy); err == nil {
			if conn, ok := legacy.normalize(now); ok {
				result.Connections = append(result.Connections, conn)
				result.Normalized++
				continue
			}
		}

		result.Skipped++
		r.logger.Warn("skipping unrecognized connection entry",
			slog.Int("index", i), slog.String("path", path))
	}

	result.Connections, result.Skipped = dedupConnections(result.Connections, result.Skipped)
	return result, nil
}

// dedupConnections collapses entries sharing (type, connectionString) to
// the one with the latest updatedAt. RFC 3339 timestamps order correctly
// as strings.
func dedupConnections(conns []ConnectionInfo, skipped int) ([]ConnectionInfo, int) {
	seen := make(map[string]int, len(conns))
	out := conns[:0]
	for _, c := range conns {
		key := string(c.Type) + "\x00" + c.ConnectionString
		if i, ok := seen[key]; ok {
			skipped++
			if c.UpdatedAt > out[i].UpdatedAt {
				out[i] = c
			}
			continue
		}
		seen[key] = len(out)
		out = append(out, c)
	}
	return out, skipped
}

// SaveConnections writes the full profile list atomically.
func (r *Registry) SaveConnections(conns []ConnectionInfo) error {
	if err := r.ensureDataDir(); err != nil {
		return err
	}
	return r.writeJSON(connectionsFile, conns)
}

// LoadQueryHistory reads the query history, most recent first. Entries
// that do not match the expected shape are silently filtered; non-array or
// missing content yields an empty history.
func (r *Registry) LoadQueryHistory() ([]QueryHistoryItem, error) {
	if err := r.ensureDataDir(); err != nil {
		return nil, err
	}

	path := filepath.Join(r.dir, historyFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) || (err == nil && len(data) == 0) {
		return []QueryHistoryItem{}, nil
	}
	if err != nil {
		return nil, &StorageError{Op: "failed to read", Path: path, Err: err}
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		if !json.Valid(data) {
			return nil, &StorageError{Op: "failed to parse", Path: path, Err: err}
		}
		return []QueryHistoryItem{}, nil
	}

	items := make([]QueryHistoryItem, 0, len(raw))
	for _, entry := range raw {
		var item QueryHistoryItem
		if err := json.Unmarshal(entry, &item); err != nil || item.Validate() != nil {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// SaveQueryHistory writes the history atomically, capped at
// maxHistoryEntries with the most recent entries kept.
func (r *Registry) SaveQueryHistory(items []QueryHistoryItem) error {
	if err := r.ensureDataDir(); err != nil {
		return err
	}
	if len(items) > maxHistoryEntries {
		items = items[:maxHistoryEntries]
	}
	return r.writeJSON(historyFile, items)
}

// writeJSON serializes v to a temp file in the data directory and renames
// it over the target, so readers never observe a partial write.
func (r *Registry) writeJSON(name string, v any) error {
	path := filepath.Join(r.dir, name)

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &StorageError{Op: "failed to encode", Path: path, Err: err}
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(r.dir, name+".tmp-*")
	if err != nil {
		return &StorageError{Op: "failed to create temp file in", Path: r.dir, Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &StorageError{Op: "failed to write", Path: tmpName, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return &StorageError{Op: "failed to close", Path: tmpName, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return &StorageError{Op: "failed to replace", Path: path, Err: err}
	}
	return nil
}
