package registry

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/leapdb/pkg/backend"
)

// ConnectionInfo is a saved connection profile.
type ConnectionInfo struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	Type             backend.EngineType `json:"type"`
	ConnectionString string             `json:"connectionString"`
	CreatedAt        string             `json:"createdAt"`
	UpdatedAt        string             `json:"updatedAt"`
}

// QueryHistoryItem records one executed statement.
type QueryHistoryItem struct {
	ID           string `json:"id"`
	ConnectionID string `json:"connectionId"`
	Query        string `json:"query"`
	ExecutedAt   string `json:"executedAt"`
	DurationMs   int64  `json:"durationMs"`
	RowCount     int    `json:"rowCount"`
	Error        string `json:"error,omitempty"`
}

// legacyConnection is the pre-1.0 saved-connection shape. Recognized
// entries are rewritten into ConnectionInfo on load.
type legacyConnection struct {
	Name          string `json:"name"`
	Driver        string `json:"driver"`
	ConnectionStr string `json:"connection_str"`
}

var (
	idRe = regexp.MustCompile(`^[A-Za-z0-9_-]{8,}$`)

	// Generic placeholder names ("database 1", "conn2", ...) are rejected;
	// they carry no information and tend to come from aborted save dialogs.
	placeholderNameRe = regexp.MustCompile(`(?i)^(database|connection|conn|db)\s*\d*$`)
)

const invalidNameChars = `<>:"/\|?*`

// ValidationError describes why an entry failed validation. It is counted
// during load, never propagated.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks the ConnectionInfo shape invariants.
func (c *ConnectionInfo) Validate() error {
	if !idRe.MatchString(c.ID) {
		return &ValidationError{Field: "id", Reason: "must be at least 8 characters of [A-Za-z0-9_-]"}
	}
	name := strings.TrimSpace(c.Name)
	switch {
	case name == "":
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	case len(name) > 100:
		return &ValidationError{Field: "name", Reason: "must be at most 100 characters"}
	case strings.ContainsAny(name, invalidNameChars):
		return &ValidationError{Field: "name", Reason: "contains a reserved character"}
	case placeholderNameRe.MatchString(name):
		return &ValidationError{Field: "name", Reason: "is a generic placeholder"}
	}
	if _, err := backend.ParseEngineType(string(c.Type)); err != nil {
		return &ValidationError{Field: "type", Reason: "unknown engine"}
	}
	if c.ConnectionString == "" {
		return &ValidationError{Field: "connectionString", Reason: "must not be empty"}
	}
	return nil
}

// Validate checks the QueryHistoryItem shape invariants.
func (q *QueryHistoryItem) Validate() error {
	if q.ID == "" {
		return &ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if q.Query == "" {
		return &ValidationError{Field: "query", Reason: "must not be empty"}
	}
	return nil
}

// driverAliases maps legacy driver names onto engine types. Intent is
// never inferred beyond this list.
var driverAliases = map[string]backend.EngineType{
	"postgres":   backend.EnginePostgres,
	"postgresql": backend.EnginePostgres,
	"pg":         backend.EnginePostgres,
	"mysql":      backend.EngineMySQL,
	"sqlite":     backend.EngineSQLite,
	"sqlite3":    backend.EngineSQLite,
}

// normalize rewrites a legacy entry into a fresh ConnectionInfo with a new
// id and both timestamps set to now. Returns false when the driver is not
// a recognized alias or the record is incomplete.
func (l *legacyConnection) normalize(now time.Time) (ConnectionInfo, bool) {
	engine, ok := driverAliases[strings.ToLower(strings.TrimSpace(l.Driver))]
	if !ok || l.Name == "" || l.ConnectionStr == "" {
		return ConnectionInfo{}, false
	}
	ts := now.UTC().Format(time.RFC3339)
	return ConnectionInfo{
		ID:               uuid.NewString(),
		Name:             l.Name,
		Type:             engine,
		ConnectionString: l.ConnectionStr,
		CreatedAt:        ts,
		UpdatedAt:        ts,
	}, true
}

// NewConnectionInfo builds a valid profile for a user-supplied name,
// engine, and connection string.
func NewConnectionInfo(name string, engine backend.EngineType, connString string) ConnectionInfo {
	ts := time.Now().UTC().Format(time.RFC3339)
	return ConnectionInfo{
		ID:               uuid.NewString(),
		Name:             name,
		Type:             engine,
		ConnectionString: connString,
		CreatedAt:        ts,
		UpdatedAt:        ts,
	}
}
