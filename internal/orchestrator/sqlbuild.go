package orchestrator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/leapstack-labs/leapdb/pkg/backend"
)

// SortDirection controls the ORDER BY clause of a fetch.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
	// SortOff omits the ORDER BY clause entirely.
	SortOff SortDirection = "off"
)

// Sort describes data-source-level sorting. Sorting is never applied
// client-side.
type Sort struct {
	Column    string
	Direction SortDirection
}

// identRe is the shape every interpolated identifier must match. Anything
// else is rejected before it can reach a query string.
var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// quoteIdent validates and quotes an identifier for the engine.
func quoteIdent(engine backend.EngineType, name string) (string, error) {
	if !identRe.MatchString(name) {
		return "", fmt.Errorf("invalid identifier %q", name)
	}
	if engine == backend.EngineMySQL {
		return "`" + name + "`", nil
	}
	return `"` + name + `"`, nil
}

// quoteTable quotes an optionally schema-qualified table reference.
func quoteTable(engine backend.EngineType, schema, table string) (string, error) {
	qt, err := quoteIdent(engine, table)
	if err != nil {
		return "", err
	}
	if schema == "" {
		return qt, nil
	}
	qs, err := quoteIdent(engine, schema)
	if err != nil {
		return "", err
	}
	return qs + "." + qt, nil
}

// buildSelect assembles a bounded SELECT for one table page. A limit of 0
// means unbounded (used by export). Limit and offset travel as bound
// parameters.
func buildSelect(engine backend.EngineType, schema, table string, sort Sort, limit, offset int) (string, []any, error) {
	target, err := quoteTable(engine, schema, table)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString("SELECT * FROM ")
	b.WriteString(target)

	if err := appendOrderBy(&b, engine, sort); err != nil {
		return "", nil, err
	}

	var args []any
	if limit > 0 {
		b.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, limit, offset)
	}
	return b.String(), args, nil
}

// buildSearch assembles the page query and the matching COUNT query for a
// case-insensitive substring search across the given textual columns.
func buildSearch(engine backend.EngineType, schema, table string, columns []string, term string, sort Sort, limit, offset int) (dataSQL, countSQL string, dataArgs, countArgs []any, err error) {
	target, err := quoteTable(engine, schema, table)
	if err != nil {
		return "", "", nil, nil, err
	}
	if len(columns) == 0 {
		return "", "", nil, nil, fmt.Errorf("search requires at least one column")
	}

	preds := make([]string, 0, len(columns))
	likeArgs := make([]any, 0, len(columns))
	pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
	for _, col := range columns {
		qc, err := quoteIdent(engine, col)
		if err != nil {
			return "", "", nil, nil, err
		}
		preds = append(preds, searchPredicate(engine, qc))
		likeArgs = append(likeArgs, pattern)
	}
	where := " WHERE " + strings.Join(preds, " OR ")

	var b strings.Builder
	b.WriteString("SELECT * FROM ")
	b.WriteString(target)
	b.WriteString(where)
	if err := appendOrderBy(&b, engine, sort); err != nil {
		return "", "", nil, nil, err
	}
	b.WriteString(" LIMIT ? OFFSET ?")

	dataArgs = append(append([]any{}, likeArgs...), limit, offset)
	countSQL = "SELECT COUNT(*) AS n FROM " + target + where
	return b.String(), countSQL, dataArgs, likeArgs, nil
}

// searchPredicate builds one column's LIKE predicate. The column is cast
// to text first so non-textual columns (integers, timestamps) compare
// cleanly. MySQL parses the backslash in ESCAPE '\' as a literal escape
// and rejects the statement; backslash is already its default LIKE escape,
// so the clause is omitted there.
func searchPredicate(engine backend.EngineType, quotedCol string) string {
	if engine == backend.EngineMySQL {
		return fmt.Sprintf("LOWER(CAST(%s AS CHAR)) LIKE ?", quotedCol)
	}
	return fmt.Sprintf(`LOWER(CAST(%s AS TEXT)) LIKE ? ESCAPE '\'`, quotedCol)
}

// appendOrderBy writes the ORDER BY clause unless the direction is off.
func appendOrderBy(b *strings.Builder, engine backend.EngineType, sort Sort) error {
	if sort.Direction == "" || sort.Direction == SortOff || sort.Column == "" {
		return nil
	}
	qc, err := quoteIdent(engine, sort.Column)
	if err != nil {
		return err
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(qc)
	switch sort.Direction {
	case SortAsc:
		b.WriteString(" ASC")
	case SortDesc:
		b.WriteString(" DESC")
	default:
		return fmt.Errorf("invalid sort direction %q", sort.Direction)
	}
	return nil
}

// escapeLike escapes LIKE metacharacters in a user-supplied search term.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
