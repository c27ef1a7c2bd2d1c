// Package groundtruth derives expected row-sets by independent
// recomputation.
//
// The point of recomputing is to catch superficially-plausible but subtly
// wrong aggregations: the expected values come from a separate query path
// over the raw fact tables on every run, never from a stored literal, so
// ground truth stays correct even when the underlying fixture data changes.
package groundtruth

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/roach88/attest/internal/relational"
)

// validIdentifier matches SQL identifiers (table/column names, optionally
// schema-qualified). Identifiers cannot be parameterized, so anything
// interpolated into query text must pass this whitelist first.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Placeholder selects the bind-parameter syntax of the target driver.
type Placeholder int

const (
	// PlaceholderQuestion is the "?" style sqlite3 accepts.
	PlaceholderQuestion Placeholder = iota
	// PlaceholderDollar is the "$N" ordinal style Postgres requires; pgx
	// passes query text through verbatim, so "?" never works there.
	PlaceholderDollar
)

// PlaceholderFor maps a database/sql driver name to its placeholder style.
func PlaceholderFor(driver string) Placeholder {
	switch driver {
	case "pgx", "postgres":
		return PlaceholderDollar
	}
	return PlaceholderQuestion
}

// render produces the nth placeholder, 1-based.
func (p Placeholder) render(n int) string {
	if p == PlaceholderDollar {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Derivation is one independent recomputation: a named query over raw fact
// tables whose result is the expected state.
type Derivation struct {
	// Name identifies the derivation in diagnostics.
	Name string

	// SQL is the recomputation query. It must read from the fact tables,
	// not from the table the agent produced.
	SQL string

	// Args are bound query parameters.
	Args []any

	// Key optionally names the identity columns of the resulting row-set.
	Key []string
}

// Recompute runs the derivation and returns the expected row-set, freshly
// computed. Results are never memoized.
func Recompute(ctx context.Context, reader *relational.Reader, d Derivation) (relational.RowSet, error) {
	rs, err := reader.Query(ctx, d.SQL, d.Args...)
	if err != nil {
		return relational.RowSet{}, fmt.Errorf("derivation %q: %w", d.Name, err)
	}
	rs.Key = d.Key
	return rs, nil
}

// SelectAll builds a parameterized "SELECT * FROM table [WHERE ...]
// [ORDER BY ...]" for reading the actual state the agent produced, using the
// placeholder style of the target driver. Table, where-clause, and order-by
// identifiers are validated against the identifier whitelist; values are
// always bound, never interpolated.
func SelectAll(table string, where map[string]any, orderBy []string, ph Placeholder) (string, []any, error) {
	if !validIdentifier.MatchString(table) {
		return "", nil, fmt.Errorf("invalid table name %q: must match %s", table, validIdentifier.String())
	}

	query := "SELECT * FROM " + table

	if len(where) > 0 {
		// Sort keys for deterministic query generation.
		keys := make([]string, 0, len(where))
		for k := range where {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		clauses := make([]string, 0, len(keys))
		args := make([]any, 0, len(keys))
		for _, k := range keys {
			if !validIdentifier.MatchString(k) {
				return "", nil, fmt.Errorf("invalid column name %q in where clause", k)
			}
			args = append(args, where[k])
			clauses = append(clauses, k+" = "+ph.render(len(args)))
		}
		query += " WHERE " + strings.Join(clauses, " AND ")

		if err := appendOrderBy(&query, orderBy); err != nil {
			return "", nil, err
		}
		return query, args, nil
	}

	if err := appendOrderBy(&query, orderBy); err != nil {
		return "", nil, err
	}
	return query, nil, nil
}

func appendOrderBy(query *string, orderBy []string) error {
	if len(orderBy) == 0 {
		return nil
	}
	cols := make([]string, 0, len(orderBy))
	for _, c := range orderBy {
		col, desc := strings.CutSuffix(c, " DESC")
		col = strings.TrimSpace(col)
		if !validIdentifier.MatchString(col) {
			return fmt.Errorf("invalid order-by column %q", c)
		}
		if desc {
			col += " DESC"
		}
		cols = append(cols, col)
	}
	*query += " ORDER BY " + strings.Join(cols, ", ")
	return nil
}
