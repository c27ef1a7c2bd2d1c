// Package relational reads ordered row-sets from a relational store.
//
// The Reader is a thin typed wrapper over database/sql: execute, fetch all,
// decorate with the column schema. It distinguishes connection failures
// (retryable by a harness) from query failures (a bug in the check itself).
package relational

import (
	"fmt"
	"strings"
)

// Schema is the ordered column names of a row-set.
type Schema []string

// Index returns the position of a column, or -1.
func (s Schema) Index(column string) int {
	for i, c := range s {
		if c == column {
			return i
		}
	}
	return -1
}

// Row is an ordered tuple of scalar values as returned by the driver.
type Row []any

// RowSet is an ordered sequence of rows with a declared schema.
//
// Key optionally names the columns that form a row's identity, for keyed
// (set-style) comparison; an empty Key means rows are positional.
type RowSet struct {
	Columns Schema
	Rows    []Row
	Key     []string
}

// KeyIndexes resolves the key column names to schema positions.
// Returns an error naming any column absent from the schema.
func (rs RowSet) KeyIndexes() ([]int, error) {
	idx := make([]int, 0, len(rs.Key))
	for _, k := range rs.Key {
		i := rs.Columns.Index(k)
		if i == -1 {
			return nil, fmt.Errorf("key column %q not in schema [%s]", k, strings.Join(rs.Columns, ", "))
		}
		idx = append(idx, i)
	}
	return idx, nil
}

// Describe renders one row for diagnostics.
func (r Row) Describe() string {
	parts := make([]string, len(r))
	for i, v := range r {
		switch val := v.(type) {
		case nil:
			parts[i] = "NULL"
		case string:
			parts[i] = fmt.Sprintf("%q", val)
		case []byte:
			parts[i] = fmt.Sprintf("%q", string(val))
		default:
			parts[i] = fmt.Sprintf("%v", val)
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
