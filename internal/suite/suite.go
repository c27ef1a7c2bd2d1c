// Package suite loads declarative check-suite files and executes them.
//
// A suite names a verification target - a page in the hierarchical store, a
// relational database, or both - and a list of checks. Structural checks
// carry a motif; relational checks carry an actual/expected query pair and
// comparison options. Suites are plain YAML validated against an embedded
// CUE schema before anything runs.
package suite

import (
	"github.com/roach88/attest/internal/compare"
	"github.com/roach88/attest/internal/motif"
)

// NotionTarget identifies the page whose subtree is snapshotted.
// Exactly one of PageID or PageTitle is set; titles resolve through the
// configured resolution strategy.
type NotionTarget struct {
	PageID    string `yaml:"page_id,omitempty"`
	PageTitle string `yaml:"page_title,omitempty"`
}

// DatabaseTarget identifies the relational store. The DSN is supplied by
// the outer configuration layer (environment), never by the suite file.
type DatabaseTarget struct {
	// Driver is a registered database/sql driver name ("pgx", "sqlite3").
	Driver string `yaml:"driver"`
}

// QuerySpec describes one side of a relational check. Either SQL is given
// directly, or Table (+ Where/OrderBy) is expanded into a validated
// SELECT. The expected side should always be SQL over the raw fact tables
// so the comparison checks computation, not data presence.
type QuerySpec struct {
	SQL     string         `yaml:"sql,omitempty"`
	Args    []any          `yaml:"args,omitempty"`
	Table   string         `yaml:"table,omitempty"`
	Where   map[string]any `yaml:"where,omitempty"`
	OrderBy []string       `yaml:"order_by,omitempty"`
}

// RowCheck is one relational comparison.
type RowCheck struct {
	Actual   QuerySpec `yaml:"actual"`
	Expected QuerySpec `yaml:"expected"`

	Mode      string            `yaml:"mode,omitempty"` // "ordered" (default) | "unordered"
	Tolerance float64           `yaml:"tolerance,omitempty"`
	Key       []string          `yaml:"key,omitempty"`
	SortedBy  []compare.SortKey `yaml:"sorted_by,omitempty"`

	// MaxMismatches is an explicit relaxation budget; leave at 0 unless a
	// known fixture defect forces it. Consumed budget is always disclosed
	// in the verdict.
	MaxMismatches int `yaml:"max_mismatches,omitempty"`
}

// Check is one named verification step.
type Check struct {
	Name  string       `yaml:"name"`
	Motif *motif.Motif `yaml:"motif,omitempty"`
	Rows  *RowCheck    `yaml:"rows,omitempty"`
}

// Suite is one verification task: a target and its checks.
type Suite struct {
	Name     string          `yaml:"name"`
	Notion   *NotionTarget   `yaml:"notion,omitempty"`
	Database *DatabaseTarget `yaml:"database,omitempty"`
	Checks   []Check         `yaml:"checks"`
}
