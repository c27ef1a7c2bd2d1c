// Package motif evaluates declarative expected-structure patterns against
// block snapshots.
//
// A Motif is immutable configuration supplied by the calling task: an
// ordered list of (text predicate, required kind) steps, count and format
// rules, optionally scoped to a bounded range between two markers or to the
// direct children of a container. The Matcher reduces one Motif against one
// snapshot into a Verdict whose message names the exact expectation that
// failed.
package motif

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/attest/internal/block"
)

// TextMatch is a predicate over a block's plain text. Exactly one field
// should be set; an empty TextMatch matches anything.
type TextMatch struct {
	Equals   string `yaml:"equals,omitempty"`
	Contains string `yaml:"contains,omitempty"`
	Pattern  string `yaml:"pattern,omitempty"` // regexp
}

// Matches evaluates the predicate against plain text.
func (m TextMatch) Matches(text string) bool {
	switch {
	case m.Equals != "":
		return text == m.Equals
	case m.Contains != "":
		return strings.Contains(text, m.Contains)
	case m.Pattern != "":
		re, err := regexp.Compile(m.Pattern)
		if err != nil {
			return false
		}
		return re.MatchString(text)
	}
	return true
}

// String renders the predicate for diagnostics.
func (m TextMatch) String() string {
	switch {
	case m.Equals != "":
		return fmt.Sprintf("%q", m.Equals)
	case m.Contains != "":
		return fmt.Sprintf("containing %q", m.Contains)
	case m.Pattern != "":
		return fmt.Sprintf("matching /%s/", m.Pattern)
	}
	return "(any text)"
}

// IsZero reports whether no predicate is set.
func (m TextMatch) IsZero() bool {
	return m.Equals == "" && m.Contains == "" && m.Pattern == ""
}

// Step is one required (predicate, kind) pair in an ordered sequence.
type Step struct {
	Kind block.Kind `yaml:"kind"`
	Text TextMatch  `yaml:"text"`
}

func (s Step) String() string {
	return fmt.Sprintf("%s %s", s.Kind, s.Text)
}

// Marker identifies a boundary block for bounded-range scopes. An empty
// Kind matches any kind.
type Marker struct {
	Kind block.Kind `yaml:"kind,omitempty"`
	Text TextMatch  `yaml:"text"`
}

// matches reports whether a block is this marker.
func (m Marker) matches(b block.Block) bool {
	if m.Kind != "" && b.Kind != m.Kind {
		return false
	}
	return m.Text.Matches(block.PlainText(b))
}

func (m Marker) String() string {
	if m.Kind != "" {
		return fmt.Sprintf("%s %s", m.Kind, m.Text)
	}
	return m.Text.String()
}

// Scope restricts which part of the snapshot a motif's rules see.
//
// Between(A, B) selects the sub-sequence strictly between the first block
// matching Start and the next block matching End. ChildrenOf selects the
// direct children of a container, re-fetched by parent id - never inferred
// from flat-list adjacency.
type Scope struct {
	Start      *Marker `yaml:"start,omitempty"`
	End        *Marker `yaml:"end,omitempty"`
	ChildrenOf string  `yaml:"children_of,omitempty"`
}

// CountRule requires a quantity of a kind within the scope.
// Exactly and AtLeast are mutually exclusive; Checked, when set, filters
// to_do blocks by their checkbox state first.
type CountRule struct {
	Kind    block.Kind `yaml:"kind"`
	Exactly *int       `yaml:"exactly,omitempty"`
	AtLeast *int       `yaml:"at_least,omitempty"`
	Checked *bool      `yaml:"checked,omitempty"`
}

// FieldFormat describes a fixed-field decomposition such as
// "<Serial> - <Tag> - <Recommendation>": the text split on Separator must
// produce exactly len(Parts) fields, and each non-empty Parts entry is a
// regexp the corresponding field must match.
type FieldFormat struct {
	Separator string   `yaml:"separator"`
	Parts     []string `yaml:"parts"`
}

// FormatRule validates the literal text of every block of a kind within
// the scope, via regexp or fixed-field decomposition.
type FormatRule struct {
	Kind    block.Kind   `yaml:"kind"`
	Only    TextMatch    `yaml:"only,omitempty"` // restricts which blocks are validated
	Pattern string       `yaml:"pattern,omitempty"`
	Fields  *FieldFormat `yaml:"fields,omitempty"`
}

// TodoItem is one expected to-do entry.
type TodoItem struct {
	Text    TextMatch `yaml:"text"`
	Checked bool      `yaml:"checked"`
}

// TodoRule requires the scope's to-do items to correspond to an expected
// set: each item present (by text), each with the required checked state,
// and - when Exact - no extra items.
type TodoRule struct {
	Items []TodoItem `yaml:"items"`
	Exact bool       `yaml:"exact"`
}

// Motif is a complete declarative pattern. Rule groups are independent
// requirements: each produces its own Verdict when full diagnostics are
// requested, while the combined evaluation short-circuits on the first
// failure.
type Motif struct {
	Name     string       `yaml:"name"`
	Scope    *Scope       `yaml:"scope,omitempty"`
	Headings []Step       `yaml:"headings,omitempty"`
	Counts   []CountRule  `yaml:"counts,omitempty"`
	Formats  []FormatRule `yaml:"formats,omitempty"`
	Todos    *TodoRule    `yaml:"todos,omitempty"`

	// Summary lists literal lines each of which must appear inside some
	// block of the scope, e.g. a rendered total line.
	Summary []string `yaml:"summary,omitempty"`
}
