package compare

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/attest/internal/relational"
	"github.com/roach88/attest/internal/verdict"
)

// Mode selects how row-sets are aligned.
type Mode string

const (
	// ModeOrdered compares rows index-by-index; both sides must have equal
	// length, and the actual row-set must already satisfy the declared sort.
	ModeOrdered Mode = "ordered"

	// ModeUnordered reduces both sides to canonical tuples and compares
	// them as multisets, reporting missing and unexpected rows separately.
	ModeUnordered Mode = "unordered"
)

// DefaultTolerance is the absolute tolerance for numeric fields. Observed
// task defaults in this domain run 0.01-0.1.
const DefaultTolerance = 0.01

// maxReportedMismatches caps per-row detail in a verdict message.
const maxReportedMismatches = 5

// SortKey declares one column of the required sort order for ordered mode.
type SortKey struct {
	Column string `yaml:"column"`
	Desc   bool   `yaml:"desc,omitempty"`
}

// Options configures a comparison.
type Options struct {
	Mode Mode

	// Tolerance is the absolute numeric tolerance. Zero selects
	// DefaultTolerance; use a negative value to force exact numeric
	// equality.
	Tolerance float64

	// SortedBy, in ordered mode, is the key the actual row-set must be
	// sorted under before contents are compared.
	SortedBy []SortKey

	// MaxMismatches is the number of row mismatches tolerated before the
	// verdict fails. The default 0 means any mismatch fails; a non-zero
	// budget is an explicit opt-in and is always disclosed in the verdict
	// message when consumed.
	MaxMismatches int
}

func (o Options) tolerance() float64 {
	switch {
	case o.Tolerance < 0:
		return 0
	case o.Tolerance == 0:
		return DefaultTolerance
	}
	return o.Tolerance
}

// Rows compares actual against expected under the given options.
func Rows(actual, expected relational.RowSet, opts Options) verdict.Verdict {
	if len(actual.Columns) != len(expected.Columns) {
		return verdict.Fail("schema mismatch: actual has %d columns [%s], expected %d [%s]",
			len(actual.Columns), strings.Join(actual.Columns, ", "),
			len(expected.Columns), strings.Join(expected.Columns, ", "))
	}

	switch opts.Mode {
	case ModeUnordered:
		return compareUnordered(actual, expected, opts)
	case ModeOrdered, "":
		return compareOrdered(actual, expected, opts)
	default:
		return verdict.Fail("unknown comparison mode %q", opts.Mode)
	}
}

// compareOrdered checks equal length, verifies the declared sort on the
// actual side, then compares row-by-row under the numeric tolerance.
func compareOrdered(actual, expected relational.RowSet, opts Options) verdict.Verdict {
	if len(actual.Rows) != len(expected.Rows) {
		return verdict.Fail("expected %d rows, got %d", len(expected.Rows), len(actual.Rows))
	}

	if len(opts.SortedBy) > 0 {
		if v := verifySorted(actual, opts.SortedBy); !v.Passed {
			return v
		}
	}

	tol := opts.tolerance()
	mismatches := 0
	var details []string

	for i := range expected.Rows {
		if diff, ok := rowDiff(actual.Rows[i], expected.Rows[i], actual.Columns, tol); !ok {
			mismatches++
			if len(details) < maxReportedMismatches {
				details = append(details, fmt.Sprintf("row %d: %s", i+1, diff))
			}
		}
	}

	switch {
	case mismatches == 0:
		return verdict.Pass("%d rows match", len(expected.Rows))
	case mismatches <= opts.MaxMismatches:
		return verdict.Pass("%d rows match with %d mismatch(es) inside the allowed budget of %d: %s",
			len(expected.Rows)-mismatches, mismatches, opts.MaxMismatches, strings.Join(details, "; "))
	}

	msg := fmt.Sprintf("%d of %d rows mismatch: %s", mismatches, len(expected.Rows), strings.Join(details, "; "))
	if mismatches > len(details) {
		msg += fmt.Sprintf(" (and %d more)", mismatches-len(details))
	}
	return verdict.Fail("%s", msg)
}

// rowDiff compares one row pair field-by-field. On mismatch it returns a
// description naming the column and both values.
func rowDiff(actual, expected relational.Row, columns relational.Schema, tol float64) (string, bool) {
	if len(actual) != len(expected) {
		return fmt.Sprintf("expected %d fields, got %d", len(expected), len(actual)), false
	}
	for i := range expected {
		a, e := canonicalize(actual[i]), canonicalize(expected[i])
		if !a.equal(e, tol) {
			col := fmt.Sprintf("column %d", i+1)
			if i < len(columns) {
				col = fmt.Sprintf("column %q", columns[i])
			}
			return fmt.Sprintf("%s expected %s, got %s", col, e.render(), a.render()), false
		}
	}
	return "", true
}

// verifySorted confirms the actual row-set's own values satisfy the
// declared sort key, independent of the expected side.
func verifySorted(rs relational.RowSet, keys []SortKey) verdict.Verdict {
	idx := make([]int, len(keys))
	for i, k := range keys {
		idx[i] = rs.Columns.Index(k.Column)
		if idx[i] == -1 {
			return verdict.Fail("sort column %q not in schema [%s]", k.Column, strings.Join(rs.Columns, ", "))
		}
	}

	for r := 1; r < len(rs.Rows); r++ {
		prev, curr := rs.Rows[r-1], rs.Rows[r]
		for ki, k := range keys {
			c := canonicalize(prev[idx[ki]]).compareOrder(canonicalize(curr[idx[ki]]))
			if k.Desc {
				c = -c
			}
			if c < 0 {
				break // strictly ordered on this key; later keys are free
			}
			if c > 0 {
				dir := "ascending"
				if k.Desc {
					dir = "descending"
				}
				return verdict.Fail("rows %d and %d violate %s order on %q: %s then %s",
					r, r+1, dir, k.Column,
					canonicalize(prev[idx[ki]]).render(), canonicalize(curr[idx[ki]]).render())
			}
			// equal on this key - tie broken by the next one
		}
	}
	return verdict.Pass("")
}

// compareUnordered reduces both sides to canonical tuples and diffs them as
// multisets, reporting missing and unexpected rows separately.
func compareUnordered(actual, expected relational.RowSet, opts Options) verdict.Verdict {
	actualTuples := tupleCounts(actual)
	expectedTuples := tupleCounts(expected)

	var missing, extra []string
	for tuple, want := range expectedTuples {
		if got := actualTuples[tuple]; got < want {
			for i := 0; i < want-got; i++ {
				missing = append(missing, tuple)
			}
		}
	}
	for tuple, got := range actualTuples {
		if want := expectedTuples[tuple]; got > want {
			for i := 0; i < got-want; i++ {
				extra = append(extra, tuple)
			}
		}
	}
	sort.Strings(missing)
	sort.Strings(extra)

	total := len(missing) + len(extra)
	if total == 0 {
		return verdict.Pass("%d rows match as a set", len(expected.Rows))
	}
	if total <= opts.MaxMismatches {
		return verdict.Pass("row sets differ by %d inside the allowed budget of %d (missing %s; unexpected %s)",
			total, opts.MaxMismatches, describeTuples(missing), describeTuples(extra))
	}

	var parts []string
	if len(missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing expected rows: %s", describeTuples(missing)))
	}
	if len(extra) > 0 {
		parts = append(parts, fmt.Sprintf("unexpected extra rows: %s", describeTuples(extra)))
	}
	return verdict.Fail("%s", strings.Join(parts, "; "))
}

// tupleCounts reduces a row-set to a multiset of canonical tuples. When the
// row-set declares key columns, only those columns form the tuple.
func tupleCounts(rs relational.RowSet) map[string]int {
	keyIdx, err := rs.KeyIndexes()
	if err != nil || len(keyIdx) == 0 {
		keyIdx = nil
	}

	counts := make(map[string]int, len(rs.Rows))
	for _, row := range rs.Rows {
		fields := make([]string, 0, len(row))
		if keyIdx != nil {
			for _, i := range keyIdx {
				fields = append(fields, canonicalize(row[i]).render())
			}
		} else {
			for _, v := range row {
				fields = append(fields, canonicalize(v).render())
			}
		}
		counts["("+strings.Join(fields, ", ")+")"]++
	}
	return counts
}

func describeTuples(tuples []string) string {
	if len(tuples) == 0 {
		return "none"
	}
	if len(tuples) > maxReportedMismatches {
		return strings.Join(tuples[:maxReportedMismatches], ", ") +
			fmt.Sprintf(" (and %d more)", len(tuples)-maxReportedMismatches)
	}
	return strings.Join(tuples, ", ")
}
