package motif

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/attest/internal/block"
	"github.com/roach88/attest/internal/snapshot"
	"github.com/roach88/attest/internal/verdict"
)

// Matcher evaluates motifs against snapshots. The snapshot Reader is needed
// for ChildrenOf scopes, which must re-fetch container children by parent
// id rather than trust flat-list adjacency.
type Matcher struct {
	reader *snapshot.Reader
}

// NewMatcher creates a Matcher. reader may be nil when no motif uses a
// ChildrenOf scope.
func NewMatcher(reader *snapshot.Reader) *Matcher {
	return &Matcher{reader: reader}
}

// Evaluate reduces one motif against one snapshot into a single Verdict,
// short-circuiting on the first failing rule group.
func (m *Matcher) Evaluate(ctx context.Context, snap []block.Block, mo Motif) verdict.Verdict {
	for _, v := range m.evaluate(ctx, snap, mo, true) {
		if !v.Passed {
			return v
		}
	}
	return verdict.Pass("motif %q satisfied", mo.Name)
}

// EvaluateAll evaluates every rule group of the motif independently and
// returns all verdicts, for callers that want full diagnostics past the
// first failure.
func (m *Matcher) EvaluateAll(ctx context.Context, snap []block.Block, mo Motif) []verdict.Verdict {
	return m.evaluate(ctx, snap, mo, false)
}

func (m *Matcher) evaluate(ctx context.Context, snap []block.Block, mo Motif, shortCircuit bool) []verdict.Verdict {
	scoped, v := m.resolveScope(ctx, snap, mo.Scope)
	if !v.Passed {
		return []verdict.Verdict{v}
	}

	var out []verdict.Verdict
	add := func(v verdict.Verdict) bool {
		out = append(out, v)
		return shortCircuit && !v.Passed
	}

	if len(mo.Headings) > 0 {
		if add(OrderedScan(scoped, mo.Headings)) {
			return out
		}
	}
	for _, rule := range mo.Counts {
		if add(CheckCount(scoped, rule)) {
			return out
		}
	}
	for _, rule := range mo.Formats {
		if add(CheckFormat(scoped, rule)) {
			return out
		}
	}
	if mo.Todos != nil {
		if add(CheckTodos(scoped, *mo.Todos)) {
			return out
		}
	}
	for _, line := range mo.Summary {
		if add(Summary(scoped, "%s", line)) {
			return out
		}
	}
	return out
}

// resolveScope narrows the snapshot per the motif's scope.
func (m *Matcher) resolveScope(ctx context.Context, snap []block.Block, s *Scope) ([]block.Block, verdict.Verdict) {
	if s == nil {
		return snap, verdict.Pass("")
	}

	if s.ChildrenOf != "" {
		if m.reader == nil {
			return nil, verdict.Fail("scope children_of %s requires a snapshot reader", s.ChildrenOf)
		}
		children, err := m.reader.Children(ctx, s.ChildrenOf)
		if err != nil {
			return nil, verdict.FromError(err)
		}
		return children, verdict.Pass("")
	}

	if s.Start != nil {
		return BoundedRange(snap, *s.Start, s.End)
	}
	return snap, verdict.Pass("")
}

// OrderedScan is a single left-to-right pass over the snapshot: for each
// required step in sequence, the cursor advances until a block matches both
// predicate and declared kind.
//
// Failure reports are specific: if a later-required step's text occurs
// earlier in the snapshot than the point the scan reached, the verdict
// names the ordering inversion ("B before A"); otherwise it lists every
// step that was never found.
func OrderedScan(snap []block.Block, steps []Step) verdict.Verdict {
	cursor := 0
	matchedAt := make([]int, 0, len(steps))

	for si, step := range steps {
		found := -1
		for i := cursor; i < len(snap); i++ {
			if stepMatches(step, snap[i]) {
				found = i
				break
			}
		}
		if found == -1 {
			return diagnoseScanFailure(snap, steps, si, matchedAt)
		}
		matchedAt = append(matchedAt, found)
		cursor = found + 1
	}

	return verdict.Pass("%d steps found in order", len(steps))
}

func stepMatches(step Step, b block.Block) bool {
	if step.Kind != "" && b.Kind != step.Kind {
		return false
	}
	return step.Text.Matches(block.PlainText(b))
}

// diagnoseScanFailure explains why step failIdx could not be matched after
// the earlier steps consumed the snapshot up to their match positions.
func diagnoseScanFailure(snap []block.Block, steps []Step, failIdx int, matchedAt []int) verdict.Verdict {
	failed := steps[failIdx]

	// If the step exists somewhere before the scan frontier, the structure
	// is out of order, not missing.
	for i := range snap {
		if stepMatches(failed, snap[i]) {
			for prev := failIdx - 1; prev >= 0; prev-- {
				if matchedAt[prev] > i {
					return verdict.Fail("out of order: %s appears (position %d) before %s (position %d)",
						failed, i, steps[prev], matchedAt[prev])
				}
			}
			break
		}
	}

	// Otherwise list everything that was never found.
	var missing []string
	cursor := 0
	if failIdx > 0 {
		cursor = matchedAt[failIdx-1] + 1
	}
	for _, step := range steps[failIdx:] {
		found := false
		for i := cursor; i < len(snap); i++ {
			if stepMatches(step, snap[i]) {
				found = true
				cursor = i + 1
				break
			}
		}
		if !found {
			missing = append(missing, step.String())
		}
	}
	return verdict.Fail("steps not found: %s", strings.Join(missing, "; "))
}

// BoundedRange returns the sub-sequence strictly between the first block
// matching start and the next block matching end. A nil end marker means
// "until the end of the snapshot".
func BoundedRange(snap []block.Block, start Marker, end *Marker) ([]block.Block, verdict.Verdict) {
	from := -1
	for i, b := range snap {
		if start.matches(b) {
			from = i
			break
		}
	}
	if from == -1 {
		return nil, verdict.Fail("range start marker %s not found", start)
	}

	to := len(snap)
	if end != nil {
		to = -1
		for i := from + 1; i < len(snap); i++ {
			if end.matches(snap[i]) {
				to = i
				break
			}
		}
		if to == -1 {
			return nil, verdict.Fail("range end marker %s not found after start %s", *end, start)
		}
	}

	return snap[from+1 : to], verdict.Pass("")
}

// CheckCount validates a quantity rule within the scoped blocks.
func CheckCount(scoped []block.Block, rule CountRule) verdict.Verdict {
	count := 0
	for _, b := range scoped {
		if b.Kind != rule.Kind {
			continue
		}
		if rule.Checked != nil {
			checked, ok := b.Checked()
			if !ok || checked != *rule.Checked {
				continue
			}
		}
		count++
	}

	desc := string(rule.Kind)
	if rule.Checked != nil {
		state := "unchecked"
		if *rule.Checked {
			state = "checked"
		}
		desc = state + " " + desc
	}

	switch {
	case rule.Exactly != nil && count != *rule.Exactly:
		return verdict.Fail("expected exactly %d %s blocks, found %d", *rule.Exactly, desc, count)
	case rule.AtLeast != nil && count < *rule.AtLeast:
		return verdict.Fail("expected at least %d %s blocks, found %d", *rule.AtLeast, desc, count)
	}
	return verdict.Pass("%d %s blocks", count, desc)
}

// CheckFormat validates literal text of every matching block against a
// regexp or a fixed-field decomposition.
func CheckFormat(scoped []block.Block, rule FormatRule) verdict.Verdict {
	var re *regexp.Regexp
	if rule.Pattern != "" {
		var err error
		re, err = regexp.Compile(rule.Pattern)
		if err != nil {
			return verdict.Fail("format rule has invalid pattern /%s/: %v", rule.Pattern, err)
		}
	}

	checked := 0
	for _, b := range scoped {
		if b.Kind != rule.Kind {
			continue
		}
		text := block.PlainText(b)
		if !rule.Only.IsZero() && !rule.Only.Matches(text) {
			continue
		}
		checked++

		if re != nil && !re.MatchString(text) {
			return verdict.Fail("%s %q does not match /%s/", rule.Kind, text, rule.Pattern)
		}
		if rule.Fields != nil {
			if v := checkFields(text, *rule.Fields); !v.Passed {
				return v
			}
		}
	}

	if checked == 0 {
		return verdict.Fail("no %s blocks to validate against format rule", rule.Kind)
	}
	return verdict.Pass("%d blocks match format", checked)
}

// checkFields validates a fixed-field decomposition of one text value.
func checkFields(text string, f FieldFormat) verdict.Verdict {
	parts := strings.Split(text, f.Separator)
	if len(parts) != len(f.Parts) {
		return verdict.Fail("%q splits into %d fields on %q, expected %d",
			text, len(parts), f.Separator, len(f.Parts))
	}
	for i, pattern := range f.Parts {
		if pattern == "" {
			continue
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return verdict.Fail("field %d has invalid pattern /%s/: %v", i, pattern, err)
		}
		if !re.MatchString(parts[i]) {
			return verdict.Fail("field %d of %q is %q, does not match /%s/", i, text, parts[i], pattern)
		}
	}
	return verdict.Pass("")
}

// CheckTodos validates the scope's to-do items against an expected set:
// every expected item present by text, every checked state as required,
// and no extras when the rule is exact. Failures name the offending item.
func CheckTodos(scoped []block.Block, rule TodoRule) verdict.Verdict {
	type todo struct {
		text    string
		checked bool
	}
	var actual []todo
	for _, b := range scoped {
		if checked, ok := b.Checked(); ok {
			actual = append(actual, todo{text: block.PlainText(b), checked: checked})
		}
	}

	if rule.Exact && len(actual) != len(rule.Items) {
		return verdict.Fail("expected exactly %d to-do items, found %d", len(rule.Items), len(actual))
	}

	claimed := make([]bool, len(actual))
	for _, want := range rule.Items {
		found := -1
		for i, got := range actual {
			if !claimed[i] && want.Text.Matches(got.text) {
				found = i
				break
			}
		}
		if found == -1 {
			return verdict.Fail("to-do %s not found", want.Text)
		}
		claimed[found] = true

		if actual[found].checked != want.Checked {
			wantState, gotState := "unchecked", "unchecked"
			if want.Checked {
				wantState = "checked"
			}
			if actual[found].checked {
				gotState = "checked"
			}
			return verdict.Fail("to-do %q should be %s but is %s", actual[found].text, wantState, gotState)
		}
	}

	return verdict.Pass("%d to-do items correspond", len(rule.Items))
}

// Summary validates a literal summary line, e.g. "Total activities visited
// (from Day 1 to Day 3): 8", by requiring some block in the scope whose
// text contains the rendered line.
func Summary(scoped []block.Block, format string, args ...any) verdict.Verdict {
	want := fmt.Sprintf(format, args...)
	for _, b := range scoped {
		if strings.Contains(block.PlainText(b), want) {
			return verdict.Pass("summary line present")
		}
	}
	return verdict.Fail("no block contains summary line %q", want)
}
