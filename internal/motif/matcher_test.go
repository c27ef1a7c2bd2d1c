package motif

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/attest/internal/block"
	"github.com/roach88/attest/internal/snapshot"
)

func mkBlock(id string, kind block.Kind, text string) block.Block {
	return block.Parse([]byte(fmt.Sprintf(
		`{"id": %q, "type": %q, %q: {"rich_text": [{"plain_text": %q}]}}`,
		id, kind, kind, text)))
}

func mkTodo(id, text string, checked bool) block.Block {
	return block.Parse([]byte(fmt.Sprintf(
		`{"id": %q, "type": "to_do", "to_do": {"rich_text": [{"plain_text": %q}], "checked": %t}}`,
		id, text, checked)))
}

func mkDivider(id string) block.Block {
	return block.Parse([]byte(fmt.Sprintf(`{"id": %q, "type": "divider", "divider": {}}`, id)))
}

func heading(text string) Step {
	return Step{Kind: block.KindHeading2, Text: TextMatch{Contains: text}}
}

func TestOrderedScan_SubsequenceWithInterleavingPasses(t *testing.T) {
	// Required [A, B, C] against snapshot [X, A, Y, B, Z, C].
	snap := []block.Block{
		mkBlock("x", block.KindParagraph, "X"),
		mkBlock("a", block.KindHeading2, "A"),
		mkBlock("y", block.KindParagraph, "Y"),
		mkBlock("b", block.KindHeading2, "B"),
		mkBlock("z", block.KindParagraph, "Z"),
		mkBlock("c", block.KindHeading2, "C"),
	}

	v := OrderedScan(snap, []Step{heading("A"), heading("B"), heading("C")})
	assert.True(t, v.Passed, v.Message)
}

func TestOrderedScan_OutOfOrderNamesTheInversion(t *testing.T) {
	// [X, B, A, C]: B appears before A.
	snap := []block.Block{
		mkBlock("x", block.KindParagraph, "X"),
		mkBlock("b", block.KindHeading2, "B"),
		mkBlock("a", block.KindHeading2, "A"),
		mkBlock("c", block.KindHeading2, "C"),
	}

	v := OrderedScan(snap, []Step{heading("A"), heading("B"), heading("C")})
	require.False(t, v.Passed)
	assert.Contains(t, v.Message, "out of order")
	assert.Contains(t, v.Message, `"B"`)
	assert.Contains(t, v.Message, `"A"`)
}

func TestOrderedScan_ExhaustionListsUnmatchedSteps(t *testing.T) {
	snap := []block.Block{
		mkBlock("a", block.KindHeading2, "A"),
	}

	v := OrderedScan(snap, []Step{heading("A"), heading("B"), heading("C")})
	require.False(t, v.Passed)
	assert.Contains(t, v.Message, "not found")
	assert.Contains(t, v.Message, `"B"`)
	assert.Contains(t, v.Message, `"C"`)
}

func TestOrderedScan_KindMustMatchToo(t *testing.T) {
	// Text "A" exists but as a paragraph, not a heading.
	snap := []block.Block{mkBlock("a", block.KindParagraph, "A")}

	v := OrderedScan(snap, []Step{heading("A")})
	assert.False(t, v.Passed)
}

func TestBoundedRange_StrictlyBetweenMarkers(t *testing.T) {
	snap := []block.Block{
		mkBlock("h", block.KindHeading2, "log"),
		mkBlock("m", block.KindParagraph, "2022-09-02"),
		mkTodo("t1", "visit temple", false),
		mkTodo("t2", "eat ramen", false),
		mkDivider("d"),
		mkTodo("t3", "outside range", false),
	}

	ranged, v := BoundedRange(snap,
		Marker{Text: TextMatch{Contains: "2022-09-02"}},
		&Marker{Kind: block.KindDivider})
	require.True(t, v.Passed, v.Message)
	require.Len(t, ranged, 2)
	assert.Equal(t, "t1", ranged[0].ID)
	assert.Equal(t, "t2", ranged[1].ID)
}

func TestBoundedRange_MissingMarkersFailSpecifically(t *testing.T) {
	snap := []block.Block{mkBlock("p", block.KindParagraph, "nothing")}

	_, v := BoundedRange(snap, Marker{Text: TextMatch{Contains: "2022-09-02"}}, nil)
	require.False(t, v.Passed)
	assert.Contains(t, v.Message, "start marker")

	snap = append(snap, mkBlock("m", block.KindParagraph, "2022-09-02"))
	_, v = BoundedRange(snap,
		Marker{Text: TextMatch{Contains: "2022-09-02"}},
		&Marker{Kind: block.KindDivider})
	require.False(t, v.Passed)
	assert.Contains(t, v.Message, "end marker")
}

func TestCheckTodos_CheckedMismatchNamesTheItem(t *testing.T) {
	// Expecting 4 unchecked items; one is checked.
	scoped := []block.Block{
		mkTodo("t1", "buy tickets", false),
		mkTodo("t2", "reserve hotel", false),
		mkTodo("t3", "pack bags", true),
		mkTodo("t4", "charge camera", false),
	}
	rule := TodoRule{
		Exact: true,
		Items: []TodoItem{
			{Text: TextMatch{Contains: "buy tickets"}},
			{Text: TextMatch{Contains: "reserve hotel"}},
			{Text: TextMatch{Contains: "pack bags"}},
			{Text: TextMatch{Contains: "charge camera"}},
		},
	}

	v := CheckTodos(scoped, rule)
	require.False(t, v.Passed)
	assert.Contains(t, v.Message, "pack bags")
	assert.Contains(t, v.Message, "should be unchecked but is checked")
}

func TestCheckTodos_CorrespondencePasses(t *testing.T) {
	scoped := []block.Block{
		mkTodo("t1", "Fushimi Inari - Kyoto", true),
		mkTodo("t2", "Dotonbori - Osaka", false),
	}
	rule := TodoRule{
		Exact: true,
		Items: []TodoItem{
			{Text: TextMatch{Contains: "Fushimi Inari"}, Checked: true},
			{Text: TextMatch{Contains: "Dotonbori"}, Checked: false},
		},
	}

	assert.True(t, CheckTodos(scoped, rule).Passed)
}

func TestCheckTodos_MissingItem(t *testing.T) {
	scoped := []block.Block{mkTodo("t1", "only one", false)}
	rule := TodoRule{Items: []TodoItem{{Text: TextMatch{Contains: "something else"}}}}

	v := CheckTodos(scoped, rule)
	require.False(t, v.Passed)
	assert.Contains(t, v.Message, "not found")
}

func TestCheckCount(t *testing.T) {
	four := 4
	three := 3
	checked := true

	scoped := []block.Block{
		mkBlock("t1", block.KindToggle, "one"),
		mkBlock("t2", block.KindToggle, "two"),
		mkBlock("t3", block.KindToggle, "three"),
		mkBlock("t4", block.KindToggle, "four"),
		mkTodo("d1", "done", true),
		mkTodo("d2", "not done", false),
	}

	v := CheckCount(scoped, CountRule{Kind: block.KindToggle, Exactly: &four})
	assert.True(t, v.Passed, v.Message)

	v = CheckCount(scoped, CountRule{Kind: block.KindToggle, Exactly: &three})
	require.False(t, v.Passed)
	assert.Contains(t, v.Message, "expected exactly 3 toggle blocks, found 4")

	v = CheckCount(scoped, CountRule{Kind: block.KindToDo, Exactly: &three, Checked: &checked})
	require.False(t, v.Passed)
	assert.Contains(t, v.Message, "checked to_do")
}

func TestCheckFormat_FixedFieldDecomposition(t *testing.T) {
	rule := FormatRule{
		Kind: block.KindParagraph,
		Fields: &FieldFormat{
			Separator: " - ",
			Parts:     []string{`^[A-Z]{2}\d{4}$`, `^\w+$`, ``},
		},
	}

	good := []block.Block{mkBlock("p", block.KindParagraph, "AB1234 - laptop - replace battery")}
	assert.True(t, CheckFormat(good, rule).Passed)

	bad := []block.Block{mkBlock("p", block.KindParagraph, "AB1234 / laptop / replace battery")}
	v := CheckFormat(bad, rule)
	require.False(t, v.Passed)
	assert.Contains(t, v.Message, "splits into 1 fields")

	badSerial := []block.Block{mkBlock("p", block.KindParagraph, "nope - laptop - replace battery")}
	v = CheckFormat(badSerial, rule)
	require.False(t, v.Passed)
	assert.Contains(t, v.Message, "field 0")
}

func TestCheckFormat_Pattern(t *testing.T) {
	rule := FormatRule{Kind: block.KindParagraph, Pattern: `^Total activities visited.*: \d+$`}

	ok := []block.Block{mkBlock("p", block.KindParagraph, "Total activities visited (from Day 1 to Day 3): 8")}
	assert.True(t, CheckFormat(ok, rule).Passed)

	missing := []block.Block{mkBlock("h", block.KindHeading2, "no paragraphs here")}
	v := CheckFormat(missing, rule)
	require.False(t, v.Passed)
	assert.Contains(t, v.Message, "no paragraph blocks")
}

func TestSummary(t *testing.T) {
	scoped := []block.Block{
		mkBlock("p", block.KindParagraph, "Total activities visited (from Day 1 to Day 3): 8"),
	}
	assert.True(t, Summary(scoped, "Total activities visited (from Day 1 to Day 3): %d", 8).Passed)
	v := Summary(scoped, "Total activities visited (from Day 1 to Day 3): %d", 9)
	require.False(t, v.Passed)
	assert.Contains(t, v.Message, ": 9")
}

// containerLister serves children by parent id so ChildrenOf scopes can be
// resolved the only correct way - by explicit parent-id fetch.
type containerLister struct {
	children map[string][]block.Block
}

func (c *containerLister) ListChildren(ctx context.Context, id, cursor string) ([]block.Block, string, error) {
	return c.children[id], "", nil
}

func TestEvaluate_ChildrenOfScopeRefetchesByParentID(t *testing.T) {
	// A flat pre-order snapshot interleaves both columns' children; the
	// scope must see only column 1's.
	flatSnap := []block.Block{
		mkBlock("c1p", block.KindParagraph, "in column 1"),
		mkBlock("c2p", block.KindParagraph, "in column 2"),
	}
	lister := &containerLister{children: map[string][]block.Block{
		"col-1": {mkBlock("c1p", block.KindParagraph, "in column 1")},
	}}
	m := NewMatcher(snapshot.NewReader(lister, snapshot.Options{}))

	one := 1
	mo := Motif{
		Name:   "column-1-content",
		Scope:  &Scope{ChildrenOf: "col-1"},
		Counts: []CountRule{{Kind: block.KindParagraph, Exactly: &one}},
	}

	v := m.Evaluate(context.Background(), flatSnap, mo)
	assert.True(t, v.Passed, v.Message)
}

func TestEvaluate_SummaryRule(t *testing.T) {
	snap := []block.Block{
		mkBlock("h", block.KindHeading2, "Day 3"),
		mkBlock("p", block.KindParagraph, "Total activities visited (from Day 1 to Day 3): 8"),
	}
	m := NewMatcher(nil)

	v := m.Evaluate(context.Background(), snap, Motif{
		Summary: []string{"Total activities visited (from Day 1 to Day 3): 8"},
	})
	assert.True(t, v.Passed, v.Message)

	v = m.Evaluate(context.Background(), snap, Motif{
		Summary: []string{"Total activities visited (from Day 1 to Day 3): 9"},
	})
	require.False(t, v.Passed)
	assert.Contains(t, v.Message, "summary line")
}

func TestEvaluate_ShortCircuitsOnFirstFailure(t *testing.T) {
	m := NewMatcher(nil)
	one := 1

	mo := Motif{
		Name:     "doomed",
		Headings: []Step{heading("Missing Heading")},
		Counts:   []CountRule{{Kind: block.KindToggle, Exactly: &one}},
	}

	v := m.Evaluate(context.Background(), nil, mo)
	require.False(t, v.Passed)
	// Only the heading failure is reported; the count rule never ran.
	assert.Contains(t, v.Message, "not found")
}

func TestEvaluateAll_ReportsIndependentRequirements(t *testing.T) {
	m := NewMatcher(nil)
	one := 1

	mo := Motif{
		Headings: []Step{heading("Missing")},
		Counts:   []CountRule{{Kind: block.KindToggle, Exactly: &one}},
	}

	verdicts := m.EvaluateAll(context.Background(), nil, mo)
	require.Len(t, verdicts, 2)
	assert.False(t, verdicts[0].Passed)
	assert.False(t, verdicts[1].Passed)
}

func TestEvaluate_ScopeFailureIsTheVerdict(t *testing.T) {
	m := NewMatcher(nil)
	mo := Motif{
		Scope:    &Scope{Start: &Marker{Text: TextMatch{Contains: "missing marker"}}},
		Headings: []Step{heading("A")},
	}

	v := m.Evaluate(context.Background(), nil, mo)
	require.False(t, v.Passed)
	assert.Contains(t, v.Message, "start marker")
}
