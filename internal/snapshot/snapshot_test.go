package snapshot

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/attest/internal/block"
	"github.com/roach88/attest/internal/verdict"
)

// fakeLister serves a static tree. Children are served in pages of pageLen
// when pageLen > 0.
type fakeLister struct {
	children map[string][]block.Block
	pageLen  int
	calls    int
	failOn   string
	missing  string
}

func (f *fakeLister) ListChildren(ctx context.Context, id, cursor string) ([]block.Block, string, error) {
	f.calls++
	if id == f.failOn {
		return nil, "", verdict.NewFetchFailed(id, fmt.Errorf("boom"))
	}
	if id == f.missing {
		return nil, "", verdict.NewNotFound(id, "no such block")
	}

	all := f.children[id]
	if f.pageLen <= 0 || len(all) <= f.pageLen {
		return all, "", nil
	}

	start := 0
	if cursor != "" {
		fmt.Sscanf(cursor, "%d", &start)
	}
	end := start + f.pageLen
	next := ""
	if end < len(all) {
		next = fmt.Sprintf("%d", end)
	} else {
		end = len(all)
	}
	return all[start:end], next, nil
}

// leaf builds a childless block; parent builds one flagged has_children.
func leaf(id string) block.Block {
	return block.Parse([]byte(fmt.Sprintf(`{"id": %q, "type": "paragraph", "paragraph": {}}`, id)))
}

func parent(id string) block.Block {
	return block.Parse([]byte(fmt.Sprintf(`{"id": %q, "type": "toggle", "has_children": true, "toggle": {}}`, id)))
}

func ids(blocks []block.Block) []string {
	out := make([]string, len(blocks))
	for i, b := range blocks {
		out[i] = b.ID
	}
	return out
}

func TestSnapshot_PreOrderFlattening(t *testing.T) {
	// root
	//  ├── a
	//  │    ├── a1
	//  │    └── a2
	//  └── b
	//       └── b1
	lister := &fakeLister{children: map[string][]block.Block{
		"root": {parent("a"), parent("b")},
		"a":    {leaf("a1"), leaf("a2")},
		"b":    {leaf("b1")},
	}}
	r := NewReader(lister, Options{})

	snap, err := r.Snapshot(context.Background(), "root")
	require.NoError(t, err)

	// Every block appears before its own descendants; sibling order preserved.
	assert.Equal(t, []string{"a", "a1", "a2", "b", "b1"}, ids(snap))
	assert.Equal(t, []int{0, 1, 1, 0, 1}, depths(snap))
}

func depths(blocks []block.Block) []int {
	out := make([]int, len(blocks))
	for i, b := range blocks {
		out[i] = b.Depth
	}
	return out
}

func TestSnapshot_Idempotent(t *testing.T) {
	lister := &fakeLister{children: map[string][]block.Block{
		"root": {parent("a"), leaf("c")},
		"a":    {leaf("a1")},
	}}
	r := NewReader(lister, Options{})

	first, err := r.Snapshot(context.Background(), "root")
	require.NoError(t, err)
	second, err := r.Snapshot(context.Background(), "root")
	require.NoError(t, err)

	assert.Equal(t, ids(first), ids(second))
}

func TestSnapshot_EmptyPageIsNotAnError(t *testing.T) {
	lister := &fakeLister{children: map[string][]block.Block{}}
	r := NewReader(lister, Options{})

	snap, err := r.Snapshot(context.Background(), "empty")
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestSnapshot_DrainsPagination(t *testing.T) {
	var many []block.Block
	for i := 0; i < 7; i++ {
		many = append(many, leaf(fmt.Sprintf("c%d", i)))
	}
	lister := &fakeLister{children: map[string][]block.Block{"root": many}, pageLen: 3}
	r := NewReader(lister, Options{})

	snap, err := r.Snapshot(context.Background(), "root")
	require.NoError(t, err)
	assert.Equal(t, []string{"c0", "c1", "c2", "c3", "c4", "c5", "c6"}, ids(snap))
	assert.Equal(t, 3, lister.calls) // 7 children in pages of 3
}

func TestSnapshot_FetchFailurePropagatesDistinguishably(t *testing.T) {
	lister := &fakeLister{
		children: map[string][]block.Block{"root": {parent("a")}},
		failOn:   "a",
	}
	r := NewReader(lister, Options{})

	_, err := r.Snapshot(context.Background(), "root")
	require.Error(t, err)
	assert.Equal(t, verdict.KindFetchFailed, verdict.KindOf(err))
}

func TestSnapshot_NotFoundPropagatesDistinguishably(t *testing.T) {
	lister := &fakeLister{missing: "gone"}
	r := NewReader(lister, Options{})

	_, err := r.Snapshot(context.Background(), "gone")
	require.Error(t, err)
	assert.Equal(t, verdict.KindNotFound, verdict.KindOf(err))
}

func TestSnapshot_DepthCeilingFailsFastOnCycles(t *testing.T) {
	// a and b reference each other; without the ceiling this never ends.
	lister := &fakeLister{children: map[string][]block.Block{
		"root": {parent("a")},
		"a":    {parent("b")},
		"b":    {parent("a")},
	}}
	r := NewReader(lister, Options{MaxDepth: 10})

	_, err := r.Snapshot(context.Background(), "root")
	require.Error(t, err)
	assert.Equal(t, verdict.KindFetchFailed, verdict.KindOf(err))
	assert.Contains(t, err.Error(), "depth")
}

func TestChildren_SingleLevelOnly(t *testing.T) {
	lister := &fakeLister{children: map[string][]block.Block{
		"col1": {parent("nested"), leaf("x")},
		// nested's own children must NOT be fetched.
		"nested": {leaf("deep")},
	}}
	r := NewReader(lister, Options{})

	children, err := r.Children(context.Background(), "col1")
	require.NoError(t, err)
	assert.Equal(t, []string{"nested", "x"}, ids(children))
}
