// Package snapshot reconstructs a flat, pre-order capture of a subtree of a
// hierarchical document store.
//
// The traversal is iterative - an explicit frame stack with a configurable
// depth ceiling - so cyclic or pathological trees fail fast instead of
// recursing without bound. Every snapshot is built fresh; nothing is cached
// between calls, and the store is never written to.
package snapshot

import (
	"context"
	"errors"
	"time"

	"github.com/roach88/attest/internal/block"
	"github.com/roach88/attest/internal/verdict"
)

// DefaultMaxDepth bounds the traversal. Generous on purpose: real documents
// rarely nest past a few dozen levels, so hitting this means a cycle or a
// runaway tree.
const DefaultMaxDepth = 1000

// DefaultFetchTimeout bounds each child-listing call against the store.
const DefaultFetchTimeout = 30 * time.Second

// ChildLister fetches one page of direct children of a node.
//
// cursor is the pagination cursor from a previous call, empty for the first
// page. next is empty when no pages remain. Implementations must report a
// missing parent as a verdict.CheckError with KindNotFound and any other
// I/O failure as KindFetchFailed.
type ChildLister interface {
	ListChildren(ctx context.Context, id, cursor string) (children []block.Block, next string, err error)
}

// Options configures a Reader. Zero values select the defaults.
type Options struct {
	// MaxDepth is the traversal ceiling. <= 0 selects DefaultMaxDepth.
	MaxDepth int

	// FetchTimeout bounds each ListChildren call. <= 0 selects
	// DefaultFetchTimeout.
	FetchTimeout time.Duration
}

// Reader walks subtrees of a hierarchical store through a ChildLister.
type Reader struct {
	lister   ChildLister
	maxDepth int
	timeout  time.Duration
}

// NewReader creates a Reader over the given lister.
func NewReader(lister ChildLister, opts Options) *Reader {
	depth := opts.MaxDepth
	if depth <= 0 {
		depth = DefaultMaxDepth
	}
	timeout := opts.FetchTimeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Reader{lister: lister, maxDepth: depth, timeout: timeout}
}

// frame is one unit of traversal work: either a fetched block waiting to be
// emitted, or a parent id whose children still need fetching.
type frame struct {
	b      block.Block
	emit   bool
	expand string
	depth  int
}

// Snapshot returns the pre-order flattening of the subtree rooted at rootID.
// The root itself is not included; its direct children appear at depth 0.
//
// A node with zero children yields an empty (non-nil-error) result. Fetch
// failures and missing nodes propagate as distinguishable error kinds.
func (r *Reader) Snapshot(ctx context.Context, rootID string) ([]block.Block, error) {
	out := []block.Block{}
	stack := []frame{{expand: rootID, depth: 0}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.emit {
			b := f.b
			b.Depth = f.depth
			out = append(out, b)
			if b.HasChildren {
				stack = append(stack, frame{expand: b.ID, depth: f.depth + 1})
			}
			continue
		}

		if f.depth >= r.maxDepth {
			return nil, &verdict.CheckError{
				Kind:    verdict.KindFetchFailed,
				Message: "max traversal depth exceeded; tree is cyclic or pathological",
				Target:  f.expand,
			}
		}

		children, err := r.listAll(ctx, f.expand)
		if err != nil {
			return nil, err
		}
		// Push in reverse so the first sibling is popped first; each child's
		// own expansion frame lands immediately after its emit frame, which
		// preserves pre-order.
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{b: children[i], emit: true, depth: f.depth})
		}
	}

	return out, nil
}

// Children fetches only the direct children of id, all pages.
//
// Containers with sibling subtrees (columns, toggles) must be resolved this
// way - scoped to the container id - because a flat pre-order list cannot
// attribute interleaved descendants to the right container.
func (r *Reader) Children(ctx context.Context, id string) ([]block.Block, error) {
	return r.listAll(ctx, id)
}

// listAll drains the pagination cursor for one parent.
func (r *Reader) listAll(ctx context.Context, id string) ([]block.Block, error) {
	var all []block.Block
	cursor := ""
	for {
		children, next, err := r.fetchPage(ctx, id, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, children...)
		if next == "" {
			return all, nil
		}
		cursor = next
	}
}

// fetchPage issues one ListChildren call under the per-call timeout.
func (r *Reader) fetchPage(ctx context.Context, id, cursor string) ([]block.Block, string, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	children, next, err := r.lister.ListChildren(callCtx, id, cursor)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, "", verdict.NewTimeout(id, err)
		}
		return nil, "", err
	}
	return children, next, nil
}
