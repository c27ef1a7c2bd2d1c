package notion

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/roach88/attest/internal/block"
	"github.com/roach88/attest/internal/verdict"
)

// Strategy decides which search result wins when a title lookup is not
// unique. It exists as a named type so integrations can swap the policy
// without touching the client.
type Strategy interface {
	// Pick selects one result from a non-empty search result list, or
	// returns false when none is acceptable.
	Pick(title, objectType string, results []gjson.Result) (gjson.Result, bool)
}

// ExactThenFirst is the default policy: an exact case-insensitive title
// match wins; failing that, a result whose title contains the query wins;
// failing that, the first search result is taken. The last step is a
// deliberate best-effort fallback, not a bug - search ranking is trusted
// when nothing better matches.
type ExactThenFirst struct{}

// Pick implements Strategy.
func (ExactThenFirst) Pick(title, objectType string, results []gjson.Result) (gjson.Result, bool) {
	if len(results) == 0 {
		return gjson.Result{}, false
	}
	want := strings.ToLower(title)

	for _, r := range results {
		if strings.ToLower(resultTitle(r, objectType)) == want {
			return r, true
		}
	}
	for _, r := range results {
		if strings.Contains(strings.ToLower(resultTitle(r, objectType)), want) {
			return r, true
		}
	}
	return results[0], true
}

// resultTitle extracts the flattened title of a search result. Pages keep
// it under properties.title.title; databases under a top-level title array.
func resultTitle(r gjson.Result, objectType string) string {
	if objectType == "page" {
		return block.JoinTitle(r.Get("properties.title.title"))
	}
	return block.JoinTitle(r.Get("title"))
}

// Resolver turns titles into object ids using a Client and a Strategy.
type Resolver struct {
	client   *Client
	strategy Strategy
}

// NewResolver creates a Resolver. A nil strategy selects ExactThenFirst.
func NewResolver(client *Client, strategy Strategy) *Resolver {
	if strategy == nil {
		strategy = ExactThenFirst{}
	}
	return &Resolver{client: client, strategy: strategy}
}

// FindPage resolves a page title to its id.
func (r *Resolver) FindPage(ctx context.Context, title string) (string, error) {
	return r.find(ctx, title, "page")
}

// FindDatabase resolves a database title to its id.
func (r *Resolver) FindDatabase(ctx context.Context, title string) (string, error) {
	return r.find(ctx, title, "database")
}

func (r *Resolver) find(ctx context.Context, title, objectType string) (string, error) {
	results, err := r.client.Search(ctx, title, objectType)
	if err != nil {
		return "", err
	}
	picked, ok := r.strategy.Pick(title, objectType, results)
	if !ok {
		return "", verdict.NewNotFound(title, fmt.Sprintf("no %s matching title", objectType))
	}
	return picked.Get("id").String(), nil
}

// FindDatabaseInBlock searches a block subtree for a child database with an
// exact title. The walk is an explicit stack bounded by maxDepth, mirroring
// the snapshot traversal.
func (r *Resolver) FindDatabaseInBlock(ctx context.Context, rootID, title string, maxDepth int) (string, error) {
	type frame struct {
		id    string
		depth int
	}
	stack := []frame{{id: rootID}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if maxDepth > 0 && f.depth >= maxDepth {
			continue
		}

		cursor := ""
		for {
			children, next, err := r.client.ListChildren(ctx, f.id, cursor)
			if err != nil {
				return "", err
			}
			for _, child := range children {
				if child.Kind == block.KindChildDatabase && child.ChildTitle() == title {
					return child.ID, nil
				}
				if child.HasChildren {
					stack = append(stack, frame{id: child.ID, depth: f.depth + 1})
				}
			}
			if next == "" {
				break
			}
			cursor = next
		}
	}

	return "", verdict.NewNotFound(title, "no child database with this title in subtree")
}
