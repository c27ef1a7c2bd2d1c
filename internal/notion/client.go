// Package notion is a read-only client of a Notion-style document store.
//
// The engine is always the client side of this boundary: it reads blocks by
// id, lists children with pagination, queries databases by filter, and
// resolves entities by title. Writes are the agent under test's business,
// never verification's.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/roach88/attest/internal/block"
	"github.com/roach88/attest/internal/verdict"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://api.notion.com"

// apiVersion is the store API revision this client speaks.
const apiVersion = "2022-06-28"

// pageSize is the children/query page size requested per call.
const pageSize = 100

// Config carries the connection parameters. The token comes from the outer
// configuration layer; this package never reads the environment itself.
type Config struct {
	Token   string
	BaseURL string       // empty selects DefaultBaseURL
	HTTP    *http.Client // nil selects http.DefaultClient
}

// Client issues read requests against the store.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
}

// New creates a Client from config.
func New(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	hc := cfg.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{token: cfg.Token, baseURL: base, http: hc}
}

// ListChildren fetches one page of direct children of a block or page.
// Implements snapshot.ChildLister.
func (c *Client) ListChildren(ctx context.Context, id, cursor string) ([]block.Block, string, error) {
	url := fmt.Sprintf("%s/v1/blocks/%s/children?page_size=%d", c.baseURL, id, pageSize)
	if cursor != "" {
		url += "&start_cursor=" + cursor
	}

	body, err := c.do(ctx, http.MethodGet, url, nil, id)
	if err != nil {
		return nil, "", err
	}

	var children []block.Block
	body.Get("results").ForEach(func(_, r gjson.Result) bool {
		children = append(children, block.FromJSON(r))
		return true
	})
	next := ""
	if body.Get("has_more").Bool() {
		next = body.Get("next_cursor").String()
	}
	return children, next, nil
}

// RetrievePage fetches a page object by id.
func (c *Client) RetrievePage(ctx context.Context, id string) (gjson.Result, error) {
	return c.do(ctx, http.MethodGet, fmt.Sprintf("%s/v1/pages/%s", c.baseURL, id), nil, id)
}

// RetrieveDatabase fetches a database object by id.
func (c *Client) RetrieveDatabase(ctx context.Context, id string) (gjson.Result, error) {
	return c.do(ctx, http.MethodGet, fmt.Sprintf("%s/v1/databases/%s", c.baseURL, id), nil, id)
}

// QueryDatabase runs a filter query against a database and drains every
// result page. filter may be nil for an unfiltered scan.
func (c *Client) QueryDatabase(ctx context.Context, id string, filter map[string]any) ([]gjson.Result, error) {
	var pages []gjson.Result
	cursor := ""
	for {
		payload := map[string]any{"page_size": pageSize}
		if filter != nil {
			payload["filter"] = filter
		}
		if cursor != "" {
			payload["start_cursor"] = cursor
		}

		body, err := c.do(ctx, http.MethodPost, fmt.Sprintf("%s/v1/databases/%s/query", c.baseURL, id), payload, id)
		if err != nil {
			return nil, err
		}
		body.Get("results").ForEach(func(_, r gjson.Result) bool {
			pages = append(pages, r)
			return true
		})
		if !body.Get("has_more").Bool() {
			return pages, nil
		}
		cursor = body.Get("next_cursor").String()
	}
}

// Search runs a workspace search scoped to one object type ("page" or
// "database") and returns the raw results.
func (c *Client) Search(ctx context.Context, query, objectType string) ([]gjson.Result, error) {
	payload := map[string]any{
		"query": query,
		"filter": map[string]any{
			"property": "object",
			"value":    objectType,
		},
	}
	body, err := c.do(ctx, http.MethodPost, c.baseURL+"/v1/search", payload, query)
	if err != nil {
		return nil, err
	}
	var results []gjson.Result
	body.Get("results").ForEach(func(_, r gjson.Result) bool {
		results = append(results, r)
		return true
	})
	return results, nil
}

// do issues one request and maps failures into the error taxonomy:
// HTTP 404 becomes NotFound (entity absent - a reportable outcome), any
// other transport or status failure becomes FetchFailed.
func (c *Client) do(ctx context.Context, method, url string, payload map[string]any, target string) (gjson.Result, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return gjson.Result{}, verdict.NewFetchFailed(target, fmt.Errorf("encode request: %w", err))
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return gjson.Result{}, verdict.NewFetchFailed(target, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", apiVersion)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, verdict.NewFetchFailed(target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, verdict.NewFetchFailed(target, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return gjson.Result{}, verdict.NewNotFound(target, "object does not exist or is not shared with the integration")
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return gjson.Result{}, verdict.NewFetchFailed(target,
			fmt.Errorf("store returned %d: %s", resp.StatusCode, gjson.GetBytes(data, "message").String()))
	}

	return gjson.ParseBytes(data), nil
}
