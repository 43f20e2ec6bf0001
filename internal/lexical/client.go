// Package lexical adapts the hybrid search engine to an external
// Elasticsearch-like lexical store reached over HTTP: structured bool-query
// search, single-document and bulk upsert, tolerant delete, and the
// alias-swap primitives the zero-downtime reindex depends on.
package lexical

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	searcherrors "github.com/itrecruiter/candidatesearch/internal/errors"
	"github.com/itrecruiter/candidatesearch/internal/httpx"
)

// Config configures a lexical store client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	return c
}

// Client is the lexical store adapter (C2).
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[struct{}]
	retry   searcherrors.RetryConfig
	logger  *slog.Logger
}

// NewClient builds a lexical store client pointed at baseURL.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    httpx.NewClient(httpx.PoolConfig{ConnTimeout: cfg.Timeout, RespTimeout: cfg.Timeout}),
		breaker: httpx.NewBreaker("lexical", httpx.BreakerConfig{}, logger),
		retry: searcherrors.RetryConfig{
			MaxRetries:   cfg.MaxRetries,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     5 * time.Second,
			Multiplier:   2.0,
			Jitter:       true,
		},
		logger: logger,
	}
}

// doRequest executes method against path with an optional JSON body,
// decoding the JSON response into out (when non-nil), through the circuit
// breaker and the shared exponential-backoff retry helper.
func (c *Client) doRequest(ctx context.Context, method, path string, body, out any) error {
	// A tolerated not-found is neither a retryable failure nor a breaker
	// trip: record it out-of-band and let Retry/the breaker see a plain
	// success, then re-surface it to the caller once the call returns.
	var notFound bool
	err := searcherrors.Retry(ctx, c.retry, func() error {
		_, execErr := c.breaker.Execute(func() (struct{}, error) {
			e := c.once(ctx, method, path, body, out)
			if e == errNotFound {
				notFound = true
				return struct{}{}, nil
			}
			return struct{}{}, e
		})
		if execErr != nil {
			if execErr == gobreaker.ErrOpenState || execErr == gobreaker.ErrTooManyRequests {
				return searcherrors.New(searcherrors.ErrCodeLexicalUnavailable, "lexical store circuit open", nil).WithDetail("path", path)
			}
			return execErr
		}
		return nil
	})
	if err != nil {
		return err
	}
	if notFound {
		return errNotFound
	}
	return nil
}

func (c *Client) once(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return searcherrors.New(searcherrors.ErrCodeLexicalBadQuery, "failed to encode request body", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return searcherrors.New(searcherrors.ErrCodeLexicalBadQuery, "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return searcherrors.New(searcherrors.ErrCodeLexicalUnavailable, "lexical store request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return searcherrors.New(searcherrors.ErrCodeLexicalUnavailable, "failed to read lexical store response", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return searcherrors.New(searcherrors.ErrCodeLexicalBadQuery,
			fmt.Sprintf("unexpected status %d from lexical store", resp.StatusCode), nil).
			WithDetail("body", string(payload))
	}

	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return searcherrors.New(searcherrors.ErrCodeLexicalBadQuery, "failed to decode lexical store response", err)
	}
	return nil
}

// errNotFound is a sentinel distinguishing "document/alias absent" from a
// transport failure, so callers tolerant of not-found (DeleteByID) can
// swallow it without retrying.
var errNotFound = fmt.Errorf("lexical: not found")

// Search executes a structured bool query and returns ordered hits by
// descending engine score.
func (c *Client) Search(ctx context.Context, index string, q Query, size int, sourceFields []string) ([]Hit, error) {
	body := searchRequestBody{Query: q, Size: size, Source: sourceFields}
	var resp searchResponseBody
	if err := c.doRequest(ctx, http.MethodPost, "/"+index+"/_search", body, &resp); err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		hits = append(hits, Hit{ID: h.ID, Score: h.Score})
	}
	return hits, nil
}

// Index upserts a single document by id into a specific physical index or
// alias.
func (c *Client) Index(ctx context.Context, indexOrAlias, id string, doc any) error {
	return c.doRequest(ctx, http.MethodPut, "/"+indexOrAlias+"/_doc/"+id, doc, nil)
}

// Bulk streams upserts into an index, returning the number that succeeded
// and a slice describing any that failed.
func (c *Client) Bulk(ctx context.Context, index string, actions []BulkAction) (int, []BulkFailure, error) {
	if len(actions) == 0 {
		return 0, nil, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, a := range actions {
		if err := enc.Encode(map[string]any{"index": map[string]any{"_index": index, "_id": a.ID}}); err != nil {
			return 0, nil, searcherrors.New(searcherrors.ErrCodeLexicalBadQuery, "failed to encode bulk action header", err)
		}
		if err := enc.Encode(a.Doc); err != nil {
			return 0, nil, searcherrors.New(searcherrors.ErrCodeLexicalBadQuery, "failed to encode bulk document", err)
		}
	}

	var resp bulkResponseBody
	if err := c.doRequestNDJSON(ctx, "/_bulk", buf.Bytes(), &resp); err != nil {
		return 0, nil, err
	}

	successCount := 0
	var failures []BulkFailure
	for _, item := range resp.Items {
		if item.Index == nil {
			continue
		}
		if item.Index.Status >= 200 && item.Index.Status < 300 {
			successCount++
			continue
		}
		reason := "unknown error"
		if item.Index.Error != nil {
			reason = item.Index.Error.Reason
		}
		failures = append(failures, BulkFailure{ID: item.Index.ID, Reason: reason})
	}
	return successCount, failures, nil
}

// doRequestNDJSON is doRequest's sibling for the bulk endpoint, which speaks
// newline-delimited JSON rather than a single JSON document.
func (c *Client) doRequestNDJSON(ctx context.Context, path string, body []byte, out any) error {
	return searcherrors.Retry(ctx, c.retry, func() error {
		_, err := c.breaker.Execute(func() (struct{}, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
			if err != nil {
				return struct{}{}, searcherrors.New(searcherrors.ErrCodeLexicalBadQuery, "failed to build bulk request", err)
			}
			req.Header.Set("Content-Type", "application/x-ndjson")

			resp, err := c.http.Do(req)
			if err != nil {
				return struct{}{}, searcherrors.New(searcherrors.ErrCodeLexicalUnavailable, "bulk request failed", err)
			}
			defer resp.Body.Close()

			payload, err := io.ReadAll(resp.Body)
			if err != nil {
				return struct{}{}, searcherrors.New(searcherrors.ErrCodeLexicalUnavailable, "failed to read bulk response", err)
			}
			if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
				return struct{}{}, searcherrors.New(searcherrors.ErrCodeLexicalBadQuery,
					fmt.Sprintf("unexpected status %d from bulk endpoint", resp.StatusCode), nil)
			}
			return struct{}{}, json.Unmarshal(payload, out)
		})
		return err
	})
}

// DeleteByID deletes a document by id, tolerant of it already being absent.
func (c *Client) DeleteByID(ctx context.Context, indexOrAlias, id string) error {
	err := c.doRequest(ctx, http.MethodDelete, "/"+indexOrAlias+"/_doc/"+id, nil, nil)
	if err == errNotFound {
		return nil
	}
	return err
}

// CreateIndex creates a new, empty physical index.
func (c *Client) CreateIndex(ctx context.Context, name string) error {
	return c.doRequest(ctx, http.MethodPut, "/"+name, nil, nil)
}

// DropIndex deletes a physical index.
func (c *Client) DropIndex(ctx context.Context, name string) error {
	err := c.doRequest(ctx, http.MethodDelete, "/"+name, nil, nil)
	if err == errNotFound {
		return nil
	}
	return err
}

// ListIndicesForAlias returns the physical indices currently bound to an
// alias.
func (c *Client) ListIndicesForAlias(ctx context.Context, alias string) ([]string, error) {
	var resp aliasLookupResponse
	err := c.doRequest(ctx, http.MethodGet, "/_alias/"+alias, nil, &resp)
	if err == errNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	indices := make([]string, 0, len(resp))
	for index := range resp {
		indices = append(indices, index)
	}
	return indices, nil
}

// EnsureAlias creates `<alias>-initial` and points alias at it if the alias
// does not already exist.
func (c *Client) EnsureAlias(ctx context.Context, alias string) error {
	existing, err := c.ListIndicesForAlias(ctx, alias)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	initial := alias + "-initial"
	if err := c.CreateIndex(ctx, initial); err != nil {
		return err
	}
	return c.SwapAlias(ctx, alias, initial)
}

// SwapAlias atomically points alias at newIndex, removing it from every
// index it currently targets, in a single request.
func (c *Client) SwapAlias(ctx context.Context, alias, newIndex string) error {
	current, err := c.ListIndicesForAlias(ctx, alias)
	if err != nil {
		return err
	}

	actions := make([]aliasAction, 0, len(current)+1)
	for _, old := range current {
		if old == newIndex {
			continue
		}
		actions = append(actions, aliasAction{Remove: &aliasTarget{Index: old, Alias: alias}})
	}
	actions = append(actions, aliasAction{Add: &aliasTarget{Index: newIndex, Alias: alias}})

	return c.doRequest(ctx, http.MethodPost, "/_aliases", aliasUpdateRequest{Actions: actions}, nil)
}
