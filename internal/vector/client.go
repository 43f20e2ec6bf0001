// Package vector adapts the hybrid search engine to an external
// Milvus-like ANN store reached over HTTP: collection lifecycle, primary-key
// upsert/delete, and filtered nearest-neighbor search.
package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/sony/gobreaker/v2"

	searcherrors "github.com/itrecruiter/candidatesearch/internal/errors"
	"github.com/itrecruiter/candidatesearch/internal/httpx"
)

// AllowlistChunkSize bounds how many candidate ids are sent in a single
// filtered search request. Lists larger than this are split into chunks,
// searched independently, and the per-chunk hits merged by score — see
// DESIGN.md's Open Question decision for §9's allowlist-size question.
const AllowlistChunkSize = 1024

// Config configures a vector store client.
type Config struct {
	BaseURL        string
	CollectionName string
	Dimensions     int
	Timeout        time.Duration
	MaxRetries     int
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.Dimensions <= 0 {
		c.Dimensions = 768
	}
	return c
}

// Client is the vector store adapter (C3).
type Client struct {
	baseURL    string
	collection string
	dimensions int
	http       *http.Client
	breaker    *gobreaker.CircuitBreaker[struct{}]
	retry      searcherrors.RetryConfig
}

// NewClient builds a vector store client pointed at baseURL, managing a
// single named collection.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		collection: cfg.CollectionName,
		dimensions: cfg.Dimensions,
		http:       httpx.NewClient(httpx.PoolConfig{ConnTimeout: cfg.Timeout, RespTimeout: cfg.Timeout}),
		breaker:    httpx.NewBreaker("vector", httpx.BreakerConfig{}, logger),
		retry: searcherrors.RetryConfig{
			MaxRetries:   cfg.MaxRetries,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     5 * time.Second,
			Multiplier:   2.0,
			Jitter:       true,
		},
	}
}

func (c *Client) doRequest(ctx context.Context, method, path string, body, out any) error {
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
				return searcherrors.New(searcherrors.ErrCodeVectorUnavailable, "vector store circuit open", nil).WithDetail("path", path)
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
			return searcherrors.New(searcherrors.ErrCodeVectorDimension, "failed to encode request body", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return searcherrors.New(searcherrors.ErrCodeVectorDimension, "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return searcherrors.New(searcherrors.ErrCodeVectorUnavailable, "vector store request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return searcherrors.New(searcherrors.ErrCodeVectorUnavailable, "failed to read vector store response", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return searcherrors.New(searcherrors.ErrCodeVectorUnavailable,
			fmt.Sprintf("unexpected status %d from vector store", resp.StatusCode), nil).
			WithDetail("body", string(payload))
	}

	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return searcherrors.New(searcherrors.ErrCodeVectorUnavailable, "failed to decode vector store response", err)
	}
	return nil
}

var errNotFound = fmt.Errorf("vector: not found")

// EnsureCollection creates the collection with the fixed spec schema if
// absent, builds its IVF_FLAT/IP index, and loads it into memory. Idempotent.
func (c *Client) EnsureCollection(ctx context.Context) error {
	err := c.doRequest(ctx, http.MethodGet, "/"+c.collection, nil, nil)
	if err == nil {
		return nil // already exists
	}
	if err != errNotFound {
		return err
	}

	var req ensureCollectionRequest
	req.Schema.IDField.Name = idField
	req.Schema.IDField.Type = "varchar"
	req.Schema.IDField.MaxLen = idFieldMaxLen
	req.Schema.IDField.Primary = true
	req.Schema.VectorField.Name = embeddingField
	req.Schema.VectorField.Type = "float_vector"
	req.Schema.VectorField.Dim = c.dimensions
	req.Index.Type = indexType
	req.Index.Metric = metric
	req.Index.NList = nlist

	if err := c.doRequest(ctx, http.MethodPut, "/"+c.collection, req, nil); err != nil {
		return err
	}
	return c.doRequest(ctx, http.MethodPost, "/"+c.collection+"/_load", nil, nil)
}

// Upsert writes (or overwrites) embeddings by primary key. The caller is
// responsible for flushing when needed — this call does not force one.
func (c *Client) Upsert(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) != len(vectors) {
		return searcherrors.New(searcherrors.ErrCodeVectorDimension, "ids and vectors length mismatch", nil)
	}
	return c.doRequest(ctx, http.MethodPost, "/"+c.collection+"/_upsert", upsertRequest{IDs: ids, Vectors: vectors}, nil)
}

// Delete removes rows by primary-key expression.
func (c *Client) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return c.doRequest(ctx, http.MethodPost, "/"+c.collection+"/_delete", deleteRequest{IDs: ids}, nil)
}

// DropCollection deletes the collection outright, for use by full reindex.
func (c *Client) DropCollection(ctx context.Context) error {
	err := c.doRequest(ctx, http.MethodDelete, "/"+c.collection, nil, nil)
	if err == errNotFound {
		return nil
	}
	return err
}

// Search runs a filtered ANN search with nprobe=10 and the IP metric,
// restricted to candidate_id IN idAllowlist, returning results ordered by
// descending inner-product score. Allowlists larger than AllowlistChunkSize
// are split into independently searched chunks and merged.
func (c *Client) Search(ctx context.Context, queryVec []float32, topK int, idAllowlist []string) ([]Hit, error) {
	if len(idAllowlist) <= AllowlistChunkSize {
		return c.searchChunk(ctx, queryVec, topK, idAllowlist)
	}

	var merged []Hit
	for start := 0; start < len(idAllowlist); start += AllowlistChunkSize {
		end := start + AllowlistChunkSize
		if end > len(idAllowlist) {
			end = len(idAllowlist)
		}
		hits, err := c.searchChunk(ctx, queryVec, topK, idAllowlist[start:end])
		if err != nil {
			return nil, err
		}
		merged = append(merged, hits...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if len(merged) > topK {
		merged = merged[:topK]
	}
	return merged, nil
}

func (c *Client) searchChunk(ctx context.Context, queryVec []float32, topK int, idAllowlist []string) ([]Hit, error) {
	req := searchRequest{
		Vector:   queryVec,
		TopK:     topK,
		NProbe:   nprobe,
		Metric:   metric,
		IDFilter: idAllowlist,
	}
	var resp searchResponse
	if err := c.doRequest(ctx, http.MethodPost, "/"+c.collection+"/_search", req, &resp); err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(resp.Hits))
	for _, h := range resp.Hits {
		hits = append(hits, Hit{ID: h.ID, Score: h.Score})
	}
	return hits, nil
}
