package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	searcherrors "github.com/itrecruiter/candidatesearch/internal/errors"
)

// HTTPConfig configures the networked model client.
type HTTPConfig struct {
	// Endpoint is the base URL of the embedding model server, e.g.
	// http://embedder:8000. POST {Endpoint}/embed is issued for both single
	// and batch requests.
	Endpoint string

	// Model is the model identifier reported by ModelName and sent to the
	// server so it can route between multiple loaded models.
	Model string

	// Timeout bounds a single HTTP round trip.
	Timeout time.Duration

	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int
}

// DefaultHTTPConfig returns sensible defaults for the networked embedder.
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Endpoint:   "http://localhost:8000",
		Model:      "embeddinggemma",
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Texts []string `json:"texts"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Dimensions int         `json:"dimensions"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HTTPEmbedder calls a networked, sentence-transformers-compatible
// embedding model endpoint. It is the production backend for the embedding
// gate: the model itself is someone else's service, reached over HTTP like
// the lexical and vector stores.
type HTTPEmbedder struct {
	client *http.Client
	cfg    HTTPConfig

	mu     sync.RWMutex
	closed bool
}

var _ Embedder = (*HTTPEmbedder)(nil)

// NewHTTPEmbedder creates a networked embedder. It performs a warm-up call
// against the endpoint; per spec §4.1, failure to warm up is fatal.
func NewHTTPEmbedder(ctx context.Context, cfg HTTPConfig) (*HTTPEmbedder, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultHTTPConfig().Endpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultHTTPConfig().Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}

	e := &HTTPEmbedder{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
	}

	if _, err := e.doEmbed(ctx, []string{"warm-up"}); err != nil {
		return nil, fmt.Errorf("embedding model warm-up failed: %w", err)
	}

	return e, nil
}

// Embed generates the embedding for a single text.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one request.
func (e *HTTPEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("embedder is closed")
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var result [][]float32
	err := searcherrors.Retry(ctx, searcherrors.RetryConfig{
		MaxRetries:   e.cfg.MaxRetries,
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}, func() error {
		vecs, err := e.doEmbed(ctx, texts)
		if err != nil {
			return err
		}
		result = vecs
		return nil
	})
	if err != nil {
		return nil, searcherrors.Wrap(searcherrors.ErrCodeEmbeddingFailed, err)
	}
	return result, nil
}

func (e *HTTPEmbedder) doEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Model: e.cfg.Model, Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("encode embed request: %w", err)
	}

	url := strings.TrimRight(e.cfg.Endpoint, "/") + "/embed"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, searcherrors.New(searcherrors.ErrCodeVectorTimeout, "embedding model request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embed response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		_ = json.Unmarshal(respBody, &errResp)
		msg := errResp.Error
		if msg == "" {
			msg = string(respBody)
		}
		return nil, fmt.Errorf("embedding model returned %d: %s", resp.StatusCode, msg)
	}

	var out embedResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(out.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding model returned %d vectors for %d inputs", len(out.Embeddings), len(texts))
	}
	for _, vec := range out.Embeddings {
		if len(vec) != Dimensions {
			return nil, searcherrors.New(searcherrors.ErrCodeVectorDimension,
				fmt.Sprintf("embedding model returned dimension %d, expected %d", len(vec), Dimensions), nil)
		}
	}

	return out.Embeddings, nil
}

// Dimensions returns the embedding width.
func (e *HTTPEmbedder) Dimensions() int { return Dimensions }

// ModelName returns the model identifier.
func (e *HTTPEmbedder) ModelName() string { return e.cfg.Model }

// Available checks whether the embedding model endpoint is reachable.
func (e *HTTPEmbedder) Available(ctx context.Context) bool {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return false
	}
	e.mu.RUnlock()

	_, err := e.doEmbed(ctx, []string{"health-check"})
	return err == nil
}

// Close releases the underlying HTTP transport's idle connections.
func (e *HTTPEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.client.CloseIdleConnections()
	return nil
}
