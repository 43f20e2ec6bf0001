// Package source is the candidate source client (C4): a thin, paginated
// HTTP reader over the upstream system of record that owns candidate data.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/itrecruiter/candidatesearch/internal/candidate"
	searcherrors "github.com/itrecruiter/candidatesearch/internal/errors"
	"github.com/itrecruiter/candidatesearch/internal/httpx"
)

// DefaultTimeout is the per-request timeout spec §4.4 fixes at 20 seconds.
const DefaultTimeout = 20 * time.Second

// Config configures a candidate source client. MaxRetries/InitialDelay
// default to spec §4.4's fixed retry policy (3 attempts, 1s→10s backoff);
// MaxRetries counts retries after the first attempt, so its default is 2.
// They are exposed so tests can shrink the backoff rather than wait on it.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	InitialDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 2
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 1 * time.Second
	}
	return c
}

// Client is the candidate source client (C4).
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[struct{}]
	retry   searcherrors.RetryConfig
}

// NewClient builds a candidate source client pointed at baseURL. Retries
// follow spec §4.4 exactly: three attempts, exponential backoff from 1s up
// to 10s.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    httpx.NewClient(httpx.PoolConfig{ConnTimeout: cfg.Timeout, RespTimeout: cfg.Timeout}),
		breaker: httpx.NewBreaker("candidate-source", httpx.BreakerConfig{}, logger),
		retry: searcherrors.RetryConfig{
			MaxRetries:   cfg.MaxRetries,
			InitialDelay: cfg.InitialDelay,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
			Jitter:       true,
		},
	}
}

// FetchBatch fetches one page of candidates. An empty slice (with no error)
// signals the end of the stream. Transport and non-2xx errors surviving
// every retry attempt are returned as-is for the caller (the Indexer) to
// abort the in-progress rebuild.
func (c *Client) FetchBatch(ctx context.Context, limit, offset int) ([]candidate.Candidate, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))
	path := "/candidates/?" + query.Encode()

	var candidates []candidate.Candidate
	err := searcherrors.Retry(ctx, c.retry, func() error {
		_, execErr := c.breaker.Execute(func() (struct{}, error) {
			batch, err := c.fetchOnce(ctx, path)
			if err != nil {
				return struct{}{}, err
			}
			candidates = batch
			return struct{}{}, nil
		})
		if execErr != nil {
			if execErr == gobreaker.ErrOpenState || execErr == gobreaker.ErrTooManyRequests {
				return searcherrors.New(searcherrors.ErrCodeSourceUnavailable, "candidate source circuit open", nil)
			}
			return execErr
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

func (c *Client) fetchOnce(ctx context.Context, path string) ([]candidate.Candidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, searcherrors.New(searcherrors.ErrCodeSourceBadPayload, "failed to build request", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, searcherrors.New(searcherrors.ErrCodeSourceTimeout, "candidate source request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, searcherrors.New(searcherrors.ErrCodeSourceTimeout, "failed to read candidate source response", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, searcherrors.New(searcherrors.ErrCodeSourceUnavailable,
			fmt.Sprintf("unexpected status %d from candidate source", resp.StatusCode), nil).
			WithDetail("body", string(payload))
	}

	var batch []candidate.Candidate
	if err := json.Unmarshal(payload, &batch); err != nil {
		return nil, searcherrors.New(searcherrors.ErrCodeSourceBadPayload, "failed to decode candidate source response", err)
	}
	return batch, nil
}
