package embed

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ProviderType represents an embedding provider.
type ProviderType string

const (
	// ProviderHTTP uses a networked, sentence-transformers-compatible model
	// server for embeddings. This is the production default.
	ProviderHTTP ProviderType = "http"

	// ProviderStatic uses hash-based embeddings. Intended for tests and local
	// development without a model server running; initialization of the
	// networked embedder failing is fatal, per spec §4.1 — this is not a
	// silent runtime fallback.
	ProviderStatic ProviderType = "static"
)

// NewEmbedder creates the process-global embedder for the embedding gate.
// EMBEDDING_PROVIDER overrides the provider ("http" or "static"); EMBEDDING_ENDPOINT
// and EMBEDDING_MODEL configure the networked backend. Query embeddings are cached
// unless EMBEDDING_CACHE=false.
func NewEmbedder(ctx context.Context, provider ProviderType, endpoint, model string) (Embedder, error) {
	if envProvider := os.Getenv("EMBEDDING_PROVIDER"); envProvider != "" {
		provider = ProviderType(strings.ToLower(envProvider))
	}

	var embedder Embedder
	var err error

	switch provider {
	case ProviderStatic:
		embedder = NewStaticEmbedder()
	default:
		cfg := DefaultHTTPConfig()
		if endpoint != "" {
			cfg.Endpoint = endpoint
		}
		if v := os.Getenv("EMBEDDING_ENDPOINT"); v != "" {
			cfg.Endpoint = v
		}
		if model != "" {
			cfg.Model = model
		}
		if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
			cfg.Model = v
		}
		if v := os.Getenv("EMBEDDING_TIMEOUT"); v != "" {
			if d, parseErr := time.ParseDuration(v); parseErr == nil {
				cfg.Timeout = d
			}
		}
		embedder, err = NewHTTPEmbedder(ctx, cfg)
	}

	if err != nil {
		// Fatal and terminal, per spec §4.1 — the caller is expected to abort
		// startup rather than retry with a degraded embedder.
		return nil, fmt.Errorf("embedding gate initialization failed: %w", err)
	}

	if !isCacheDisabled() {
		cacheSize := DefaultQueryCacheSize
		if v := os.Getenv("EMBEDDING_CACHE_SIZE"); v != "" {
			if n, parseErr := strconv.Atoi(v); parseErr == nil && n > 0 {
				cacheSize = n
			}
		}
		embedder = NewCachedEmbedder(embedder, cacheSize)
	}

	return embedder, nil
}

func isCacheDisabled() bool {
	v := strings.ToLower(os.Getenv("EMBEDDING_CACHE"))
	return v == "false" || v == "0" || v == "off" || v == "disabled"
}

// ParseProvider converts a string to ProviderType, defaulting to the
// networked provider for anything unrecognized.
func ParseProvider(s string) ProviderType {
	switch strings.ToLower(s) {
	case "static":
		return ProviderStatic
	default:
		return ProviderHTTP
	}
}

// EmbedderInfo summarizes an embedder's configuration.
type EmbedderInfo struct {
	Provider   ProviderType
	Model      string
	Dimensions int
	Available  bool
}

// GetInfo inspects an embedder, unwrapping CachedEmbedder to report the
// underlying backend.
func GetInfo(ctx context.Context, embedder Embedder) EmbedderInfo {
	inner := embedder
	if cached, ok := embedder.(*CachedEmbedder); ok {
		inner = cached.inner
	}

	info := EmbedderInfo{
		Model:      inner.ModelName(),
		Dimensions: inner.Dimensions(),
		Available:  embedder.Available(ctx),
	}

	switch inner.(type) {
	case *StaticEmbedder:
		info.Provider = ProviderStatic
	default:
		info.Provider = ProviderHTTP
	}

	return info
}
