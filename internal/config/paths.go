package config

import (
	"os"
	"path/filepath"
)

// DefaultStateDir returns the directory candidate search uses for local
// operational state (the rebuild job ledger and the query telemetry
// database): $XDG_STATE_HOME/candidatesearch when set, else ~/.candidatesearch.
// The optional tunables file lives under DefaultTunablesPath instead.
func DefaultStateDir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "candidatesearch")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".candidatesearch")
	}
	return filepath.Join(home, ".candidatesearch")
}

// DefaultTunablesPath returns the default location of the optional local
// YAML file supplying non-secret tunable overrides (candidate_alias,
// batch_size, rrf_k, embed_cache_size, worker_pool_size, milvus_index_params).
func DefaultTunablesPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "candidatesearch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "candidatesearch", "config.yaml")
	}
	return filepath.Join(home, ".config", "candidatesearch", "config.yaml")
}
