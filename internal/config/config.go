// Package config loads candidate search's configuration: the connection
// settings for the lexical store, ANN store, upstream candidate source, and
// message bus (environment variables, spec §6's table), plus a small set of
// operator tunables that may additionally be set from an optional local
// YAML file. Environment variables always win over the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete runtime configuration.
type Config struct {
	// Connection settings — environment only, no YAML override (spec §6).
	ElasticsearchURL      string
	CandidateAPIURL       string
	RabbitMQHost          string
	RabbitMQPort          int
	RabbitMQUser          string
	RabbitMQPass          string
	CandidateExchangeName string
	MilvusHost            string
	MilvusPort            int
	SentenceModelName     string

	// Tunables — may come from the YAML override file; env still wins.
	Tunables

	// HTTPAddr is the address the HTTP surface listens on. Not named in
	// spec §6's table (that table covers only the domain connections); kept
	// env-configurable for deployment flexibility, following the same
	// precedence rule as everything else.
	HTTPAddr string

	// LogLevel/Debug are loaded from LOG_LEVEL/DEBUG. The CLI's logging
	// setup does not read them; it is driven by the --debug flag.
	LogLevel string
	Debug    bool

	// JobDBPath is where internal/asyncjob persists the rebuild job ledger.
	JobDBPath string

	// MetricsDBPath is where internal/telemetry persists query telemetry.
	MetricsDBPath string
}

// Tunables are the operator-adjustable knobs that may be set via the
// optional local YAML file as well as environment variables. Grouped
// separately so the YAML loader and the hot-reload watcher only ever touch
// this subset, never the connection settings.
type Tunables struct {
	CandidateAlias    string `yaml:"candidate_alias"`
	BatchSize         int    `yaml:"batch_size"`
	RRFK              int    `yaml:"rrf_k"`
	MilvusIndexParams string `yaml:"milvus_index_params"`
	EmbedCacheSize    int    `yaml:"embed_cache_size"`
	WorkerPoolSize    int    `yaml:"worker_pool_size"`
}

// DefaultTunables returns the spec's documented defaults.
func DefaultTunables() Tunables {
	return Tunables{
		CandidateAlias:    "candidates",
		BatchSize:         500,
		RRFK:              60,
		MilvusIndexParams: "",
		EmbedCacheSize:    1024,
		WorkerPoolSize:    4,
	}
}

// NewConfig returns a Config with every field at its documented default.
// Connection settings default to empty — Load reports them as missing
// unless the corresponding environment variable is set.
func NewConfig() *Config {
	return &Config{
		RabbitMQPort:  5672,
		MilvusPort:    19530,
		Tunables:      DefaultTunables(),
		HTTPAddr:      ":8080",
		LogLevel:      "info",
		JobDBPath:     defaultJobDBPath(),
		MetricsDBPath: defaultMetricsDBPath(),
	}
}

// Load builds the configuration: defaults, then an optional YAML tunables
// file (if tunablesPath is non-empty and exists), then environment variable
// overrides — env always wins, per spec §6 and the operator-facing YAML
// file being scoped to non-secret tunables only.
func Load(tunablesPath string) (*Config, error) {
	cfg := NewConfig()

	if tunablesPath != "" {
		if _, err := os.Stat(tunablesPath); err == nil {
			if err := cfg.loadTunablesYAML(tunablesPath); err != nil {
				return nil, fmt.Errorf("load tunables file %s: %w", tunablesPath, err)
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadTunablesYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return c.loadTunablesYAMLBytes(data)
}

func (c *Config) loadTunablesYAMLBytes(data []byte) error {
	var parsed Tunables
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return err
	}
	c.mergeTunables(parsed)
	return nil
}

// mergeTunables overlays non-zero fields from other onto c.Tunables.
func (c *Config) mergeTunables(other Tunables) {
	if other.CandidateAlias != "" {
		c.CandidateAlias = other.CandidateAlias
	}
	if other.BatchSize != 0 {
		c.BatchSize = other.BatchSize
	}
	if other.RRFK != 0 {
		c.RRFK = other.RRFK
	}
	if other.MilvusIndexParams != "" {
		c.MilvusIndexParams = other.MilvusIndexParams
	}
	if other.EmbedCacheSize != 0 {
		c.EmbedCacheSize = other.EmbedCacheSize
	}
	if other.WorkerPoolSize != 0 {
		c.WorkerPoolSize = other.WorkerPoolSize
	}
}

// applyEnvOverrides applies spec §6's environment variables, highest
// precedence over both defaults and the tunables file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ELASTICSEARCH_URL"); v != "" {
		c.ElasticsearchURL = v
	}
	if v := os.Getenv("CANDIDATE_API_URL"); v != "" {
		c.CandidateAPIURL = v
	}
	if v := os.Getenv("RABBITMQ_HOST"); v != "" {
		c.RabbitMQHost = v
	}
	if v := os.Getenv("RABBITMQ_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			c.RabbitMQPort = p
		}
	}
	if v := os.Getenv("RABBITMQ_USER"); v != "" {
		c.RabbitMQUser = v
	}
	if v := os.Getenv("RABBITMQ_PASS"); v != "" {
		c.RabbitMQPass = v
	}
	if v := os.Getenv("CANDIDATE_EXCHANGE_NAME"); v != "" {
		c.CandidateExchangeName = v
	}
	if v := os.Getenv("CANDIDATE_ALIAS"); v != "" {
		c.CandidateAlias = v
	}
	if v := os.Getenv("BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.BatchSize = n
		}
	}
	if v := os.Getenv("RRF_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.RRFK = k
		}
	}
	if v := os.Getenv("MILVUS_HOST"); v != "" {
		c.MilvusHost = v
	}
	if v := os.Getenv("MILVUS_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			c.MilvusPort = p
		}
	}
	if v := os.Getenv("MILVUS_INDEX_PARAMS"); v != "" {
		c.MilvusIndexParams = v
	}
	if v := os.Getenv("SENTENCE_MODEL_NAME"); v != "" {
		c.SentenceModelName = v
	}

	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.HTTPAddr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("DEBUG"); v != "" {
		c.Debug = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv("JOB_DB_PATH"); v != "" {
		c.JobDBPath = v
	}
	if v := os.Getenv("METRICS_DB_PATH"); v != "" {
		c.MetricsDBPath = v
	}
}

// AMQPURL assembles the RabbitMQ connection URL from the host/port/user/pass
// fields spec §6 documents as four separate variables.
func (c *Config) AMQPURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", c.RabbitMQUser, c.RabbitMQPass, c.RabbitMQHost, c.RabbitMQPort)
}

// MilvusBaseURL assembles the vector store's HTTP base URL from the
// host/port fields spec §6 documents as two separate variables.
func (c *Config) MilvusBaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.MilvusHost, c.MilvusPort)
}

// Validate checks that the settings required to reach every external
// dependency are present and sane.
func (c *Config) Validate() error {
	if c.ElasticsearchURL == "" {
		return fmt.Errorf("ELASTICSEARCH_URL is required")
	}
	if c.CandidateAPIURL == "" {
		return fmt.Errorf("CANDIDATE_API_URL is required")
	}
	if c.RabbitMQHost == "" {
		return fmt.Errorf("RABBITMQ_HOST is required")
	}
	if c.CandidateExchangeName == "" {
		return fmt.Errorf("CANDIDATE_EXCHANGE_NAME is required")
	}
	if c.MilvusHost == "" {
		return fmt.Errorf("MILVUS_HOST is required")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	if c.RRFK <= 0 {
		return fmt.Errorf("rrf_k must be positive, got %d", c.RRFK)
	}
	return nil
}

func defaultJobDBPath() string {
	dir := DefaultStateDir()
	return dir + "/jobs.db"
}

func defaultMetricsDBPath() string {
	dir := DefaultStateDir()
	return dir + "/metrics.db"
}
