// Package config loads atlas's runtime configuration from a .env file
// and environment variable overrides, following the same plain-struct,
// per-subsystem loader pattern regardless of the domain it configures.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	atlaserrors "github.com/inherent-design/atlas-sub010/internal/errors"
)

// Config is the fully assembled configuration for one atlas process.
type Config struct {
	Backends    BackendsConfig
	Store       StoreConfig
	Logging     LoggingConfig
	Resources   ResourcesConfig
	Concurrency ConcurrencyConfig
	Watchdog    WatchdogConfig
	Vacuum      VacuumConfig
	Tokenizer   TokenizerConfig
}

// BackendsConfig maps each capability to a "provider:model" specifier,
// e.g. "openai:text-embedding-3-small" or "anthropic:claude-3-5-sonnet".
type BackendsConfig struct {
	TextEmbedding           string
	CodeEmbedding           string
	ContextualizedEmbedding string
	TextCompletion          string
	JSONCompletion          string
	QNTMGeneration          string
	TextReranking           string
}

// StoreConfig describes the vector store connection.
type StoreConfig struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// LoggingConfig holds the log level and per-module level overrides. The
// logger applies Level only; Modules is loaded but not applied.
type LoggingConfig struct {
	Level   string
	Modules map[string]string
}

// ResourcesConfig carries optional hints for local model runtimes. It is
// loaded but inert: the registered providers (openai, anthropic) are all
// remote and none of them reads it.
type ResourcesConfig struct {
	OllamaMemoryTarget     string
	GPULayers              string
	PreferredQuantization  string
}

// ConcurrencyConfig bounds the adaptive concurrency controller.
type ConcurrencyConfig struct {
	Min          int
	Max          int
	PollInterval time.Duration
}

// WatchdogConfig tunes the consolidation watchdog's triggers.
type WatchdogConfig struct {
	IngestThreshold int
	TimeThreshold   time.Duration
	DrainTimeout    time.Duration
}

// VacuumConfig controls reclamation grace periods.
type VacuumConfig struct {
	GracePeriod time.Duration
}

// TokenizerConfig bounds the Tokenization Service: ContextWindow is the
// active embedding backend's maximum input tokens, and SafeLimit is the
// strictly-lower bound documents are packed under to absorb tokenizer
// skew between families.
type TokenizerConfig struct {
	ContextWindow int
	SafeLimit     int
}

// Load reads a .env file (if present) then environment variables,
// assembling and validating a Config. A missing .env file is not an
// error; environment variables and defaults still apply.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Backends:    loadBackendsConfig(),
		Store:       loadStoreConfig(),
		Logging:     loadLoggingConfig(),
		Resources:   loadResourcesConfig(),
		Concurrency: loadConcurrencyConfig(),
		Watchdog:    loadWatchdogConfig(),
		Vacuum:      loadVacuumConfig(),
		Tokenizer:   loadTokenizerConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadBackendsConfig() BackendsConfig {
	return BackendsConfig{
		TextEmbedding:           getStringEnv("ATLAS_BACKEND_TEXT_EMBEDDING", "openai:text-embedding-3-small"),
		CodeEmbedding:           getStringEnv("ATLAS_BACKEND_CODE_EMBEDDING", "openai:text-embedding-3-small"),
		ContextualizedEmbedding: getStringEnv("ATLAS_BACKEND_CONTEXTUALIZED_EMBEDDING", ""),
		TextCompletion:          getStringEnv("ATLAS_BACKEND_TEXT_COMPLETION", "anthropic:claude-3-5-haiku-latest"),
		JSONCompletion:          getStringEnv("ATLAS_BACKEND_JSON_COMPLETION", "anthropic:claude-3-5-haiku-latest"),
		QNTMGeneration:          getStringEnv("ATLAS_BACKEND_QNTM_GENERATION", "anthropic:claude-3-5-haiku-latest"),
		TextReranking:           getStringEnv("ATLAS_BACKEND_TEXT_RERANKING", ""),
	}
}

func loadStoreConfig() StoreConfig {
	return StoreConfig{
		URL:        getStringEnv("ATLAS_QDRANT_URL", "http://localhost:6334"),
		APIKey:     os.Getenv("ATLAS_QDRANT_API_KEY"),
		Collection: getStringEnv("ATLAS_QDRANT_COLLECTION", "atlas"),
		Timeout:    getDurationEnv("ATLAS_QDRANT_TIMEOUT", 30*time.Second),
	}
}

func loadLoggingConfig() LoggingConfig {
	modules := map[string]string{}
	if raw := os.Getenv("LOG_MODULES"); raw != "" {
		for _, pair := range strings.Split(raw, ",") {
			kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
			if len(kv) == 2 {
				modules[kv[0]] = kv[1]
			}
		}
	}
	return LoggingConfig{
		Level:   getStringEnv("LOG_LEVEL", "info"),
		Modules: modules,
	}
}

func loadResourcesConfig() ResourcesConfig {
	return ResourcesConfig{
		OllamaMemoryTarget:    os.Getenv("ATLAS_OLLAMA_MEMORY_TARGET"),
		GPULayers:             getStringEnv("ATLAS_OLLAMA_GPU_LAYERS", "auto"),
		PreferredQuantization: os.Getenv("ATLAS_OLLAMA_QUANTIZATION"),
	}
}

func loadConcurrencyConfig() ConcurrencyConfig {
	return ConcurrencyConfig{
		Min:          getIntEnv("QNTM_CONCURRENCY_MIN", 1),
		Max:          getIntEnv("QNTM_CONCURRENCY", 10),
		PollInterval: getDurationEnv("ATLAS_CONCURRENCY_POLL_INTERVAL", 2*time.Second),
	}
}

func loadWatchdogConfig() WatchdogConfig {
	return WatchdogConfig{
		IngestThreshold: getIntEnv("ATLAS_WATCHDOG_INGEST_THRESHOLD", 500),
		TimeThreshold:   getDurationEnv("ATLAS_WATCHDOG_TIME_THRESHOLD", 15*time.Minute),
		DrainTimeout:    getDurationEnv("ATLAS_WATCHDOG_DRAIN_TIMEOUT", 30*time.Second),
	}
}

func loadVacuumConfig() VacuumConfig {
	return VacuumConfig{
		GracePeriod: getDurationEnv("ATLAS_VACUUM_GRACE_PERIOD", 14*24*time.Hour),
	}
}

func loadTokenizerConfig() TokenizerConfig {
	return TokenizerConfig{
		ContextWindow: getIntEnv("ATLAS_TOKENIZER_CONTEXT_WINDOW", 8191),
		SafeLimit:     getIntEnv("ATLAS_TOKENIZER_SAFE_LIMIT", 8000),
	}
}

// Validate checks every subsystem's invariants, returning a
// ConfigError-tagged error describing the first violation found.
func (c *Config) Validate() error {
	if c.Backends.TextEmbedding == "" {
		return atlaserrors.Config("backends.text-embedding must be set")
	}
	if c.Backends.JSONCompletion == "" {
		return atlaserrors.Config("backends.json-completion must be set")
	}
	if c.Store.URL == "" {
		return atlaserrors.Config("store.url must be set")
	}
	if c.Store.Collection == "" {
		return atlaserrors.Config("store.collection must be set")
	}
	if c.Concurrency.Min < 1 || c.Concurrency.Max < c.Concurrency.Min {
		return atlaserrors.Config("concurrency.min/max invalid: min=%d max=%d", c.Concurrency.Min, c.Concurrency.Max)
	}
	if c.Vacuum.GracePeriod < 0 {
		return atlaserrors.Config("vacuum.grace_period must be non-negative")
	}
	if c.Tokenizer.SafeLimit <= 0 || c.Tokenizer.SafeLimit >= c.Tokenizer.ContextWindow {
		return atlaserrors.Config("tokenizer.safe_limit must be positive and strictly below tokenizer.context_window: safe_limit=%d context_window=%d", c.Tokenizer.SafeLimit, c.Tokenizer.ContextWindow)
	}
	return nil
}

// ParseSpecifier splits a "provider:model" backend specifier into its
// two parts, returning a ConfigError if the specifier is malformed.
func ParseSpecifier(spec string) (provider, model string, err error) {
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", atlaserrors.Config("invalid backend specifier %q, want provider:model", spec)
	}
	return parts[0], parts[1], nil
}

func getStringEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
