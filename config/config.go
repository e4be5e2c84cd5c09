package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for omsearch.
type Config struct {
	Catalog   CatalogConfig   `yaml:"catalog"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Rerank    RerankConfig    `yaml:"rerank"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// CatalogConfig locates the knowledge base.
type CatalogConfig struct {
	Path          string `yaml:"path"`
	FilterNonMath bool   `yaml:"filter_non_math"`
}

// RetrieveConfig holds hybrid retrieval parameters.
type RetrieveConfig struct {
	TopK        int     `yaml:"top_k"`
	RRFK        int     `yaml:"rrf_k"`
	BM25Weight  float64 `yaml:"bm25_weight"`
	DenseWeight float64 `yaml:"dense_weight"`
	K1          float64 `yaml:"k1"`
	B           float64 `yaml:"b"`
	MinScore    float64 `yaml:"min_score"`
	ExpandQuery bool    `yaml:"expand_query"`
	Dedup       bool    `yaml:"dedup"`

	// RequireMapping keeps only symbols that carry a CAS mapping.
	RequireMapping bool `yaml:"require_mapping"`
}

// EmbeddingConfig holds embedding service configuration.
type EmbeddingConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	RateDelayMS    int    `yaml:"rate_delay_ms"`
}

// RerankConfig holds reranking filter configuration. Threshold defaults
// differ per backend: score-server models discriminate around 0.15 while
// chat-LLM scoring clusters near the top of its range.
type RerankConfig struct {
	Backend        string  `yaml:"backend"` // "score" or "chat"
	BaseURL        string  `yaml:"base_url"`
	Model          string  `yaml:"model"`
	Threshold      float64 `yaml:"threshold"`
	MinKeep        int     `yaml:"min_keep"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	RateDelayMS    int     `yaml:"rate_delay_ms"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SlogLevel parses the configured level, defaulting to info.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			Path:          "data/openmath.json",
			FilterNonMath: true,
		},
		Retrieve: RetrieveConfig{
			TopK:        50,
			RRFK:        60,
			BM25Weight:  0.5,
			DenseWeight: 0.5,
			K1:          1.2,
			B:           0.75,
			ExpandQuery: true,
			Dedup:       true,
		},
		Embedding: EmbeddingConfig{
			BaseURL:        "http://localhost:11434",
			Model:          "qwen3-embedding:4b",
			TimeoutSeconds: 60,
			RateDelayMS:    20,
		},
		Rerank: RerankConfig{
			Backend:        "score",
			BaseURL:        "http://localhost:9001",
			Model:          "Qwen/Qwen3-Reranker-0.6B",
			Threshold:      0.15,
			MinKeep:        3,
			TimeoutSeconds: 60,
			RateDelayMS:    20,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file, layered over defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.applyBackendDefaults(data)

	return cfg, nil
}

// chatDefaultThreshold is the rerank threshold used for the chat backend
// when the config file selects it without setting one. Chat-LLM scores
// cluster near the top of their range, unlike cross-encoder scores.
const chatDefaultThreshold = 0.7

func (c *Config) applyBackendDefaults(data []byte) {
	if c.Rerank.Backend != "chat" {
		return
	}
	var raw struct {
		Rerank map[string]any `yaml:"rerank"`
	}
	if yaml.Unmarshal(data, &raw) != nil {
		return
	}
	if _, set := raw.Rerank["threshold"]; !set {
		c.Rerank.Threshold = chatDefaultThreshold
	}
}

// LoadFromDir loads configuration from a directory (looks for
// omsearch.yaml, then .omsearch/config.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "omsearch.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".omsearch", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// EmbeddingCachePath returns the symbol-embedding cache file for a
// knowledge base and embedding model: one cache per catalogue + model
// combination, stored next to the knowledge base.
func EmbeddingCachePath(kbPath, model string) string {
	stem := strings.TrimSuffix(filepath.Base(kbPath), filepath.Ext(kbPath))
	name := fmt.Sprintf("%s-embeddings_%s.db", stem, safeModelName(model))
	return filepath.Join(filepath.Dir(kbPath), name)
}

// QueryCachePath returns the query-embedding cache file for a query corpus
// and embedding model.
func QueryCachePath(queriesPath, model string) string {
	stem := strings.TrimSuffix(filepath.Base(queriesPath), filepath.Ext(queriesPath))
	name := fmt.Sprintf("%s-embeddings_%s.db", stem, safeModelName(model))
	return filepath.Join(filepath.Dir(queriesPath), name)
}

// safeModelName makes a model identity usable in a file name.
func safeModelName(model string) string {
	model = strings.ReplaceAll(model, ":", "_")
	return strings.ReplaceAll(model, "/", "_")
}
