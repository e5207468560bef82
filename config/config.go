package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all settings for HERMES. The recognized option set is
// closed: unknown keys in the config file are rejected.
type Config struct {
	ArtifactsDir string `yaml:"artifacts_dir"`
	LogLevel     string `yaml:"log_level"`
	LogJSON      bool   `yaml:"log_json"`

	Chunk  ChunkConfig  `yaml:"chunk"`
	Embed  EmbedConfig  `yaml:"embed"`
	Index  IndexConfig  `yaml:"index"`
	Search SearchConfig `yaml:"search"`
	Server ServerConfig `yaml:"server"`
}

// ChunkConfig controls how source files are split into chunks.
type ChunkConfig struct {
	MaxChars     int `yaml:"max_chars"`
	OverlapLines int `yaml:"overlap_lines"`
	MinChars     int `yaml:"min_chars"`
}

// EmbedConfig holds bi-encoder and cross-encoder settings.
type EmbedConfig struct {
	Provider              string `yaml:"provider"` // "openai" or "local"
	BaseURL               string `yaml:"base_url"`
	APIKeyEnv             string `yaml:"api_key_env"`
	BiencoderModel        string `yaml:"biencoder_model"`
	BiencoderBatchSize    int    `yaml:"biencoder_batch_size"`
	BiencoderMaxLength    int    `yaml:"biencoder_max_length"`
	BiencoderDimension    int    `yaml:"biencoder_dimension"`
	CrossencoderModel     string `yaml:"crossencoder_model"`
	CrossencoderBatchSize int    `yaml:"crossencoder_batch_size"`
	CrossencoderMaxLength int    `yaml:"crossencoder_max_length"`
	RerankURL             string `yaml:"rerank_url"`
	QueryCacheSize        int    `yaml:"query_cache_size"`
}

// IndexConfig holds dense index settings.
type IndexConfig struct {
	UseIVF   bool `yaml:"faiss_use_ivf"`
	NProbe   int  `yaml:"faiss_nprobe"`
	IVFNList int  `yaml:"faiss_ivf_nlist"`
}

// SearchConfig holds search pipeline defaults.
type SearchConfig struct {
	RetrievalMode        string  `yaml:"retrieval_mode"`
	TopKRetrieve         int     `yaml:"top_k_retrieve"`
	TopKRerank           int     `yaml:"top_k_rerank"`
	MaxRerankCandidates  int     `yaml:"max_rerank_candidates"`
	RerankTimeoutSeconds float64 `yaml:"rerank_timeout_seconds"`
	RRFK                 int     `yaml:"rrf_k"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		ArtifactsDir: "artifacts",
		LogLevel:     "INFO",
		LogJSON:      false,
		Chunk: ChunkConfig{
			MaxChars:     1500,
			OverlapLines: 3,
			MinChars:     50,
		},
		Embed: EmbedConfig{
			Provider:              "local",
			APIKeyEnv:             "OPENAI_API_KEY",
			BiencoderModel:        "all-MiniLM-L6-v2",
			BiencoderBatchSize:    64,
			BiencoderMaxLength:    512,
			BiencoderDimension:    384,
			CrossencoderModel:     "cross-encoder/ms-marco-MiniLM-L-6-v2",
			CrossencoderBatchSize: 16,
			CrossencoderMaxLength: 512,
			QueryCacheSize:        1024,
		},
		Index: IndexConfig{
			UseIVF:   false,
			NProbe:   8,
			IVFNList: 100,
		},
		Search: SearchConfig{
			RetrievalMode:        "hybrid",
			TopKRetrieve:         100,
			TopKRerank:           10,
			MaxRerankCandidates:  50,
			RerankTimeoutSeconds: 10.0,
			RRFK:                 60,
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
	}
}

// Load reads configuration from a YAML file merged over defaults, then
// applies HERMES_* environment overrides. Unknown keys are an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, cfg.Validate()
		}
		return nil, err
	}

	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, cfg.Validate()
}

// LoadFromDir looks for hermes.yaml in dir, falling back to defaults.
func LoadFromDir(dir string) (*Config, error) {
	return Load(filepath.Join(dir, "hermes.yaml"))
}

func (c *Config) applyEnv() {
	if v := os.Getenv("HERMES_ARTIFACTS_DIR"); v != "" {
		c.ArtifactsDir = v
	}
	if v := os.Getenv("HERMES_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("HERMES_LOG_JSON"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.LogJSON = b
		}
	}
	if v := os.Getenv("HERMES_EMBED_PROVIDER"); v != "" {
		c.Embed.Provider = v
	}
	if v := os.Getenv("HERMES_SEARCH_RETRIEVAL_MODE"); v != "" {
		c.Search.RetrievalMode = v
	}
}

// Validate checks option values that have a closed domain.
func (c *Config) Validate() error {
	switch c.Search.RetrievalMode {
	case "dense", "sparse", "hybrid":
	default:
		return fmt.Errorf("invalid retrieval_mode %q", c.Search.RetrievalMode)
	}
	if c.Search.TopKRetrieve < 1 || c.Search.TopKRetrieve > 1000 {
		return fmt.Errorf("top_k_retrieve out of range: %d", c.Search.TopKRetrieve)
	}
	if c.Search.TopKRerank < 1 || c.Search.TopKRerank > 200 {
		return fmt.Errorf("top_k_rerank out of range: %d", c.Search.TopKRerank)
	}
	if c.Embed.QueryCacheSize < 1 {
		return fmt.Errorf("query_cache_size must be positive")
	}
	if c.Chunk.MaxChars <= c.Chunk.MinChars {
		return fmt.Errorf("chunk max_chars must exceed min_chars")
	}
	return nil
}
