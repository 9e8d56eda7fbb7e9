// Package config parses corpusqa configuration once, at startup, into an
// immutable value that components receive explicitly. Settings come from an
// optional TOML file with environment variables taking precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"

	"github.com/parchment-labs/corpusqa/internal/chunker"
	"github.com/parchment-labs/corpusqa/internal/core/domain"
)

// Store driver names.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Defaults applied when neither file nor environment sets a value.
const (
	DefaultVectorDim      = 1536
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultLLMModel       = "gpt-4o"
	DefaultPort           = 4111
	DefaultIVFFlatLists   = 100
	DefaultRetrieveK      = 6
)

// Config holds every runtime setting. It is populated once by Load and
// never mutated afterwards.
type Config struct {
	// StoreDriver selects the vector store backend: postgres or sqlite.
	StoreDriver string `toml:"store_driver"`

	// DatabaseURL is the Postgres connection string (postgres driver only).
	DatabaseURL string `toml:"database_url"`

	// DataDir is where the sqlite backend keeps its database file.
	// Defaults to ~/.corpusqa/data.
	DataDir string `toml:"data_dir"`

	// VectorDim is the embedding dimension D. Every vector written to or
	// queried against the store must have exactly this length.
	VectorDim int `toml:"vector_dim"`

	// EmbeddingModel identifies the embedding model.
	EmbeddingModel string `toml:"embedding_model"`

	// LLMModel identifies the generative model.
	LLMModel string `toml:"llm_model"`

	// OpenAIAPIKey authenticates against the OpenAI-compatible API.
	OpenAIAPIKey string `toml:"-"`

	// OpenAIBaseURL overrides the API base URL for compatible servers.
	OpenAIBaseURL string `toml:"openai_base_url"`

	// Port is the HTTP listen port.
	Port int `toml:"port"`

	// ChunkTargetTokens is the chunk size in tokens.
	ChunkTargetTokens int `toml:"chunk_target_tokens"`

	// ChunkOverlapTokens is the overlap between consecutive chunks in tokens.
	// Must be smaller than ChunkTargetTokens.
	ChunkOverlapTokens int `toml:"chunk_overlap_tokens"`

	// IVFFlatLists is the candidate-list parameter for the pgvector
	// ivfflat index. A performance knob only, it never changes which
	// records exist.
	IVFFlatLists int `toml:"ivfflat_lists"`

	// RetrieveK is the default number of sources retrieved per query.
	RetrieveK int `toml:"retrieve_k"`

	// EmbedRPS throttles embedding requests during ingestion.
	// Zero disables throttling.
	EmbedRPS float64 `toml:"embed_rps"`
}

// Load builds the configuration from the optional TOML file at path (ignored
// when empty or absent) with environment overrides, then validates it.
func Load(path string) (*Config, error) {
	cfg := &Config{
		StoreDriver:        DriverPostgres,
		VectorDim:          DefaultVectorDim,
		EmbeddingModel:     DefaultEmbeddingModel,
		LLMModel:           DefaultLLMModel,
		Port:               DefaultPort,
		ChunkTargetTokens:  chunker.DefaultTargetTokens,
		ChunkOverlapTokens: chunker.DefaultOverlapTokens,
		IVFFlatLists:       DefaultIVFFlatLists,
		RetrieveK:          DefaultRetrieveK,
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// Missing file is fine, env and defaults apply.
		case err != nil:
			return nil, fmt.Errorf("read config file: %w", err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrInvalidConfig, path, err)
			}
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides cfg fields from environment variables.
func applyEnv(cfg *Config) error {
	setString(&cfg.StoreDriver, "STORE_DRIVER")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.DataDir, "DATA_DIR")
	setString(&cfg.EmbeddingModel, "EMBEDDING_MODEL")
	setString(&cfg.LLMModel, "LLM_MODEL")
	setString(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&cfg.OpenAIBaseURL, "OPENAI_BASE_URL")

	for _, v := range []struct {
		dst *int
		key string
	}{
		{&cfg.VectorDim, "VECTOR_DIM"},
		{&cfg.Port, "PORT"},
		{&cfg.ChunkTargetTokens, "CHUNK_TARGET_TOKENS"},
		{&cfg.ChunkOverlapTokens, "CHUNK_OVERLAP_TOKENS"},
		{&cfg.IVFFlatLists, "IVFFLAT_LISTS"},
		{&cfg.RetrieveK, "RETRIEVE_K"},
	} {
		if err := setInt(v.dst, v.key); err != nil {
			return err
		}
	}

	if raw := os.Getenv("EMBED_RPS"); raw != "" {
		rps, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("%w: EMBED_RPS=%q is not a number", domain.ErrInvalidConfig, raw)
		}
		cfg.EmbedRPS = rps
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not an integer", domain.ErrInvalidConfig, key, raw)
	}
	*dst = n
	return nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: DATABASE_URL is required for the postgres store", domain.ErrInvalidConfig)
		}
	case DriverSQLite:
		// DataDir defaults inside the sqlite adapter.
	default:
		return fmt.Errorf("%w: unknown store driver %q", domain.ErrInvalidConfig, c.StoreDriver)
	}

	if c.VectorDim <= 0 {
		return fmt.Errorf("%w: VECTOR_DIM must be positive, got %d", domain.ErrInvalidConfig, c.VectorDim)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: PORT %d is out of range", domain.ErrInvalidConfig, c.Port)
	}
	if c.RetrieveK <= 0 {
		return fmt.Errorf("%w: RETRIEVE_K must be positive, got %d", domain.ErrInvalidConfig, c.RetrieveK)
	}
	if c.IVFFlatLists <= 0 {
		return fmt.Errorf("%w: IVFFLAT_LISTS must be positive, got %d", domain.ErrInvalidConfig, c.IVFFlatLists)
	}
	if c.EmbedRPS < 0 {
		return fmt.Errorf("%w: EMBED_RPS must not be negative", domain.ErrInvalidConfig)
	}
	if err := chunker.Validate(c.ChunkTargetTokens, c.ChunkOverlapTokens); err != nil {
		return err
	}
	return nil
}
