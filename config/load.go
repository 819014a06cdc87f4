package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load builds the configuration from defaults, an optional YAML file, an
// optional .env file in the working directory and the process environment,
// in that order of precedence, and validates the result.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is Load without validation, for commands that need only part of the
// configuration.
func Read(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	ApplyEnv(cfg, os.LookupEnv)
	cfg.ResolveModels()
	return cfg, nil
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overlays the recognised environment variables onto cfg.
func ApplyEnv(cfg *Config, lookup LookupFunc) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
			}
		}
	}

	str("CHROMA_HOST", &cfg.VectorDB.Host)
	str("COLLECTION_NAME", &cfg.VectorDB.Collection)
	str("VECTORDB_PROVIDER", &cfg.VectorDB.Provider)
	str("FRONTEND_URL", &cfg.Server.FrontendURL)
	num("PORT", &cfg.Server.Port)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)

	str("LLM_PROVIDER", &cfg.LLM.Provider)
	str("LLM_MODEL", &cfg.LLM.Model)
	str("LLM_BASE_URL", &cfg.LLM.BaseURL)
	str("EMBEDDING_PROVIDER", &cfg.Embedding.Provider)
	str("EMBEDDING_MODEL", &cfg.Embedding.Model)

	if mode, ok := lookup("SEARCH_MODE"); ok && strings.TrimSpace(mode) != "" {
		cfg.Search.Mode = strings.ToLower(strings.TrimSpace(mode))
	}
	str("TAVILY_API_KEY", &cfg.Search.TavilyAPIKey)
	str("SERPAPI_API_KEY", &cfg.Search.SerpAPIKey)
	str("TAVILY_ENDPOINT", &cfg.Search.TavilyEndpoint)
	str("SERPAPI_ENDPOINT", &cfg.Search.SerpAPIEndpoint)

	str(apiKeyEnv(cfg.LLM.Provider), &cfg.LLM.APIKey)
	str(apiKeyEnv(cfg.Embedding.Provider), &cfg.Embedding.APIKey)
	if cfg.Embedding.APIKey == "" && strings.EqualFold(cfg.Embedding.Provider, cfg.LLM.Provider) {
		cfg.Embedding.APIKey = cfg.LLM.APIKey
	}
}

// apiKeyEnv names the credential variable read for a model provider.
func apiKeyEnv(provider string) string {
	switch strings.ToLower(provider) {
	case "openai":
		return "OPENAI_API_KEY"
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	default:
		return "GOOGLE_API_KEY"
	}
}
