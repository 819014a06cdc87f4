package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestApplyEnv(t *testing.T) {
	t.Run("Should map the service environment onto the config", func(t *testing.T) {
		cfg := Default()
		ApplyEnv(cfg, envMap(map[string]string{
			"CHROMA_HOST":     "http://chroma:8000",
			"COLLECTION_NAME": "reports_v2",
			"GOOGLE_API_KEY":  "g-key",
			"SEARCH_MODE":     " Google ",
			"SERPAPI_API_KEY": "serp-key",
			"FRONTEND_URL":    "https://ask.childsafe.org.za",
			"PORT":            "9090",
		}))

		assert.Equal(t, "http://chroma:8000", cfg.VectorDB.Host)
		assert.Equal(t, "reports_v2", cfg.VectorDB.Collection)
		assert.Equal(t, "g-key", cfg.LLM.APIKey)
		assert.Equal(t, "g-key", cfg.Embedding.APIKey)
		assert.Equal(t, "google", cfg.Search.Mode)
		assert.Equal(t, "serp-key", cfg.Search.SerpAPIKey)
		assert.Empty(t, cfg.Search.TavilyAPIKey)
		assert.Equal(t, "https://ask.childsafe.org.za", cfg.Server.FrontendURL)
		assert.Equal(t, 9090, cfg.Server.Port)
	})

	t.Run("Should read the provider specific credential", func(t *testing.T) {
		cfg := Default()
		ApplyEnv(cfg, envMap(map[string]string{
			"LLM_PROVIDER":   "openai",
			"LLM_MODEL":      "gpt-4o-mini",
			"OPENAI_API_KEY": "o-key",
			"GOOGLE_API_KEY": "g-key",
		}))

		assert.Equal(t, "o-key", cfg.LLM.APIKey)
		assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
		assert.Equal(t, "g-key", cfg.Embedding.APIKey)
	})

	t.Run("Should ignore blank and malformed values", func(t *testing.T) {
		cfg := Default()
		ApplyEnv(cfg, envMap(map[string]string{
			"CHROMA_HOST": "   ",
			"PORT":        "eighty",
			"SEARCH_MODE": "",
		}))

		assert.Equal(t, "http://localhost:8000", cfg.VectorDB.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "tavily", cfg.Search.Mode)
	})
}

func TestResolveModels(t *testing.T) {
	tests := []struct {
		name      string
		env       map[string]string
		llm       string
		embedding string
		dims      int
	}{
		{name: "gemini defaults", env: map[string]string{}, llm: "gemini-2.5-flash", embedding: "gemini-embedding-001", dims: 768},
		{
			name:      "providers switched through the environment",
			env:       map[string]string{"LLM_PROVIDER": "anthropic", "EMBEDDING_PROVIDER": "openai"},
			llm:       "claude-sonnet-4-5",
			embedding: "text-embedding-3-small",
		},
		{
			name:      "explicit model wins",
			env:       map[string]string{"LLM_PROVIDER": "openai", "LLM_MODEL": "gpt-4.1"},
			llm:       "gpt-4.1",
			embedding: "gemini-embedding-001",
			dims:      768,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			ApplyEnv(cfg, envMap(tt.env))
			cfg.ResolveModels()
			assert.Equal(t, tt.llm, cfg.LLM.Model)
			assert.Equal(t, tt.embedding, cfg.Embedding.Model)
			assert.Equal(t, tt.dims, cfg.Embedding.Dimensions)
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.LLM.APIKey = "key"
		cfg.ResolveModels()
		return cfg
	}

	t.Run("Should accept the defaults once a model key is present", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("Should not require search credentials", func(t *testing.T) {
		cfg := valid()
		cfg.Search.Mode = "google"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("Should aggregate every problem", func(t *testing.T) {
		cfg := Default()
		cfg.LLM.Provider = "cohere"
		cfg.VectorDB.Collection = ""
		cfg.RAG.TopK = 0
		cfg.RAG.Splitter.ChunkOverlap = 900

		err := cfg.Validate()
		require.Error(t, err)

		var verrs ValidationErrors
		require.True(t, errors.As(err, &verrs))
		fields := make([]string, 0, len(verrs))
		for _, e := range verrs {
			fields = append(fields, e.Field)
		}
		assert.Contains(t, fields, "llm.provider")
		assert.Contains(t, fields, "llm.api_key")
		assert.Contains(t, fields, "vectordb.collection")
		assert.Contains(t, fields, "rag.top_k")
		assert.Contains(t, fields, "rag.splitter.chunk_overlap")
		assert.Contains(t, err.Error(), "configuration error(s)")
	})

	t.Run("Should reject an unknown router", func(t *testing.T) {
		cfg := valid()
		cfg.Router.Provider = "http"
		assert.Error(t, cfg.Validate())
	})
}

func TestLoad(t *testing.T) {
	t.Run("Should layer the environment over the YAML file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "childsafe.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
vectordb:
  provider: qdrant
  host: qdrant.internal
  port: 6334
  collection: from_file
search:
  max_results: 3
`), 0o600))

		t.Setenv("GOOGLE_API_KEY", "g-key")
		t.Setenv("COLLECTION_NAME", "from_env")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "qdrant", cfg.VectorDB.Provider)
		assert.Equal(t, "qdrant.internal", cfg.VectorDB.Host)
		assert.Equal(t, "from_env", cfg.VectorDB.Collection)
		assert.Equal(t, 3, cfg.Search.MaxResults)
		assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
	})

	t.Run("Should read without validating", func(t *testing.T) {
		t.Setenv("LLM_PROVIDER", "gemini")
		t.Setenv("GOOGLE_API_KEY", "")
		t.Setenv("COLLECTION_NAME", "read_only")

		cfg, err := Read("")
		require.NoError(t, err)
		assert.Equal(t, "read_only", cfg.VectorDB.Collection)
		assert.Empty(t, cfg.LLM.APIKey)

		_, err = Load("")
		assert.Error(t, err)
	})

	t.Run("Should fail on a missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}
