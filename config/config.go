package config

import "strings"

// Config is the process-wide configuration. It is loaded once at startup by
// Load and handed to constructors; nothing mutates it afterwards.
type Config struct {
	Server    ServerConfig     `json:"server" yaml:"server"`
	RAG       RAGConfig        `json:"rag" yaml:"rag"`
	LLM       LLMConfig        `json:"llm" yaml:"llm"`
	Embedding EmbeddingConfig  `json:"embedding" yaml:"embedding"`
	VectorDB  VectorDBConfig   `json:"vectordb" yaml:"vectordb"`
	Search    SearchConfig     `json:"search" yaml:"search"`
	Router    RouterConfig     `json:"router" yaml:"router"`
	HTTP      HTTPClientConfig `json:"http" yaml:"http"`
	Cache     CacheConfig      `json:"cache" yaml:"cache"`
	Log       LogConfig        `json:"log" yaml:"log"`
	Ingest    IngestConfig     `json:"ingest" yaml:"ingest"`
}

// ServerConfig controls the REST transport.
type ServerConfig struct {
	Host string `json:"host,omitempty" yaml:"host,omitempty"`
	Port int    `json:"port,omitempty" yaml:"port,omitempty"`
	// FrontendURL is the single allowed CORS origin. When empty the
	// development origins are allowed.
	FrontendURL string `json:"frontend_url,omitempty" yaml:"frontend_url,omitempty"`
	// RateLimitPerMinute caps POST /query per client IP; 0 disables it.
	RateLimitPerMinute int `json:"rate_limit_per_minute,omitempty" yaml:"rate_limit_per_minute,omitempty"`
}

// RAGConfig contains retrieval and context assembly settings.
type RAGConfig struct {
	TopK             int            `json:"top_k,omitempty" yaml:"top_k,omitempty"`
	MaxTopK          int            `json:"max_top_k,omitempty" yaml:"max_top_k,omitempty"`
	MaxContextTokens int            `json:"max_context_tokens,omitempty" yaml:"max_context_tokens,omitempty"`
	TokenEncoding    string         `json:"token_encoding,omitempty" yaml:"token_encoding,omitempty"`
	Splitter         SplitterConfig `json:"splitter" yaml:"splitter"`
}

// SplitterConfig defines how report pages are chunked at ingestion time.
type SplitterConfig struct {
	ChunkSize    int `json:"chunk_size,omitempty" yaml:"chunk_size,omitempty"`
	ChunkOverlap int `json:"chunk_overlap,omitempty" yaml:"chunk_overlap,omitempty"`
}

// LLMConfig defines configuration for the language model.
type LLMConfig struct {
	Provider    string  `json:"provider" yaml:"provider"` // Available options: gemini, openai, anthropic
	APIKey      string  `json:"api_key,omitempty" yaml:"api_key"`
	BaseURL     string  `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model       string  `json:"model" yaml:"model"`
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

// EmbeddingConfig defines configuration for embedding models
type EmbeddingConfig struct {
	Provider   string `json:"provider" yaml:"provider"` // Available options: gemini, openai
	APIKey     string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL    string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model      string `json:"model,omitempty" yaml:"model,omitempty"`
	Dimensions int    `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
}

// VectorDBConfig defines configuration for vector databases
type VectorDBConfig struct {
	Provider string `json:"provider" yaml:"provider"` // Available options: chroma, milvus, qdrant
	// Host is a base URL for chroma and a hostname (or host:port) for milvus and qdrant.
	Host       string        `json:"host,omitempty" yaml:"host,omitempty"`
	Port       int           `json:"port,omitempty" yaml:"port,omitempty"`
	Tenant     string        `json:"tenant,omitempty" yaml:"tenant,omitempty"`
	Database   string        `json:"database,omitempty" yaml:"database,omitempty"`
	Collection string        `json:"collection,omitempty" yaml:"collection,omitempty"`
	Username   string        `json:"username,omitempty" yaml:"username,omitempty"`
	Password   string        `json:"password,omitempty" yaml:"password,omitempty"`
	Mapping    MappingConfig `json:"mapping,omitempty" yaml:"mapping,omitempty"`
}

// MappingConfig names the stored fields for schema-based stores (milvus, qdrant).
type MappingConfig struct {
	IDField      string `json:"id_field,omitempty" yaml:"id_field,omitempty"`
	ContentField string `json:"content_field,omitempty" yaml:"content_field,omitempty"`
	VectorField  string `json:"vector_field,omitempty" yaml:"vector_field,omitempty"`

	// MetadataField holds the chunk provenance as a JSON object.
	MetadataField string `json:"metadata_field,omitempty" yaml:"metadata_field,omitempty"`
	// MetricType is the milvus metric, e.g. L2, IP, COSINE.
	MetricType string `json:"metric_type,omitempty" yaml:"metric_type,omitempty"`
}

// SearchConfig selects and configures the web search backend.
type SearchConfig struct {
	Mode            string   `json:"mode" yaml:"mode"` // tavily or google
	TavilyAPIKey    string   `json:"tavily_api_key,omitempty" yaml:"tavily_api_key,omitempty"`
	SerpAPIKey      string   `json:"serpapi_api_key,omitempty" yaml:"serpapi_api_key,omitempty"`
	TavilyEndpoint  string   `json:"tavily_endpoint,omitempty" yaml:"tavily_endpoint,omitempty"`
	SerpAPIEndpoint string   `json:"serpapi_endpoint,omitempty" yaml:"serpapi_endpoint,omitempty"`
	MaxResults      int      `json:"max_results,omitempty" yaml:"max_results,omitempty"`
	AugmentQuery    bool     `json:"augment_query" yaml:"augment_query"`
	DomainContext   string   `json:"domain_context,omitempty" yaml:"domain_context,omitempty"`
	Keywords        []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"` // console or json
}

// IngestConfig controls the report download and indexing commands.
type IngestConfig struct {
	DataDir       string `json:"data_dir,omitempty" yaml:"data_dir,omitempty"`
	MinChunkChars int    `json:"min_chunk_chars,omitempty" yaml:"min_chunk_chars,omitempty"`
}

// Default returns the built-in configuration. Values mirror the
// environment defaults of the service.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               8080,
			RateLimitPerMinute: 60,
		},
		RAG: RAGConfig{
			TopK:             5,
			MaxTopK:          50,
			MaxContextTokens: 8000,
			TokenEncoding:    "cl100k_base",
			Splitter: SplitterConfig{
				ChunkSize:    800,
				ChunkOverlap: 50,
			},
		},
		LLM: LLMConfig{
			Provider:    "gemini",
			Temperature: 0.2,
			MaxTokens:   2048,
		},
		Embedding: EmbeddingConfig{
			Provider: "gemini",
		},
		VectorDB: VectorDBConfig{
			Provider:   "chroma",
			Host:       "http://localhost:8000",
			Tenant:     "default_tenant",
			Database:   "default_database",
			Collection: "childsafe_reports",
			Mapping: MappingConfig{
				IDField:       "id",
				ContentField:  "content",
				VectorField:   "vector",
				MetadataField: "metadata",
				MetricType:    "COSINE",
			},
		},
		Search: SearchConfig{
			Mode:          "tavily",
			MaxResults:    5,
			AugmentQuery:  true,
			DomainContext: "ChildSafe South Africa",
			Keywords:      []string{"childsafe", "child safe south africa"},
		},
		Router: RouterConfig{
			Provider: "llm",
		},
		HTTP: HTTPClientConfig{
			TimeoutMs:              30000,
			Retry:                  0,
			BackoffMinMs:           100,
			BackoffMaxMs:           800,
			MaxConsecutiveFailures: 5,
			CircuitOpenSeconds:     5,
		},
		Cache: CacheConfig{
			Enable:     false,
			Capacity:   512,
			TTLSeconds: 600,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Ingest: IngestConfig{
			DataDir:       "data",
			MinChunkChars: 50,
		},
	}
}

// DefaultLLMModel is the chat model used when none is configured.
func DefaultLLMModel(provider string) string {
	switch strings.ToLower(provider) {
	case "openai":
		return "gpt-4o-mini"
	case "anthropic":
		return "claude-sonnet-4-5"
	case "gemini", "":
		return "gemini-2.5-flash"
	}
	return ""
}

// DefaultEmbeddingModel is the embedding model used when none is configured.
func DefaultEmbeddingModel(provider string) string {
	switch strings.ToLower(provider) {
	case "openai":
		return "text-embedding-3-small"
	case "gemini", "":
		return "gemini-embedding-001"
	}
	return ""
}

// ResolveModels fills unset model names and dimensions from the selected
// providers once every configuration source has been applied.
func (c *Config) ResolveModels() {
	if c.LLM.Model == "" {
		c.LLM.Model = DefaultLLMModel(c.LLM.Provider)
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = DefaultEmbeddingModel(c.Embedding.Provider)
	}
	if p := strings.ToLower(c.Embedding.Provider); c.Embedding.Dimensions == 0 && (p == "gemini" || p == "") {
		c.Embedding.Dimensions = 768
	}
}
