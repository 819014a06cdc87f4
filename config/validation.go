package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation error [%s]: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	if len(errs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("found %d configuration error(s):\n", len(errs)))
	for i, err := range errs {
		b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Message))
	}
	return b.String()
}

// Validate validates the complete configuration.
// Search credentials are deliberately not checked here: a missing key for
// the selected search mode is reported per query.
func (c *Config) Validate() error {
	var errs ValidationErrors

	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateLLM()...)
	errs = append(errs, c.validateEmbedding()...)
	errs = append(errs, c.validateVectorDB()...)
	errs = append(errs, c.validateRAG()...)
	errs = append(errs, c.validateRouter()...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (c *Config) validateServer() ValidationErrors {
	var errs ValidationErrors
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("server.port must be in [1, 65535], got %d", c.Server.Port),
		})
	}
	if c.Server.RateLimitPerMinute < 0 {
		errs = append(errs, ValidationError{
			Field:   "server.rate_limit_per_minute",
			Message: fmt.Sprintf("server.rate_limit_per_minute must be non-negative, got %d", c.Server.RateLimitPerMinute),
		})
	}
	return errs
}

// validateLLM validates language model configuration
func (c *Config) validateLLM() ValidationErrors {
	var errs ValidationErrors

	switch strings.ToLower(c.LLM.Provider) {
	case "gemini", "openai", "anthropic":
	case "":
		errs = append(errs, ValidationError{
			Field:   "llm.provider",
			Message: "llm provider is required",
		})
	default:
		errs = append(errs, ValidationError{
			Field:   "llm.provider",
			Message: fmt.Sprintf("unsupported llm provider %q (want gemini, openai or anthropic)", c.LLM.Provider),
		})
	}

	if c.LLM.APIKey == "" {
		errs = append(errs, ValidationError{
			Field:   "llm.api_key",
			Message: fmt.Sprintf("llm api key is required for %s provider (GOOGLE_API_KEY for gemini)", c.LLM.Provider),
		})
	}

	if c.LLM.Model == "" {
		errs = append(errs, ValidationError{
			Field:   "llm.model",
			Message: "llm model is required",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "llm.temperature",
			Message: fmt.Sprintf("llm.temperature must be in [0, 2], got %.2f", c.LLM.Temperature),
		})
	}

	return errs
}

// validateEmbedding validates embedding configuration
func (c *Config) validateEmbedding() ValidationErrors {
	var errs ValidationErrors

	switch strings.ToLower(c.Embedding.Provider) {
	case "gemini", "openai":
	case "":
		errs = append(errs, ValidationError{
			Field:   "embedding.provider",
			Message: "embedding provider is required",
		})
	default:
		errs = append(errs, ValidationError{
			Field:   "embedding.provider",
			Message: fmt.Sprintf("unsupported embedding provider %q (want gemini or openai)", c.Embedding.Provider),
		})
	}

	if c.Embedding.Model == "" {
		errs = append(errs, ValidationError{
			Field:   "embedding.model",
			Message: "embedding model is required",
		})
	}

	// Validate dimensions are reasonable (typical range: 128-4096)
	if c.Embedding.Dimensions != 0 && (c.Embedding.Dimensions < 128 || c.Embedding.Dimensions > 4096) {
		errs = append(errs, ValidationError{
			Field:   "embedding.dimensions",
			Message: fmt.Sprintf("embedding dimensions %d is outside typical range [128, 4096]", c.Embedding.Dimensions),
		})
	}

	return errs
}

// validateVectorDB validates vector database configuration
func (c *Config) validateVectorDB() ValidationErrors {
	var errs ValidationErrors

	switch strings.ToLower(c.VectorDB.Provider) {
	case "chroma", "milvus", "qdrant":
		if c.VectorDB.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "vectordb.host",
				Message: fmt.Sprintf("vectordb host is required for %s provider", c.VectorDB.Provider),
			})
		}
		if c.VectorDB.Collection == "" {
			errs = append(errs, ValidationError{
				Field:   "vectordb.collection",
				Message: fmt.Sprintf("collection name is required for %s provider", c.VectorDB.Provider),
			})
		}
	case "":
		errs = append(errs, ValidationError{
			Field:   "vectordb.provider",
			Message: "vectordb provider is required",
		})
	default:
		errs = append(errs, ValidationError{
			Field:   "vectordb.provider",
			Message: fmt.Sprintf("unsupported vectordb provider %q (want chroma, milvus or qdrant)", c.VectorDB.Provider),
		})
	}

	return errs
}

// validateRAG validates RAG configuration
func (c *Config) validateRAG() ValidationErrors {
	var errs ValidationErrors

	if c.RAG.TopK <= 0 {
		errs = append(errs, ValidationError{
			Field:   "rag.top_k",
			Message: fmt.Sprintf("rag.top_k must be positive, got %d", c.RAG.TopK),
		})
	}

	if c.RAG.MaxTopK < c.RAG.TopK {
		errs = append(errs, ValidationError{
			Field:   "rag.max_top_k",
			Message: fmt.Sprintf("rag.max_top_k (%d) must be at least rag.top_k (%d)", c.RAG.MaxTopK, c.RAG.TopK),
		})
	}

	if c.RAG.MaxContextTokens < 0 {
		errs = append(errs, ValidationError{
			Field:   "rag.max_context_tokens",
			Message: fmt.Sprintf("rag.max_context_tokens must be non-negative, got %d", c.RAG.MaxContextTokens),
		})
	}

	if c.RAG.Splitter.ChunkSize <= 0 {
		errs = append(errs, ValidationError{
			Field:   "rag.splitter.chunk_size",
			Message: fmt.Sprintf("rag.splitter.chunk_size must be positive, got %d", c.RAG.Splitter.ChunkSize),
		})
	} else if c.RAG.Splitter.ChunkOverlap < 0 || c.RAG.Splitter.ChunkOverlap >= c.RAG.Splitter.ChunkSize {
		errs = append(errs, ValidationError{
			Field:   "rag.splitter.chunk_overlap",
			Message: fmt.Sprintf("rag.splitter.chunk_overlap must be in [0, %d), got %d", c.RAG.Splitter.ChunkSize, c.RAG.Splitter.ChunkOverlap),
		})
	}

	return errs
}

func (c *Config) validateRouter() ValidationErrors {
	switch strings.ToLower(c.Router.Provider) {
	case "", "llm", "rule":
		return nil
	}
	return ValidationErrors{{
		Field:   "router.provider",
		Message: fmt.Sprintf("unsupported router provider %q (want llm or rule)", c.Router.Provider),
	}}
}
