package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/childsafe-za/childsafe-rag/config"
)

// Provider turns text into vectors. The same provider must be used for
// ingestion and querying so that both live in one vector space.
type Provider interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
	GetEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	GetProviderType() string
}

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// NewEmbeddingProvider builds the provider named by cfg.Provider.
func NewEmbeddingProvider(ctx context.Context, cfg config.EmbeddingConfig) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderGemini, "":
		return NewGeminiEmbedding(ctx, cfg)
	case ProviderOpenAI:
		return NewOpenAIEmbedding(cfg)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
