package embedding

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/childsafe-za/childsafe-rag/config"
)

type GeminiEmbedding struct {
	client     *genai.Client
	model      string
	dimensions int32
}

func NewGeminiEmbedding(ctx context.Context, cfg config.EmbeddingConfig) (*GeminiEmbedding, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini embedding requires an api key (GOOGLE_API_KEY)")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = config.DefaultEmbeddingModel(ProviderGemini)
	}
	return &GeminiEmbedding{client: client, model: model, dimensions: int32(cfg.Dimensions)}, nil
}

func (g *GeminiEmbedding) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	vecs, err := g.GetEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (g *GeminiEmbedding) GetEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
	}
	var cfg *genai.EmbedContentConfig
	if g.dimensions > 0 {
		dim := g.dimensions
		cfg = &genai.EmbedContentConfig{OutputDimensionality: &dim}
	}
	result, err := g.client.Models.EmbedContent(ctx, g.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini embed content (model: %s): %w", g.model, err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini returned %d embeddings for %d inputs", len(result.Embeddings), len(texts))
	}
	out := make([][]float32, len(result.Embeddings))
	for i, e := range result.Embeddings {
		out[i] = e.Values
	}
	return out, nil
}

func (g *GeminiEmbedding) GetProviderType() string { return ProviderGemini }
