package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/childsafe-za/childsafe-rag/config"
)

// GeminiProvider calls the Gemini API through the genai SDK.
type GeminiProvider struct {
	client      *genai.Client
	model       string
	temperature float32
}

func NewGeminiProvider(ctx context.Context, cfg config.LLMConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini provider requires an api key (GOOGLE_API_KEY)")
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
		model = config.DefaultLLMModel(ProviderGemini)
	}
	return &GeminiProvider{client: client, model: model, temperature: float32(cfg.Temperature)}, nil
}

func (p *GeminiProvider) GenerateCompletion(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.Models.GenerateContent(ctx, p.model, []*genai.Content{
		{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{genai.NewPartFromText(prompt)},
		},
	}, &genai.GenerateContentConfig{
		Temperature: genai.Ptr(p.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate content (model: %s): %w", p.model, err)
	}
	return resp.Text(), nil
}

func (p *GeminiProvider) GetProviderType() string { return ProviderGemini }
