package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/LyceumX/equant/internal/config"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiProvider generates completions through the Google Gemini API
type GeminiProvider struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewGeminiProvider creates a Gemini-backed provider
func NewGeminiProvider(cfg config.GeminiConfig, logger *zap.Logger) (*GeminiProvider, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		model:  cfg.Model,
		logger: logger,
	}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string { return ProviderGemini }

// Complete sends the prompt to the Gemini API and returns the first
// candidate's text
func (p *GeminiProvider) Complete(ctx context.Context, prompt Prompt) (string, error) {
	genConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0.4)),
	}
	if prompt.System != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(prompt.System, genai.RoleUser)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(prompt.User, genai.RoleUser),
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, genConfig)
	if err != nil {
		return "", fmt.Errorf("Gemini API call failed: %w", err)
	}

	var text strings.Builder
	if resp != nil {
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					text.WriteString(part.Text)
				}
			}
			if text.Len() > 0 {
				break
			}
		}
	}

	if text.Len() == 0 {
		return "", fmt.Errorf("Gemini API returned no completion text")
	}

	return strings.TrimSpace(text.String()), nil
}
