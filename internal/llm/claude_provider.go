package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/LyceumX/equant/internal/config"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

// ClaudeProvider generates completions through the Anthropic Messages API
type ClaudeProvider struct {
	client anthropic.Client
	model  string
	logger *zap.Logger
}

// NewClaudeProvider creates a Claude-backed provider
func NewClaudeProvider(cfg config.ClaudeConfig, logger *zap.Logger) *ClaudeProvider {
	return &ClaudeProvider{
		client: anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:  cfg.Model,
		logger: logger,
	}
}

// Name returns the provider name
func (p *ClaudeProvider) Name() string { return ProviderClaude }

// Complete sends the prompt to the Messages API and returns the generated
// text blocks concatenated
func (p *ClaudeProvider) Complete(ctx context.Context, prompt Prompt) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 300,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt.User)),
		},
		Temperature: anthropic.Float(0.4),
	}
	if prompt.System != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: prompt.System},
		}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("Claude API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	if text.Len() == 0 {
		return "", fmt.Errorf("Claude API returned no completion text")
	}

	return strings.TrimSpace(text.String()), nil
}
