// Package llm provides the narrative-generation providers. Each provider
// differs only in endpoint, credential, and model identifier; selection is
// a single routing table keyed by the configured provider name.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/LyceumX/equant/internal/config"

	"go.uber.org/zap"
)

// Supported provider names
const (
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
	ProviderClaude   = "claude"
	ProviderGemini   = "gemini"
)

// ErrNotConfigured is returned when no provider is selected or the selected
// provider is missing its credential. Callers fall back to the template
// summary in that case.
var ErrNotConfigured = errors.New("no LLM provider configured")

// Prompt is a provider-agnostic completion request
type Prompt struct {
	System string
	User   string
}

// Provider generates a text completion for a prompt. Implementations make a
// single bounded attempt; retry policy is graceful degradation, not repeats.
type Provider interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
	Name() string
}

// NewProvider builds the provider selected by configuration. Adding a
// provider means adding a case here and a variant type, not branching at
// call sites.
func NewProvider(cfg config.AIConfig, logger *zap.Logger) (Provider, error) {
	switch cfg.Provider {
	case "":
		return nil, ErrNotConfigured
	case ProviderOpenAI:
		if cfg.OpenAI.APIKey == "" {
			return nil, ErrNotConfigured
		}
		return NewOpenAIProvider(ProviderOpenAI, cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.Timeout, logger), nil
	case ProviderDeepSeek:
		// DeepSeek exposes an OpenAI-compatible endpoint
		if cfg.DeepSeek.APIKey == "" {
			return nil, ErrNotConfigured
		}
		return NewOpenAIProvider(ProviderDeepSeek, cfg.DeepSeek.BaseURL, cfg.DeepSeek.APIKey, cfg.DeepSeek.Model, cfg.Timeout, logger), nil
	case ProviderClaude:
		if cfg.Claude.APIKey == "" {
			return nil, ErrNotConfigured
		}
		return NewClaudeProvider(cfg.Claude, logger), nil
	case ProviderGemini:
		if cfg.Gemini.APIKey == "" {
			return nil, ErrNotConfigured
		}
		return NewGeminiProvider(cfg.Gemini, logger)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}
