package llm

import (
	"context"
	"fmt"

	"github.com/sandevgo/parley/internal/config"
	"github.com/sandevgo/parley/internal/core"
	"github.com/sandevgo/parley/pkg/log"
)

// NewChatProvider creates the chat backend selected by LLM_PROVIDER.
func NewChatProvider(ctx context.Context, cfg *config.LLMConfig) (core.ChatProvider, error) {
	log.FromCtx(ctx).Info().
		Str("provider", cfg.Provider).
		Str("model", cfg.Model).
		Msg("starting llm provider")

	switch cfg.Provider {
	case "gemini":
		return NewGemini(ctx, cfg.GeminiAPIKey, cfg.Model, cfg.GetEmbeddingModel())
	case "anthropic":
		p := NewAnthropic(cfg.AnthropicAPIKey, cfg.Model)
		p.client.Timeout = cfg.Timeout
		return p, nil
	default:
		p, err := newOpenAIFamily(cfg.Provider, cfg, cfg.Model, cfg.GetEmbeddingModel())
		if err != nil {
			return nil, err
		}
		p.client.Timeout = cfg.Timeout
		return p, nil
	}
}

// NewEmbedder creates the embedding backend. Provider "none" disables memory lookups.
func NewEmbedder(ctx context.Context, cfg *config.LLMConfig) (core.Embedder, error) {
	provider := cfg.GetEmbeddingProvider()

	log.FromCtx(ctx).Info().
		Str("provider", provider).
		Str("model", cfg.GetEmbeddingModel()).
		Msg("starting embedding provider")

	switch provider {
	case "none":
		return nil, nil
	case "gemini":
		return NewGemini(ctx, cfg.GeminiAPIKey, cfg.Model, cfg.GetEmbeddingModel())
	default:
		p, err := newOpenAIFamily(provider, cfg, "", cfg.GetEmbeddingModel())
		if err != nil {
			return nil, err
		}
		p.client.Timeout = cfg.Timeout
		return p, nil
	}
}

func newOpenAIFamily(provider string, cfg *config.LLMConfig, model, embeddingModel string) (*OpenAICompatible, error) {
	switch provider {
	case "openai":
		return NewOpenAI(cfg.OpenAIAPIKey, model, embeddingModel).OpenAICompatible, nil
	case "openrouter":
		return NewOpenRouter(cfg.OpenRouterAPIKey, model, embeddingModel).OpenAICompatible, nil
	case "ollama":
		return NewOllama(cfg.OllamaBaseURL, cfg.OllamaAPIKey, model, embeddingModel).OpenAICompatible, nil
	case "custom":
		if cfg.CustomOpenAIBaseURL == "" {
			return nil, fmt.Errorf("custom provider requires CUSTOM_OPENAI_BASE_URL")
		}
		return NewCustomOpenAI(cfg.CustomOpenAIBaseURL, cfg.CustomOpenAIAPIKey, model, embeddingModel).OpenAICompatible, nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
}
