package config

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/parley/pkg/log"
)

type LLMConfig struct {
	Provider string        `env:"LLM_PROVIDER" envDefault:"gemini"`
	Model    string        `env:"LLM_MODEL" envDefault:"gemini-2.5-flash"`
	Retries  int           `env:"LLM_RETRIES" envDefault:"2"`
	Timeout  time.Duration `env:"LLM_TIMEOUT" envDefault:"120s"`

	// Embeddings default to the chat provider when unset.
	EmbeddingProvider  string `env:"EMBEDDING_PROVIDER"`
	EmbeddingModel     string `env:"EMBEDDING_MODEL"`
	EmbeddingMaxTokens int    `env:"EMBEDDING_MAX_TOKENS" envDefault:"2048"`

	GeminiAPIKey        string `env:"GEMINI_API_KEY"`
	OpenAIAPIKey        string `env:"OPENAI_API_KEY"`
	AnthropicAPIKey     string `env:"ANTHROPIC_API_KEY"`
	OpenRouterAPIKey    string `env:"OPENROUTER_API_KEY"`
	OllamaBaseURL       string `env:"OLLAMA_BASE_URL" envDefault:"http://localhost:11434"`
	OllamaAPIKey        string `env:"OLLAMA_API_KEY"`
	CustomOpenAIBaseURL string `env:"CUSTOM_OPENAI_BASE_URL"`
	CustomOpenAIAPIKey  string `env:"CUSTOM_OPENAI_API_KEY"`
}

func NewLLMConfig(ctx context.Context) *LLMConfig {
	c := &LLMConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse LLM config")
	}
	return c
}

func (c LLMConfig) GetEmbeddingProvider() string {
	if c.EmbeddingProvider != "" {
		return c.EmbeddingProvider
	}
	if c.Provider == "anthropic" {
		// no embeddings endpoint
		return "openai"
	}
	return c.Provider
}

func (c LLMConfig) GetEmbeddingModel() string {
	if c.EmbeddingModel != "" {
		return c.EmbeddingModel
	}
	switch c.GetEmbeddingProvider() {
	case "gemini":
		return "text-embedding-004"
	case "ollama":
		return "nomic-embed-text"
	case "openrouter":
		return "openai/text-embedding-3-small"
	default:
		return "text-embedding-3-small"
	}
}
