package llm

// Ollama talks to the OpenAI-compatible endpoints a local Ollama server exposes.
type Ollama struct {
	*OpenAICompatible
}

func NewOllama(baseURL, apiKey, model, embeddingModel string) *Ollama {
	return &Ollama{
		OpenAICompatible: NewOpenAICompatible(OpenAICompatibleConfig{
			BaseURL:        baseURL,
			APIKey:         apiKey,
			Model:          model,
			EmbeddingModel: embeddingModel,
			AuthHeader:     "Authorization",
			AuthPrefix:     "Bearer ",
		}),
	}
}
