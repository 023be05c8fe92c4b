package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sandevgo/parley/internal/core"
	"google.golang.org/genai"
)

// Gemini uses the Gemini API through the official SDK for both chat and embeddings.
type Gemini struct {
	client         *genai.Client
	model          string
	embeddingModel string
}

func NewGemini(ctx context.Context, apiKey, model, embeddingModel string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{
		client:         client,
		model:          model,
		embeddingModel: embeddingModel,
	}, nil
}

func (g *Gemini) Chat(ctx context.Context, history []core.Turn, directive string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, toGeminiContents(history), generateConfig(directive))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return resp.Text(), nil
}

func (g *Gemini) ChatStream(ctx context.Context, history []core.Turn, directive string, yield func(string) error) error {
	for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, toGeminiContents(history), generateConfig(directive)) {
		if err != nil {
			return fmt.Errorf("gemini stream: %w", err)
		}
		if text := resp.Text(); text != "" {
			if err := yield(text); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}

	res, err := g.client.Models.EmbedContent(ctx, g.embeddingModel, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if len(res.Embeddings) == 0 || len(res.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("gemini embed: empty embedding")
	}
	return res.Embeddings[0].Values, nil
}

func generateConfig(directive string) *genai.GenerateContentConfig {
	if strings.TrimSpace(directive) == "" {
		return nil
	}
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(directive, genai.RoleUser),
	}
}

func toGeminiContents(history []core.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, t := range history {
		if t.Role == core.RoleModel {
			contents = append(contents, genai.NewContentFromText(t.Content, genai.RoleModel))
			continue
		}
		contents = append(contents, genai.NewContentFromText(t.Content, genai.RoleUser))
	}
	return contents
}
