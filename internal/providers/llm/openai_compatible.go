package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sandevgo/parley/internal/core"
	"github.com/sandevgo/parley/pkg/retry"
)

type OpenAICompatible struct {
	baseProvider
	embeddingModel string
	authHeader     string
	authPrefix     string
	extraHeaders   map[string]string
}

type OpenAICompatibleConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	EmbeddingModel string
	AuthHeader     string // e.g., "Authorization"
	AuthPrefix     string // e.g., "Bearer "
	ExtraHeaders   map[string]string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func NewOpenAICompatible(cfg OpenAICompatibleConfig) *OpenAICompatible {
	return &OpenAICompatible{
		baseProvider:   newBaseProvider(cfg.BaseURL, cfg.APIKey, cfg.Model),
		embeddingModel: cfg.EmbeddingModel,
		authHeader:     cfg.AuthHeader,
		authPrefix:     cfg.AuthPrefix,
		extraHeaders:   cfg.ExtraHeaders,
	}
}

func (o *OpenAICompatible) Chat(ctx context.Context, history []core.Turn, directive string) (string, error) {
	resp, err := o.doRequest(ctx, http.MethodPost, "/v1/chat/completions", o.chatPayload(history, directive, false), o.headers())
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	return parseOpenAIResponse(resp)
}

func (o *OpenAICompatible) ChatStream(ctx context.Context, history []core.Turn, directive string, yield func(string) error) error {
	resp, err := o.doRequest(ctx, http.MethodPost, "/v1/chat/completions", o.chatPayload(history, directive, true), o.headers())
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	return readSSE(resp.Body, func(data []byte) error {
		var chunk struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
		}
		if err := json.Unmarshal(data, &chunk); err != nil {
			return fmt.Errorf("decode chunk: %w", err)
		}
		for _, c := range chunk.Choices {
			if c.Delta.Content == "" {
				continue
			}
			if err := yield(c.Delta.Content); err != nil {
				return err
			}
		}
		return nil
	})
}

func (o *OpenAICompatible) Embed(ctx context.Context, text string) ([]float32, error) {
	if o.embeddingModel == "" {
		return nil, retry.Permanent(fmt.Errorf("no embedding model configured"))
	}

	payload := map[string]any{
		"model": o.embeddingModel,
		"input": text,
	}

	resp, err := o.doRequest(ctx, http.MethodPost, "/v1/embeddings", payload, o.headers())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var result struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode embeddings: %w", err)
	}
	if len(result.Data) == 0 || len(result.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding")
	}
	return result.Data[0].Embedding, nil
}

func (o *OpenAICompatible) chatPayload(history []core.Turn, directive string, stream bool) map[string]any {
	payload := map[string]any{
		"model":    o.model,
		"messages": toChatMessages(history, directive),
	}
	if stream {
		payload["stream"] = true
	}
	return payload
}

func (o *OpenAICompatible) headers() map[string]string {
	headers := make(map[string]string)
	if o.authHeader != "" && o.apiKey != "" {
		headers[o.authHeader] = o.authPrefix + o.apiKey
	}
	for k, v := range o.extraHeaders {
		headers[k] = v
	}
	return headers
}

// toChatMessages maps conversation turns to chat-completions roles, with the
// directive as the leading system message.
func toChatMessages(history []core.Turn, directive string) []chatMessage {
	messages := make([]chatMessage, 0, len(history)+1)
	if strings.TrimSpace(directive) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: directive})
	}
	for _, t := range history {
		role := "user"
		if t.Role == core.RoleModel {
			role = "assistant"
		}
		messages = append(messages, chatMessage{Role: role, Content: t.Content})
	}
	return messages
}

func parseOpenAIResponse(resp *http.Response) (string, error) {
	if err := checkStatus(resp); err != nil {
		return "", err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	var result struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("empty choices: %s", string(data))
	}
	return result.Choices[0].Message.Content, nil
}
