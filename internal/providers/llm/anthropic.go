package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sandevgo/parley/internal/core"
)

const anthropicVersion = "2023-06-01"

// Anthropic returns whole replies only; the Client delivers them as a single
// fragment followed by the end marker.
type Anthropic struct {
	baseProvider
	maxTokens int
}

func NewAnthropic(apiKey, model string) *Anthropic {
	return &Anthropic{
		baseProvider: newBaseProvider("https://api.anthropic.com", apiKey, model),
		maxTokens:    1024,
	}
}

func (a *Anthropic) Chat(ctx context.Context, history []core.Turn, directive string) (string, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	messages := make([]msg, 0, len(history))
	for _, t := range history {
		role := "user"
		if t.Role == core.RoleModel {
			role = "assistant"
		}
		messages = append(messages, msg{Role: role, Content: t.Content})
	}

	payload := map[string]any{
		"model":      a.model,
		"max_tokens": a.maxTokens,
		"messages":   messages,
	}
	if strings.TrimSpace(directive) != "" {
		payload["system"] = directive
	}

	headers := map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": anthropicVersion,
	}

	resp, err := a.doRequest(ctx, http.MethodPost, "/v1/messages", payload, headers)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", err
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}

	var sb strings.Builder
	for _, c := range result.Content {
		if c.Type == "text" {
			sb.WriteString(c.Text)
		}
	}
	return sb.String(), nil
}
