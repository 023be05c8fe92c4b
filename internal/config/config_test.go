package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPrompts_MissingFileUsesDefaults(t *testing.T) {
	p, err := LoadPrompts(context.Background(), filepath.Join(t.TempDir(), "prompts.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultPrompts(), p)
}

func TestLoadPrompts_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	content := "fallback_reply: \"One moment please.\"\nfillers: []\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	p, err := LoadPrompts(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "One moment please.", p.GetFallbackReply())
	assert.Empty(t, p.GetFillers())
	assert.Equal(t, defaultReplyDirective, p.GetReplyDirective())
}

func TestLoadPrompts_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fillers: [unterminated"), 0o600))

	_, err := LoadPrompts(context.Background(), path)
	assert.Error(t, err)
}

func TestPrompts_MarshalRoundTrip(t *testing.T) {
	data, err := DefaultPrompts().Marshal()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	p, err := LoadPrompts(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, DefaultPrompts(), p)
}

func TestClientConfig_WebSocketURL(t *testing.T) {
	tests := []struct {
		server string
		want   string
	}{
		{"http://localhost:5000", "ws://localhost:5000/ws"},
		{"https://relay.example.com/", "wss://relay.example.com/ws"},
		{"https://example.com/parley", "wss://example.com/parley/ws"},
	}

	for _, tt := range tests {
		got, err := ClientConfig{ServerURL: tt.server}.WebSocketURL()
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestLLMConfig_EmbeddingDefaults(t *testing.T) {
	assert.Equal(t, "text-embedding-004", LLMConfig{Provider: "gemini"}.GetEmbeddingModel())
	assert.Equal(t, "openai", LLMConfig{Provider: "anthropic"}.GetEmbeddingProvider())
	assert.Equal(t, "nomic-embed-text", LLMConfig{Provider: "ollama"}.GetEmbeddingModel())
	assert.Equal(t, "custom-model", LLMConfig{Provider: "ollama", EmbeddingModel: "custom-model"}.GetEmbeddingModel())
}

func TestResolveRuntimePath(t *testing.T) {
	assert.Equal(t, "/srv/parley", resolveRuntimePath("/srv/parley"))

	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, ".parley"), resolveRuntimePath(""))
}
