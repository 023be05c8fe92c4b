package tts

import (
	"context"
	"net/http"

	"github.com/sandevgo/parley/internal/core"
)

const openAIBaseURL = "https://api.openai.com"

// OpenAI returns MP3 audio from the speech endpoint.
type OpenAI struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
	voice   string
}

func (o *OpenAI) Synthesize(ctx context.Context, req core.SpeechRequest) ([]byte, error) {
	voice := o.voice
	if req.Voice != "" {
		voice = req.Voice
	}

	payload := map[string]any{
		"model": o.model,
		"voice": voice,
		"input": req.Text,
	}
	headers := map[string]string{
		"Authorization": "Bearer " + o.apiKey,
	}

	return postJSON(ctx, o.client, o.baseURL+"/v1/audio/speech", payload, headers)
}
