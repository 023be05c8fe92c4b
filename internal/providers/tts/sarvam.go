package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sandevgo/parley/internal/core"
)

const (
	sarvamBaseURL = "https://api.sarvam.ai"
	sarvamModel   = "bulbul:v2"
)

// Sarvam returns WAV audio for Indic languages.
type Sarvam struct {
	client   *http.Client
	baseURL  string
	apiKey   string
	speaker  string
	language string
}

type sarvamRequest struct {
	Inputs              []string `json:"inputs"`
	TargetLanguageCode  string   `json:"target_language_code"`
	Speaker             string   `json:"speaker"`
	Model               string   `json:"model"`
	SpeechSampleRate    int      `json:"speech_sample_rate"`
	EnablePreprocessing bool     `json:"enable_preprocessing"`
}

func (s *Sarvam) Synthesize(ctx context.Context, req core.SpeechRequest) ([]byte, error) {
	speaker := s.speaker
	if req.Voice != "" {
		speaker = req.Voice
	}
	language := s.language
	if req.Language != "" {
		language = req.Language
	}

	payload := sarvamRequest{
		Inputs:              []string{req.Text},
		TargetLanguageCode:  language,
		Speaker:             speaker,
		Model:               sarvamModel,
		SpeechSampleRate:    8000,
		EnablePreprocessing: true,
	}
	headers := map[string]string{
		"api-subscription-key": s.apiKey,
	}

	data, err := postJSON(ctx, s.client, s.baseURL+"/text-to-speech", payload, headers)
	if err != nil {
		return nil, err
	}

	var result struct {
		Audios []string `json:"audios"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if len(result.Audios) == 0 || result.Audios[0] == "" {
		return nil, fmt.Errorf("no audio in response")
	}

	audio, err := base64.StdEncoding.DecodeString(result.Audios[0])
	if err != nil {
		return nil, fmt.Errorf("decode audio: %w", err)
	}
	return audio, nil
}
