// Package tts converts reply text into playable audio.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sandevgo/parley/internal/config"
	"github.com/sandevgo/parley/internal/core"
	"github.com/sandevgo/parley/pkg/conv"
	"github.com/sandevgo/parley/pkg/log"
)

var ErrEmptyText = errors.New("text must not be empty")

// New returns the synthesizer selected by TTS_PROVIDER wrapped so input is
// flattened to plain text and bounded before it leaves the process.
func New(ctx context.Context, cfg *config.VoiceConfig) (core.SpeechSynthesizer, error) {
	log.FromCtx(ctx).Info().
		Str("provider", cfg.TTSProvider).
		Str("voice", cfg.TTSVoice).
		Msg("starting speech synthesizer")

	client := &http.Client{Timeout: cfg.TTSTimeout}

	var s core.SpeechSynthesizer
	switch cfg.TTSProvider {
	case "openai":
		s = &OpenAI{
			client:  client,
			baseURL: orDefault(cfg.TTSBaseURL, openAIBaseURL),
			apiKey:  cfg.OpenAIAPIKey,
			model:   cfg.TTSModel,
			voice:   cfg.TTSVoice,
		}
	case "sarvam":
		s = &Sarvam{
			client:   client,
			baseURL:  orDefault(cfg.TTSBaseURL, sarvamBaseURL),
			apiKey:   cfg.SarvamAPIKey,
			speaker:  cfg.TTSVoice,
			language: cfg.TTSLanguage,
		}
	default:
		return nil, fmt.Errorf("unknown tts provider: %s", cfg.TTSProvider)
	}

	return &Speaker{next: s, maxChars: cfg.TTSMaxChars}, nil
}

// Speaker normalizes requests for an underlying synthesizer.
type Speaker struct {
	next     core.SpeechSynthesizer
	maxChars int
}

func NewSpeaker(next core.SpeechSynthesizer, maxChars int) *Speaker {
	return &Speaker{next: next, maxChars: maxChars}
}

func (s *Speaker) Synthesize(ctx context.Context, req core.SpeechRequest) ([]byte, error) {
	req.Text = limitRunes(conv.PlainText(req.Text), s.maxChars)
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}

	start := time.Now()
	audio, err := s.next.Synthesize(ctx, req)
	if err != nil {
		return nil, err
	}

	log.FromCtx(ctx).Debug().
		Int("chars", utf8.RuneCountInString(req.Text)).
		Int("bytes", len(audio)).
		Dur("took", time.Since(start)).
		Msg("speech synthesized")
	return audio, nil
}

func limitRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimRight(v, "/")
}

func postJSON(ctx context.Context, client *http.Client, url string, payload any, headers map[string]string) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", core.AppUserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tts http %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}
