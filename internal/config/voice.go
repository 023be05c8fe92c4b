package config

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/parley/pkg/log"
)

type VoiceConfig struct {
	// Emotion classifier; an empty URL disables sentiment enrichment.
	EmotionURL      string        `env:"EMOTION_URL" envDefault:"http://localhost:8000"`
	EmotionTimeout  time.Duration `env:"EMOTION_TIMEOUT" envDefault:"5s"`
	EmotionMinScore float64       `env:"EMOTION_MIN_SCORE" envDefault:"0.3"`

	TTSProvider  string        `env:"TTS_PROVIDER" envDefault:"openai"`
	TTSModel     string        `env:"TTS_MODEL" envDefault:"tts-1"`
	TTSVoice     string        `env:"TTS_VOICE" envDefault:"nova"`
	TTSLanguage  string        `env:"TTS_LANGUAGE" envDefault:"hi-IN"`
	TTSBaseURL   string        `env:"TTS_BASE_URL"`
	TTSTimeout   time.Duration `env:"TTS_TIMEOUT" envDefault:"60s"`
	TTSMaxChars  int           `env:"TTS_MAX_CHARS" envDefault:"4096"`
	OpenAIAPIKey string        `env:"OPENAI_API_KEY"`
	SarvamAPIKey string        `env:"SARVAM_API_KEY"`
}

func NewVoiceConfig(ctx context.Context) *VoiceConfig {
	c := &VoiceConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Voice config")
	}
	return c
}
