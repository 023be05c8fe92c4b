package config

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/parley/pkg/log"
)

type ClientConfig struct {
	ServerURL string `env:"PARLEY_SERVER_URL" envDefault:"http://localhost:5000"`
	UserID    string `env:"PARLEY_USER_ID"`
	UserEmail string `env:"PARLEY_USER_EMAIL"`

	// Empty recognizer command means typed input on stdin.
	RecognizerCmd string        `env:"PARLEY_RECOGNIZER_CMD"`
	RestartDelay  time.Duration `env:"PARLEY_RECOGNIZER_RESTART_DELAY" envDefault:"500ms"`

	PlayerCmd         string  `env:"PARLEY_PLAYER_CMD" envDefault:"mpg123 -q -"`
	Mute              bool    `env:"PARLEY_MUTE"`
	Voice             string  `env:"PARLEY_VOICE"`
	FillerProbability float64 `env:"PARLEY_FILLER_PROBABILITY" envDefault:"0.3"`
	MaxFragmentTokens int     `env:"PARLEY_FRAGMENT_TOKENS" envDefault:"60"`
}

func NewClientConfig(ctx context.Context) *ClientConfig {
	c := &ClientConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Client config")
	}
	return c
}

// WebSocketURL maps the server's http(s) base URL to its ws(s) relay endpoint.
func (c ClientConfig) WebSocketURL() (string, error) {
	u, err := url.Parse(strings.TrimRight(c.ServerURL, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	}
	u.Path += "/ws"
	return u.String(), nil
}

func (c ClientConfig) SpeakURL() string {
	return strings.TrimRight(c.ServerURL, "/") + "/api/speak"
}
