package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/parley/pkg/log"
)

type AppConfig struct {
	RuntimePath    string   `env:"PARLEY_RUNTIME_PATH" envDefault:".parley"`
	ListenAddr     string   `env:"PARLEY_ADDR" envDefault:":5000"`
	AllowedOrigins []string `env:"PARLEY_ALLOWED_ORIGINS" envSeparator:","`
	EnableMetrics  bool     `env:"PARLEY_METRICS" envDefault:"true"`

	// Relay
	ReadLimit    int64         `env:"RELAY_READ_LIMIT" envDefault:"65536"`
	PingInterval time.Duration `env:"RELAY_PING_INTERVAL" envDefault:"20s"`
	WriteTimeout time.Duration `env:"RELAY_WRITE_TIMEOUT" envDefault:"5s"`
	QueueSize    int           `env:"RELAY_QUEUE_SIZE" envDefault:"8"`
	CycleTimeout time.Duration `env:"RELAY_CYCLE_TIMEOUT" envDefault:"90s"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	return c
}

func (c AppConfig) GetRuntimePath() string {
	return resolveRuntimePath(c.RuntimePath)
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.GetRuntimePath(), "parley.db")
}

func (c AppConfig) GetPromptsPath() string {
	return filepath.Join(c.GetRuntimePath(), "prompts.yaml")
}

func (c AppConfig) GetReadLimit() int64 {
	return c.ReadLimit
}

func (c AppConfig) GetPingInterval() time.Duration {
	return c.PingInterval
}

func (c AppConfig) GetWriteTimeout() time.Duration {
	return c.WriteTimeout
}

func (c AppConfig) GetQueueSize() int {
	return c.QueueSize
}

func (c AppConfig) GetCycleTimeout() time.Duration {
	return c.CycleTimeout
}
