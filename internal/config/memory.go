package config

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/parley/pkg/log"
)

const (
	MemoryBackendSQLite   = "sqlite"
	MemoryBackendPostgres = "postgres"
	MemoryBackendNone     = "none"

	MemoryScopeOwner  = "owner"
	MemoryScopeGlobal = "global"
)

type MemoryConfig struct {
	Backend        string        `env:"MEMORY_BACKEND" envDefault:"sqlite"`
	DatabaseURL    string        `env:"MEMORY_DATABASE_URL"`
	Threshold      float64       `env:"MEMORY_THRESHOLD" envDefault:"0.75"`
	Limit          int           `env:"MEMORY_LIMIT" envDefault:"3"`
	Scope          string        `env:"MEMORY_SCOPE" envDefault:"owner"`
	MaxAge         time.Duration `env:"MEMORY_MAX_AGE" envDefault:"0s"`
	SummaryTimeout time.Duration `env:"MEMORY_SUMMARY_TIMEOUT" envDefault:"60s"`
}

func NewMemoryConfig(ctx context.Context) *MemoryConfig {
	c := &MemoryConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Memory config")
	}
	return c
}

func (c MemoryConfig) GetThreshold() float64 {
	return c.Threshold
}

func (c MemoryConfig) GetLimit() int {
	return c.Limit
}

func (c MemoryConfig) IsGlobalScope() bool {
	return c.Scope == MemoryScopeGlobal
}

func (c MemoryConfig) GetMaxAge() time.Duration {
	return c.MaxAge
}

func (c MemoryConfig) GetSummaryTimeout() time.Duration {
	return c.SummaryTimeout
}
