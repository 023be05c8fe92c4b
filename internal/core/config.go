package core

import "time"

type RelayConfig interface {
	GetReadLimit() int64
	GetPingInterval() time.Duration
	GetWriteTimeout() time.Duration
	GetQueueSize() int
	GetCycleTimeout() time.Duration
}

type MemoryConfig interface {
	GetThreshold() float64
	GetLimit() int
	IsGlobalScope() bool
	GetMaxAge() time.Duration
	GetSummaryTimeout() time.Duration
}

type PromptConfig interface {
	GetReplyDirective() string
	GetSummaryDirective() string
	GetGenerateDirective() string
	GetFallbackReply() string
	GetFillers() []string
}
