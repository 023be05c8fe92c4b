package core

import (
	"context"
	"time"
)

// MemoryRecord is a stored conversation summary.
type MemoryRecord struct {
	ID        string
	OwnerID   string
	Content   string
	Embedding []float32
	CreatedAt time.Time
}

type MemoryMatch struct {
	Content string
	Score   float64
}

// MemoryQuery selects records whose similarity to Embedding is at least Threshold.
// OwnerID restricts results unless AnyOwner is set; a non-zero Since drops older records.
type MemoryQuery struct {
	Embedding []float32
	OwnerID   string
	AnyOwner  bool
	Threshold float64
	Limit     int
	Since     time.Time
}

type MemoryRepository interface {
	Insert(ctx context.Context, rec MemoryRecord) error
	Search(ctx context.Context, q MemoryQuery) ([]MemoryMatch, error)
}
