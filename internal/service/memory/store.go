package memory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sandevgo/parley/internal/core"
	"github.com/sandevgo/parley/pkg/log"
)

// Store is the session-facing side of the memory repository. Its methods
// never fail: write errors are logged and read errors yield no memories.
type Store struct {
	repo core.MemoryRepository
	cfg  core.MemoryConfig
	now  func() time.Time
}

// NewStore wraps repo. A nil repo turns the store into a no-op.
func NewStore(repo core.MemoryRepository, cfg core.MemoryConfig) *Store {
	return &Store{
		repo: repo,
		cfg:  cfg,
		now:  time.Now,
	}
}

func (s *Store) Enabled() bool {
	return s.repo != nil
}

func (s *Store) Threshold() float64 {
	return s.cfg.GetThreshold()
}

func (s *Store) Limit() int {
	return s.cfg.GetLimit()
}

// Append persists a summary for ownerID. Blank text or a missing embedding is
// dropped.
func (s *Store) Append(ctx context.Context, ownerID, text string, embedding []float32) {
	if s.repo == nil {
		return
	}
	logger := log.FromCtx(ctx)

	text = strings.TrimSpace(text)
	if text == "" || len(embedding) == 0 {
		logger.Debug().Str("owner", ownerID).Msg("memory append skipped: nothing to store")
		return
	}

	rec := core.MemoryRecord{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Content:   text,
		Embedding: embedding,
		CreatedAt: s.now(),
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		logger.Error().Err(err).Str("owner", ownerID).Msg("failed to store memory")
		return
	}

	logger.Debug().Str("owner", ownerID).Str("id", rec.ID).Int("dims", len(embedding)).Msg("memory stored")
}

// Query returns up to limit stored texts whose similarity to embedding is at
// least threshold, best match first. Results belong to ownerID unless the store
// is configured for global scope; an anonymous owner gets nothing in owner scope.
func (s *Store) Query(ctx context.Context, embedding []float32, ownerID string, threshold float64, limit int) []string {
	if s.repo == nil || len(embedding) == 0 || limit <= 0 {
		return nil
	}

	global := s.cfg.IsGlobalScope()
	if !global && ownerID == "" {
		return nil
	}

	q := core.MemoryQuery{
		Embedding: embedding,
		OwnerID:   ownerID,
		AnyOwner:  global,
		Threshold: threshold,
		Limit:     limit,
	}
	if maxAge := s.cfg.GetMaxAge(); maxAge > 0 {
		q.Since = s.now().Add(-maxAge)
	}

	matches, err := s.repo.Search(ctx, q)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Str("owner", ownerID).Msg("memory search failed")
		return nil
	}

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Content)
	}
	return out
}
