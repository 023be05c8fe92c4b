package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sandevgo/parley/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *MemoryRepo {
	t.Helper()
	db, err := NewDB(context.Background(), filepath.Join(t.TempDir(), "parley.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewMemoryRepo(db)
}

func seed(t *testing.T, repo *MemoryRepo, recs ...core.MemoryRecord) {
	t.Helper()
	for _, rec := range recs {
		require.NoError(t, repo.Insert(context.Background(), rec))
	}
}

func contents(matches []core.MemoryMatch) []string {
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Content)
	}
	return out
}

func TestMemoryRepo_Search(t *testing.T) {
	repo := newTestRepo(t)
	now := time.Now()

	seed(t, repo,
		core.MemoryRecord{OwnerID: "alice", Content: "talked about hiking", Embedding: []float32{1, 0, 0}, CreatedAt: now},
		core.MemoryRecord{OwnerID: "alice", Content: "talked about trails", Embedding: []float32{0.9, 0.1, 0}, CreatedAt: now},
		core.MemoryRecord{OwnerID: "alice", Content: "talked about taxes", Embedding: []float32{0, 1, 0}, CreatedAt: now},
		core.MemoryRecord{OwnerID: "alice", Content: "old hiking trip", Embedding: []float32{1, 0, 0}, CreatedAt: now.Add(-48 * time.Hour)},
		core.MemoryRecord{OwnerID: "bob", Content: "bob likes hiking", Embedding: []float32{1, 0, 0}, CreatedAt: now},
		core.MemoryRecord{OwnerID: "alice", Content: "other model", Embedding: []float32{1, 0}, CreatedAt: now},
	)

	tests := []struct {
		name  string
		query core.MemoryQuery
		want  []string
	}{
		{
			name:  "owner scoped and ordered",
			query: core.MemoryQuery{Embedding: []float32{1, 0, 0}, OwnerID: "alice", Threshold: 0.5, Limit: 5},
			want:  []string{"talked about hiking", "old hiking trip", "talked about trails"},
		},
		{
			name:  "limit caps results",
			query: core.MemoryQuery{Embedding: []float32{1, 0, 0}, OwnerID: "alice", Threshold: 0.5, Limit: 1},
			want:  []string{"talked about hiking"},
		},
		{
			name:  "higher threshold narrows",
			query: core.MemoryQuery{Embedding: []float32{1, 0, 0}, OwnerID: "alice", Threshold: 0.999, Limit: 5},
			want:  []string{"talked about hiking", "old hiking trip"},
		},
		{
			name:  "recency filter",
			query: core.MemoryQuery{Embedding: []float32{1, 0, 0}, OwnerID: "alice", Threshold: 0.999, Limit: 5, Since: now.Add(-time.Hour)},
			want:  []string{"talked about hiking"},
		},
		{
			name:  "other owner isolated",
			query: core.MemoryQuery{Embedding: []float32{1, 0, 0}, OwnerID: "bob", Threshold: 0.5, Limit: 5},
			want:  []string{"bob likes hiking"},
		},
		{
			name:  "unknown owner",
			query: core.MemoryQuery{Embedding: []float32{1, 0, 0}, OwnerID: "carol", Threshold: 0.5, Limit: 5},
			want:  []string{},
		},
		{
			name:  "zero limit",
			query: core.MemoryQuery{Embedding: []float32{1, 0, 0}, OwnerID: "alice", Threshold: 0, Limit: 0},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.Search(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, contents(got))
		})
	}
}

func TestMemoryRepo_SearchAnyOwner(t *testing.T) {
	repo := newTestRepo(t)
	seed(t, repo,
		core.MemoryRecord{OwnerID: "alice", Content: "a", Embedding: []float32{1, 0}},
		core.MemoryRecord{OwnerID: "", Content: "anonymous", Embedding: []float32{0.8, 0.2}},
	)

	got, err := repo.Search(context.Background(), core.MemoryQuery{
		Embedding: []float32{1, 0},
		AnyOwner:  true,
		Threshold: 0.5,
		Limit:     3,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "anonymous"}, contents(got))
	assert.InDelta(t, 1.0, got[0].Score, 1e-6)
}

func TestVectorRoundTrip(t *testing.T) {
	vec := []float32{0.25, -1.5, 3}
	blob, err := serializeVector(vec)
	require.NoError(t, err)
	assert.Len(t, blob, 12)

	got, err := deserializeVector(blob)
	require.NoError(t, err)
	assert.Equal(t, vec, got)

	_, err = deserializeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity([]float32{1}, []float32{1, 0}))
	assert.Equal(t, 0.0, cosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}
