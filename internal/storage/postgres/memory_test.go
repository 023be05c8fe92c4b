package postgres

import (
	"testing"
	"time"

	"github.com/sandevgo/parley/internal/core"
	"github.com/stretchr/testify/assert"
)

func TestVectorLiteral(t *testing.T) {
	tests := []struct {
		in   []float32
		want string
	}{
		{in: nil, want: "[]"},
		{in: []float32{1}, want: "[1]"},
		{in: []float32{0.25, -1.5, 3}, want: "[0.25,-1.5,3]"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, vectorLiteral(tt.in))
	}
}

func TestBuildSearch(t *testing.T) {
	since := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name      string
		query     core.MemoryQuery
		wantConds []string
		wantArgs  []any
	}{
		{
			name:      "owner scoped",
			query:     core.MemoryQuery{Embedding: []float32{1, 0}, OwnerID: "alice", Threshold: 0.75, Limit: 3},
			wantConds: []string{"owner_id = $3", "LIMIT $4"},
			wantArgs:  []any{"[1,0]", 0.75, "alice", 3},
		},
		{
			name:      "global with recency",
			query:     core.MemoryQuery{Embedding: []float32{1, 0}, AnyOwner: true, Threshold: 0.5, Limit: 2, Since: since},
			wantConds: []string{"created_at >= $3", "LIMIT $4"},
			wantArgs:  []any{"[1,0]", 0.5, since, 2},
		},
		{
			name:      "owner and recency",
			query:     core.MemoryQuery{Embedding: []float32{1}, OwnerID: "bob", Threshold: 0.9, Limit: 1, Since: since},
			wantConds: []string{"owner_id = $3", "created_at >= $4", "LIMIT $5"},
			wantArgs:  []any{"[1]", 0.9, "bob", since, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildSearch(tt.query)
			assert.Contains(t, query, "1 - (embedding <=> $1::vector) >= $2")
			assert.Contains(t, query, "ORDER BY embedding <=> $1::vector")
			for _, c := range tt.wantConds {
				assert.Contains(t, query, c)
			}
			if tt.query.AnyOwner {
				assert.NotContains(t, query, "owner_id")
			}
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}
