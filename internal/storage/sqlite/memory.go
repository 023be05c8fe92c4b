package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sandevgo/parley/internal/core"
	"github.com/sandevgo/parley/pkg/log"
)

// MemoryRepo keeps summaries with their embeddings and ranks them by cosine
// similarity in Go. Rows are filtered by owner, recency and dimension in SQL first.
type MemoryRepo struct {
	db *sql.DB
}

func NewMemoryRepo(db *sql.DB) *MemoryRepo {
	return &MemoryRepo{db: db}
}

func (r *MemoryRepo) Insert(ctx context.Context, rec core.MemoryRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	blob, err := serializeVector(rec.Embedding)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO memories (id, owner_id, content, embedding, dims, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.OwnerID, rec.Content, blob, len(rec.Embedding), rec.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert memory: %w", err)
	}
	return nil
}

func (r *MemoryRepo) Search(ctx context.Context, q core.MemoryQuery) ([]core.MemoryMatch, error) {
	if len(q.Embedding) == 0 || q.Limit <= 0 {
		return nil, nil
	}

	conds := []string{"dims = ?"}
	args := []any{len(q.Embedding)}
	if !q.AnyOwner {
		conds = append(conds, "owner_id = ?")
		args = append(args, q.OwnerID)
	}
	if !q.Since.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, q.Since.UnixNano())
	}

	query := `SELECT id, content, embedding FROM memories WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query memories: %w", err)
	}
	defer rows.Close()

	var matches []core.MemoryMatch
	for rows.Next() {
		var (
			id, content string
			blob        []byte
		)
		if err := rows.Scan(&id, &content, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan memory: %w", err)
		}

		vec, err := deserializeVector(blob)
		if err != nil {
			log.FromCtx(ctx).Warn().Err(err).Str("id", id).Msg("skip malformed memory")
			continue
		}

		score := cosineSimilarity(q.Embedding, vec)
		if score < q.Threshold {
			continue
		}
		matches = append(matches, core.MemoryMatch{Content: content, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memories: %w", err)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}
	return matches, nil
}
