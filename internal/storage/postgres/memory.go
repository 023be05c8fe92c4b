package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sandevgo/parley/internal/core"
)

// MemoryRepo ranks memories with pgvector's cosine distance operator.
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

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO memories (id, owner_id, content, embedding, created_at) VALUES ($1, $2, $3, $4::vector, $5)`,
		rec.ID, rec.OwnerID, rec.Content, vectorLiteral(rec.Embedding), rec.CreatedAt,
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

	query, args := buildSearch(q)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query memories: %w", err)
	}
	defer rows.Close()

	var matches []core.MemoryMatch
	for rows.Next() {
		var m core.MemoryMatch
		if err := rows.Scan(&m.Content, &m.Score); err != nil {
			return nil, fmt.Errorf("failed to scan memory: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memories: %w", err)
	}
	return matches, nil
}

// buildSearch renders the similarity query. vector_dims keeps records from a
// different embedding model out of the comparison.
func buildSearch(q core.MemoryQuery) (string, []any) {
	args := []any{vectorLiteral(q.Embedding), q.Threshold}
	conds := []string{
		"vector_dims(embedding) = vector_dims($1::vector)",
		"1 - (embedding <=> $1::vector) >= $2",
	}

	if !q.AnyOwner {
		args = append(args, q.OwnerID)
		conds = append(conds, "owner_id = $"+strconv.Itoa(len(args)))
	}
	if !q.Since.IsZero() {
		args = append(args, q.Since)
		conds = append(conds, "created_at >= $"+strconv.Itoa(len(args)))
	}

	args = append(args, q.Limit)
	query := "SELECT content, 1 - (embedding <=> $1::vector) AS score FROM memories WHERE " +
		strings.Join(conds, " AND ") +
		" ORDER BY embedding <=> $1::vector, created_at DESC LIMIT $" + strconv.Itoa(len(args))

	return query, args
}

// vectorLiteral formats vec in pgvector's text input form, e.g. [0.1,0.2].
func vectorLiteral(vec []float32) string {
	var sb strings.Builder
	sb.Grow(len(vec)*10 + 2)
	sb.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}
