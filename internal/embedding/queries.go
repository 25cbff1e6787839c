package embedding

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Queries is the pgx implementation of Querier.
type Queries struct {
	pool *pgxpool.Pool
}

// NewQueries creates a Queries over the given connection pool.
func NewQueries(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}

const upsertEmbeddingSQL = `
INSERT INTO note_embeddings (note_id, embedding, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (note_id) DO UPDATE
SET embedding = EXCLUDED.embedding, updated_at = now()`

func (q *Queries) UpsertEmbedding(ctx context.Context, arg UpsertParams) error {
	_, err := q.pool.Exec(ctx, upsertEmbeddingSQL, arg.NoteID, arg.Embedding)
	return err
}

func (q *Queries) DeleteEmbedding(ctx context.Context, noteID uuid.UUID) error {
	_, err := q.pool.Exec(ctx, `DELETE FROM note_embeddings WHERE note_id = $1`, noteID)
	return err
}

// searchEmbeddingsSQL ranks notes by cosine distance; similarity is
// 1 - distance, normalized to [0,1] for unit vectors. The category filter
// applies when $3 is non-null.
const searchEmbeddingsSQL = `
SELECT n.id, n.title, n.category_id, COALESCE(c.name, ''), COALESCE(c.icon, ''),
       1 - (e.embedding <=> $1) AS similarity
FROM note_embeddings e
JOIN notes n ON n.id = e.note_id
LEFT JOIN categories c ON c.id = n.category_id
WHERE $3::uuid IS NULL OR n.category_id = $3
ORDER BY e.embedding <=> $1
LIMIT $2`

func (q *Queries) SearchEmbeddings(ctx context.Context, arg SearchParams) ([]Match, error) {
	rows, err := q.pool.Query(ctx, searchEmbeddingsSQL, arg.Embedding, arg.Limit, arg.CategoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.NoteID, &m.Title, &m.CategoryID, &m.CategoryName, &m.CategoryIcon, &m.Similarity); err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
