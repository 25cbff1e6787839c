package links

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

func (q *Queries) ListLinkTargets(ctx context.Context, sourceID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.pool.Query(ctx,
		`SELECT target_id FROM note_links WHERE source_id = $1`, sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []uuid.UUID
	for rows.Next() {
		var t uuid.UUID
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scanning link target: %w", err)
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// InsertLink is tolerant of concurrent duplicate inserts; the primary key
// makes ON CONFLICT DO NOTHING safe.
func (q *Queries) InsertLink(ctx context.Context, sourceID, targetID uuid.UUID) error {
	_, err := q.pool.Exec(ctx,
		`INSERT INTO note_links (source_id, target_id) VALUES ($1, $2)
		 ON CONFLICT (source_id, target_id) DO NOTHING`,
		sourceID, targetID)
	return err
}

func (q *Queries) DeleteLink(ctx context.Context, sourceID, targetID uuid.UUID) error {
	_, err := q.pool.Exec(ctx,
		`DELETE FROM note_links WHERE source_id = $1 AND target_id = $2`,
		sourceID, targetID)
	return err
}

const listOutlinksSQL = `
SELECT l.target_id, n.title
FROM note_links l
JOIN notes n ON n.id = l.target_id
WHERE l.source_id = $1
ORDER BY n.title`

func (q *Queries) ListOutlinks(ctx context.Context, sourceID uuid.UUID) ([]Outlink, error) {
	rows, err := q.pool.Query(ctx, listOutlinksSQL, sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Outlink
	for rows.Next() {
		var o Outlink
		if err := rows.Scan(&o.TargetID, &o.TargetTitle); err != nil {
			return nil, fmt.Errorf("scanning outlink: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

const listBacklinksSQL = `
SELECT l.source_id, n.title, n.category_id
FROM note_links l
JOIN notes n ON n.id = l.source_id
WHERE l.target_id = $1
ORDER BY n.title`

func (q *Queries) ListBacklinks(ctx context.Context, targetID uuid.UUID) ([]Backlink, error) {
	rows, err := q.pool.Query(ctx, listBacklinksSQL, targetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var back []Backlink
	for rows.Next() {
		var b Backlink
		if err := rows.Scan(&b.SourceID, &b.SourceTitle, &b.SourceCategoryID); err != nil {
			return nil, fmt.Errorf("scanning backlink: %w", err)
		}
		back = append(back, b)
	}
	return back, rows.Err()
}
