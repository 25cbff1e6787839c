package notes

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested note does not exist.
var ErrNotFound = errors.New("note not found")

// Queries is the pgx implementation of Querier.
type Queries struct {
	pool *pgxpool.Pool
}

// NewQueries creates a Queries over the given connection pool.
func NewQueries(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}

const insertNoteSQL = `
INSERT INTO notes (owner_id, category_id, title, content)
VALUES ($1, $2, $3, $4)
RETURNING id, owner_id, category_id, title, content, created_at, updated_at`

func (q *Queries) InsertNote(ctx context.Context, arg CreateParams) (Note, error) {
	row := q.pool.QueryRow(ctx, insertNoteSQL, arg.OwnerID, arg.CategoryID, arg.Title, arg.Content)
	return scanNote(row)
}

const updateNoteSQL = `
UPDATE notes
SET category_id = $2, title = $3, content = $4, updated_at = now()
WHERE id = $1
RETURNING id, owner_id, category_id, title, content, created_at, updated_at`

func (q *Queries) UpdateNote(ctx context.Context, arg UpdateParams) (Note, error) {
	row := q.pool.QueryRow(ctx, updateNoteSQL, arg.ID, arg.CategoryID, arg.Title, arg.Content)
	note, err := scanNote(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Note{}, ErrNotFound
	}
	return note, err
}

func (q *Queries) DeleteNote(ctx context.Context, id uuid.UUID) error {
	_, err := q.pool.Exec(ctx, `DELETE FROM notes WHERE id = $1`, id)
	return err
}

const getNoteSQL = `
SELECT id, owner_id, category_id, title, content, created_at, updated_at
FROM notes
WHERE id = $1`

func (q *Queries) GetNote(ctx context.Context, id uuid.UUID) (Note, error) {
	note, err := scanNote(q.pool.QueryRow(ctx, getNoteSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Note{}, ErrNotFound
	}
	return note, err
}

const getNotesByIDsSQL = `
SELECT id, owner_id, category_id, title, content, created_at, updated_at
FROM notes
WHERE id = ANY($1)`

func (q *Queries) GetNotesByIDs(ctx context.Context, ids []uuid.UUID) ([]Note, error) {
	rows, err := q.pool.Query(ctx, getNotesByIDsSQL, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNotes(rows)
}

const getRefsByIDsSQL = `
SELECT n.id, n.title, n.category_id, COALESCE(c.name, ''), COALESCE(c.icon, '')
FROM notes n
LEFT JOIN categories c ON c.id = n.category_id
WHERE n.id = ANY($1)`

func (q *Queries) GetRefsByIDs(ctx context.Context, ids []uuid.UUID) ([]Ref, error) {
	rows, err := q.pool.Query(ctx, getRefsByIDsSQL, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRefs(rows)
}

// searchTitlesSQL matches titles case-insensitively; the category filter is
// applied when $3 is non-null. Ordered by recency since lexical matches
// carry no relevance score.
const searchTitlesSQL = `
SELECT n.id, n.title, n.category_id, COALESCE(c.name, ''), COALESCE(c.icon, '')
FROM notes n
LEFT JOIN categories c ON c.id = n.category_id
WHERE n.title ILIKE '%' || $1 || '%'
  AND ($3::uuid IS NULL OR n.category_id = $3)
ORDER BY n.updated_at DESC
LIMIT $2`

func (q *Queries) SearchTitles(ctx context.Context, arg SearchTitlesParams) ([]Ref, error) {
	rows, err := q.pool.Query(ctx, searchTitlesSQL, arg.Query, arg.Limit, arg.CategoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRefs(rows)
}

const sampleNotesSQL = `
SELECT id, owner_id, category_id, title, content, created_at, updated_at
FROM notes
ORDER BY random()
LIMIT $1`

func (q *Queries) SampleNotes(ctx context.Context, limit int32) ([]Note, error) {
	rows, err := q.pool.Query(ctx, sampleNotesSQL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNotes(rows)
}

func (q *Queries) CountNotes(ctx context.Context) (int64, error) {
	var n int64
	if err := q.pool.QueryRow(ctx, `SELECT count(*) FROM notes`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

const listCategoriesSQL = `
SELECT id, owner_id, name, icon
FROM categories
ORDER BY name`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.pool.Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Icon); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func scanNote(row pgx.Row) (Note, error) {
	var n Note
	err := row.Scan(&n.ID, &n.OwnerID, &n.CategoryID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt)
	return n, err
}

func scanNotes(rows pgx.Rows) ([]Note, error) {
	var out []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.OwnerID, &n.CategoryID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning note: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func scanRefs(rows pgx.Rows) ([]Ref, error) {
	var out []Ref
	for rows.Next() {
		var r Ref
		if err := rows.Scan(&r.ID, &r.Title, &r.CategoryID, &r.CategoryName, &r.CategoryIcon); err != nil {
			return nil, fmt.Errorf("scanning note ref: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
