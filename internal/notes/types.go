package notes

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Note is a stored snippet note. Content holds the editor's structured
// document tree verbatim; this service only derives artifacts from it.
type Note struct {
	ID         uuid.UUID
	OwnerID    uuid.UUID
	CategoryID *uuid.UUID
	Title      string
	Content    json.RawMessage
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Category groups notes ("technologies" in the UI) and carries the icon
// shown next to search results.
type Category struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
	Name    string
	Icon    string
}

// Ref is a note reference resolved with its category, the uniform shape
// consumed by search and answer surfaces.
type Ref struct {
	ID           uuid.UUID
	Title        string
	CategoryID   *uuid.UUID
	CategoryName string
	CategoryIcon string
}
