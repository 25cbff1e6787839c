// Package document walks the structured content produced by the snippet
// editor. A document arrives as JSON: a tree of typed nodes where leaves
// carry text and inline "mention" nodes reference other notes.
//
// The package is deliberately total: every function accepts arbitrary
// JSON-shaped input and returns a best-effort result instead of an error.
// Malformed or partially structured content yields empty output, never a
// panic. There is no I/O here; everything is deterministic.
package document

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// NodeTypeMention is the type tag the editor assigns to inline references
// between notes. All other node types are opaque to this package beyond
// recursing into their child content.
const NodeTypeMention = "mention"

// Attribute keys carried by mention nodes.
const (
	attrNoteID = "id"
	attrLabel  = "label"
)

// Mention is an inline reference to another note found in document content.
type Mention struct {
	NoteID uuid.UUID
	Label  string
}

// ExtractText flattens all text-bearing nodes of raw into a plain searchable
// string, discarding formatting and structure. Returns "" when nothing
// recognizable is found.
func ExtractText(raw []byte) string {
	var parts []string
	walk(decode(raw), func(n map[string]any) {
		if text, ok := n["text"].(string); ok && text != "" {
			parts = append(parts, text)
		}
	})
	return strings.TrimSpace(strings.Join(parts, " "))
}

// ExtractMentions collects the set of notes referenced by mention nodes in
// raw. The same note mentioned twice collapses to a single entry; order
// follows first appearance in a depth-first traversal. Mention nodes with a
// missing or unparseable target id are skipped.
func ExtractMentions(raw []byte) []Mention {
	var mentions []Mention
	seen := make(map[uuid.UUID]struct{})

	walk(decode(raw), func(n map[string]any) {
		if n["type"] != NodeTypeMention {
			return
		}
		attrs, ok := n["attrs"].(map[string]any)
		if !ok {
			return
		}
		idStr, ok := attrs[attrNoteID].(string)
		if !ok {
			return
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}

		label, _ := attrs[attrLabel].(string)
		mentions = append(mentions, Mention{NoteID: id, Label: label})
	})

	return mentions
}

// decode parses raw into a dynamic value. Invalid JSON decodes to nil,
// which walk treats as an empty tree.
func decode(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

// walk performs a depth-first traversal over a decoded document value,
// invoking visit for every object node. Child content is expected under the
// "content" key as an array; any other shape (absent, null, scalar) simply
// ends recursion for that branch. Top-level arrays are traversed so that
// fragment content (a bare node list) also works.
func walk(v any, visit func(n map[string]any)) {
	switch n := v.(type) {
	case map[string]any:
		visit(n)
		if children, ok := n["content"].([]any); ok {
			for _, child := range children {
				walk(child, visit)
			}
		}
	case []any:
		for _, child := range n {
			walk(child, visit)
		}
	}
}
