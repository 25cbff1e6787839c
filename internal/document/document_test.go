package document

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docWithMentions(ids ...uuid.UUID) []byte {
	inline := ""
	for i, id := range ids {
		if i > 0 {
			inline += ","
		}
		inline += fmt.Sprintf(`{"type":"mention","attrs":{"id":"%s","label":"note-%d"}}`, id, i)
	}
	return fmt.Appendf(nil, `{"type":"doc","content":[{"type":"paragraph","content":[%s]}]}`, inline)
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "simple paragraph",
			raw:  `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"hello world"}]}]}`,
			want: "hello world",
		},
		{
			name: "multiple blocks",
			raw: `{"type":"doc","content":[
				{"type":"heading","content":[{"type":"text","text":"Recursion"}]},
				{"type":"codeBlock","content":[{"type":"text","text":"func f() { f() }"}]}]}`,
			want: "Recursion func f() { f() }",
		},
		{
			name: "mentions contribute no text",
			raw:  `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"mention","attrs":{"id":"x","label":"other"}}]}]}`,
			want: "",
		},
		{
			name: "empty input",
			raw:  "",
			want: "",
		},
		{
			name: "invalid json",
			raw:  `{"type":"doc","content":[`,
			want: "",
		},
		{
			name: "content is not an array",
			raw:  `{"type":"doc","content":"oops"}`,
			want: "",
		},
		{
			name: "content is null",
			raw:  `{"type":"doc","content":null}`,
			want: "",
		},
		{
			name: "bare node list fragment",
			raw:  `[{"type":"text","text":"a"},{"type":"text","text":"b"}]`,
			want: "a b",
		},
		{
			name: "scalar document",
			raw:  `42`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractText([]byte(tt.raw)))
		})
	}
}

func TestExtractMentions(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	raw := docWithMentions(a, b)
	mentions := ExtractMentions(raw)

	require.Len(t, mentions, 2)
	assert.Equal(t, a, mentions[0].NoteID)
	assert.Equal(t, "note-0", mentions[0].Label)
	assert.Equal(t, b, mentions[1].NoteID)
}

func TestExtractMentionsDeduplicates(t *testing.T) {
	a := uuid.New()

	mentions := ExtractMentions(docWithMentions(a, a, a))

	require.Len(t, mentions, 1)
	assert.Equal(t, a, mentions[0].NoteID)
}

func TestExtractMentionsNested(t *testing.T) {
	a := uuid.New()
	raw := fmt.Appendf(nil, `{"type":"doc","content":[
		{"type":"blockquote","content":[
			{"type":"paragraph","content":[
				{"type":"mention","attrs":{"id":"%s","label":"deep"}}]}]}]}`, a)

	mentions := ExtractMentions(raw)

	require.Len(t, mentions, 1)
	assert.Equal(t, "deep", mentions[0].Label)
}

func TestExtractMentionsMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"invalid json", `not json at all`},
		{"empty input", ``},
		{"mention without attrs", `{"type":"mention"}`},
		{"attrs not an object", `{"type":"mention","attrs":[1,2]}`},
		{"id missing", `{"type":"mention","attrs":{"label":"x"}}`},
		{"id not a uuid", `{"type":"mention","attrs":{"id":"42","label":"x"}}`},
		{"id not a string", `{"type":"mention","attrs":{"id":7}}`},
		{"content not an array", `{"type":"doc","content":{"type":"mention"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, ExtractMentions([]byte(tt.raw)))
		})
	}
}

func TestExtractMentionsDeterministic(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	raw := docWithMentions(a, b)

	first := ExtractMentions(raw)
	second := ExtractMentions(raw)

	assert.Equal(t, first, second)
}
