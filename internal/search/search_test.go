package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/notelace/notelace/internal/log"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stubStrategy returns canned results, optionally failing or blocking on a
// release channel so tests can control arrival order deterministically; a
// finished channel, when set, is closed once the strategy returns so
// another stub can be released by it. With echoQuery set it returns a
// single hit titled after the query, which lets tests tell deliveries of
// overlapping queries apart.
type stubStrategy struct {
	results   []Result
	err       error
	release   chan struct{}
	finished  chan struct{}
	echoQuery bool

	mu          sync.Mutex
	gotLimit    int32
	gotCategory *uuid.UUID
}

func (s *stubStrategy) Search(ctx context.Context, query string, limit int32, categoryID *uuid.UUID) ([]Result, error) {
	if s.finished != nil {
		defer close(s.finished)
	}
	s.mu.Lock()
	s.gotLimit = limit
	s.gotCategory = categoryID
	s.mu.Unlock()
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.echoQuery {
		return []Result{scored(query, 0.9)}, s.err
	}
	return s.results, s.err
}

func ref(title string) Result {
	return Result{ID: uuid.New(), Title: title}
}

func scored(title string, sim float32) Result {
	r := ref(title)
	r.Similarity = &sim
	return r
}

func TestSearchSemanticSupersedesLexical(t *testing.T) {
	y := scored("y", 0.9)
	lexical := &stubStrategy{results: []Result{ref("x"), {ID: y.ID, Title: "y"}}}
	semantic := &stubStrategy{results: []Result{y, scored("z", 0.8), scored("w", 0.7)}}
	e := New(lexical, semantic, log.NewNop())

	got, err := e.Search(context.Background(), "yz", nil)

	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "y", got[0].Title)
	assert.Equal(t, "z", got[1].Title)
	assert.Equal(t, "w", got[2].Title)
}

func TestSearchEmptySemanticKeepsLexical(t *testing.T) {
	lexical := &stubStrategy{results: []Result{ref("x")}}
	semantic := &stubStrategy{}
	e := New(lexical, semantic, log.NewNop())

	got, err := e.Search(context.Background(), "x", nil)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "x", got[0].Title)
}

func TestSearchSemanticFailureDegradesToLexical(t *testing.T) {
	lexical := &stubStrategy{results: []Result{ref("x")}}
	semantic := &stubStrategy{err: errors.New("model unreachable")}
	e := New(lexical, semantic, log.NewNop())

	got, err := e.Search(context.Background(), "x", nil)

	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestSearchLexicalFailureDegradesToSemantic(t *testing.T) {
	lexical := &stubStrategy{err: errors.New("db down")}
	semantic := &stubStrategy{results: []Result{scored("z", 0.8)}}
	e := New(lexical, semantic, log.NewNop())

	got, err := e.Search(context.Background(), "z", nil)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "z", got[0].Title)
}

func TestSearchBothFailuresSurface(t *testing.T) {
	lexErr := errors.New("db down")
	semErr := errors.New("model unreachable")
	e := New(&stubStrategy{err: lexErr}, &stubStrategy{err: semErr}, log.NewNop())

	_, err := e.Search(context.Background(), "q", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, lexErr)
	assert.ErrorIs(t, err, semErr)
}

func TestSearchPassesLimitsAndCategory(t *testing.T) {
	catID := uuid.New()
	lexical := &stubStrategy{}
	semantic := &stubStrategy{}
	e := New(lexical, semantic, log.NewNop())

	_, err := e.Search(context.Background(), "q", &catID)

	require.NoError(t, err)
	assert.Equal(t, LexicalLimit, lexical.gotLimit)
	assert.Equal(t, SemanticLimit, semantic.gotLimit)
	require.NotNil(t, lexical.gotCategory)
	assert.Equal(t, catID, *lexical.gotCategory)
	require.NotNil(t, semantic.gotCategory)
	assert.Equal(t, catID, *semantic.gotCategory)
}

func TestStreamSearchDeliversLexicalThenSemantic(t *testing.T) {
	release := make(chan struct{})
	lexical := &stubStrategy{results: []Result{ref("x")}}
	semantic := &stubStrategy{results: []Result{scored("z", 0.8)}, release: release}
	e := New(lexical, semantic, log.NewNop())

	var updates []Update
	done := make(chan error, 1)
	go func() {
		done <- e.StreamSearch(context.Background(), "q", nil, func(u Update) {
			updates = append(updates, u)
			if !u.Semantic {
				// Lexical delivered; let semantic finish.
				close(release)
			}
		})
	}()

	require.NoError(t, <-done)
	require.Len(t, updates, 2)
	assert.False(t, updates[0].Semantic)
	assert.Equal(t, "x", updates[0].Results[0].Title)
	assert.True(t, updates[1].Semantic)
	assert.Equal(t, "z", updates[1].Results[0].Title)
}

func TestStreamSearchDropsLateLexical(t *testing.T) {
	release := make(chan struct{})
	lexical := &stubStrategy{results: []Result{ref("x")}, release: release}
	semantic := &stubStrategy{results: []Result{scored("z", 0.8)}}
	e := New(lexical, semantic, log.NewNop())

	var updates []Update
	done := make(chan error, 1)
	go func() {
		done <- e.StreamSearch(context.Background(), "q", nil, func(u Update) {
			updates = append(updates, u)
			if u.Semantic {
				// Semantic delivered first; now let the slow lexical finish.
				close(release)
			}
		})
	}()

	require.NoError(t, <-done)
	// The late lexical view must never appear after the semantic one.
	require.Len(t, updates, 1)
	assert.True(t, updates[0].Semantic)
}

func TestStreamSearchEmptySemanticBeforeLexical(t *testing.T) {
	semanticDone := make(chan struct{})
	// Lexical does not start returning until the semantic branch finished
	// empty-handed.
	lexical := &stubStrategy{results: []Result{ref("x")}, release: semanticDone}
	semantic := &stubStrategy{finished: semanticDone}
	e := New(lexical, semantic, log.NewNop())

	var updates []Update
	err := e.StreamSearch(context.Background(), "q", nil, func(u Update) {
		updates = append(updates, u)
	})

	require.NoError(t, err)
	// An empty semantic view finishing first must not suppress the slower
	// lexical delivery; the caller would otherwise see nothing at all.
	require.Len(t, updates, 1)
	assert.False(t, updates[0].Semantic)
	assert.Equal(t, "x", updates[0].Results[0].Title)
}

func TestStreamSearchSemanticFailureBeforeLexical(t *testing.T) {
	semanticDone := make(chan struct{})
	lexical := &stubStrategy{results: []Result{ref("x")}, release: semanticDone}
	semantic := &stubStrategy{err: errors.New("model unreachable"), finished: semanticDone}
	e := New(lexical, semantic, log.NewNop())

	var updates []Update
	err := e.StreamSearch(context.Background(), "q", nil, func(u Update) {
		updates = append(updates, u)
	})

	require.NoError(t, err)
	// A failed semantic branch finishing first must still leave the
	// lexical results as the final answer.
	require.Len(t, updates, 1)
	assert.False(t, updates[0].Semantic)
	assert.Equal(t, "x", updates[0].Results[0].Title)
}

func TestStreamSearchEmptySemanticSingleDelivery(t *testing.T) {
	lexical := &stubStrategy{results: []Result{ref("x")}}
	semantic := &stubStrategy{}
	e := New(lexical, semantic, log.NewNop())

	var updates []Update
	err := e.StreamSearch(context.Background(), "q", nil, func(u Update) {
		updates = append(updates, u)
	})

	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.False(t, updates[0].Semantic)
}

func TestSessionDropsStaleQueryResults(t *testing.T) {
	release := make(chan struct{})
	slowSemantic := &stubStrategy{echoQuery: true, release: release}
	lexical := &stubStrategy{}
	e := New(lexical, slowSemantic, log.NewNop())

	var (
		mu      sync.Mutex
		updates []Update
	)
	s := NewSession(e, func(u Update) {
		mu.Lock()
		defer mu.Unlock()
		updates = append(updates, u)
	})

	// First query's semantic is still in flight when the second starts.
	s.Search(context.Background(), "old query", nil)
	s.Search(context.Background(), "new query", nil)
	close(release)
	s.Wait()

	mu.Lock()
	defer mu.Unlock()
	var sawNew bool
	for _, u := range updates {
		for _, r := range u.Results {
			assert.NotEqual(t, "old query", r.Title, "stale query results must be dropped")
			if r.Title == "new query" {
				sawNew = true
			}
		}
	}
	assert.True(t, sawNew, "latest query results must be delivered")
}

func TestSessionDeliversLatestQuery(t *testing.T) {
	semantic := &stubStrategy{results: []Result{scored("hit", 0.9)}}
	e := New(&stubStrategy{}, semantic, log.NewNop())

	var (
		mu     sync.Mutex
		final  []Result
		gotSem bool
	)
	s := NewSession(e, func(u Update) {
		mu.Lock()
		defer mu.Unlock()
		final = u.Results
		gotSem = u.Semantic
	})

	s.Search(context.Background(), "q", nil)
	s.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.True(t, gotSem)
	require.Len(t, final, 1)
	assert.Equal(t, "hit", final[0].Title)
}

func TestSessionSearchReturnsImmediately(t *testing.T) {
	release := make(chan struct{})
	semantic := &stubStrategy{release: release}
	lexical := &stubStrategy{release: release}
	e := New(lexical, semantic, log.NewNop())
	s := NewSession(e, func(Update) {})

	start := time.Now()
	s.Search(context.Background(), "q", nil)
	elapsed := time.Since(start)

	close(release)
	s.Wait()
	assert.Less(t, elapsed, 100*time.Millisecond, "Search must not block on strategies")
}
