package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notelace/notelace/internal/answer"
	"github.com/notelace/notelace/internal/links"
	"github.com/notelace/notelace/internal/log"
	"github.com/notelace/notelace/internal/notes"
	"github.com/notelace/notelace/internal/search"
)

type fakeStore struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]notes.Note
	cats    []notes.Category
	failAll error
}

func newFakeStore() *fakeStore {
	return &fakeStore{byID: map[uuid.UUID]notes.Note{}}
}

func (f *fakeStore) Create(_ context.Context, arg notes.CreateParams) (notes.Note, error) {
	if f.failAll != nil {
		return notes.Note{}, f.failAll
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := notes.Note{
		ID:         uuid.New(),
		OwnerID:    arg.OwnerID,
		CategoryID: arg.CategoryID,
		Title:      arg.Title,
		Content:    arg.Content,
	}
	f.byID[n.ID] = n
	return n, nil
}

func (f *fakeStore) Update(_ context.Context, arg notes.UpdateParams) (notes.Note, error) {
	if f.failAll != nil {
		return notes.Note{}, f.failAll
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.byID[arg.ID]
	if !ok {
		return notes.Note{}, notes.ErrNotFound
	}
	n.CategoryID = arg.CategoryID
	n.Title = arg.Title
	n.Content = arg.Content
	f.byID[arg.ID] = n
	return n, nil
}

func (f *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	if f.failAll != nil {
		return f.failAll
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return notes.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeStore) Get(_ context.Context, id uuid.UUID) (notes.Note, error) {
	if f.failAll != nil {
		return notes.Note{}, f.failAll
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.byID[id]
	if !ok {
		return notes.Note{}, notes.ErrNotFound
	}
	return n, nil
}

func (f *fakeStore) ListCategories(_ context.Context) ([]notes.Category, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	return f.cats, nil
}

type fakeGraph struct {
	outlinks  []links.Outlink
	backlinks []links.Backlink
	err       error
}

func (f *fakeGraph) Outlinks(context.Context, uuid.UUID) ([]links.Outlink, error) {
	return f.outlinks, f.err
}

func (f *fakeGraph) Backlinks(context.Context, uuid.UUID) ([]links.Backlink, error) {
	return f.backlinks, f.err
}

type fakeNotifier struct {
	mu      sync.Mutex
	saved   []uuid.UUID
	deleted []uuid.UUID
}

func (f *fakeNotifier) NoteSaved(noteID uuid.UUID, _ string, _ []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, noteID)
}

func (f *fakeNotifier) NoteDeleted(noteID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, noteID)
}

type fakeSearcher struct {
	results     []search.Result
	err         error
	gotQuery    string
	gotCategory *uuid.UUID
	calls       int
}

func (f *fakeSearcher) Search(_ context.Context, query string, categoryID *uuid.UUID) ([]search.Result, error) {
	f.calls++
	f.gotQuery = query
	f.gotCategory = categoryID
	return f.results, f.err
}

// StreamSearch mimics the engine's delivery order: an interim lexical
// view, then the semantic view when results exist.
func (f *fakeSearcher) StreamSearch(_ context.Context, query string, categoryID *uuid.UUID, apply func(search.Update)) error {
	f.calls++
	f.gotQuery = query
	f.gotCategory = categoryID
	if f.err != nil {
		return f.err
	}
	apply(search.Update{Results: nil})
	if len(f.results) > 0 {
		apply(search.Update{Results: f.results, Semantic: true})
	}
	return nil
}

type fakeAsker struct {
	response  answer.Response
	err       error
	suggested []string
	followUps []string

	gotQuestion string
	gotForced   []uuid.UUID
}

func (f *fakeAsker) Answer(_ context.Context, question string, forced []uuid.UUID) (answer.Response, error) {
	f.gotQuestion = question
	f.gotForced = forced
	return f.response, f.err
}

func (f *fakeAsker) SuggestedQuestions(context.Context) []string { return f.suggested }

func (f *fakeAsker) FollowUps(context.Context, string, string) []string { return f.followUps }

type testServer struct {
	handler  http.Handler
	store    *fakeStore
	graph    *fakeGraph
	notifier *fakeNotifier
	searcher *fakeSearcher
	asker    *fakeAsker
}

func newTestServer() *testServer {
	ts := &testServer{
		store:    newFakeStore(),
		graph:    &fakeGraph{},
		notifier: &fakeNotifier{},
		searcher: &fakeSearcher{},
		asker:    &fakeAsker{},
	}
	srv := NewServer(nil, ts.store, ts.graph, ts.notifier, ts.searcher, ts.asker, log.NewNop())
	ts.handler = srv.Handler()
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestUnknownRouteIs404(t *testing.T) {
	ts := newTestServer()
	rec := ts.do(t, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMethodMismatchIs405(t *testing.T) {
	ts := newTestServer()
	rec := ts.do(t, http.MethodDelete, "/api/search", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	h := chain(panicking, recoveryMiddleware(log.NewNop()), loggingMiddleware(log.NewNop()))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLivenessProbe(t *testing.T) {
	ts := newTestServer()
	rec := ts.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestReadinessWithoutPool(t *testing.T) {
	ts := newTestServer()
	rec := ts.do(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
