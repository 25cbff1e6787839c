package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notelace/notelace/internal/search"
)

func TestSearch(t *testing.T) {
	ts := newTestServer()
	ts.searcher.results = []search.Result{
		{ID: uuid.New(), Title: "Channel patterns"},
		{ID: uuid.New(), Title: "Select loops"},
	}

	rec := ts.do(t, http.MethodGet, "/api/search?q=channels", "")

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[searchResponse](t, rec)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "Channel patterns", resp.Results[0].Title)
	assert.Equal(t, "channels", ts.searcher.gotQuery)
	assert.Nil(t, ts.searcher.gotCategory)
}

func TestSearchWithCategoryFilter(t *testing.T) {
	ts := newTestServer()
	catID := uuid.New()

	rec := ts.do(t, http.MethodGet, "/api/search?q=auth&category="+catID.String(), "")

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, ts.searcher.gotCategory)
	assert.Equal(t, catID, *ts.searcher.gotCategory)
}

func TestSearchBadCategory(t *testing.T) {
	ts := newTestServer()
	rec := ts.do(t, http.MethodGet, "/api/search?q=auth&category=nope", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, ts.searcher.calls)
}

func TestSearchEmptyQuerySkipsStrategies(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodGet, "/api/search?q=++", "")

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[searchResponse](t, rec)
	assert.Empty(t, resp.Results)
	assert.Zero(t, ts.searcher.calls, "a blank query must not hit the strategies")
}

func TestSearchFailureIs500(t *testing.T) {
	ts := newTestServer()
	ts.searcher.err = errors.New("both strategies failed")

	rec := ts.do(t, http.MethodGet, "/api/search?q=x", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStreamSearch(t *testing.T) {
	ts := newTestServer()
	ts.searcher.results = []search.Result{{ID: uuid.New(), Title: "Channel patterns"}}

	rec := ts.do(t, http.MethodGet, "/api/search/stream?q=channels", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "event: results")
	assert.Contains(t, body, `"semantic":true`)
	assert.Contains(t, body, "Channel patterns")
	assert.Contains(t, body, "event: done")
}

func TestStreamSearchFailureEmitsErrorEvent(t *testing.T) {
	ts := newTestServer()
	ts.searcher.err = errors.New("both strategies failed")

	rec := ts.do(t, http.MethodGet, "/api/search/stream?q=x", "")

	body := rec.Body.String()
	assert.Contains(t, body, "event: error")
	assert.NotContains(t, body, "event: done")
}

func TestStreamSearchRequiresQuery(t *testing.T) {
	ts := newTestServer()
	rec := ts.do(t, http.MethodGet, "/api/search/stream", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchNilResultsServeEmptyArray(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodGet, "/api/search?q=nothing", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"results":[]}`, rec.Body.String())
}
