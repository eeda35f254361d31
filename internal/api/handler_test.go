package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/topic-repo-search/pkg/search"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSearcher struct {
	mu      sync.Mutex
	result  *search.Result
	block   bool
	queries []search.Query
}

func (f *fakeSearcher) Search(ctx context.Context, q search.Query) *search.Result {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return &search.Result{
			Error:   true,
			Message: search.MessageNetworkError + ": " + ctx.Err().Error(),
			Data:    []search.Repository{},
			Status:  search.StatusNetworkError,
		}
	}
	return f.result
}

func (f *fakeSearcher) lastQuery(t *testing.T) search.Query {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.queries)
	return f.queries[len(f.queries)-1]
}

func okResult() *search.Result {
	updated := time.Date(2024, 3, 14, 8, 48, 37, 0, time.UTC)
	return &search.Result{
		Data: []search.Repository{
			{
				ID:        123,
				Name:      "Sample-Repo",
				FullName:  "user/Sample-Repo",
				HTMLURL:   "https://github.com/user/Sample-Repo",
				Language:  "PHP",
				UpdatedAt: updated,
				PushedAt:  updated.Add(-time.Hour),
				Stars:     100,
			},
		},
		Total:       41,
		PerPage:     1,
		CurrentPage: 2,
		Status:      search.StatusOK,
	}
}

func serve(t *testing.T, h *Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	router := NewRouter(h, RouterConfig{CORSOrigins: []string{"*"}})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestListRepositories_OK(t *testing.T) {
	searcher := &fakeSearcher{result: okResult()}
	h := NewHandler(searcher, 0)

	w := serve(t, h, "/api/repos?topic=php&search=cli&sort=popularity&order=desc&per_page=1&page=2")

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotContains(t, body, "error")
	assert.EqualValues(t, 41, body["total"])
	assert.EqualValues(t, 1, body["per_page"])
	assert.EqualValues(t, 2, body["current_page"])

	data := body["data"].([]any)
	require.Len(t, data, 1)
	repo := data[0].(map[string]any)
	assert.EqualValues(t, 123, repo["id"])
	assert.Equal(t, "Sample-Repo", repo["name"])
	assert.Equal(t, "user/Sample-Repo", repo["full_name"])
	assert.Equal(t, "https://github.com/user/Sample-Repo", repo["html_url"])
	assert.Equal(t, "PHP", repo["language"])
	assert.Equal(t, "2024-03-14T08:48:37Z", repo["updated_at"])
	assert.Equal(t, "2024-03-14T07:48:37Z", repo["pushed_at"])
	assert.EqualValues(t, 100, repo["stargazers_count"])

	q := searcher.lastQuery(t)
	assert.Equal(t, search.Query{
		Topic:   "php",
		Term:    "cli",
		Sort:    search.SortPopularity,
		Order:   search.OrderDesc,
		PerPage: 1,
		Page:    2,
	}, q)
}

func TestListRepositories_Defaults(t *testing.T) {
	searcher := &fakeSearcher{result: okResult()}
	h := NewHandler(searcher, 0)

	w := serve(t, h, "/api/repos")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, search.DefaultQuery(), searcher.lastQuery(t))
}

func TestListRepositories_Empty(t *testing.T) {
	searcher := &fakeSearcher{result: &search.Result{
		Error:   true,
		Message: search.MessageEmpty,
		Data:    []search.Repository{},
		Status:  search.StatusEmpty,
	}}
	h := NewHandler(searcher, 0)

	w := serve(t, h, "/api/repos?topic=nothing-here")

	require.Equal(t, http.StatusOK, w.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Error)
	assert.Equal(t, search.MessageEmpty, body.Message)
	assert.NotNil(t, body.Data)
	assert.Empty(t, body.Data)
	assert.Zero(t, body.Total)
}

func TestListRepositories_NetworkError(t *testing.T) {
	searcher := &fakeSearcher{result: &search.Result{
		Error:   true,
		Message: "Failed to reach GitHub: connection refused",
		Data:    []search.Repository{},
		Status:  search.StatusNetworkError,
	}}
	h := NewHandler(searcher, 0)

	w := serve(t, h, "/api/repos")

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to reach GitHub")
}

func TestListRepositories_Timeout(t *testing.T) {
	searcher := &fakeSearcher{block: true}
	h := NewHandler(searcher, 20*time.Millisecond)

	w := serve(t, h, "/api/repos")

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestListRepositories_InvalidParams(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{name: "unknown sort", query: "sort=stars"},
		{name: "unknown order", query: "order=sideways"},
		{name: "per_page too large", query: "per_page=101"},
		{name: "per_page not a number", query: "per_page=ten"},
		{name: "negative page", query: "page=-1"},
		{name: "page above max", query: "per_page=2&page=4611686018427387905"},
		{name: "topic with spaces", query: "topic=php+laravel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &fakeSearcher{result: okResult()}
			h := NewHandler(searcher, 0)

			w := serve(t, h, "/api/repos?"+tt.query)

			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.True(t, body.Error)
			assert.NotEmpty(t, body.Message)
			assert.Empty(t, searcher.queries)
		})
	}
}

func TestHealth(t *testing.T) {
	h := NewHandler(&fakeSearcher{}, 0)

	w := serve(t, h, "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestFormatTime(t *testing.T) {
	assert.Empty(t, formatTime(time.Time{}))

	loc := time.FixedZone("CET", 3600)
	assert.Equal(t, "2024-03-14T07:48:37Z", formatTime(time.Date(2024, 3, 14, 8, 48, 37, 0, loc)))
}
