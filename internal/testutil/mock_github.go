// Package testutil provides a mock GitHub search API for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// SearchPath is the path the go-github client requests for repository search.
const SearchPath = "/search/repositories"

// MockPageResponse overrides the answer for one page number.
type MockPageResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockRepo is the subset of a GitHub repository the mock serves.
type MockRepo struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	FullName        string `json:"full_name"`
	HTMLURL         string `json:"html_url"`
	Language        string `json:"language"`
	UpdatedAt       string `json:"updated_at"`
	PushedAt        string `json:"pushed_at"`
	StargazersCount int    `json:"stargazers_count"`
}

// MockGitHub is a configurable mock of GET /search/repositories.
//
// By default it serves TotalCount generated repositories, per_page at a
// time, with IDs 1..TotalCount. Individual pages can be overridden with
// SetPageResponse. It is safe for concurrent use.
type MockGitHub struct {
	server *httptest.Server

	mu         sync.RWMutex
	totalCount int
	repos      func(id int64) MockRepo
	overrides  map[int]MockPageResponse
	requests   map[int]int
	queries    []string
	lastHeader http.Header
}

// NewMockGitHub starts a mock server that reports totalCount results.
func NewMockGitHub(totalCount int) *MockGitHub {
	mock := &MockGitHub{
		totalCount: totalCount,
		repos:      DefaultRepo,
		overrides:  make(map[int]MockPageResponse),
		requests:   make(map[int]int),
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// URL returns the mock server root, usable as the client base URL.
func (m *MockGitHub) URL() string {
	return m.server.URL + "/"
}

// Close shuts down the mock server.
func (m *MockGitHub) Close() {
	m.server.Close()
}

// SetTotalCount changes the reported total_count.
func (m *MockGitHub) SetTotalCount(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalCount = n
}

// SetRepoFunc replaces the generator used for repository id.
func (m *MockGitHub) SetRepoFunc(fn func(id int64) MockRepo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.repos = fn
}

// SetPageResponse overrides the response for one page number.
func (m *MockGitHub) SetPageResponse(page int, resp MockPageResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[page] = resp
}

// RequestCount returns the total number of search requests served.
func (m *MockGitHub) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, c := range m.requests {
		n += c
	}
	return n
}

// PageRequests returns how many times page was requested.
func (m *MockGitHub) PageRequests(page int) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requests[page]
}

// Queries returns the q parameters received, in arrival order.
func (m *MockGitHub) Queries() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.queries...)
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockGitHub) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastHeader
}

func (m *MockGitHub) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != SearchPath {
		http.NotFound(w, r)
		return
	}

	page := atoiDefault(r.URL.Query().Get("page"), 1)
	perPage := atoiDefault(r.URL.Query().Get("per_page"), 30)

	m.mu.Lock()
	m.requests[page]++
	m.queries = append(m.queries, r.URL.Query().Get("q"))
	m.lastHeader = r.Header.Clone()
	override, hasOverride := m.overrides[page]
	total := m.totalCount
	gen := m.repos
	m.mu.Unlock()

	if hasOverride {
		if override.Delay > 0 {
			select {
			case <-time.After(override.Delay):
			case <-r.Context().Done():
				return
			}
		}
		for key, value := range override.Headers {
			w.Header().Set(key, value)
		}
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
		}
		w.WriteHeader(override.StatusCode)
		if override.Body != "" {
			w.Write([]byte(override.Body))
		}
		return
	}

	// GitHub serves at most 1000 search results
	served := min(total, 1000)
	items := make([]MockRepo, 0, perPage)
	for i := (page-1)*perPage + 1; i <= page*perPage && i <= served; i++ {
		items = append(items, gen(int64(i)))
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-RateLimit-Limit", "30")
	w.Header().Set("X-RateLimit-Remaining", "29")
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Minute).Unix(), 10))
	w.Header().Set("X-RateLimit-Resource", "search")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"total_count":        total,
		"incomplete_results": false,
		"items":              items,
	})
}

// DefaultRepo generates a deterministic repository for id. Stars equal the
// ID and names sort in ID order.
func DefaultRepo(id int64) MockRepo {
	name := fmt.Sprintf("repo-%05d", id)
	updated := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Hour)
	return MockRepo{
		ID:              id,
		Name:            name,
		FullName:        "user/" + name,
		HTMLURL:         "https://github.com/user/" + name,
		Language:        "PHP",
		UpdatedAt:       updated.Format(time.RFC3339),
		PushedAt:        updated.Add(-time.Hour).Format(time.RFC3339),
		StargazersCount: int(id),
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockPageResponse {
	return MockPageResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"message": "Server Error"}`,
	}
}

// NewValidationErrorResponse creates a 422 response as GitHub sends for bad queries.
func NewValidationErrorResponse() MockPageResponse {
	return MockPageResponse{
		StatusCode: http.StatusUnprocessableEntity,
		Body:       `{"message": "Validation Failed", "errors": [{"resource": "Search", "field": "q", "code": "invalid"}]}`,
	}
}

// NewQuotaExhaustedResponse creates a primary rate limit 403 with the
// remaining quota at zero.
func NewQuotaExhaustedResponse() MockPageResponse {
	return MockPageResponse{
		StatusCode: http.StatusForbidden,
		Body:       `{"message": "API rate limit exceeded for 127.0.0.1.", "documentation_url": "https://docs.github.com/rest/overview/resources-in-the-rest-api#rate-limiting"}`,
		Headers: map[string]string{
			"X-RateLimit-Limit":     "10",
			"X-RateLimit-Remaining": "0",
			"X-RateLimit-Reset":     strconv.FormatInt(time.Now().Add(time.Minute).Unix(), 10),
			"X-RateLimit-Resource":  "search",
		},
	}
}

// NewTooManyRequestsResponse creates a 429 response.
func NewTooManyRequestsResponse() MockPageResponse {
	return MockPageResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"message": "Too Many Requests"}`,
	}
}

// NewMalformedResponse creates a 200 response with a truncated JSON body.
func NewMalformedResponse() MockPageResponse {
	return MockPageResponse{
		StatusCode: http.StatusOK,
		Body:       `{"total_count": 12, "items": [`,
	}
}

func atoiDefault(s string, fallback int) int {
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return fallback
}
