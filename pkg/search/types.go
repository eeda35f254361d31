// Package search implements the aggregation engine: it probes the first
// remote page, fans out to the remaining pages concurrently, and returns a
// deduplicated, sorted and locally paginated view of the merged results.
package search

import (
	"context"
	"time"
)

// Repository is one repository record returned by the remote search API.
// ID is the identity used for deduplication.
type Repository struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	FullName  string    `json:"full_name"`
	HTMLURL   string    `json:"html_url"`
	Language  string    `json:"language"`
	UpdatedAt time.Time `json:"updated_at"`
	PushedAt  time.Time `json:"pushed_at"`
	Stars     int       `json:"stargazers_count"`
}

// Page is a successfully fetched remote page.
type Page struct {
	// Number is the 1-based remote page number.
	Number int

	// TotalCount is the remote API's reported number of matches.
	TotalCount int

	// Incomplete mirrors GitHub's incomplete_results flag.
	Incomplete bool

	Items []Repository
}

// PageFetcher fetches a single remote page for a query.
// Implementations must be safe for concurrent use.
type PageFetcher interface {
	FetchPage(ctx context.Context, q Query, page int) (*Page, error)
}

// Status classifies the outcome of a search.
type Status string

const (
	// StatusOK means at least one repository was merged.
	StatusOK Status = "ok"

	// StatusEmpty means nothing could be merged.
	StatusEmpty Status = "empty"

	// StatusNetworkError means the probe page could not be fetched.
	StatusNetworkError Status = "network_error"
)

// Messages carried by the non-OK outcomes.
const (
	MessageEmpty        = "No data was returned from GitHub. This may be due to rate limiting or other API restrictions."
	MessageNetworkError = "Failed to reach GitHub"
)

// Result is the value returned by Engine.Search.
type Result struct {
	Error       bool         `json:"error,omitempty"`
	Message     string       `json:"message,omitempty"`
	Data        []Repository `json:"data"`
	Total       int          `json:"total"`
	PerPage     int          `json:"per_page"`
	CurrentPage int          `json:"current_page"`

	Status Status `json:"-"`

	// PagesFetched counts remote page requests issued, probe included.
	PagesFetched int `json:"-"`

	// FailedPages lists follow-up pages that contributed no items.
	FailedPages []int `json:"-"`
}

// OK reports whether the search produced data.
func (r *Result) OK() bool {
	return r.Status == StatusOK
}

func emptyResult(message string, pagesFetched int) *Result {
	return &Result{
		Error:        true,
		Message:      message,
		Data:         []Repository{},
		Status:       StatusEmpty,
		PagesFetched: pagesFetched,
	}
}

func networkErrorResult(message string) *Result {
	return &Result{
		Error:        true,
		Message:      message,
		Data:         []Repository{},
		Status:       StatusNetworkError,
		PagesFetched: 1,
	}
}
