// Package client provides the GitHub repository search page fetcher with
// bounded retries, error classification and optional rate limit gating.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/topic-repo-search/pkg/metrics"
	"github.com/Sternrassler/topic-repo-search/pkg/ratelimit"
	"github.com/Sternrassler/topic-repo-search/pkg/search"
	"github.com/google/go-github/v73/github"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Prometheus metrics for GitHub client operations.
var (
	githubRequestsTotal = promauto.With(metrics.Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "github_requests_total",
		Help: "Total GitHub search requests by status",
	}, []string{"status"})

	githubRequestDuration = promauto.With(metrics.Registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "github_request_duration_seconds",
		Help:    "GitHub search request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	})

	githubErrorsTotal = promauto.With(metrics.Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "github_errors_total",
		Help: "Total GitHub errors by class",
	}, []string{"class"})
)

// MaxPerPage is the largest page size the GitHub search API accepts.
const MaxPerPage = 100

// Client fetches single pages of GitHub repository search results.
type Client struct {
	gh          *github.Client
	rateLimiter *ratelimit.Tracker
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// HTTPClient is the connection pool shared by every request. It must be
	// safe for concurrent use; http.DefaultClient is used when nil.
	HTTPClient *http.Client

	// Token is an optional GitHub token. Anonymous search is limited to
	// 10 requests per minute.
	Token string

	// BaseURL overrides the API root (tests, GitHub Enterprise).
	BaseURL string

	// UserAgent header sent with every request.
	UserAgent string

	// RequestTimeout bounds a single attempt.
	RequestTimeout time.Duration

	// Retry policy for transient failures.
	Retry RetryConfig

	// RateLimiter gates requests on shared rate limit state. Optional.
	RateLimiter *ratelimit.Tracker
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(httpClient *http.Client, userAgent string) Config {
	return Config{
		HTTPClient:     httpClient,
		UserAgent:      userAgent,
		RequestTimeout: 10 * time.Second,
		Retry:          DefaultRetryConfig(),
	}
}

// New creates a new GitHub search client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("request_timeout must be > 0 (got %s)", cfg.RequestTimeout)
	}

	if cfg.Retry.MaxAttempts < 1 {
		return nil, fmt.Errorf("retry max_attempts must be >= 1 (got %d)", cfg.Retry.MaxAttempts)
	}

	if cfg.Retry.Delay < 0 {
		return nil, fmt.Errorf("retry delay must not be negative (got %s)", cfg.Retry.Delay)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if cfg.Token != "" {
		// oauth2 wraps the caller's transport, so the connection pool is kept.
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = oauth2.NewClient(ctx, ts)
	}

	gh := github.NewClient(httpClient)
	gh.UserAgent = cfg.UserAgent

	if cfg.BaseURL != "" {
		baseURL := cfg.BaseURL
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parse base url: %w", err)
		}
		gh.BaseURL = u
	}

	return &Client{
		gh:          gh,
		rateLimiter: cfg.RateLimiter,
		config:      cfg,
		logger:      log.With().Str("component", "github-client").Logger(),
	}, nil
}

// BuildQuery composes the GitHub search qualifier string for q:
// "topic:<topic>" followed by "<term> in:name,description" when a term is set.
func BuildQuery(q search.Query) string {
	parts := []string{"topic:" + q.Topic}
	if q.Term != "" {
		parts = append(parts, q.Term, "in:name,description")
	}
	return strings.Join(parts, " ")
}

// FetchPage fetches one page of search results with MaxPerPage items.
// Transient failures are retried per the retry config; the returned error
// is always a *FetchError, possibly wrapped.
func (c *Client) FetchPage(ctx context.Context, q search.Query, page int) (*search.Page, error) {
	query := BuildQuery(q)
	opts := &github.SearchOptions{
		ListOptions: github.ListOptions{
			Page:    page,
			PerPage: MaxPerPage,
		},
	}

	var result *github.RepositoriesSearchResult

	err := retryWithFixedDelay(ctx, c.config.Retry, func(attempt int) error {
		res, err := c.do(ctx, query, page, opts)
		if err != nil {
			c.logger.Warn().
				Err(err).
				Int("page", page).
				Int("attempt", attempt).
				Msg("GitHub search request error")
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	return toPage(page, result), nil
}

// do performs a single attempt.
func (c *Client) do(ctx context.Context, query string, page int, opts *github.SearchOptions) (*github.RepositoriesSearchResult, error) {
	// Step 1: Check Rate Limit
	if c.rateLimiter != nil {
		allowed, err := c.rateLimiter.ShouldAllowRequest(ctx)
		if err != nil {
			// Redis trouble must not stop searches
			c.logger.Warn().Err(err).Msg("Rate limit check failed")
		} else if !allowed {
			return nil, c.fetchError(page, ErrRequestBlocked)
		}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	// Step 2: Execute request
	c.logger.Debug().
		Str("query", query).
		Int("page", page).
		Msg("Executing GitHub search request")

	start := time.Now()
	res, resp, err := c.gh.Search.Repositories(attemptCtx, query, opts)
	githubRequestDuration.Observe(time.Since(start).Seconds())

	// Step 3: Update Rate Limit from headers
	if c.rateLimiter != nil && resp != nil && resp.Response != nil {
		if uerr := c.rateLimiter.UpdateFromHeaders(ctx, resp.Header); uerr != nil {
			c.logger.Warn().Err(uerr).Msg("Failed to update rate limit from headers")
		}
	}

	if err != nil {
		return nil, c.fetchError(page, err)
	}

	// Step 4: Validate payload
	if verr := validatePayload(res); verr != nil {
		return nil, c.fetchError(page, verr)
	}

	githubRequestsTotal.WithLabelValues(strconv.Itoa(statusOf(resp.Response))).Inc()
	return res, nil
}

// validatePayload rejects results missing total_count, items or an item id.
// An empty result set still carries "items": [].
func validatePayload(res *github.RepositoriesSearchResult) error {
	if res == nil || res.Total == nil {
		return fmt.Errorf("%w: missing total_count", ErrMalformedResponse)
	}
	if res.Repositories == nil {
		return fmt.Errorf("%w: missing items", ErrMalformedResponse)
	}
	for i, repo := range res.Repositories {
		if repo == nil || repo.ID == nil {
			return fmt.Errorf("%w: item %d has no id", ErrMalformedResponse, i)
		}
	}
	return nil
}

// fetchError classifies err and records it.
func (c *Client) fetchError(page int, err error) *FetchError {
	errClass, status := classifyError(err)
	githubErrorsTotal.WithLabelValues(string(errClass)).Inc()

	label := strconv.Itoa(status)
	if status == 0 {
		label = string(errClass)
	}
	githubRequestsTotal.WithLabelValues(label).Inc()

	c.logger.Debug().
		Str("class", string(errClass)).
		Int("status", status).
		Msg("Error classified")

	return &FetchError{
		Page:       page,
		StatusCode: status,
		ErrorClass: errClass,
		Message:    errorMessage(errClass),
		Err:        err,
	}
}

func errorMessage(class ErrorClass) string {
	switch class {
	case ErrorClassQuota:
		return "rate limit exhausted"
	case ErrorClassRateLimit:
		return "rate limited"
	case ErrorClassServer:
		return "server error"
	case ErrorClassClient:
		return "request rejected"
	case ErrorClassMalformed:
		return "unexpected response body"
	default:
		return "request failed"
	}
}

// toPage converts the go-github result into the engine's page type.
func toPage(page int, res *github.RepositoriesSearchResult) *search.Page {
	items := make([]search.Repository, 0, len(res.Repositories))
	for _, repo := range res.Repositories {
		if repo == nil {
			continue
		}
		items = append(items, search.Repository{
			ID:        repo.GetID(),
			Name:      repo.GetName(),
			FullName:  repo.GetFullName(),
			HTMLURL:   repo.GetHTMLURL(),
			Language:  repo.GetLanguage(),
			UpdatedAt: repo.GetUpdatedAt().Time,
			PushedAt:  repo.GetPushedAt().Time,
			Stars:     repo.GetStargazersCount(),
		})
	}

	return &search.Page{
		Number:     page,
		TotalCount: res.GetTotal(),
		Incomplete: res.GetIncompleteResults(),
		Items:      items,
	}
}
