package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/topic-repo-search/pkg/metrics"
	"github.com/Sternrassler/topic-repo-search/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for the aggregation engine.
var (
	searchesTotal = promauto.With(metrics.Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "reposearch_searches_total",
		Help: "Total searches by outcome",
	}, []string{"outcome"})

	searchDuration = promauto.With(metrics.Registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "reposearch_search_duration_seconds",
		Help:    "End-to-end search duration in seconds",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
	})

	pagesTotal = promauto.With(metrics.Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "reposearch_pages_total",
		Help: "Remote pages requested by the engine by status",
	}, []string{"status"})

	fanoutPages = promauto.With(metrics.Registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "reposearch_fanout_pages",
		Help:    "Number of follow-up pages fetched concurrently per search",
		Buckets: []float64{0, 1, 2, 3, 4},
	})
)

// Engine limits.
const (
	// RemotePageSize is the number of items the engine expects per remote page.
	RemotePageSize = 100

	// DefaultCeiling is the maximum number of results materialised per search.
	DefaultCeiling = 500

	// DefaultMaxPages bounds the number of remote pages per search, probe included.
	DefaultMaxPages = 5
)

// EngineConfig holds the engine configuration.
type EngineConfig struct {
	// Ceiling caps the merged result set.
	Ceiling int

	// MaxPages caps the remote page fan-out, probe included.
	MaxPages int

	// RemotePageSize must match the page size the fetcher requests.
	RemotePageSize int

	// MaxConcurrency limits parallel follow-up fetches.
	MaxConcurrency int

	// PageTimeout bounds every follow-up page fetch, retries included.
	PageTimeout time.Duration
}

// DefaultEngineConfig returns the default engine configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Ceiling:        DefaultCeiling,
		MaxPages:       DefaultMaxPages,
		RemotePageSize: RemotePageSize,
		MaxConcurrency: DefaultMaxPages - 1,
		PageTimeout:    45 * time.Second,
	}
}

// RateLimitedError is implemented by fetch errors that can report whether
// the remote API refused the request because of rate limiting.
type RateLimitedError interface {
	error
	RateLimited() bool
}

// Engine aggregates remote pages into a sorted, paginated result.
// It holds no per-search state and is safe for concurrent use.
type Engine struct {
	fetcher PageFetcher
	config  EngineConfig
	logger  zerolog.Logger
}

// NewEngine creates an engine on top of a page fetcher.
func NewEngine(fetcher PageFetcher, cfg EngineConfig) *Engine {
	defaults := DefaultEngineConfig()
	if cfg.Ceiling <= 0 {
		cfg.Ceiling = defaults.Ceiling
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = defaults.MaxPages
	}
	if cfg.RemotePageSize <= 0 {
		cfg.RemotePageSize = defaults.RemotePageSize
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = max(cfg.MaxPages-1, 1)
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = defaults.PageTimeout
	}

	return &Engine{
		fetcher: fetcher,
		config:  cfg,
		logger:  log.With().Str("component", "search-engine").Logger(),
	}
}

// Search runs one aggregation for q. It never returns a nil Result and
// never panics on remote failures: a failed probe becomes a network-error
// result, an empty merge becomes an empty result.
func (e *Engine) Search(ctx context.Context, q Query) *Result {
	start := time.Now()
	result := e.search(ctx, q)
	searchDuration.Observe(time.Since(start).Seconds())
	searchesTotal.WithLabelValues(string(result.Status)).Inc()

	e.logger.Info().
		Str("topic", q.Topic).
		Str("term", q.Term).
		Str("sort", string(q.Sort)).
		Str("order", string(q.Order)).
		Str("status", string(result.Status)).
		Int("total", result.Total).
		Int("pages_fetched", result.PagesFetched).
		Ints("failed_pages", result.FailedPages).
		Dur("duration", time.Since(start)).
		Msg("Search complete")

	return result
}

func (e *Engine) search(ctx context.Context, q Query) *Result {
	// Step 1: probe page 1 for the total count
	probe, err := e.fetcher.FetchPage(ctx, q, 1)
	if err == nil && probe == nil {
		err = errors.New("probe returned no page")
	}
	if err != nil {
		pagesTotal.WithLabelValues("failed").Inc()

		var rl RateLimitedError
		if errors.As(err, &rl) && rl.RateLimited() {
			e.logger.Warn().Err(err).Str("topic", q.Topic).Msg("Probe page rate limited")
			return emptyResult(MessageEmpty, 1)
		}

		e.logger.Error().Err(err).Str("topic", q.Topic).Msg("Probe page failed")
		return networkErrorResult(fmt.Sprintf("%s: %v", MessageNetworkError, err))
	}
	pagesTotal.WithLabelValues("ok").Inc()

	if probe.Incomplete {
		e.logger.Debug().Str("topic", q.Topic).Msg("Remote reported incomplete results")
	}

	// Step 2: decide the fan-out
	needed := pagesNeeded(probe.TotalCount, e.config.Ceiling, e.config.RemotePageSize, e.config.MaxPages)
	fanoutPages.Observe(float64(needed - 1))

	e.logger.Debug().
		Str("topic", q.Topic).
		Int("total_count", probe.TotalCount).
		Int("pages_needed", needed).
		Msg("Probe complete")

	merged := make([]Repository, 0, max(min(probe.TotalCount, e.config.Ceiling), len(probe.Items)))
	merged = append(merged, probe.Items...)

	result := &Result{PagesFetched: 1}

	// Steps 3-4: fetch pages 2..needed concurrently, join, merge in page order
	if needed > 1 {
		fetch := func(ctx context.Context, page int) (*Page, error) {
			return e.fetcher.FetchPage(ctx, q, page)
		}
		bf := pagination.NewBatchFetcher(fetch, pagination.Config{
			MaxConcurrency: e.config.MaxConcurrency,
			Timeout:        e.config.PageTimeout,
		})

		for _, pr := range bf.FetchPages(ctx, 2, needed) {
			result.PagesFetched++
			if !pr.OK() || pr.Data == nil {
				pagesTotal.WithLabelValues("failed").Inc()
				result.FailedPages = append(result.FailedPages, pr.PageNumber)
				continue
			}
			pagesTotal.WithLabelValues("ok").Inc()
			merged = append(merged, pr.Data.Items...)
		}
	}

	if len(merged) == 0 {
		empty := emptyResult(MessageEmpty, result.PagesFetched)
		empty.FailedPages = result.FailedPages
		return empty
	}

	// Steps 5-7: dedup, sort, truncate
	unique := dedupe(merged)
	rank(unique, q.Sort, q.Order)
	if len(unique) > e.config.Ceiling {
		unique = unique[:e.config.Ceiling]
	}

	// Steps 8-9: slice the requested page
	result.Data = paginate(unique, q.PerPage, q.Page)
	result.Total = len(unique)
	result.PerPage = q.PerPage
	result.CurrentPage = q.Page
	result.Status = StatusOK

	return result
}
