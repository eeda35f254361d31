// Package pagination provides concurrent fetching of a bounded range of remote pages
package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Config holds batch fetcher configuration
type Config struct {
	// MaxConcurrency is the maximum number of parallel page requests
	MaxConcurrency int
	// Timeout per page fetch
	Timeout time.Duration
}

// DefaultConfig returns the default configuration: one goroutine per
// follow-up page for a five page fan-out.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
	}
}

// PageFunc fetches a single page.
type PageFunc[T any] func(ctx context.Context, pageNum int) (T, error)

// PageResult represents the result of fetching a single page
type PageResult[T any] struct {
	PageNumber int
	Data       T
	Error      error
	Duration   time.Duration
}

// OK reports whether the page was fetched.
func (r PageResult[T]) OK() bool {
	return r.Error == nil
}

// BatchFetcher fetches page ranges concurrently and waits for all of them.
type BatchFetcher[T any] struct {
	fetch  PageFunc[T]
	config Config
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher[T any](fetch PageFunc[T], config Config) *BatchFetcher[T] {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}

	return &BatchFetcher[T]{
		fetch:  fetch,
		config: config,
	}
}

// FetchPages fetches pages first..last (inclusive) in parallel and returns
// one result per page, ordered by page number regardless of completion order.
// A failed page never cancels its siblings; every fetch is awaited.
func (bf *BatchFetcher[T]) FetchPages(ctx context.Context, first, last int) []PageResult[T] {
	if last < first {
		return nil
	}

	start := time.Now()
	results := make([]PageResult[T], last-first+1)

	var g errgroup.Group
	g.SetLimit(bf.config.MaxConcurrency)

	for i := range results {
		pageNum := first + i
		g.Go(func() error {
			results[i] = bf.fetchOne(ctx, pageNum)
			return nil
		})
	}

	// Goroutines report through results; Wait is only the join point.
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
		}
	}

	log.Debug().
		Int("first_page", first).
		Int("last_page", last).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("Batch fetch complete")

	return results
}

// fetchOne runs a single page fetch under the per-page timeout.
func (bf *BatchFetcher[T]) fetchOne(ctx context.Context, pageNum int) (result PageResult[T]) {
	result.PageNumber = pageNum
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result.Error = fmt.Errorf("page %d: panic: %v", pageNum, r)
		}
		result.Duration = time.Since(start)
	}()

	if err := ctx.Err(); err != nil {
		result.Error = err
		return result
	}

	pageCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
	defer cancel()

	data, err := bf.fetch(pageCtx, pageNum)
	if err != nil {
		log.Warn().
			Err(err).
			Int("page", pageNum).
			Msg("Page fetch failed")
		result.Error = err
		return result
	}

	result.Data = data
	return result
}
