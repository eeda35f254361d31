package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/topic-repo-search/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for retry operations.
var (
	githubRetriesTotal = promauto.With(metrics.Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "github_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	githubRetryExhaustedTotal = promauto.With(metrics.Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "github_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the configuration for retry logic.
// The worst-case added latency of one fetch is (MaxAttempts-1) * Delay.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// Delay is the fixed wait between attempts.
	Delay time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		Delay:       2 * time.Second,
	}
}

// WorstCaseDelay returns the cumulative sleep of a fetch that fails every attempt.
func (c RetryConfig) WorstCaseDelay() time.Duration {
	if c.MaxAttempts <= 1 {
		return 0
	}
	return time.Duration(c.MaxAttempts-1) * c.Delay
}

// retryWithFixedDelay executes fn until it succeeds, returns a
// non-retryable error, or MaxAttempts is reached. Errors are classified
// through *FetchError; anything else counts as a network error.
func retryWithFixedDelay(ctx context.Context, config RetryConfig, fn func(attempt int) error) error {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}

	var lastErr error
	errorClass := ErrorClassNetwork

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			if attempt > 1 {
				log.Info().
					Str("error_class", string(errorClass)).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		lastErr = err
		errorClass = ErrorClassNetwork
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			errorClass = fetchErr.ErrorClass
		}

		// Don't retry client, quota or malformed errors
		if !shouldRetry(errorClass) {
			return lastErr
		}

		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v: %w", ErrContextCancelled, ctx.Err(), lastErr)
		}

		// If this was the last attempt, don't wait
		if attempt >= config.MaxAttempts {
			break
		}

		githubRetriesTotal.WithLabelValues(string(errorClass)).Inc()

		log.Debug().
			Str("error_class", string(errorClass)).
			Int("attempt", attempt).
			Dur("delay", config.Delay).
			Msg("Retrying request after delay")

		timer := time.NewTimer(config.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Warn().
				Str("error_class", string(errorClass)).
				Int("attempt", attempt).
				Msg("Context cancelled during retry delay")
			return fmt.Errorf("%w: %v: %w", ErrContextCancelled, ctx.Err(), lastErr)
		case <-timer.C:
		}
	}

	githubRetryExhaustedTotal.WithLabelValues(string(errorClass)).Inc()
	log.Warn().
		Str("error_class", string(errorClass)).
		Int("max_attempts", config.MaxAttempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, config.MaxAttempts, lastErr)
}
