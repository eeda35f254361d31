// Package ratelimit implements GitHub rate limit tracking and request gating.
// It monitors the X-RateLimit-Remaining and X-RateLimit-Reset headers and
// shares the observed state between processes through Redis, so that a
// fleet of search servers stops calling GitHub once the window is spent.
package ratelimit

import (
	"time"
)

// Header names sent by the GitHub REST API.
const (
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
	HeaderResource  = "X-RateLimit-Resource"
)

// RedisKeyPrefix prefixes the per-resource state hash.
const RedisKeyPrefix = "github:rate_limit:"

// DefaultResource is the rate limit bucket of the search API.
const DefaultResource = "search"

// Thresholds for rate limit decisions.
const (
	// RemainingThresholdCritical blocks requests when remaining falls below this value.
	RemainingThresholdCritical = 1

	// RemainingThresholdWarning applies throttling when remaining falls below this value.
	RemainingThresholdWarning = 3
)

// RateLimitState represents the current GitHub rate limit window.
type RateLimitState struct {
	// Resource is the GitHub rate limit bucket (search, core, ...).
	Resource string `json:"resource"`

	// Limit is the size of the window, from X-RateLimit-Limit.
	Limit int `json:"limit"`

	// Remaining is the number of requests left, from X-RateLimit-Remaining.
	Remaining int `json:"remaining"`

	// ResetAt is when the window resets, from X-RateLimit-Reset (epoch seconds).
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is the timestamp when this state was last updated.
	LastUpdate time.Time `json:"last_update"`
}

// IsStale returns true if the state data is older than the given duration.
func (s *RateLimitState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// WindowExpired reports whether the reset time has passed, in which case
// Remaining no longer describes the current window.
func (s *RateLimitState) WindowExpired() bool {
	return !s.ResetAt.IsZero() && !time.Now().Before(s.ResetAt)
}

// NeedsCriticalBlock returns true if requests should be blocked until ResetAt.
func (s *RateLimitState) NeedsCriticalBlock() bool {
	return s.Remaining < RemainingThresholdCritical && !s.WindowExpired()
}

// NeedsThrottling returns true if requests should be slowed down.
func (s *RateLimitState) NeedsThrottling() bool {
	return s.Remaining < RemainingThresholdWarning && !s.NeedsCriticalBlock() && !s.WindowExpired()
}

// IsHealthy reports whether requests pass without restriction.
func (s *RateLimitState) IsHealthy() bool {
	return !s.NeedsCriticalBlock() && !s.NeedsThrottling()
}

// TimeUntilReset returns the duration until the window resets.
// Returns 0 if the reset time has already passed.
func (s *RateLimitState) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}
