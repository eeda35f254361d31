package ratelimit

import (
	"testing"
	"time"
)

func TestRateLimitState_IsStale(t *testing.T) {
	tests := []struct {
		name       string
		lastUpdate time.Time
		maxAge     time.Duration
		expected   bool
	}{
		{
			name:       "fresh state",
			lastUpdate: time.Now(),
			maxAge:     time.Minute,
			expected:   false,
		},
		{
			name:       "stale state",
			lastUpdate: time.Now().Add(-2 * time.Minute),
			maxAge:     time.Minute,
			expected:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &RateLimitState{LastUpdate: tt.lastUpdate}
			if got := state.IsStale(tt.maxAge); got != tt.expected {
				t.Errorf("IsStale() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRateLimitState_WindowExpired(t *testing.T) {
	tests := []struct {
		name     string
		resetAt  time.Time
		expected bool
	}{
		{name: "unknown reset", resetAt: time.Time{}, expected: false},
		{name: "future reset", resetAt: time.Now().Add(time.Minute), expected: false},
		{name: "past reset", resetAt: time.Now().Add(-time.Second), expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &RateLimitState{ResetAt: tt.resetAt}
			if got := state.WindowExpired(); got != tt.expected {
				t.Errorf("WindowExpired() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRateLimitState_Decisions(t *testing.T) {
	future := time.Now().Add(30 * time.Second)
	past := time.Now().Add(-30 * time.Second)

	tests := []struct {
		name           string
		remaining      int
		resetAt        time.Time
		expectBlock    bool
		expectThrottle bool
		expectHealthy  bool
	}{
		{
			name:          "healthy - full window",
			remaining:     30,
			resetAt:       future,
			expectHealthy: true,
		},
		{
			name:          "at warning threshold - allow immediately",
			remaining:     RemainingThresholdWarning,
			resetAt:       future,
			expectHealthy: true,
		},
		{
			name:           "warning - throttle",
			remaining:      2,
			resetAt:        future,
			expectThrottle: true,
		},
		{
			name:           "at critical threshold - throttle",
			remaining:      RemainingThresholdCritical,
			resetAt:        future,
			expectThrottle: true,
		},
		{
			name:        "spent window - block",
			remaining:   0,
			resetAt:     future,
			expectBlock: true,
		},
		{
			name:          "spent but expired window - allow",
			remaining:     0,
			resetAt:       past,
			expectHealthy: true,
		},
		{
			name:          "low but expired window - allow",
			remaining:     1,
			resetAt:       past,
			expectHealthy: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &RateLimitState{
				Remaining:  tt.remaining,
				ResetAt:    tt.resetAt,
				LastUpdate: time.Now(),
			}

			if got := state.NeedsCriticalBlock(); got != tt.expectBlock {
				t.Errorf("NeedsCriticalBlock() = %v, want %v (remaining=%d)", got, tt.expectBlock, tt.remaining)
			}
			if got := state.NeedsThrottling(); got != tt.expectThrottle {
				t.Errorf("NeedsThrottling() = %v, want %v (remaining=%d)", got, tt.expectThrottle, tt.remaining)
			}
			if got := state.IsHealthy(); got != tt.expectHealthy {
				t.Errorf("IsHealthy() = %v, want %v (remaining=%d)", got, tt.expectHealthy, tt.remaining)
			}
		})
	}
}

func TestRateLimitState_TimeUntilReset(t *testing.T) {
	tests := []struct {
		name     string
		resetAt  time.Time
		min, max time.Duration
	}{
		{
			name:    "reset in future",
			resetAt: time.Now().Add(30 * time.Second),
			min:     29 * time.Second,
			max:     30 * time.Second,
		},
		{
			name:    "reset in past",
			resetAt: time.Now().Add(-10 * time.Second),
			min:     0,
			max:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &RateLimitState{ResetAt: tt.resetAt}
			got := state.TimeUntilReset()
			if got < tt.min || got > tt.max {
				t.Errorf("TimeUntilReset() = %v, want between %v and %v", got, tt.min, tt.max)
			}
		})
	}
}

func TestThresholdConstants(t *testing.T) {
	if RemainingThresholdCritical >= RemainingThresholdWarning {
		t.Errorf("critical threshold (%d) must be below warning threshold (%d)",
			RemainingThresholdCritical, RemainingThresholdWarning)
	}
	if RedisKeyPrefix+DefaultResource != "github:rate_limit:search" {
		t.Errorf("unexpected redis key %q", RedisKeyPrefix+DefaultResource)
	}
}
