package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/topic-repo-search/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	githubRateLimitRemaining = promauto.With(metrics.Registry).NewGaugeVec(prometheus.GaugeOpts{
		Name: "github_rate_limit_remaining",
		Help: "Requests remaining in the current GitHub rate limit window",
	}, []string{"resource"})

	githubRateLimitBlocksTotal = promauto.With(metrics.Registry).NewCounter(prometheus.CounterOpts{
		Name: "github_rate_limit_blocks_total",
		Help: "Total number of requests blocked because the rate limit window is spent",
	})

	githubRateLimitThrottlesTotal = promauto.With(metrics.Registry).NewCounter(prometheus.CounterOpts{
		Name: "github_rate_limit_throttles_total",
		Help: "Total number of requests throttled because the rate limit window is nearly spent",
	})
)

// defaultSearchLimit is GitHub's authenticated search quota per minute.
const defaultSearchLimit = 30

// defaultMaxStateAge is how long stored state is trusted without a refresh.
// The search window is one minute.
const defaultMaxStateAge = 2 * time.Minute

// storeStateScript writes the observed window unless the hash already holds
// a newer one. Within the same reset epoch the lower remaining count wins, so
// a slow response cannot raise the count written by a faster, later one.
// Returns the stored remaining and reset.
var storeStateScript = redis.NewScript(`
local cur_reset = tonumber(redis.call('HGET', KEYS[1], 'reset'))
local cur_remaining = tonumber(redis.call('HGET', KEYS[1], 'remaining'))
local remaining = tonumber(ARGV[2])
local reset = tonumber(ARGV[3])
if cur_reset and cur_remaining then
  if reset < cur_reset then
    return {cur_remaining, cur_reset}
  end
  if reset == cur_reset and cur_remaining < remaining then
    remaining = cur_remaining
  end
end
redis.call('HSET', KEYS[1], 'limit', ARGV[1], 'remaining', remaining, 'reset', reset, 'last_update', ARGV[4])
redis.call('EXPIREAT', KEYS[1], ARGV[5])
return {remaining, reset}
`)

// Redis hash fields.
const (
	fieldLimit      = "limit"
	fieldRemaining  = "remaining"
	fieldReset      = "reset"
	fieldLastUpdate = "last_update"
)

// Tracker monitors GitHub rate limits and gates requests.
type Tracker struct {
	redis         *redis.Client
	logger        zerolog.Logger
	resource      string
	throttleDelay time.Duration
	maxStateAge   time.Duration
}

// NewTracker creates a new rate limit tracker for the search resource.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:         redisClient,
		logger:        logger,
		resource:      DefaultResource,
		throttleDelay: 1 * time.Second,
		maxStateAge:   defaultMaxStateAge,
	}
}

// SetThrottleDelay sets the pause applied in the warning state.
func (t *Tracker) SetThrottleDelay(d time.Duration) {
	t.throttleDelay = d
}

func (t *Tracker) key() string {
	return RedisKeyPrefix + t.resource
}

// GetState retrieves the current rate limit state from Redis.
// Returns a default healthy state if no data exists in Redis.
func (t *Tracker) GetState(ctx context.Context) (*RateLimitState, error) {
	fields, err := t.redis.HGetAll(ctx, t.key()).Result()
	if err != nil {
		return nil, fmt.Errorf("get rate limit state: %w", err)
	}

	// If no state exists in Redis, assume healthy until we get real data
	if len(fields) == 0 {
		t.logger.Debug().Str("resource", t.resource).Msg("No rate limit state in Redis, returning default healthy state")
		return &RateLimitState{
			Resource:   t.resource,
			Limit:      defaultSearchLimit,
			Remaining:  defaultSearchLimit,
			LastUpdate: time.Now(),
		}, nil
	}

	state := &RateLimitState{Resource: t.resource}

	if state.Limit, err = strconv.Atoi(fields[fieldLimit]); err != nil {
		return nil, fmt.Errorf("parse limit: %w", err)
	}
	if state.Remaining, err = strconv.Atoi(fields[fieldRemaining]); err != nil {
		return nil, fmt.Errorf("parse remaining: %w", err)
	}
	reset, err := strconv.ParseInt(fields[fieldReset], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse reset: %w", err)
	}
	state.ResetAt = time.Unix(reset, 0)

	if raw := fields[fieldLastUpdate]; raw != "" {
		if state.LastUpdate, err = time.Parse(time.RFC3339Nano, raw); err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
	}

	return state, nil
}

// UpdateFromHeaders parses GitHub rate limit headers and updates Redis state.
// Headers for other resources than the tracked one are ignored.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	remainStr := headers.Get(HeaderRemaining)
	if remainStr == "" {
		// Header not present - this is OK for mocked or proxied responses
		return nil
	}

	if resource := headers.Get(HeaderResource); resource != "" && resource != t.resource {
		return nil
	}

	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderRemaining, err)
	}

	resetStr := headers.Get(HeaderReset)
	if resetStr == "" {
		return fmt.Errorf("%s header missing", HeaderReset)
	}

	resetEpoch, err := strconv.ParseInt(resetStr, 10, 64)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderReset, err)
	}

	limit, err := strconv.Atoi(headers.Get(HeaderLimit))
	if err != nil {
		limit = 0
	}

	now := time.Now()

	// The hash outlives the window by a minute
	stored, err := storeStateScript.Run(ctx, t.redis, []string{t.key()},
		limit,
		remain,
		resetEpoch,
		now.Format(time.RFC3339Nano),
		time.Unix(resetEpoch, 0).Add(time.Minute).Unix(),
	).Int64Slice()
	if err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}
	if len(stored) != 2 {
		return fmt.Errorf("store rate limit state in redis: unexpected reply %v", stored)
	}
	if int(stored[0]) != remain {
		t.logger.Debug().
			Int("observed", remain).
			Int64("stored", stored[0]).
			Msg("Kept stored rate limit state over an older observation")
	}
	remain = int(stored[0])

	state := &RateLimitState{
		Resource:   t.resource,
		Limit:      limit,
		Remaining:  remain,
		ResetAt:    time.Unix(stored[1], 0),
		LastUpdate: now,
	}

	githubRateLimitRemaining.WithLabelValues(t.resource).Set(float64(remain))

	switch {
	case state.NeedsCriticalBlock():
		t.logger.Error().
			Int("remaining", remain).
			Time("reset_at", state.ResetAt).
			Msg("GitHub rate limit exhausted - requests will be blocked")
	case state.NeedsThrottling():
		t.logger.Warn().
			Int("remaining", remain).
			Time("reset_at", state.ResetAt).
			Msg("GitHub rate limit low - requests will be throttled")
	default:
		t.logger.Debug().
			Int("remaining", remain).
			Time("reset_at", state.ResetAt).
			Msg("GitHub rate limit state updated")
	}

	return nil
}

// ShouldAllowRequest checks if a request should be allowed based on current rate limit state.
// Returns false if the window is spent. Returns true but may pause first
// when the window is nearly spent.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get rate limit state: %w", err)
	}

	if state.IsStale(t.maxStateAge) {
		t.logger.Debug().
			Time("last_update", state.LastUpdate).
			Msg("Rate limit state not refreshed recently, ignoring it")
		return true, nil
	}

	if state.NeedsCriticalBlock() {
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("GitHub rate limit exhausted - blocking request")

		githubRateLimitBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling() && t.throttleDelay > 0 {
		t.logger.Debug().
			Int("remaining", state.Remaining).
			Msg("GitHub rate limit low - throttling request")

		githubRateLimitThrottlesTotal.Inc()

		timer := time.NewTimer(t.throttleDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer.C:
		}
	}

	return true, nil
}
