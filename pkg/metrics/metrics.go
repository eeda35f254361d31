// Package metrics exposes the Prometheus registry used by the search service.
// Metrics are defined next to the code that records them (client, ratelimit,
// search) and registered on Registry through promauto.With.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer every package's promauto metrics land in.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the matching gatherer used by Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// GitHub Client Metrics (pkg/client):
//   - github_requests_total{status} (Counter): Requests by HTTP status or error class
//   - github_request_duration_seconds (Histogram): Duration of a single attempt
//   - github_errors_total{class} (Counter): Errors by class (network, server, rate_limit, quota, client, malformed)
//   - github_retries_total{error_class} (Counter): Retry attempts by error class
//   - github_retry_exhausted_total{error_class} (Counter): Fetches that used every attempt
//
// Rate Limit Metrics (pkg/ratelimit):
//   - github_rate_limit_remaining{resource} (Gauge): Requests left in the current window
//   - github_rate_limit_blocks_total (Counter): Requests refused locally because the window is spent
//   - github_rate_limit_throttles_total (Counter): Requests delayed because the window is nearly spent
//
// Engine Metrics (pkg/search):
//   - reposearch_searches_total{outcome} (Counter): Searches by outcome (ok, empty, network_error)
//   - reposearch_search_duration_seconds (Histogram): End-to-end search duration
//   - reposearch_pages_total{status} (Counter): Remote pages by status (ok, failed)
//   - reposearch_fanout_pages (Histogram): Follow-up pages per search
//
// Example Prometheus Queries:
//
//   # Partial result rate
//   rate(reposearch_pages_total{status="failed"}[5m]) / rate(reposearch_pages_total[5m])
//
//   # Searches failing outright
//   rate(reposearch_searches_total{outcome="network_error"}[5m])
//
//   # P95 search latency
//   histogram_quantile(0.95, rate(reposearch_search_duration_seconds_bucket[5m]))
//
//   # Quota headroom
//   github_rate_limit_remaining{resource="search"} < 5
