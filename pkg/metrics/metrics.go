// Package metrics exposes the Prometheus metrics of pageload.
// Metrics are defined in their respective packages (loader, client, cache)
// and registered via promauto on the default registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by pageload.
var Registry = prometheus.DefaultRegisterer

// Handler serves all registered metrics in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// NewMux returns a mux serving /metrics and a /health endpoint that answers
// "OK" while ready reports true. A nil ready is always healthy.
func NewMux(ready func() bool) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if ready != nil && !ready() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

// Metrics Documentation
//
// Loader Metrics (pkg/loader):
//   - pageload_loads_total{loader, outcome} (Counter): Completed load cycles
//     (transport_error, server_error, empty, more, end, success)
//   - pageload_loads_dropped_total{loader} (Counter): Load calls dropped while fetching
//   - pageload_fetch_duration_seconds{loader} (Histogram): Fetch function duration
//   - pageload_rows_skipped_total{loader} (Counter): Null rows dropped from pages
//
// Cache Metrics (pkg/cache):
//   - pageload_cache_hits_total (Counter): Cache hits
//   - pageload_cache_misses_total (Counter): Cache misses
//   - pageload_cache_stored_bytes_total (Counter): Bytes written to Redis
//   - pageload_cache_not_modified_total (Counter): 304 answers served from cache
//   - pageload_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/client):
//   - pageload_http_requests_total{endpoint, status} (Counter): Requests by endpoint and status
//   - pageload_http_request_duration_seconds{endpoint} (Histogram): Request duration
//   - pageload_http_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - pageload_http_retries_total{error_class} (Counter): Retry attempts
//   - pageload_http_retry_backoff_seconds{error_class} (Histogram): Backoff durations
//   - pageload_http_retry_exhausted_total{error_class} (Counter): Requests that exhausted retries
//
// Example Prometheus Queries:
//
//   # Failed load ratio
//   sum(rate(pageload_loads_total{outcome=~"transport_error|server_error"}[5m])) /
//   sum(rate(pageload_loads_total[5m]))
//
//   # Cache Hit Rate
//   sum(rate(pageload_cache_hits_total[5m])) /
//   (sum(rate(pageload_cache_hits_total[5m])) + sum(rate(pageload_cache_misses_total[5m])))
//
//   # P95 Fetch Latency
//   histogram_quantile(0.95, rate(pageload_fetch_duration_seconds_bucket[5m]))
