package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Hits counts cache hits.
	Hits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pageload_cache_hits_total",
		Help: "Total number of response cache hits",
	})

	// Misses counts cache misses, expired entries included.
	Misses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pageload_cache_misses_total",
		Help: "Total number of response cache misses",
	})

	// StoredBytes tracks the bytes written to Redis.
	StoredBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pageload_cache_stored_bytes_total",
		Help: "Total bytes written to the response cache",
	})

	// NotModified counts 304 answers served from cache.
	NotModified = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pageload_cache_not_modified_total",
		Help: "Total number of 304 Not Modified responses served from cache",
	})

	// Errors counts failed cache operations.
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pageload_cache_errors_total",
		Help: "Total number of response cache operation errors",
	}, []string{"operation"}) // "get", "set", "delete"
)
