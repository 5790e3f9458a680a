package loader

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for loader cycles.
var (
	loadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pageload_loads_total",
		Help: "Completed load cycles by loader and outcome",
	}, []string{"loader", "outcome"})

	loadsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pageload_loads_dropped_total",
		Help: "Load calls dropped because a fetch was in flight or the dispatcher refused work",
	}, []string{"loader", "reason"})

	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pageload_fetch_duration_seconds",
		Help:    "Duration of the injected fetch function by loader",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"loader"})

	rowsSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pageload_rows_skipped_total",
		Help: "Null rows dropped from fetched pages by loader",
	}, []string{"loader"})
)

// Outcome labels used by pageload_loads_total.
const (
	outcomeTransportError = "transport_error"
	outcomeServerError    = "server_error"
	outcomeEmpty          = "empty"
	outcomeMore           = "more"
	outcomeEnd            = "end"
	outcomeSuccess        = "success"
	outcomeUndelivered    = "undelivered"
)

// Reasons used by pageload_loads_dropped_total.
const (
	dropInFlight = "in_flight"
	dropRefused  = "dispatcher_refused"
)
