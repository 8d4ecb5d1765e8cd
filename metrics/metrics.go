// Package metrics exposes Prometheus collectors for SDK observability.
// Requests follow the RED method: rate via requests_total, errors via the
// status label, duration via request_duration_seconds.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "enfyra_requests_total",
		Help: "Total HTTP requests issued by the SDK.",
	}, []string{"method", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "enfyra_request_duration_seconds",
		Help:    "Latency of HTTP requests issued by the SDK.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	batchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "enfyra_batches_total",
		Help: "Total batch runs started.",
	})

	batchItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "enfyra_batch_items_total",
		Help: "Total batch items settled, by outcome status.",
	}, []string{"status"})
)

// ObserveRequest records one settled HTTP request. A zero status means the
// request failed below the HTTP layer.
func ObserveRequest(method string, status int, d time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	requestsTotal.WithLabelValues(method, label).Inc()
	requestDuration.WithLabelValues(method).Observe(d.Seconds())
}

// ObserveBatchStart records the start of a batch run.
func ObserveBatchStart() {
	batchesTotal.Inc()
}

// ObserveBatchItem records one settled batch item.
func ObserveBatchItem(status string) {
	batchItemsTotal.WithLabelValues(status).Inc()
}

// Handler returns an http.Handler serving the default Prometheus registry,
// for embedding into a caller-owned mux.
func Handler() http.Handler {
	return promhttp.Handler()
}
