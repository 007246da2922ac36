// Package metrics exposes Prometheus collectors for the ingestion service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	chartDatesTotal         *prometheus.CounterVec
	chartEntriesStoredTotal *prometheus.CounterVec
	backfillItemsTotal      *prometheus.CounterVec
	activeBackfillWorkers   prometheus.Gauge
	politenessDelaySeconds  prometheus.Histogram
	httpRequestDurationSecs *prometheus.HistogramVec

	once sync.Once
)

// Collectors are registered eagerly so observation helpers are always safe,
// even from packages exercised before main wiring runs.
func init() {
	Init()
}

// Init initializes the Prometheus collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		chartDatesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartpulse_chart_dates_total",
				Help: "Chart dates processed, labeled by chart and outcome.",
			},
			[]string{"chart", "outcome"},
		)

		chartEntriesStoredTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartpulse_chart_entries_stored_total",
				Help: "Raw chart entries stored, labeled by chart.",
			},
			[]string{"chart"},
		)

		backfillItemsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartpulse_backfill_items_total",
				Help: "Backfill work items processed, labeled by pool and outcome.",
			},
			[]string{"pool", "outcome"},
		)

		activeBackfillWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "chartpulse_active_backfill_workers",
				Help: "Workers currently holding a backfill semaphore slot.",
			},
		)

		politenessDelaySeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chartpulse_politeness_delay_seconds",
				Help:    "Histogram of politeness sleeps between chart fetches.",
				Buckets: []float64{0.5, 1, 2, 3, 5, 8, 13},
			},
		)

		httpRequestDurationSecs = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chartpulse_http_request_duration_seconds",
				Help:    "Histogram of control-plane request latencies.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveChartDate counts one processed chart date.
func ObserveChartDate(chartName, outcome string) {
	chartDatesTotal.WithLabelValues(chartName, outcome).Inc()
}

// ObserveEntriesStored counts raw entries stored for a chart.
func ObserveEntriesStored(chartName string, n int) {
	if n > 0 {
		chartEntriesStoredTotal.WithLabelValues(chartName).Add(float64(n))
	}
}

// ObserveBackfillItem counts one pool work item by outcome.
func ObserveBackfillItem(pool, outcome string) {
	backfillItemsTotal.WithLabelValues(pool, outcome).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	activeBackfillWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	activeBackfillWorkers.Dec()
}

// ObservePolitenessDelay records one politeness sleep.
func ObservePolitenessDelay(d time.Duration) {
	politenessDelaySeconds.Observe(d.Seconds())
}

// ObserveHTTPRequest records one control-plane request.
func ObserveHTTPRequest(method, route string, duration time.Duration) {
	httpRequestDurationSecs.WithLabelValues(method, route).Observe(duration.Seconds())
}
