package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	documentsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "packext",
			Name:      "documents_processed_total",
			Help:      "Documents processed by result (success, error kind)",
		},
		[]string{"result"},
	)

	cacheOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "packext",
			Name:      "extraction_cache_operations_total",
			Help:      "Extraction cache operations (hit, miss, save)",
		},
		[]string{"op"},
	)

	pagesExtracted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "packext",
			Name:      "pages_extracted_total",
			Help:      "Total pages extracted from source documents",
		},
	)

	windowsScanned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "packext",
			Name:      "windows_scanned_total",
			Help:      "Total page windows scored during window search",
		},
	)

	candidates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "packext",
			Name:      "candidates_total",
			Help:      "Candidates by disposition (kept, duplicate, garbage, rejected, selected)",
		},
		[]string{"disposition"},
	)

	gateFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "packext",
			Name:      "quality_gate_failures_total",
			Help:      "Quality gate hard failures by rule",
		},
		[]string{"rule"},
	)

	stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "packext",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(documentsProcessed, cacheOps, pagesExtracted, windowsScanned, candidates, gateFailures, stageDuration)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func DocumentProcessed(result string) { documentsProcessed.WithLabelValues(result).Inc() }
func CacheOp(op string)               { cacheOps.WithLabelValues(op).Inc() }
func AddPagesExtracted(n int)         { pagesExtracted.Add(float64(n)) }
func AddWindowsScanned(n int)         { windowsScanned.Add(float64(n)) }

func AddCandidates(disposition string, n int) {
	candidates.WithLabelValues(disposition).Add(float64(n))
}

func GateFailure(rule string) { gateFailures.WithLabelValues(rule).Inc() }

func ObserveStage(stage string, dur time.Duration) {
	stageDuration.WithLabelValues(stage).Observe(dur.Seconds())
}
