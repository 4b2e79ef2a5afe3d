package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fractional"

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route pattern, method and status code.",
	}, []string{"route", "method", "code"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})

	insightRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "insights",
		Name:      "generation_runs_total",
		Help:      "Insight generation runs by the strategy that produced the result.",
	}, []string{"source"})

	insightFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "insights",
		Name:      "fallbacks_total",
		Help:      "Insight runs where the LLM strategy was skipped or failed.",
	})

	advisorCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "advisor",
		Name:      "invocations_total",
		Help:      "AI advisor invocations by conversation type and outcome.",
	}, []string{"conversation_type", "outcome"})

	actualsSavedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "tracking",
		Name:      "last_actuals_saved_timestamp_seconds",
		Help:      "Unix timestamp of the most recent daily actuals save.",
	})

	exportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "export",
		Name:      "runs_total",
		Help:      "Spreadsheet exports by sink and outcome.",
	}, []string{"sink", "outcome"})

	revenueImported = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "revenue",
		Name:      "imported_events_total",
		Help:      "Payment webhook events added to daily actuals, by provider.",
	}, []string{"provider"})
)

func init() {
	prometheus.MustRegister(
		httpRequests,
		httpDuration,
		insightRuns,
		insightFallbacks,
		advisorCalls,
		actualsSavedGauge,
		exportsTotal,
		revenueImported,
	)
}

// RecordHTTPRequest counts a finished request. route is the mux pattern, not
// the raw path, to keep label cardinality bounded.
func RecordHTTPRequest(route, method string, code int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(route, method, statusLabel(code)).Inc()
	httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func RecordInsightRun(source string, fellBack bool) {
	insightRuns.WithLabelValues(source).Inc()
	if fellBack {
		insightFallbacks.Inc()
	}
}

func RecordAdvisorCall(conversationType string, degraded bool) {
	outcome := "ok"
	if degraded {
		outcome = "degraded"
	}
	advisorCalls.WithLabelValues(conversationType, outcome).Inc()
}

// RecordActualsSaved updates the tracking watermark gauge.
func RecordActualsSaved(ts time.Time) {
	if ts.IsZero() {
		return
	}
	actualsSavedGauge.Set(float64(ts.Unix()))
}

func RecordExport(sink string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	exportsTotal.WithLabelValues(sink, outcome).Inc()
}

func RecordRevenueImport(provider string) {
	revenueImported.WithLabelValues(provider).Inc()
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
