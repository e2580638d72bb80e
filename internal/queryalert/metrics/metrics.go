// Package metrics exposes Prometheus instrumentation for the alerting
// pipeline. Collectors register with the default registry on import.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/domain"
)

const namespace = "queryalert"

var (
	QueriesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_processed_total",
			Help:      "Queries pulled from the input source and analyzed",
		},
	)

	ParseSkips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_skips_total",
			Help:      "Log records skipped because they are not pgaudit entries",
		},
		[]string{"source"}, // "logfile", "pgaudit"
	)

	Findings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "findings_total",
			Help:      "Findings raised per analyzer and severity",
		},
		[]string{"analyzer", "severity"},
	)

	Alerts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alerts emitted by aggregated severity",
		},
		[]string{"severity"},
	)

	SinkSends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_sends_total",
			Help:      "Alert deliveries per sink and result",
		},
		[]string{"sink", "result"}, // "ok", "error"
	)

	SinkLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sink_send_duration_seconds",
			Help:      "Time spent delivering one alert to a sink",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"sink"},
	)

	LogFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_fetches_total",
			Help:      "Log API fetches by result",
		},
		[]string{"result"},
	)

	PipelineRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_run_duration_seconds",
			Help:      "Duration of one pipeline run over a source",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		},
	)
)

// RecordAlert counts an alert and each of its findings.
func RecordAlert(a domain.Alert) {
	Alerts.WithLabelValues(a.Severity().String()).Inc()
	for _, f := range a.Findings {
		Findings.WithLabelValues(f.Analyzer, f.Severity.String()).Inc()
	}
}

// RecordSinkSend records one delivery attempt.
func RecordSinkSend(sink string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	SinkSends.WithLabelValues(sink, result).Inc()
	SinkLatency.WithLabelValues(sink).Observe(d.Seconds())
}

// RecordFetch records one log API fetch.
func RecordFetch(err error) {
	if err != nil {
		LogFetches.WithLabelValues("error").Inc()
		return
	}
	LogFetches.WithLabelValues("ok").Inc()
}
