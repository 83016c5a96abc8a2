package metrics

import "github.com/prometheus/client_golang/prometheus"

// Description provider metrics.
var (
	DescriberRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "describer_requests_total",
			Help:      "Total number of description requests",
		},
		[]string{"model", "status"},
	)

	DescriberRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "describer_request_duration_seconds",
			Help:      "Description request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"model"},
	)

	DescriberTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "describer_tokens_total",
			Help:      "Total tokens consumed by the description provider",
		},
		[]string{"model", "type"},
	)

	DescriberFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "describer_fallback_total",
			Help:      "Descriptions rendered from the template after a provider failure",
		},
	)
)

var describerMetricsRegistered bool

// RegisterDescriberMetrics registers Prometheus describer metrics. Must be called once from main.
func RegisterDescriberMetrics() {
	if describerMetricsRegistered {
		return
	}
	prometheus.MustRegister(DescriberRequestsTotal)
	prometheus.MustRegister(DescriberRequestDuration)
	prometheus.MustRegister(DescriberTokensTotal)
	prometheus.MustRegister(DescriberFallbackTotal)
	describerMetricsRegistered = true
}
