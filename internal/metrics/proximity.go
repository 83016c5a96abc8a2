package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "nearlot"

// Proximity query metrics.
var (
	ProximityQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proximity_queries_total",
			Help:      "Proximity queries by outcome",
		},
		[]string{"outcome"}, // ok / invalid / store_error / canceled
	)

	ProximityQueryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "proximity_query_duration_seconds",
			Help:      "Proximity query duration in seconds",
			Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	ProximityPrecision = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proximity_precision_total",
			Help:      "Spatial key precision chosen per query",
		},
		[]string{"precision"},
	)

	ProximityCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "proximity_candidates",
			Help:      "Distinct lots returned by prefix scans before the distance filter",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	ProximityResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "proximity_results",
			Help:      "Lots returned per query",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	ProximitySkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proximity_skipped_records_total",
			Help:      "Records dropped from scans and listings because they could not be decoded or matched",
		},
		[]string{"reason"},
	)
)

var proximityMetricsRegistered bool

// RegisterProximityMetrics registers Prometheus proximity metrics. Must be called once from main.
func RegisterProximityMetrics() {
	if proximityMetricsRegistered {
		return
	}
	prometheus.MustRegister(ProximityQueriesTotal)
	prometheus.MustRegister(ProximityQueryDuration)
	prometheus.MustRegister(ProximityPrecision)
	prometheus.MustRegister(ProximityCandidates)
	prometheus.MustRegister(ProximityResults)
	prometheus.MustRegister(ProximitySkippedTotal)
	proximityMetricsRegistered = true
}
