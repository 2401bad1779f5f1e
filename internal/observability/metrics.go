package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ObservationsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sw",
		Name:      "observations_processed_total",
		Help:      "Total number of observations processed",
	}, []string{"device_id"})

	SuspectsMatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sw",
		Name:      "suspects_matched_total",
		Help:      "Total number of observations matched to a suspect",
	}, []string{"device_id"})

	ScoringDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sw",
		Name:      "scoring_duration_seconds",
		Help:      "Duration of matching stages",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"stage"})

	PoseComparisons = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sw",
		Name:      "pose_comparisons_total",
		Help:      "Total number of pose comparisons",
	})

	IndexedSuspects = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sw",
		Name:      "indexed_suspects",
		Help:      "Number of suspects in the in-memory search index",
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sw",
		Name:      "queue_depth",
		Help:      "Number of pending observations in queue",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sw",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sw",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
