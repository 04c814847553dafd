package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AccessAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "facegate",
		Name:      "access_attempts_total",
		Help:      "Total number of recognition cycles by outcome and label",
	}, []string{"outcome", "label"})

	FacesEnrolled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "facegate",
		Name:      "faces_enrolled_total",
		Help:      "Total number of face embeddings enrolled",
	})

	MatchConfidence = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "facegate",
		Name:      "match_confidence",
		Help:      "Similarity score of the best candidate per recognition cycle",
		Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
	})

	InferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "facegate",
		Name:      "inference_duration_seconds",
		Help:      "Duration of recognition pipeline stages",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"stage"})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "facegate",
		Name:      "queue_depth",
		Help:      "Number of pending capture tasks in queue",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "facegate",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "facegate",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})

	AuthRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "facegate",
		Name:      "auth_rejections_total",
		Help:      "Requests rejected by the API key check, by reason",
	}, []string{"reason"})
)
