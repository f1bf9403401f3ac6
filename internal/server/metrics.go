package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vaultlens_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	frameRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vaultlens_frames_total",
			Help: "Total number of processed frames",
		},
		[]string{"transport", "outcome"}, // outcome: token, empty, decode_error
	)

	frameProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vaultlens_frame_processing_duration_seconds",
			Help:    "Frame processing duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"transport"},
	)

	tokenConfidence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vaultlens_token_confidence",
			Help:    "Confidence of emitted tokens",
			Buckets: []float64{.1, .2, .3, .4, .5, .6, .7, .8, .9, 1},
		},
	)

	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vaultlens_upload_size_bytes",
			Help:    "Size of uploaded frames in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024},
		},
	)

	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vaultlens_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)
)
