// Package metrics provides the Prometheus collectors exported by the worker.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets are histogram buckets suited for LLM latencies, 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts worker requests by route and outcome.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minimax_worker_requests_total",
			Help: "Worker requests",
		},
		[]string{"route", "status"},
	)

	// FramesTotal counts accumulated-text frames sent to the host.
	FramesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "minimax_worker_frames_total",
			Help: "Frames streamed to the host",
		},
	)

	// StreamErrorsTotal counts failed generations by error kind.
	StreamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minimax_worker_stream_errors_total",
			Help: "Failed generations",
		},
		[]string{"kind"},
	)

	// UpstreamLatency records the time from request to the end of the vendor stream.
	UpstreamLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "minimax_worker_upstream_latency_seconds",
			Help:    "Upstream stream duration",
			Buckets: LLMBuckets,
		},
	)

	// TokensTotal counts tokens reported by the vendor's usage records.
	TokensTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "minimax_worker_tokens_total",
			Help: "Tokens reported by the vendor",
		},
	)

	// StreamsActive tracks generations currently holding an upstream connection.
	StreamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "minimax_worker_streams_active",
			Help: "Active upstream streams",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		FramesTotal,
		StreamErrorsTotal,
		UpstreamLatency,
		TokensTotal,
		StreamsActive,
	)
}
