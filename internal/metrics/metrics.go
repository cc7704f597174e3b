// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Discard reasons.
const (
	ReasonQueueClosed = "queue_closed"
	ReasonMalformed   = "malformed"
	ReasonSentinel    = "sentinel"
)

// Registry holds every ttlmangle collector plus the Go and process collectors.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// FramesCapturedTotal counts frames returned by the capture source
	FramesCapturedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "ttlmangle_frames_captured_total",
			Help: "Total number of frames read from the capture source",
		},
	)

	// FramesEnqueuedTotal counts frames handed to the relay queue
	FramesEnqueuedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "ttlmangle_frames_enqueued_total",
			Help: "Total number of frames accepted by the relay queue",
		},
	)

	// FramesDiscardedTotal counts frames that were not retransmitted, by reason
	FramesDiscardedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ttlmangle_frames_discarded_total",
			Help: "Total number of frames discarded without retransmission",
		},
		[]string{"reason"},
	)

	// FramesTransmittedTotal counts rewritten frames written to the interface
	FramesTransmittedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "ttlmangle_frames_transmitted_total",
			Help: "Total number of rewritten frames injected on the interface",
		},
	)

	// TransmitErrorsTotal counts failed injections
	TransmitErrorsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "ttlmangle_transmit_errors_total",
			Help: "Total number of frames the interface refused to send",
		},
	)

	// RelayQueueDepth tracks frames waiting in the relay queue
	RelayQueueDepth = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "ttlmangle_relay_queue_depth",
			Help: "Number of frames buffered between capture and transform",
		},
	)

	// TransformLatencySeconds measures dequeue-to-send time per frame
	TransformLatencySeconds = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ttlmangle_transform_latency_seconds",
			Help:    "Time spent classifying, rewriting and sending one frame",
			Buckets: prometheus.ExponentialBuckets(0.000001, 2, 20), // 1µs to ~1s
		},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}
