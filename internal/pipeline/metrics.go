package pipeline

import (
	"sync/atomic"

	"firestige.xyz/ttlmangle/internal/metrics"
)

// Metrics contains per-pipeline counters. Every update is mirrored to the
// process-wide Prometheus collectors.
type Metrics struct {
	Captured       atomic.Uint64
	Enqueued       atomic.Uint64
	QueueClosed    atomic.Uint64
	Malformed      atomic.Uint64
	Sentinel       atomic.Uint64
	Transmitted    atomic.Uint64
	TransmitErrors atomic.Uint64
}

// NewMetrics creates a new metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) captured() {
	m.Captured.Add(1)
	metrics.FramesCapturedTotal.Inc()
}

func (m *Metrics) enqueued(depth int) {
	m.Enqueued.Add(1)
	metrics.FramesEnqueuedTotal.Inc()
	metrics.RelayQueueDepth.Set(float64(depth))
}

func (m *Metrics) queueClosed() {
	m.QueueClosed.Add(1)
	metrics.FramesDiscardedTotal.WithLabelValues(metrics.ReasonQueueClosed).Inc()
}

func (m *Metrics) malformed() {
	m.Malformed.Add(1)
	metrics.FramesDiscardedTotal.WithLabelValues(metrics.ReasonMalformed).Inc()
}

func (m *Metrics) sentinel() {
	m.Sentinel.Add(1)
	metrics.FramesDiscardedTotal.WithLabelValues(metrics.ReasonSentinel).Inc()
}

func (m *Metrics) transmitted() {
	m.Transmitted.Add(1)
	metrics.FramesTransmittedTotal.Inc()
}

func (m *Metrics) transmitError() {
	m.TransmitErrors.Add(1)
	metrics.TransmitErrorsTotal.Inc()
}

// Stats is a point-in-time copy of the pipeline counters.
type Stats struct {
	Captured       uint64 `yaml:"captured"`
	Enqueued       uint64 `yaml:"enqueued"`
	QueueClosed    uint64 `yaml:"queue_closed"`
	Malformed      uint64 `yaml:"malformed"`
	Sentinel       uint64 `yaml:"sentinel"`
	Transmitted    uint64 `yaml:"transmitted"`
	TransmitErrors uint64 `yaml:"transmit_errors"`
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() Stats {
	return Stats{
		Captured:       m.Captured.Load(),
		Enqueued:       m.Enqueued.Load(),
		QueueClosed:    m.QueueClosed.Load(),
		Malformed:      m.Malformed.Load(),
		Sentinel:       m.Sentinel.Load(),
		Transmitted:    m.Transmitted.Load(),
		TransmitErrors: m.TransmitErrors.Load(),
	}
}

// Fields renders the stats as log fields.
func (s Stats) Fields() map[string]interface{} {
	return map[string]interface{}{
		"captured":        s.Captured,
		"enqueued":        s.Enqueued,
		"queue_closed":    s.QueueClosed,
		"malformed":       s.Malformed,
		"sentinel":        s.Sentinel,
		"transmitted":     s.Transmitted,
		"transmit_errors": s.TransmitErrors,
	}
}
