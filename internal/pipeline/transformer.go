package pipeline

import (
	"time"

	"firestige.xyz/ttlmangle/internal/core"
	"firestige.xyz/ttlmangle/internal/log"
	"firestige.xyz/ttlmangle/internal/mangle"
	"firestige.xyz/ttlmangle/internal/metrics"
	"firestige.xyz/ttlmangle/internal/relay"
	"firestige.xyz/ttlmangle/internal/sink"
)

// Transformer is the single consumer of the queue: it classifies each frame,
// rewrites those that need it and sends them.
type Transformer struct {
	queue   *relay.Queue[core.Frame]
	mangler *mangle.Mangler
	sink    *sink.Sink
	metrics *Metrics
	logger  log.Logger
}

// NewTransformer creates a transformer draining queue into s.
func NewTransformer(queue *relay.Queue[core.Frame], m *mangle.Mangler, s *sink.Sink, pm *Metrics, logger log.Logger) *Transformer {
	return &Transformer{
		queue:   queue,
		mangler: m,
		sink:    s,
		metrics: pm,
		logger:  logger.WithField("component", "transformer"),
	}
}

// Run processes frames until the queue is closed and drained.
func (t *Transformer) Run() {
	for {
		frame, ok := t.queue.Dequeue()
		if !ok {
			t.logger.Debug("relay queue drained")
			return
		}
		start := time.Now()
		metrics.RelayQueueDepth.Set(float64(t.queue.Len()))
		t.process(frame)
		metrics.TransformLatencySeconds.Observe(time.Since(start).Seconds())
	}
}

// Stop shuts the consumer side down; the producer's pending and later enqueues fail.
func (t *Transformer) Stop() {
	t.queue.Shutdown()
}

func (t *Transformer) process(frame core.Frame) {
	res := t.mangler.Inspect(frame.Data)

	switch res.Verdict {
	case mangle.VerdictSentinel:
		t.metrics.sentinel()

	case mangle.VerdictMalformed:
		t.metrics.malformed()
		if t.logger.IsDebugEnabled() {
			t.logger.WithError(res.Err).WithField("len", frame.Len()).Debug("malformed frame dropped")
		}

	case mangle.VerdictRewrite:
		err := t.sink.Send(frame.Len(), func(buf []byte) {
			t.mangler.Rewrite(buf, frame.Data, res.Offset)
		})
		if err != nil {
			t.metrics.transmitError()
			t.logger.WithError(err).WithField("len", frame.Len()).Warn("transmit failed")
			return
		}
		t.metrics.transmitted()
	}
}
