package pipeline

import (
	"errors"
	"fmt"
	"io"

	"firestige.xyz/ttlmangle/internal/core"
	"firestige.xyz/ttlmangle/internal/log"
	"firestige.xyz/ttlmangle/internal/relay"
	"firestige.xyz/ttlmangle/internal/source"
)

// Producer copies captured frames into owned buffers and hands them to the queue.
type Producer struct {
	src     source.Source
	queue   *relay.Queue[core.Frame]
	metrics *Metrics
	logger  log.Logger
}

// NewProducer creates a producer reading src into queue.
func NewProducer(src source.Source, queue *relay.Queue[core.Frame], m *Metrics, logger log.Logger) *Producer {
	return &Producer{
		src:     src,
		queue:   queue,
		metrics: m,
		logger:  logger.WithField("component", "producer"),
	}
}

// Run blocks until the source ends, then closes the producer side of the queue.
// A closed or exhausted source is a normal end and yields nil.
func (p *Producer) Run() error {
	defer p.queue.CloseProducer()

	for {
		data, ci, err := p.src.Next()
		if err != nil {
			if errors.Is(err, core.ErrSourceClosed) || errors.Is(err, io.EOF) {
				p.logger.Info("capture stream ended")
				return nil
			}
			p.logger.WithError(err).Error("capture failed")
			return fmt.Errorf("capture: %w", err)
		}
		p.metrics.captured()

		// data aliases engine storage; the frame gets its own copy.
		buf := make([]byte, len(data))
		copy(buf, data)
		frame := core.Frame{Data: buf, Timestamp: ci.Timestamp, OrigLen: ci.Length}

		if err := p.queue.Enqueue(frame); err != nil {
			p.metrics.queueClosed()
			if p.logger.IsTraceEnabled() {
				p.logger.WithError(err).Trace("frame discarded")
			}
			continue
		}
		p.metrics.enqueued(p.queue.Len())
	}
}
