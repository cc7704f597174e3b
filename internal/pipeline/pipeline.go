// Package pipeline wires capture, relay queue, transform and transmit together.
package pipeline

import (
	"fmt"
	"sync"

	"firestige.xyz/ttlmangle/internal/core"
	"firestige.xyz/ttlmangle/internal/core/decoder"
	"firestige.xyz/ttlmangle/internal/log"
	"firestige.xyz/ttlmangle/internal/mangle"
	"firestige.xyz/ttlmangle/internal/relay"
	"firestige.xyz/ttlmangle/internal/sink"
	"firestige.xyz/ttlmangle/internal/source"
)

// Pipeline runs one producer goroutine and one transformer goroutine joined by a
// bounded relay queue. It has no cancellation of its own: closing the source
// ends the producer, which closes the queue, which ends the transformer once
// the queue is drained.
type Pipeline struct {
	queue       *relay.Queue[core.Frame]
	producer    *Producer
	transformer *Transformer
	sink        *sink.Sink
	metrics     *Metrics
	logger      log.Logger
}

// Config contains pipeline configuration.
type Config struct {
	Source     source.Source
	Writer     sink.Writer
	Framing    decoder.Framing // resolved: ethernet or raw
	BufferSize int             // relay queue capacity
	Logger     log.Logger
}

// New creates a new pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Source == nil || cfg.Writer == nil {
		return nil, fmt.Errorf("%w: pipeline needs a source and a writer", core.ErrSetup)
	}
	if cfg.Logger == nil {
		cfg.Logger = log.GetLogger()
	}

	queue, err := relay.New[core.Frame](cfg.BufferSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrSetup, err)
	}
	m, err := mangle.New(cfg.Framing)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrSetup, err)
	}

	pm := NewMetrics()
	s := sink.New(cfg.Writer)
	logger := cfg.Logger.WithField("framing", cfg.Framing.String())

	return &Pipeline{
		queue:       queue,
		producer:    NewProducer(cfg.Source, queue, pm, logger),
		transformer: NewTransformer(queue, m, s, pm, logger),
		sink:        s,
		metrics:     pm,
		logger:      logger,
	}, nil
}

// Run blocks until the capture stream has ended and every queued frame has been
// processed. It returns the source's terminal error, or nil when the source was
// closed or exhausted.
func (p *Pipeline) Run() error {
	p.logger.WithField("buffer_size", p.queue.Cap()).Info("pipeline starting")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.transformer.Run()
	}()

	var err error
	wg.Add(1)
	go func() {
		defer wg.Done()
		err = p.producer.Run()
	}()

	wg.Wait()

	p.logger.WithFields(p.Stats().Fields()).Info("pipeline stopped")
	return err
}

// Stats returns pipeline statistics.
func (p *Pipeline) Stats() Stats {
	return p.metrics.Snapshot()
}

// SinkStats returns egress counters.
func (p *Pipeline) SinkStats() sink.Stats {
	return p.sink.Stats()
}

// QueueLen returns the number of frames waiting in the relay queue.
func (p *Pipeline) QueueLen() int {
	return p.queue.Len()
}
