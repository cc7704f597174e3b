package pipeline

import (
	"firestige.xyz/ttlmangle/internal/core"
	"firestige.xyz/ttlmangle/internal/core/decoder"
	"firestige.xyz/ttlmangle/internal/log"
	"firestige.xyz/ttlmangle/internal/sink"
	"firestige.xyz/ttlmangle/internal/source"
)

// Builder provides a fluent interface for building pipelines.
// This is an alternative to using Config directly.
type Builder struct {
	config Config
}

// NewBuilder creates a new pipeline builder.
func NewBuilder() *Builder {
	return &Builder{
		config: Config{
			BufferSize: core.DefaultBufferSize,
			Framing:    decoder.FramingEthernet,
		},
	}
}

// WithHandle uses h both as the capture source and as the transmit path.
func (b *Builder) WithHandle(h source.Handle) *Builder {
	b.config.Source = h
	b.config.Writer = h
	return b
}

// WithSource sets the capture source.
func (b *Builder) WithSource(s source.Source) *Builder {
	b.config.Source = s
	return b
}

// WithWriter sets the transmit path.
func (b *Builder) WithWriter(w sink.Writer) *Builder {
	b.config.Writer = w
	return b
}

// WithFraming sets the resolved link framing.
func (b *Builder) WithFraming(f decoder.Framing) *Builder {
	b.config.Framing = f
	return b
}

// WithBufferSize sets the relay queue capacity.
func (b *Builder) WithBufferSize(size int) *Builder {
	b.config.BufferSize = size
	return b
}

// WithLogger sets the logger.
func (b *Builder) WithLogger(l log.Logger) *Builder {
	b.config.Logger = l
	return b
}

// Build creates the pipeline.
func (b *Builder) Build() (*Pipeline, error) {
	return New(b.config)
}
