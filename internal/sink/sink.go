// Package sink implements the transmit side: frames are built in a buffer and
// written to the interface's outbound path.
package sink

import (
	"fmt"
	"sync"
	"sync/atomic"

	"firestige.xyz/ttlmangle/internal/core"
)

// Writer is the link-layer outbound path. Both *pcap.Handle and *afpacket.TPacket
// satisfy it. Implementations must not retain data after returning.
type Writer interface {
	WritePacketData(data []byte) error
}

// PopulateFunc fills a freshly allocated frame buffer.
type PopulateFunc func(buf []byte)

// Sink allocates, populates and transmits frames. Buffers are pooled: a buffer is
// recycled as soon as WritePacketData returns.
type Sink struct {
	w    Writer
	pool sync.Pool

	sent   atomic.Uint64
	failed atomic.Uint64
	bytes  atomic.Uint64
}

// Stats is a snapshot of egress counters.
type Stats struct {
	Sent   uint64
	Failed uint64
	Bytes  uint64
}

// New creates a Sink writing to w.
func New(w Writer) *Sink {
	return &Sink{w: w}
}

// Send allocates a length-byte frame, lets populate fill it and writes it out.
// Failures are counted and returned wrapped in core.ErrTransmit; nothing is retried.
func (s *Sink) Send(length int, populate PopulateFunc) error {
	if length <= 0 {
		s.failed.Add(1)
		return fmt.Errorf("%w: %w: %d", core.ErrTransmit, core.ErrInvalidLength, length)
	}

	bufp := s.get(length)
	defer s.pool.Put(bufp)

	buf := (*bufp)[:length]
	populate(buf)

	if err := s.w.WritePacketData(buf); err != nil {
		s.failed.Add(1)
		return fmt.Errorf("%w: %w", core.ErrTransmit, err)
	}

	s.sent.Add(1)
	s.bytes.Add(uint64(length))
	return nil
}

// Stats returns egress counters.
func (s *Sink) Stats() Stats {
	return Stats{
		Sent:   s.sent.Load(),
		Failed: s.failed.Load(),
		Bytes:  s.bytes.Load(),
	}
}

func (s *Sink) get(length int) *[]byte {
	if v := s.pool.Get(); v != nil {
		bufp := v.(*[]byte)
		if cap(*bufp) >= length {
			return bufp
		}
	}
	buf := make([]byte, length)
	return &buf
}
