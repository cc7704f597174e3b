// Package core defines core data structures with zero external dependencies.
package core

import "time"

// SentinelTTL marks a frame as already rewritten. It is both the value written into
// every retransmitted datagram and the loop-prevention check on the capture side.
const SentinelTTL uint8 = 88

const (
	// DefaultBufferSize is the relay queue capacity used when none is configured.
	DefaultBufferSize = 65536
	// DefaultFilter restricts capture to IPv4 traffic.
	DefaultFilter = "ip"
	// DefaultSnapLen is the largest IPv4 datagram, also the libpcap default snaplen.
	DefaultSnapLen = 65535
)

// Frame is one captured link-layer packet. The producer owns Data until the frame is
// enqueued; after that only the consumer may touch it.
type Frame struct {
	Data      []byte    // Owned copy of the captured bytes
	Timestamp time.Time // Capture timestamp
	OrigLen   int       // Length on the wire, may exceed len(Data) when truncated by snaplen
}

// Len returns the captured length of the frame.
func (f Frame) Len() int {
	return len(f.Data)
}
