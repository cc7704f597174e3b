// Package mangle classifies captured frames and rewrites the IPv4 TTL of those that
// still need it.
package mangle

import (
	"fmt"

	"firestige.xyz/ttlmangle/internal/core"
	"firestige.xyz/ttlmangle/internal/core/decoder"
)

// Verdict is the outcome of inspecting one frame.
type Verdict int

const (
	// VerdictRewrite means the frame carries a valid IPv4 datagram that must be rewritten.
	VerdictRewrite Verdict = iota
	// VerdictSentinel means the TTL already equals the sentinel; the frame is our own output.
	VerdictSentinel
	// VerdictMalformed means the frame cannot be interpreted as IPv4.
	VerdictMalformed
)

func (v Verdict) String() string {
	switch v {
	case VerdictRewrite:
		return "rewrite"
	case VerdictSentinel:
		return "sentinel"
	case VerdictMalformed:
		return "malformed"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// Result is the tagged outcome of Inspect.
type Result struct {
	Verdict Verdict
	Offset  int   // IPv4 header offset within the frame, valid for VerdictRewrite
	Err     error // wraps core.ErrMalformedFrame, set for VerdictMalformed
}

// Mangler rewrites the TTL of IPv4 datagrams carried in link-layer frames.
type Mangler struct {
	framing decoder.Framing
	ttl     uint8
}

// New creates a Mangler for frames with the given framing. The framing must be
// resolved; FramingAuto is rejected.
func New(framing decoder.Framing) (*Mangler, error) {
	if framing != decoder.FramingEthernet && framing != decoder.FramingRaw {
		return nil, fmt.Errorf("%w: unsupported framing %s", core.ErrConfigInvalid, framing)
	}
	return &Mangler{
		framing: framing,
		ttl:     core.SentinelTTL,
	}, nil
}

// Framing returns the framing the mangler was built for.
func (m *Mangler) Framing() decoder.Framing {
	return m.framing
}

// Inspect classifies frame without modifying it.
func (m *Mangler) Inspect(frame []byte) Result {
	offset, err := m.framing.Locate(frame)
	if err != nil {
		return malformed(err)
	}

	ip, err := decoder.ParseIPv4(frame[offset:])
	if err != nil {
		return malformed(err)
	}

	// Sole loop breaker: frames we transmitted come back through the promiscuous
	// capture carrying the sentinel.
	if ip.TTL() == m.ttl {
		return Result{Verdict: VerdictSentinel, Offset: offset}
	}

	return Result{Verdict: VerdictRewrite, Offset: offset}
}

// Rewrite copies src into dst, sets the TTL of the IPv4 header at offset to the
// sentinel and recomputes the header checksum. dst must be len(src) bytes and src
// must have been classified VerdictRewrite at that offset.
func (m *Mangler) Rewrite(dst, src []byte, offset int) {
	copy(dst, src)

	ip := decoder.IPv4View(dst[offset:])
	ip.SetTTL(m.ttl)
	ip.UpdateChecksum()
}

func malformed(err error) Result {
	return Result{
		Verdict: VerdictMalformed,
		Err:     fmt.Errorf("%w: %w", core.ErrMalformedFrame, err),
	}
}
