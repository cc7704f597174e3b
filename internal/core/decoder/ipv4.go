package decoder

import (
	"encoding/binary"
	"fmt"
	"net/netip"

	"firestige.xyz/ttlmangle/internal/core"
)

// IPv4HeaderMinLen is the length of an IPv4 header without options.
const IPv4HeaderMinLen = 20

const (
	offsetTotalLen = 2
	offsetFlags    = 6
	offsetTTL      = 8
	offsetProtocol = 9
	offsetChecksum = 10
	offsetSrc      = 12
	offsetDst      = 16
)

// IPv4View is a read/write view over the bytes of one IPv4 datagram. It shares
// storage with the frame it was parsed from; setters mutate that frame.
type IPv4View []byte

// ParseIPv4 validates the header at the start of data and returns a view trimmed to
// the declared total length. Link-layer padding past the total length is ignored.
func ParseIPv4(data []byte) (IPv4View, error) {
	if len(data) < IPv4HeaderMinLen {
		return nil, fmt.Errorf("%w: %d bytes", core.ErrPacketTooShort, len(data))
	}

	if version := data[0] >> 4; version != 4 {
		return nil, fmt.Errorf("%w: version %d", core.ErrNotIPv4, version)
	}

	// IHL is in 32-bit words
	headerLen := int(data[0]&0x0F) * 4
	if headerLen < IPv4HeaderMinLen || headerLen > len(data) {
		return nil, fmt.Errorf("%w: ihl %d bytes, buffer %d bytes", core.ErrBadHeaderLength, headerLen, len(data))
	}

	totalLen := int(binary.BigEndian.Uint16(data[offsetTotalLen : offsetTotalLen+2]))
	if totalLen < headerLen || totalLen > len(data) {
		return nil, fmt.Errorf("%w: total %d bytes, header %d bytes, buffer %d bytes",
			core.ErrBadTotalLength, totalLen, headerLen, len(data))
	}

	return IPv4View(data[:totalLen]), nil
}

// Version returns the IP version nibble.
func (v IPv4View) Version() uint8 { return v[0] >> 4 }

// HeaderLen returns the header length in bytes, options included.
func (v IPv4View) HeaderLen() int { return int(v[0]&0x0F) * 4 }

// TotalLen returns the declared datagram length.
func (v IPv4View) TotalLen() uint16 {
	return binary.BigEndian.Uint16(v[offsetTotalLen : offsetTotalLen+2])
}

func (v IPv4View) TTL() uint8 { return v[offsetTTL] }

func (v IPv4View) SetTTL(ttl uint8) { v[offsetTTL] = ttl }

func (v IPv4View) Protocol() uint8 { return v[offsetProtocol] }

func (v IPv4View) Checksum() uint16 {
	return binary.BigEndian.Uint16(v[offsetChecksum : offsetChecksum+2])
}

func (v IPv4View) SetChecksum(sum uint16) {
	binary.BigEndian.PutUint16(v[offsetChecksum:offsetChecksum+2], sum)
}

// SrcIP returns the source address.
func (v IPv4View) SrcIP() netip.Addr {
	return netip.AddrFrom4([4]byte(v[offsetSrc : offsetSrc+4]))
}

// DstIP returns the destination address.
func (v IPv4View) DstIP() netip.Addr {
	return netip.AddrFrom4([4]byte(v[offsetDst : offsetDst+4]))
}

// IsFragment reports whether the MF flag or a fragment offset is set.
func (v IPv4View) IsFragment() bool {
	flagsOffset := binary.BigEndian.Uint16(v[offsetFlags : offsetFlags+2])
	return flagsOffset&0x2000 != 0 || flagsOffset&0x1FFF != 0
}

// Header returns the header bytes, options included.
func (v IPv4View) Header() []byte { return v[:v.HeaderLen()] }

// Payload returns the bytes following the header up to the total length.
func (v IPv4View) Payload() []byte { return v[v.HeaderLen():] }

// ComputeChecksum returns the ones' complement header checksum, treating the
// checksum field as zero.
func (v IPv4View) ComputeChecksum() uint16 {
	hdr := v.Header()

	var sum uint32
	for i := 0; i+1 < len(hdr); i += 2 {
		if i == offsetChecksum {
			continue
		}
		sum += uint32(hdr[i])<<8 | uint32(hdr[i+1])
	}
	for sum>>16 != 0 {
		sum = sum&0xFFFF + sum>>16
	}
	return ^uint16(sum)
}

// UpdateChecksum recomputes the header checksum in place.
func (v IPv4View) UpdateChecksum() {
	v.SetChecksum(v.ComputeChecksum())
}

// ChecksumValid reports whether the stored checksum matches the header.
func (v IPv4View) ChecksumValid() bool {
	return v.Checksum() == v.ComputeChecksum()
}
