package decoder

import (
	"fmt"
	"strings"

	"firestige.xyz/ttlmangle/internal/core"
)

// Framing describes where the IPv4 header starts inside a captured frame.
type Framing int

const (
	// FramingAuto defers the choice to the capture handle's link type.
	FramingAuto Framing = iota
	// FramingEthernet frames carry a 14-byte Ethernet header and optional VLAN tags.
	FramingEthernet
	// FramingRaw frames start directly with the IPv4 header.
	FramingRaw
)

var framingNames = map[Framing]string{
	FramingAuto:     "auto",
	FramingEthernet: "ethernet",
	FramingRaw:      "raw",
}

func (f Framing) String() string {
	if name, ok := framingNames[f]; ok {
		return name
	}
	return fmt.Sprintf("framing(%d)", int(f))
}

// ParseFraming converts a configuration string into a Framing.
func ParseFraming(s string) (Framing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FramingAuto, nil
	case "ethernet", "en10mb":
		return FramingEthernet, nil
	case "raw", "ip", "ipv4":
		return FramingRaw, nil
	default:
		return FramingAuto, fmt.Errorf("%w: unknown link type %q (must be auto/ethernet/raw)", core.ErrConfigInvalid, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (f Framing) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Framing) UnmarshalText(text []byte) error {
	parsed, err := ParseFraming(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Locate returns the offset of the IPv4 header within frame.
func (f Framing) Locate(frame []byte) (int, error) {
	switch f {
	case FramingRaw:
		return 0, nil
	case FramingEthernet:
		eth, offset, err := DecodeEthernet(frame)
		if err != nil {
			return 0, err
		}
		if eth.EtherType != EtherTypeIPv4 {
			return 0, fmt.Errorf("%w: ethertype 0x%04x", core.ErrNotIPv4, eth.EtherType)
		}
		return offset, nil
	default:
		return 0, fmt.Errorf("%w: framing %s is not resolved", core.ErrConfigInvalid, f)
	}
}
