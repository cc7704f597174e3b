package decoder

import (
	"errors"
	"testing"

	"firestige.xyz/ttlmangle/internal/core"
)

func TestParseFraming(t *testing.T) {
	tests := []struct {
		input    string
		expected Framing
	}{
		{"", FramingAuto},
		{"auto", FramingAuto},
		{"ethernet", FramingEthernet},
		{"EN10MB", FramingEthernet},
		{"raw", FramingRaw},
		{"ipv4", FramingRaw},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFraming(tt.input)
			if err != nil {
				t.Fatalf("ParseFraming(%q) returned error: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("ParseFraming(%q) = %v, expected %v", tt.input, got, tt.expected)
			}
		})
	}

	if _, err := ParseFraming("token-ring"); !errors.Is(err, core.ErrConfigInvalid) {
		t.Errorf("Expected ErrConfigInvalid for unknown framing, got %v", err)
	}
}

func TestFramingTextRoundTrip(t *testing.T) {
	for _, f := range []Framing{FramingAuto, FramingEthernet, FramingRaw} {
		text, err := f.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText failed: %v", err)
		}
		var back Framing
		if err := back.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q) failed: %v", text, err)
		}
		if back != f {
			t.Errorf("round trip of %v produced %v", f, back)
		}
	}
}

func TestFramingLocate(t *testing.T) {
	ipv4Frame := []byte{
		0x00, 0x11, 0x22, 0x33, 0x44, 0x55,
		0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF,
		0x08, 0x00,
		0x45,
	}
	arpFrame := []byte{
		0x00, 0x11, 0x22, 0x33, 0x44, 0x55,
		0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF,
		0x08, 0x06,
	}

	offset, err := FramingEthernet.Locate(ipv4Frame)
	if err != nil || offset != 14 {
		t.Errorf("Locate(ethernet) = %d, %v; expected 14, nil", offset, err)
	}

	if _, err := FramingEthernet.Locate(arpFrame); !errors.Is(err, core.ErrNotIPv4) {
		t.Errorf("Expected ErrNotIPv4 for ARP frame, got %v", err)
	}

	offset, err = FramingRaw.Locate([]byte{0x45})
	if err != nil || offset != 0 {
		t.Errorf("Locate(raw) = %d, %v; expected 0, nil", offset, err)
	}

	if _, err := FramingAuto.Locate(ipv4Frame); !errors.Is(err, core.ErrConfigInvalid) {
		t.Errorf("Expected ErrConfigInvalid for unresolved framing, got %v", err)
	}
}
