package decoder

import (
	"errors"
	"net/netip"
	"testing"

	"firestige.xyz/ttlmangle/internal/core"
)

// wikiDatagram returns a 115-byte datagram whose header is the well-known sample with checksum 0xB861.
func wikiDatagram() []byte {
	hdr := []byte{
		0x45,       // Version 4, IHL 5
		0x00,       // DSCP, ECN
		0x00, 0x73, // Total Length: 115 bytes
		0x00, 0x00, // Identification
		0x40, 0x00, // Flags: DF
		0x40,       // TTL: 64
		0x11,       // Protocol: UDP (17)
		0xB8, 0x61, // Checksum
		192, 168, 0, 1, // Src IP
		192, 168, 0, 199, // Dst IP
	}
	data := make([]byte, 115)
	copy(data, hdr)
	return data
}

func TestParseIPv4Basic(t *testing.T) {
	data := wikiDatagram()

	ip, err := ParseIPv4(data)
	if err != nil {
		t.Fatalf("ParseIPv4 failed: %v", err)
	}

	if ip.Version() != 4 {
		t.Errorf("Expected version 4, got %d", ip.Version())
	}
	if ip.HeaderLen() != 20 {
		t.Errorf("Expected header length 20, got %d", ip.HeaderLen())
	}
	if ip.TotalLen() != 115 {
		t.Errorf("Expected TotalLen 115, got %d", ip.TotalLen())
	}
	if ip.TTL() != 64 {
		t.Errorf("Expected TTL 64, got %d", ip.TTL())
	}
	if ip.Protocol() != 17 {
		t.Errorf("Expected protocol 17, got %d", ip.Protocol())
	}
	if ip.SrcIP() != netip.MustParseAddr("192.168.0.1") {
		t.Errorf("Unexpected SrcIP %v", ip.SrcIP())
	}
	if ip.DstIP() != netip.MustParseAddr("192.168.0.199") {
		t.Errorf("Unexpected DstIP %v", ip.DstIP())
	}
	if len(ip.Payload()) != 95 {
		t.Errorf("Expected payload length 95, got %d", len(ip.Payload()))
	}
	if ip.IsFragment() {
		t.Error("DF-only datagram must not be reported as fragment")
	}
}

func TestParseIPv4IgnoresLinkPadding(t *testing.T) {
	data := append(wikiDatagram(), 0x00, 0x00, 0x00, 0x00)

	ip, err := ParseIPv4(data)
	if err != nil {
		t.Fatalf("ParseIPv4 failed: %v", err)
	}
	if len(ip) != 115 {
		t.Errorf("Expected view trimmed to 115 bytes, got %d", len(ip))
	}
}

func TestParseIPv4Malformed(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func([]byte) []byte
		wantErr error
	}{
		{
			name:    "three bytes",
			mutate:  func([]byte) []byte { return []byte{0x45, 0x00, 0x00} },
			wantErr: core.ErrPacketTooShort,
		},
		{
			name:    "version 6",
			mutate:  func(b []byte) []byte { b[0] = 0x65; return b },
			wantErr: core.ErrNotIPv4,
		},
		{
			name:    "ihl below minimum",
			mutate:  func(b []byte) []byte { b[0] = 0x44; return b },
			wantErr: core.ErrBadHeaderLength,
		},
		{
			name:    "ihl beyond buffer",
			mutate:  func(b []byte) []byte { b[0] = 0x4F; return b[:40] },
			wantErr: core.ErrBadHeaderLength,
		},
		{
			name:    "total length beyond buffer",
			mutate:  func(b []byte) []byte { return b[:100] },
			wantErr: core.ErrBadTotalLength,
		},
		{
			name:    "total length shorter than header",
			mutate:  func(b []byte) []byte { b[2], b[3] = 0x00, 0x10; return b },
			wantErr: core.ErrBadTotalLength,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseIPv4(tt.mutate(wikiDatagram()))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseIPv4() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestIPv4Checksum(t *testing.T) {
	ip, err := ParseIPv4(wikiDatagram())
	if err != nil {
		t.Fatalf("ParseIPv4 failed: %v", err)
	}

	if got := ip.ComputeChecksum(); got != 0xB861 {
		t.Errorf("Expected checksum 0xB861, got 0x%04X", got)
	}
	if !ip.ChecksumValid() {
		t.Error("Expected stored checksum to be valid")
	}

	ip.SetTTL(core.SentinelTTL)
	if ip.ChecksumValid() {
		t.Error("Expected checksum to be stale after TTL change")
	}

	ip.UpdateChecksum()
	if !ip.ChecksumValid() {
		t.Error("Expected checksum to be valid after UpdateChecksum")
	}
	if ip.TTL() != core.SentinelTTL {
		t.Errorf("Expected TTL %d, got %d", core.SentinelTTL, ip.TTL())
	}
}

func TestIPv4ChecksumWithOptions(t *testing.T) {
	data := make([]byte, 28)
	data[0] = 0x46 // IHL 6: one option word
	data[3] = 28
	data[8] = 1
	data[9] = 1
	copy(data[12:20], []byte{10, 0, 0, 1, 10, 0, 0, 2})
	copy(data[20:24], []byte{0x94, 0x04, 0x00, 0x00}) // Router Alert

	ip, err := ParseIPv4(data)
	if err != nil {
		t.Fatalf("ParseIPv4 failed: %v", err)
	}
	if ip.HeaderLen() != 24 {
		t.Fatalf("Expected header length 24, got %d", ip.HeaderLen())
	}

	ip.UpdateChecksum()
	if !ip.ChecksumValid() {
		t.Error("Expected checksum over options to be valid")
	}
}

func TestIPv4IsFragment(t *testing.T) {
	data := wikiDatagram()
	data[6], data[7] = 0x20, 0x00 // MF

	ip, err := ParseIPv4(data)
	if err != nil {
		t.Fatalf("ParseIPv4 failed: %v", err)
	}
	if !ip.IsFragment() {
		t.Error("Expected MF datagram to be reported as fragment")
	}

	data[6], data[7] = 0x00, 0x10 // offset 16
	if !ip.IsFragment() {
		t.Error("Expected non-zero offset datagram to be reported as fragment")
	}
}

func BenchmarkIPv4UpdateChecksum(b *testing.B) {
	ip, err := ParseIPv4(wikiDatagram())
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ip.SetTTL(uint8(i))
		ip.UpdateChecksum()
	}
}
