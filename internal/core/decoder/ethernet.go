// Package decoder implements protocol decoding.
package decoder

import (
	"encoding/binary"

	"firestige.xyz/ttlmangle/internal/core"
)

const (
	// Ethernet constants
	ethernetHeaderLen = 14
	vlanHeaderLen     = 4

	// EtherType values
	EtherTypeIPv4 = 0x0800
	EtherTypeIPv6 = 0x86DD
	etherTypeVLAN = 0x8100
	etherTypeQinQ = 0x88A8
)

// EthernetHeader represents L2 Ethernet frame header.
type EthernetHeader struct {
	DstMAC    [6]byte
	SrcMAC    [6]byte
	EtherType uint16   // Innermost EtherType after VLAN tags
	VLANs     []uint16 // 0~2 VLAN IDs (QinQ scenarios have 2)
}

// DecodeEthernet decodes an Ethernet frame header, including VLAN tags.
// Returns the header and the offset of the L3 payload within data.
func DecodeEthernet(data []byte) (EthernetHeader, int, error) {
	if len(data) < ethernetHeaderLen {
		return EthernetHeader{}, 0, core.ErrPacketTooShort
	}

	eth := EthernetHeader{}
	copy(eth.DstMAC[:], data[0:6])
	copy(eth.SrcMAC[:], data[6:12])

	etherType := binary.BigEndian.Uint16(data[12:14])
	offset := ethernetHeaderLen

	// VLAN tags can be nested (QinQ)
	for etherType == etherTypeVLAN || etherType == etherTypeQinQ {
		if len(data) < offset+vlanHeaderLen {
			return eth, 0, core.ErrPacketTooShort
		}

		// 2 bytes TCI + 2 bytes EtherType
		tci := binary.BigEndian.Uint16(data[offset : offset+2])
		eth.VLANs = append(eth.VLANs, tci&0x0FFF)

		etherType = binary.BigEndian.Uint16(data[offset+2 : offset+4])
		offset += vlanHeaderLen
	}

	eth.EtherType = etherType
	return eth, offset, nil
}
