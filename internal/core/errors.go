// Package core defines sentinel errors.
package core

import "errors"

var (
	// Setup errors are fatal: the process exits before the pipeline starts.
	ErrSetup         = errors.New("ttlmangle: setup failed")
	ErrConfigInvalid = errors.New("ttlmangle: invalid configuration")

	// Frame decoding errors. Each one is recoverable and wraps ErrMalformedFrame.
	ErrMalformedFrame  = errors.New("ttlmangle: malformed frame")
	ErrPacketTooShort  = errors.New("ttlmangle: packet too short")
	ErrNotIPv4         = errors.New("ttlmangle: not an ipv4 datagram")
	ErrBadHeaderLength = errors.New("ttlmangle: inconsistent ipv4 header length")
	ErrBadTotalLength  = errors.New("ttlmangle: inconsistent ipv4 total length")

	// Egress errors
	ErrTransmit      = errors.New("ttlmangle: transmit failed")
	ErrInvalidLength = errors.New("ttlmangle: invalid frame length")

	// Relay errors
	ErrQueueClosed = errors.New("ttlmangle: relay queue closed")

	// Capture errors
	ErrSourceClosed = errors.New("ttlmangle: capture source closed")
)
