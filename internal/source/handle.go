package source

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"firestige.xyz/ttlmangle/internal/core"
)

// engine is the part of *pcap.Handle and *afpacket.TPacket the handle uses.
type engine interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	WritePacketData(data []byte) error
	Close()
}

// handle serialises the engine's lifecycle. The engine is only released once no
// read or write is in flight; for AF_PACKET this keeps the mmap ring mapped
// while ReadPacketData copies out of it.
type handle struct {
	eng       engine
	iface     string
	linkType  layers.LinkType
	isTimeout func(error) bool
	stats     func() (Stats, error)
	onClose   func()

	readMu    sync.Mutex
	writeMu   sync.RWMutex
	closed    atomic.Bool
	closeOnce sync.Once
}

func (h *handle) Next() ([]byte, gopacket.CaptureInfo, error) {
	h.readMu.Lock()
	defer h.readMu.Unlock()

	for {
		if h.closed.Load() {
			return nil, gopacket.CaptureInfo{}, core.ErrSourceClosed
		}
		data, ci, err := h.eng.ReadPacketData()
		if err == nil {
			return data, ci, nil
		}
		// Read timeouts only exist so Close is noticed.
		if h.isTimeout != nil && h.isTimeout(err) {
			continue
		}
		if h.closed.Load() {
			return nil, ci, core.ErrSourceClosed
		}
		return nil, ci, err
	}
}

func (h *handle) WritePacketData(data []byte) error {
	h.writeMu.RLock()
	defer h.writeMu.RUnlock()
	if h.closed.Load() {
		return errHandleClosed
	}
	return h.eng.WritePacketData(data)
}

func (h *handle) LinkType() layers.LinkType { return h.linkType }

func (h *handle) Interface() string { return h.iface }

func (h *handle) Stats() (Stats, error) {
	h.writeMu.RLock()
	defer h.writeMu.RUnlock()
	if h.closed.Load() {
		return Stats{}, errHandleClosed
	}
	if h.stats == nil {
		return Stats{}, nil
	}
	s, err := h.stats()
	if err != nil {
		return Stats{}, fmt.Errorf("capture stats: %w", err)
	}
	return s, nil
}

// Close stops Next and releases the engine. It blocks for at most one read
// timeout while an in-flight Next notices the close. Safe to call repeatedly.
func (h *handle) Close() error {
	h.closeOnce.Do(func() {
		h.closed.Store(true)
		h.readMu.Lock()
		h.writeMu.Lock()
		h.eng.Close()
		if h.onClose != nil {
			h.onClose()
		}
		h.writeMu.Unlock()
		h.readMu.Unlock()
	})
	return nil
}
