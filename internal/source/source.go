// Package source opens the live capture handle. The same handle is the transmit
// path, so it also satisfies sink.Writer.
package source

import (
	"errors"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"firestige.xyz/ttlmangle/internal/config"
	"firestige.xyz/ttlmangle/internal/core"
	"firestige.xyz/ttlmangle/internal/core/decoder"
	"firestige.xyz/ttlmangle/internal/log"
)

// Source yields captured frames. Next blocks until a frame that passed the
// filter is available; the returned slice is only valid until the next call.
// After Close, Next returns core.ErrSourceClosed.
type Source interface {
	Next() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
	Close() error
}

// Handle is a Source that can also inject frames on the same interface.
type Handle interface {
	Source
	WritePacketData(data []byte) error
	Interface() string
	Stats() (Stats, error)
}

// Stats are kernel-side capture counters.
type Stats struct {
	Received uint64
	Dropped  uint64
}

// pcap_if_t flag for loopback devices.
const pcapIfLoopback = 0x00000001

// Open opens the capture engine named by cfg on cfg.Interface, or on the best-guess
// default device when the interface is empty. Every failure wraps core.ErrSetup.
func Open(cfg config.CaptureConfig, logger log.Logger) (Handle, error) {
	iface := cfg.Interface
	if iface == "" {
		var err error
		if iface, err = DefaultInterface(); err != nil {
			return nil, err
		}
		logger.WithField("interface", iface).Info("no interface configured, using default device")
	}

	var (
		h   *handle
		err error
	)
	switch cfg.Engine {
	case config.EnginePcap:
		h, err = openPcap(iface, cfg)
	case config.EngineAFPacket:
		h, err = openAFPacket(iface, cfg)
	default:
		err = fmt.Errorf("unsupported capture engine %q", cfg.Engine)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %s on %s: %w", core.ErrSetup, cfg.Engine, iface, err)
	}

	logger.WithFields(map[string]interface{}{
		"interface": iface,
		"engine":    cfg.Engine,
		"filter":    cfg.Filter,
		"link_type": h.LinkType().String(),
		"snap_len":  cfg.SnapLen,
		"promisc":   cfg.Promiscuous,
	}).Info("capture handle opened")
	return h, nil
}

// DefaultInterface returns the first non-loopback device that has an address,
// falling back to the first device reported by libpcap.
func DefaultInterface() (string, error) {
	devs, err := pcap.FindAllDevs()
	if err != nil {
		return "", fmt.Errorf("%w: list capture devices: %w", core.ErrSetup, err)
	}
	return PickDefault(devs)
}

// IsDefaultCandidate reports whether dev would be preferred by DefaultInterface.
func IsDefaultCandidate(dev pcap.Interface) bool {
	return dev.Flags&pcapIfLoopback == 0 && len(dev.Addresses) > 0
}

// PickDefault applies the DefaultInterface choice to devs.
func PickDefault(devs []pcap.Interface) (string, error) {
	if len(devs) == 0 {
		return "", fmt.Errorf("%w: no capture devices found", core.ErrSetup)
	}
	for _, dev := range devs {
		if IsDefaultCandidate(dev) {
			return dev.Name, nil
		}
	}
	return devs[0].Name, nil
}

// ResolveFraming turns the configured framing into a concrete one for a handle
// with link type lt. An explicit setting always wins.
func ResolveFraming(setting decoder.Framing, lt layers.LinkType) (decoder.Framing, error) {
	if setting != decoder.FramingAuto {
		return setting, nil
	}
	switch lt {
	case layers.LinkTypeEthernet:
		return decoder.FramingEthernet, nil
	case layers.LinkTypeRaw, layers.LinkTypeIPv4:
		return decoder.FramingRaw, nil
	default:
		return decoder.FramingAuto, fmt.Errorf("%w: unsupported link type %s, set capture.link_type explicitly",
			core.ErrSetup, lt)
	}
}

var errHandleClosed = errors.New("capture handle closed")
