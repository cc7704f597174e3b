package source

import (
	"errors"
	"fmt"

	"github.com/google/gopacket/pcap"

	"firestige.xyz/ttlmangle/internal/config"
)

func openPcap(iface string, cfg config.CaptureConfig) (*handle, error) {
	inactive, err := pcap.NewInactiveHandle(iface)
	if err != nil {
		return nil, fmt.Errorf("inactive handle: %w", err)
	}
	defer inactive.CleanUp()

	if err = inactive.SetSnapLen(cfg.SnapLen); err != nil {
		return nil, fmt.Errorf("set snaplen: %w", err)
	}
	if err = inactive.SetPromisc(cfg.Promiscuous); err != nil {
		return nil, fmt.Errorf("promiscuous mode: %w", err)
	}
	// Deliver frames as they arrive; the timeout only bounds how long a read
	// waits before re-checking for Close.
	if err = inactive.SetImmediateMode(true); err != nil {
		return nil, fmt.Errorf("immediate mode: %w", err)
	}
	if err = inactive.SetTimeout(cfg.ReadTimeout); err != nil {
		return nil, fmt.Errorf("set timeout: %w", err)
	}

	ph, err := inactive.Activate()
	if err != nil {
		return nil, fmt.Errorf("activate: %w", err)
	}

	if cfg.Filter != "" {
		if err = ph.SetBPFFilter(cfg.Filter); err != nil {
			ph.Close()
			return nil, fmt.Errorf("bpf filter %q: %w", cfg.Filter, err)
		}
	}

	return &handle{
		eng:      ph,
		iface:    iface,
		linkType: ph.LinkType(),
		isTimeout: func(err error) bool {
			return errors.Is(err, pcap.NextErrorTimeoutExpired)
		},
		stats: func() (Stats, error) {
			s, err := ph.Stats()
			if err != nil {
				return Stats{}, err
			}
			return Stats{
				Received: uint64(s.PacketsReceived),
				Dropped:  uint64(s.PacketsDropped + s.PacketsIfDropped),
			}, nil
		},
	}, nil
}
