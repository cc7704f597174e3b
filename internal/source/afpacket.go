//go:build linux

package source

import (
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/google/gopacket/afpacket"
	"github.com/google/gopacket/layers"
	"golang.org/x/sys/unix"

	"firestige.xyz/ttlmangle/internal/config"
)

func openAFPacket(iface string, cfg config.CaptureConfig) (*handle, error) {
	ifi, err := net.InterfaceByName(iface)
	if err != nil {
		return nil, fmt.Errorf("lookup interface: %w", err)
	}
	// SOCK_RAW on a device without a hardware address (tun, ppp) delivers bare
	// IP datagrams.
	linkType := layers.LinkTypeEthernet
	if len(ifi.HardwareAddr) == 0 {
		linkType = layers.LinkTypeRaw
	}

	ac := cfg.AFPacket
	frameSize, err := ringLayout(cfg.SnapLen, ac.BlockSize, ac.NumBlocks, os.Getpagesize())
	if err != nil {
		return nil, err
	}

	tp, err := afpacket.NewTPacket(
		afpacket.OptInterface(ifi.Name),
		afpacket.OptFrameSize(frameSize),
		afpacket.OptBlockSize(ac.BlockSize),
		afpacket.OptNumBlocks(ac.NumBlocks),
		afpacket.OptPollTimeout(ac.PollTimeout),
		afpacket.SocketRaw,
		afpacket.TPacketVersion3,
	)
	if err != nil {
		return nil, fmt.Errorf("create TPacket: %w", err)
	}

	if cfg.Filter != "" {
		rawBpf, err := CompileBpf(cfg.Filter, linkType, cfg.SnapLen)
		if err != nil {
			tp.Close()
			return nil, err
		}
		if err := tp.SetBPF(rawBpf); err != nil {
			tp.Close()
			return nil, fmt.Errorf("set BPF filter: %w", err)
		}
	}

	if err := tp.InitSocketStats(); err != nil {
		tp.Close()
		return nil, fmt.Errorf("init socket stats: %w", err)
	}

	var onClose func()
	if cfg.Promiscuous {
		fd, err := setPromisc(ifi.Index)
		if err != nil {
			tp.Close()
			return nil, fmt.Errorf("promiscuous mode: %w", err)
		}
		onClose = func() { _ = unix.Close(fd) }
	}

	return &handle{
		eng:      tp,
		iface:    ifi.Name,
		linkType: linkType,
		isTimeout: func(err error) bool {
			return errors.Is(err, afpacket.ErrTimeout) || errors.Is(err, unix.EINTR)
		},
		stats: func() (Stats, error) {
			_, v3, err := tp.SocketStats()
			if err != nil {
				return Stats{}, err
			}
			return Stats{Received: uint64(v3.Packets()), Dropped: uint64(v3.Drops())}, nil
		},
		onClose: onClose,
	}, nil
}

// setPromisc opens a companion packet socket holding a PACKET_MR_PROMISC
// membership on ifindex. TPacket does not expose its descriptor, and the kernel
// drops the membership when the returned socket is closed.
func setPromisc(ifindex int) (int, error) {
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, 0)
	if err != nil {
		return -1, fmt.Errorf("open membership socket: %w", err)
	}
	mreq := unix.PacketMreq{
		Ifindex: int32(ifindex),
		Type:    unix.PACKET_MR_PROMISC,
	}
	if err := unix.SetsockoptPacketMreq(fd, unix.SOL_PACKET, unix.PACKET_ADD_MEMBERSHIP, &mreq); err != nil {
		_ = unix.Close(fd)
		return -1, err
	}
	return fd, nil
}
