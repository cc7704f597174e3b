//go:build !linux

package source

import (
	"errors"

	"firestige.xyz/ttlmangle/internal/config"
)

func openAFPacket(string, config.CaptureConfig) (*handle, error) {
	return nil, errors.New("afpacket engine is only available on linux")
}
