package source

import (
	"testing"

	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/bpf"
)

func TestCompileBpf(t *testing.T) {
	raw, err := CompileBpf("ip", layers.LinkTypeEthernet, 65535)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	// The program must load the EtherType at offset 12 before anything else.
	first, ok := raw[0].Disassemble().(bpf.LoadAbsolute)
	require.True(t, ok, "unexpected first instruction %v", raw[0])
	assert.Equal(t, uint32(12), first.Off)
	assert.Equal(t, 2, first.Size)
}

func TestCompileBpfRaw(t *testing.T) {
	raw, err := CompileBpf("ip", layers.LinkTypeRaw, 65535)
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
}

func TestCompileBpfInvalid(t *testing.T) {
	_, err := CompileBpf("not a ( valid filter", layers.LinkTypeEthernet, 65535)
	assert.Error(t, err)
}
