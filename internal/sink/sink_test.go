package sink

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"firestige.xyz/ttlmangle/internal/core"
)

// MockWriter is a testify mock of Writer.
type MockWriter struct {
	mock.Mock
}

func (m *MockWriter) WritePacketData(data []byte) error {
	args := m.Called(data)
	return args.Error(0)
}

// recordingWriter keeps a copy of every frame it is given.
type recordingWriter struct {
	mu     sync.Mutex
	frames [][]byte
}

func (w *recordingWriter) WritePacketData(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.frames = append(w.frames, append([]byte(nil), data...))
	return nil
}

func TestSendPopulatesAndWrites(t *testing.T) {
	w := &recordingWriter{}
	s := New(w)

	err := s.Send(4, func(buf []byte) {
		require.Len(t, buf, 4)
		copy(buf, []byte{1, 2, 3, 4})
	})
	require.NoError(t, err)

	require.Len(t, w.frames, 1)
	assert.Equal(t, []byte{1, 2, 3, 4}, w.frames[0])

	stats := s.Stats()
	assert.Equal(t, uint64(1), stats.Sent)
	assert.Equal(t, uint64(0), stats.Failed)
	assert.Equal(t, uint64(4), stats.Bytes)
}

func TestSendReusesBuffersAcrossLengths(t *testing.T) {
	w := &recordingWriter{}
	s := New(w)

	fill := func(b byte) PopulateFunc {
		return func(buf []byte) {
			for i := range buf {
				buf[i] = b
			}
		}
	}

	require.NoError(t, s.Send(64, fill(0xAA)))
	require.NoError(t, s.Send(16, fill(0xBB)))
	require.NoError(t, s.Send(128, fill(0xCC)))

	require.Len(t, w.frames, 3)
	assert.Len(t, w.frames[0], 64)
	assert.Len(t, w.frames[1], 16)
	assert.Len(t, w.frames[2], 128)
	for _, b := range w.frames[1] {
		assert.Equal(t, byte(0xBB), b)
	}
}

func TestSendWriteFailure(t *testing.T) {
	w := new(MockWriter)
	w.On("WritePacketData", mock.Anything).Return(errors.New("network is down")).Once()

	s := New(w)
	err := s.Send(20, func([]byte) {})

	assert.ErrorIs(t, err, core.ErrTransmit)
	assert.Contains(t, err.Error(), "network is down")
	assert.Equal(t, uint64(1), s.Stats().Failed)
	assert.Equal(t, uint64(0), s.Stats().Sent)
	w.AssertExpectations(t)
}

func TestSendRejectsInvalidLength(t *testing.T) {
	w := new(MockWriter)
	s := New(w)

	for _, n := range []int{0, -5} {
		err := s.Send(n, func([]byte) { t.Fatal("populate must not run") })
		assert.ErrorIs(t, err, core.ErrTransmit)
		assert.ErrorIs(t, err, core.ErrInvalidLength)
	}

	w.AssertNotCalled(t, "WritePacketData", mock.Anything)
	assert.Equal(t, uint64(2), s.Stats().Failed)
}
