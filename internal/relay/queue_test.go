package relay

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/ttlmangle/internal/core"
)

const (
	blockWindow = 50 * time.Millisecond
	waitLimit   = 2 * time.Second
)

func TestNewRejectsNonPositiveCapacity(t *testing.T) {
	for _, c := range []int{0, -1} {
		_, err := New[int](c)
		assert.ErrorIs(t, err, core.ErrConfigInvalid)
	}

	q, err := New[int](3)
	require.NoError(t, err)
	assert.Equal(t, 3, q.Cap())
	assert.Equal(t, 0, q.Len())
}

func TestQueueFIFO(t *testing.T) {
	q, err := New[int](8)
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		require.NoError(t, q.Enqueue(i))
	}
	assert.Equal(t, 8, q.Len())

	for i := 0; i < 8; i++ {
		v, ok := q.Dequeue()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
}

// Capacity 2, three enqueues before any dequeue: the third completes only after the
// first dequeue.
func TestEnqueueSuspendsWhenFull(t *testing.T) {
	q, err := New[string](2)
	require.NoError(t, err)

	require.NoError(t, q.Enqueue("a"))
	require.NoError(t, q.Enqueue("b"))

	enqueued := make(chan error, 1)
	go func() {
		enqueued <- q.Enqueue("c")
	}()

	select {
	case err := <-enqueued:
		t.Fatalf("third enqueue completed before any dequeue: %v", err)
	case <-time.After(blockWindow):
	}

	v, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "a", v)

	select {
	case err := <-enqueued:
		assert.NoError(t, err)
	case <-time.After(waitLimit):
		t.Fatal("third enqueue did not complete after dequeue")
	}

	for _, want := range []string{"b", "c"} {
		v, ok := q.Dequeue()
		require.True(t, ok)
		assert.Equal(t, want, v)
	}
}

func TestDequeueSuspendsWhenEmpty(t *testing.T) {
	q, err := New[int](1)
	require.NoError(t, err)

	got := make(chan int, 1)
	go func() {
		v, _ := q.Dequeue()
		got <- v
	}()

	select {
	case v := <-got:
		t.Fatalf("dequeue returned %d from an empty queue", v)
	case <-time.After(blockWindow):
	}

	require.NoError(t, q.Enqueue(7))

	select {
	case v := <-got:
		assert.Equal(t, 7, v)
	case <-time.After(waitLimit):
		t.Fatal("dequeue did not wake up")
	}
}

func TestCloseProducerDrains(t *testing.T) {
	q, err := New[int](4)
	require.NoError(t, err)

	require.NoError(t, q.Enqueue(1))
	require.NoError(t, q.Enqueue(2))
	q.CloseProducer()
	q.CloseProducer() // idempotent

	assert.ErrorIs(t, q.Enqueue(3), core.ErrQueueClosed)

	for _, want := range []int{1, 2} {
		v, ok := q.Dequeue()
		require.True(t, ok)
		assert.Equal(t, want, v)
	}

	_, ok := q.Dequeue()
	assert.False(t, ok, "drained queue must report closed")
}

func TestShutdownFailsEnqueue(t *testing.T) {
	q, err := New[int](1)
	require.NoError(t, err)

	require.NoError(t, q.Enqueue(1))

	// Blocked enqueue is released by Shutdown.
	blocked := make(chan error, 1)
	go func() {
		blocked <- q.Enqueue(2)
	}()

	select {
	case err := <-blocked:
		t.Fatalf("enqueue on a full queue returned early: %v", err)
	case <-time.After(blockWindow):
	}

	q.Shutdown()
	q.Shutdown() // idempotent

	select {
	case err := <-blocked:
		assert.ErrorIs(t, err, core.ErrQueueClosed)
	case <-time.After(waitLimit):
		t.Fatal("blocked enqueue was not released by Shutdown")
	}

	for i := 0; i < 10; i++ {
		assert.ErrorIs(t, q.Enqueue(i), core.ErrQueueClosed)
	}

	_, ok := q.Dequeue()
	assert.False(t, ok)
}

func TestQueueConcurrentOrdering(t *testing.T) {
	const n = 10000

	q, err := New[int](16)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			if err := q.Enqueue(i); err != nil {
				t.Errorf("enqueue %d: %v", i, err)
				return
			}
		}
		q.CloseProducer()
	}()

	next := 0
	for {
		v, ok := q.Dequeue()
		if !ok {
			break
		}
		if v != next {
			t.Fatalf("out of order: got %d, want %d", v, next)
		}
		next++
	}
	wg.Wait()

	assert.Equal(t, n, next)
}
