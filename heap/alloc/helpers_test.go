package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shouao/CSAPP-Labs/heap"
)

// newTestAllocator returns an allocator over a fresh heap of maxHeap bytes.
func newTestAllocator(t testing.TB, maxHeap int, config *SizeClassConfig) (*Allocator, *heap.Heap) {
	t.Helper()

	h, err := heap.New(maxHeap)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })

	a, err := New(h, config)
	require.NoError(t, err)
	return a, h
}

// mustMalloc allocates size bytes and fills the payload with fill.
func mustMalloc(t testing.TB, a *Allocator, size int, fill byte) Ptr {
	t.Helper()

	p, err := a.Malloc(size)
	require.NoError(t, err, "Malloc(%d)", size)
	require.NotEqual(t, Nil, p)

	payload, err := a.Payload(p)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(payload), size)
	for i := range payload {
		payload[i] = fill
	}
	return p
}

// requirePattern checks that the first n payload bytes of p equal fill.
func requirePattern(t testing.TB, a *Allocator, p Ptr, n int, fill byte) {
	t.Helper()

	payload, err := a.Payload(p)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(payload), n)
	for i := range n {
		require.Equal(t, fill, payload[i], "payload 0x%X corrupted at byte %d", p, i)
	}
}

// requireConsistent runs the heap checker.
func requireConsistent(t testing.TB, a *Allocator) {
	t.Helper()
	require.NoError(t, a.Check())
}
