package heap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestHeap(t testing.TB, max int) *Heap {
	t.Helper()
	h, err := New(max)
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func TestSbrkReturnsPreviousBreak(t *testing.T) {
	h := newTestHeap(t, 4096)

	require.Equal(t, 0, h.Size())
	require.Equal(t, -1, h.Hi())

	old, err := h.Sbrk(64)
	require.NoError(t, err)
	require.Equal(t, 0, old)

	old, err = h.Sbrk(128)
	require.NoError(t, err)
	require.Equal(t, 64, old)

	require.Equal(t, 192, h.Size())
	require.Equal(t, 0, h.Lo())
	require.Equal(t, 191, h.Hi())
	require.Len(t, h.Bytes(), 192)
}

func TestSbrkExhausted(t *testing.T) {
	h := newTestHeap(t, 256)

	_, err := h.Sbrk(200)
	require.NoError(t, err)

	_, err = h.Sbrk(57)
	require.ErrorIs(t, err, ErrExhausted)
	require.Equal(t, 200, h.Size(), "failed sbrk must not move the break")

	_, err = h.Sbrk(56)
	require.NoError(t, err)
	require.Equal(t, h.Max(), h.Size())
}

func TestSbrkNegative(t *testing.T) {
	h := newTestHeap(t, 256)
	_, err := h.Sbrk(-8)
	require.ErrorIs(t, err, ErrBadIncrement)
}

func TestSbrkZero(t *testing.T) {
	h := newTestHeap(t, 256)
	old, err := h.Sbrk(0)
	require.NoError(t, err)
	require.Equal(t, 0, old)
	require.Equal(t, 0, h.Size())
}

func TestResetPoisonsAndRewinds(t *testing.T) {
	h := newTestHeap(t, 256)

	_, err := h.Sbrk(32)
	require.NoError(t, err)
	b := h.Bytes()
	for i := range b {
		b[i] = 0x11
	}

	h.Reset()
	require.Equal(t, 0, h.Size())
	for i, v := range b {
		require.Equal(t, byte(poisonByte), v, "byte %d not poisoned", i)
	}
}

func TestBytesSurvivesGrowth(t *testing.T) {
	h := newTestHeap(t, 1024)

	_, err := h.Sbrk(16)
	require.NoError(t, err)
	first := h.Bytes()
	first[0] = 0x5a

	_, err = h.Sbrk(512)
	require.NoError(t, err)
	require.Equal(t, byte(0x5a), h.Bytes()[0], "arena must not relocate on growth")
}

func TestClosed(t *testing.T) {
	h, err := New(128)
	require.NoError(t, err)
	require.NoError(t, h.Close())
	require.NoError(t, h.Close())

	_, err = h.Sbrk(8)
	require.True(t, errors.Is(err, ErrClosed))
}

func TestNewInvalid(t *testing.T) {
	_, err := New(0)
	require.Error(t, err)
}
