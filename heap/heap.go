package heap

import (
	"fmt"

	"github.com/shouao/CSAPP-Labs/internal/mmfile"
)

// DefaultMaxSize is the default maximum heap size (20 MiB).
const DefaultMaxSize = 20 * (1 << 20)

// poisonByte fills released heap bytes so stale reads are recognisable.
const poisonByte = 0xff

// Heap is a fixed arena with a movable break.
type Heap struct {
	data    []byte // full reservation, len == max
	brk     int    // offset one past the last byte in use
	release func() error
}

// New reserves an arena of maxSize bytes with the break at offset 0.
func New(maxSize int) (*Heap, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("heap: invalid maximum size %d", maxSize)
	}
	data, release, err := mmfile.Reserve(maxSize)
	if err != nil {
		return nil, err
	}
	return &Heap{data: data, release: release}, nil
}

// Sbrk extends the heap by n bytes and returns the previous break offset.
// The heap is left untouched when the request cannot be satisfied.
func (h *Heap) Sbrk(n int) (int, error) {
	if h.data == nil {
		return 0, ErrClosed
	}
	if n < 0 {
		return 0, ErrBadIncrement
	}
	if n > len(h.data)-h.brk {
		return 0, fmt.Errorf("sbrk %d bytes at break %d (max %d): %w", n, h.brk, len(h.data), ErrExhausted)
	}
	old := h.brk
	h.brk += n
	return old, nil
}

// Lo returns the offset of the first heap byte.
func (h *Heap) Lo() int { return 0 }

// Hi returns the offset of the last heap byte in use.
func (h *Heap) Hi() int { return h.brk - 1 }

// Size returns the number of bytes currently in use.
func (h *Heap) Size() int { return h.brk }

// Max returns the configured maximum heap size.
func (h *Heap) Max() int { return len(h.data) }

// Bytes returns the in-use region [Lo, break). The slice aliases the arena;
// it remains valid after later Sbrk calls but does not grow with them.
func (h *Heap) Bytes() []byte { return h.data[:h.brk] }

// Reset moves the break back to Lo and poisons the bytes that were in use.
func (h *Heap) Reset() {
	used := h.data[:h.brk]
	for i := range used {
		used[i] = poisonByte
	}
	h.brk = 0
}

// Close releases the arena. The heap is unusable afterwards.
func (h *Heap) Close() error {
	if h.data == nil {
		return nil
	}
	h.data = nil
	h.brk = 0
	return h.release()
}
