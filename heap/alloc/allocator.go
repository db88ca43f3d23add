package alloc

import (
	"errors"
	"fmt"
	"os"

	"github.com/shouao/CSAPP-Labs/internal/buf"
	"github.com/shouao/CSAPP-Labs/internal/format"
)

// Debug flag - set to true to enable verbose logging (compile-time toggle).
const debugAlloc = false

// Runtime debug flag for allocation logging - controlled by MM_LOG_ALLOC env var.
var logAlloc = os.Getenv("MM_LOG_ALLOC") != ""

// logThreshold is the block size above which grow and split events are logged.
const logThreshold = 1024

// Allocator is a segregated-fit allocator with boundary tags and immediate
// coalescing. All block metadata lives inside the heap; heads is the only
// out-of-heap structure.
type Allocator struct {
	h Heap

	// Size class configuration and lookup table
	sizeTable *sizeClassTable

	// heads[i] is the arena offset of the first free block in bucket i,
	// or format.NoLink.
	heads []uint64

	// Statistics for testing and instrumentation
	stats Stats

	// Test hook: called after the heap grows (nil in production)
	onGrow func(n int)
}

// New creates an allocator over h.
//
// Parameters:
//   - h: The heap to allocate from
//   - config: Size class configuration (use nil for DefaultConfig)
//
// The returned allocator is initialized; h is reset.
func New(h Heap, config *SizeClassConfig) (*Allocator, error) {
	if config == nil {
		config = &DefaultConfig
	}

	sizeTable, err := newSizeClassTable(*config, h.Max())
	if err != nil {
		return nil, err
	}

	a := &Allocator{
		h:         h,
		sizeTable: sizeTable,
		heads:     make([]uint64, sizeTable.NumClasses()),
	}
	if err := a.Init(); err != nil {
		return nil, err
	}
	return a, nil
}

// Init resets the heap and empties every free list. Pointers obtained before
// Init are invalid afterwards.
func (a *Allocator) Init() error {
	a.h.Reset()
	a.resetLists()
	a.stats = Stats{}
	return nil
}

// Malloc allocates a block with at least size usable bytes and returns a
// pointer to its payload. The payload is aligned to 8 bytes.
func (a *Allocator) Malloc(size int) (Ptr, error) {
	a.stats.MallocCalls++

	if size < 0 {
		return Nil, ErrBadSize
	}
	if _, ok := buf.AddOverflowSafe(size, format.Overhead+format.AlignmentMask); !ok || size > a.h.Max() {
		a.stats.Failures++
		return Nil, fmt.Errorf("malloc %d bytes: %w", size, ErrNoMemory)
	}
	need := format.BlockSizeFor(size)

	var start, blockLen int
	if found := a.search(need); found >= 0 {
		start = found
		if !a.erase(start) {
			return Nil, fmt.Errorf("malloc: block 0x%X found but not listed: %w", start, ErrCorrupt)
		}

		data := a.h.Bytes()
		blockLen = blockSize(data, start)
		if rem := blockLen - need; rem >= format.MinBlockSize {
			// Split: allocate head, return tail to free list
			a.stats.SplitCount++
			if logAlloc && blockLen > logThreshold {
				fmt.Fprintf(os.Stderr, "[SPLIT] block=%d, need=%d, remainder=%d\n", blockLen, need, rem)
			}
			tail := start + need
			format.WriteTags(data, tail, rem, false)
			a.insert(tail)
			blockLen = need
		}
		a.stats.AllocFastPath++
	} else {
		old, err := a.grow(need)
		if err != nil {
			a.stats.Failures++
			if debugAlloc {
				debugLogf("Malloc(%d): grow failed: %v", size, err)
				a.dumpAllocatorState(need)
			}
			return Nil, fmt.Errorf("malloc %d bytes: %w: %w", size, ErrNoMemory, err)
		}
		start = old
		blockLen = need
		a.stats.AllocSlowPath++
	}

	format.WriteTags(a.h.Bytes(), start, blockLen, true)
	a.stats.BytesAllocated += int64(blockLen)

	return Ptr(format.PayloadStart(start)), nil
}

// grow extends the heap by n bytes and returns the start of the new region.
func (a *Allocator) grow(n int) (int, error) {
	old, err := a.h.Sbrk(n)
	if err != nil {
		return 0, err
	}
	a.stats.GrowCalls++
	a.stats.GrowBytes += int64(n)

	if logAlloc && n > logThreshold {
		fmt.Fprintf(os.Stderr, "[GROW] #%d: %d bytes at 0x%X | heap now %d bytes\n",
			a.stats.GrowCalls, n, old, a.h.Hi()+1-a.h.Lo())
	}
	if a.onGrow != nil {
		a.onGrow(n)
	}
	return old, nil
}

// Free releases the block behind p and merges it with free neighbours.
func (a *Allocator) Free(p Ptr) error {
	a.stats.FreeCalls++

	start, tag, err := a.blockOf(p)
	if err != nil {
		return err
	}
	if !tag.Allocated {
		return fmt.Errorf("free 0x%X: %w", p, ErrDoubleFree)
	}

	data := a.h.Bytes()
	lo, end := a.h.Lo(), a.h.Hi()+1

	// Validate both neighbours before touching any list.
	prevStart, prevSize := -1, 0
	if buf.Within(lo, end, start-format.MinBlockSize, format.MinBlockSize) {
		prev, err := format.ReadTagAt(data, start-format.WordSize)
		if err == nil && !prev.Allocated {
			prevStart = start - prev.Size
			if prev.Size < format.MinBlockSize || !buf.Within(lo, end, prevStart, prev.Size) {
				return fmt.Errorf("free 0x%X: predecessor footer size %d: %w", p, prev.Size, ErrCorrupt)
			}
			if _, err := format.ReadBlock(data, prevStart); err != nil {
				return fmt.Errorf("free 0x%X: predecessor: %w: %w", p, ErrCorrupt, err)
			}
			prevSize = prev.Size
		}
	}

	next, nextSize := start+tag.Size, 0
	if buf.Within(lo, end, next, format.MinBlockSize) {
		nt, err := format.ReadBlock(data, next)
		if err != nil {
			return fmt.Errorf("free 0x%X: successor: %w: %w", p, ErrCorrupt, err)
		}
		if !nt.Allocated {
			nextSize = nt.Size
		}
	}

	if prevSize > 0 && !a.erase(prevStart) {
		return fmt.Errorf("free 0x%X: predecessor 0x%X not on a free list: %w", p, prevStart, ErrCorrupt)
	}
	if nextSize > 0 && !a.erase(next) {
		if prevSize > 0 {
			a.insert(prevStart)
		}
		return fmt.Errorf("free 0x%X: successor 0x%X not on a free list: %w", p, next, ErrCorrupt)
	}
	a.stats.BytesFreed += int64(tag.Size)

	// The block's own tags read free even when they end up inside a merged block.
	format.WriteTags(data, start, tag.Size, false)

	merged, total := start, tag.Size+nextSize
	if prevSize > 0 {
		a.stats.CoalesceBackward++
		merged = prevStart
		total += prevSize
	}
	if nextSize > 0 {
		a.stats.CoalesceForward++
	}

	format.WriteTags(data, merged, total, false)
	a.insert(merged)
	return nil
}

// Realloc resizes the block behind p.
//
//   - size 0 frees p and returns Nil
//   - p == Nil behaves as Malloc(size)
//   - otherwise a new block is allocated, min(old usable, size) bytes are
//     copied, and p is freed. On failure p is left untouched.
func (a *Allocator) Realloc(p Ptr, size int) (Ptr, error) {
	a.stats.ReallocCalls++

	if size == 0 {
		if p == Nil {
			return Nil, nil
		}
		return Nil, a.Free(p)
	}
	if p == Nil {
		return a.Malloc(size)
	}

	_, tag, err := a.blockOf(p)
	if err != nil {
		return Nil, err
	}
	if !tag.Allocated {
		return Nil, fmt.Errorf("realloc 0x%X: %w", p, ErrDoubleFree)
	}

	np, err := a.Malloc(size)
	if err != nil {
		return Nil, err
	}

	n := min(format.UsableSize(tag.Size), size)
	data := a.h.Bytes()
	copy(data[int(np):int(np)+n], data[int(p):int(p)+n])

	if err := a.Free(p); err != nil {
		return np, err
	}
	return np, nil
}

// Payload returns the usable bytes of the live block behind p. The slice
// is capped at the block's usable size so appends cannot reach the footer.
func (a *Allocator) Payload(p Ptr) ([]byte, error) {
	_, tag, err := a.blockOf(p)
	if err != nil {
		return nil, err
	}
	if !tag.Allocated {
		return nil, fmt.Errorf("payload 0x%X: %w", p, ErrDoubleFree)
	}
	n := format.UsableSize(tag.Size)
	b, ok := buf.Slice(a.h.Bytes(), int(p), n)
	if !ok {
		return nil, fmt.Errorf("payload 0x%X: %w", p, ErrBadPointer)
	}
	return b[:n:n], nil
}

// UsableSize returns the number of usable payload bytes behind p.
func (a *Allocator) UsableSize(p Ptr) (int, error) {
	_, tag, err := a.blockOf(p)
	if err != nil {
		return 0, err
	}
	return format.UsableSize(tag.Size), nil
}

// blockOf validates p and decodes the block it belongs to.
func (a *Allocator) blockOf(p Ptr) (int, format.Tag, error) {
	if p == Nil {
		return 0, format.Tag{}, ErrNilPointer
	}
	off := int(p)
	if !format.IsAligned(off) || off < format.PayloadOffset {
		return 0, format.Tag{}, fmt.Errorf("pointer 0x%X: %w", p, ErrBadPointer)
	}
	start := format.BlockStart(off)
	if !buf.Within(a.h.Lo(), a.h.Hi()+1, start, format.MinBlockSize) {
		return 0, format.Tag{}, fmt.Errorf("pointer 0x%X outside heap: %w", p, ErrBadPointer)
	}
	data := a.h.Bytes()
	hdr, err := format.ReadHeader(data, start)
	if err != nil {
		return 0, format.Tag{}, fmt.Errorf("pointer 0x%X: %w: %w", p, ErrBadPointer, err)
	}
	if !hdr.Allocated {
		// A freed block may since have been absorbed by a neighbour, which
		// rewrites its footer. Only the header still describes it.
		return start, hdr, nil
	}
	tag, err := format.ReadBlock(data, start)
	if err != nil {
		return 0, format.Tag{}, fmt.Errorf("pointer 0x%X: %w: %w", p, ErrBadPointer, err)
	}
	return start, tag, nil
}

// IsOutOfMemory reports whether err is an exhaustion failure the caller may
// recover from by freeing memory.
func IsOutOfMemory(err error) bool {
	return errors.Is(err, ErrNoMemory)
}
