// Package alloc provides an explicit, segregated-fit memory allocator over an
// emulated heap.
//
// # Overview
//
// The allocator manages one contiguous arena (see package heap) and keeps all
// of its metadata inside the arena itself: every block carries a boundary tag
// at both ends and free blocks thread an intrusive singly-linked list through
// their first word. The only state outside the arena is the table of list
// heads, one per size class.
//
// # Allocator API
//
//   - Malloc(size): Allocate a block with at least size usable bytes
//   - Free(ptr): Release a block, merging it with free neighbours
//   - Realloc(ptr, size): Move a block to a new size, preserving content
//   - Init(): Reset the heap and the free-list table
//   - Check(): Validate every structural invariant of the heap
//
// # Usage Example
//
//	h, err := heap.New(heap.DefaultMaxSize)
//	if err != nil {
//	    return err
//	}
//	defer h.Close()
//
//	a, err := alloc.New(h, nil)
//	if err != nil {
//	    return err
//	}
//
//	p, err := a.Malloc(100)
//	if err != nil {
//	    return err // errors.Is(err, alloc.ErrNoMemory) on exhaustion
//	}
//	buf, _ := a.Payload(p)
//	copy(buf, "hello")
//
//	err = a.Free(p)
//
// # Block Layout
//
//	+--------+--------+---------------------+--------+
//	|  link  | header |       payload       | footer |
//	+--------+--------+---------------------+--------+
//	0        8        16                    size-8   size
//
// Header and footer hold size|allocated. Sizes are multiples of 8, so bit 0
// is free to carry the allocated flag. Pointers returned to callers (Ptr)
// are arena offsets of the payload, two words past the block start.
//
// # Size Classes
//
// Buckets are indexed by block size in 8-byte units. With the default
// (Malloclab) policy:
//
//	units <  1024:  one bucket per exact unit count
//	units >= 1024:  1024 + (units-1024)/16384, clamped to the last bucket
//
// Malloc searches the bucket for the request and every larger bucket in
// order, taking the first block that fits (segregated first-fit).
//
// # Splitting and Coalescing
//
// A found block is split when the excess is at least 32 bytes; smaller
// excess stays with the allocated block. Free merges eagerly with the
// physically preceding and following blocks when they are free, so the heap
// never contains two adjacent free blocks.
//
// # Thread Safety
//
// Allocator instances are not thread-safe. Callers must issue one call at a
// time.
//
// # Related Packages
//
//   - github.com/shouao/CSAPP-Labs/heap: The emulated heap (sbrk, bounds)
//   - github.com/shouao/CSAPP-Labs/heap/verify: Physical heap walker used by Check
//   - github.com/shouao/CSAPP-Labs/internal/format: Boundary-tag encoding
package alloc
