// Package heap emulates the process heap an allocator grows into.
//
// # Overview
//
// A Heap is one contiguous byte region reserved up front for a configured
// maximum size. Only the prefix [Lo, break) is in use; Sbrk moves the break
// forward the way sbrk(2) does for a real process and fails once the maximum
// would be exceeded.
//
//	h, err := heap.New(20 << 20)
//	if err != nil {
//	    return err
//	}
//	defer h.Close()
//
//	old, err := h.Sbrk(4096) // old is the previous break offset
//
// Offsets are relative to the start of the arena, so Lo is always 0 and Hi
// is the offset of the last byte in use (Lo-1 while the heap is empty).
//
// # Thread Safety
//
// Heap instances are not thread-safe.
package heap
