package alloc

import "errors"

var (
	// ErrNoMemory indicates that no free block fits and the heap could not grow.
	ErrNoMemory = errors.New("alloc: out of memory")

	// ErrBadSize indicates a negative allocation request.
	ErrBadSize = errors.New("alloc: negative size")

	// ErrNilPointer indicates Free was called with Nil.
	ErrNilPointer = errors.New("alloc: nil pointer")

	// ErrBadPointer indicates a pointer that does not address a block payload.
	ErrBadPointer = errors.New("alloc: invalid pointer")

	// ErrDoubleFree indicates an operation on a block that is already free.
	ErrDoubleFree = errors.New("alloc: block already free")

	// ErrCorrupt indicates heap metadata that contradicts itself.
	ErrCorrupt = errors.New("alloc: heap metadata corrupted")

	// ErrConfig indicates a size-class policy that cannot index the heap.
	ErrConfig = errors.New("alloc: invalid size class configuration")
)
