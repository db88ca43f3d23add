package alloc

// Ptr is a payload pointer: the arena offset of the first usable byte.
type Ptr uint32

// Nil is the null pointer. No payload can start at offset 0.
const Nil Ptr = 0

// Heap is the heap-emulation collaborator the allocator grows into.
// *heap.Heap implements it.
type Heap interface {
	// Sbrk extends the heap by n bytes and returns the previous break.
	Sbrk(n int) (int, error)

	// Bytes returns the in-use heap region [Lo, Hi].
	Bytes() []byte

	// Lo returns the offset of the first heap byte.
	Lo() int

	// Hi returns the offset of the last heap byte in use.
	Hi() int

	// Max returns the largest size the heap may grow to.
	Max() int

	// Reset discards all heap contents and moves the break back to Lo.
	Reset()
}
