// Package format houses the in-heap block layout shared by the allocator and
// the heap checker. Every block carries its metadata inline; nothing about a
// block is stored outside the arena.
//
// Block layout (little-endian words, offsets relative to block start):
//
//	Offset      Size  Description
//	0x00        8     Free-list link (arena offset of next free block) when free.
//	0x08        8     Header tag: size | allocated bit.
//	0x10        ...   Payload. Pointers handed to callers point here.
//	size-8      8     Footer tag: identical copy of the header tag.
package format

const (
	// WordSize is the size of one heap word (link, header, footer).
	WordSize = 8

	// Alignment is the block and payload alignment. Block sizes are always a
	// multiple of it, which leaves the low three bits of a tag free for flags.
	Alignment = 8

	// AlignmentMask masks the bits below Alignment.
	AlignmentMask = Alignment - 1

	// LinkOffset is the offset of the free-list link slot within a block.
	LinkOffset = 0

	// HeaderOffset is the offset of the header tag within a block.
	HeaderOffset = WordSize

	// PayloadOffset is the distance from block start to the first payload byte.
	PayloadOffset = 2 * WordSize

	// Overhead is the per-block metadata cost: link slot, header and footer.
	Overhead = 3 * WordSize

	// MinBlockSize is the smallest block the allocator creates. Split
	// remainders below this size are absorbed into the allocated block.
	MinBlockSize = 32

	// AllocatedBit marks a tag as belonging to an allocated block.
	AllocatedBit = 0x1

	// flagMask covers every low bit that is not part of the size.
	flagMask = uint64(AlignmentMask)

	// NoLink terminates a free list.
	NoLink = ^uint64(0)
)
