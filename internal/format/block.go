package format

import "fmt"

// Tag is the decoded form of a boundary tag.
type Tag struct {
	Size      int
	Allocated bool
}

// PackTag encodes a block size and allocation flag into one word.
// size must be a multiple of Alignment; the flag lives in bit 0.
func PackTag(size int, allocated bool) uint64 {
	v := uint64(size) &^ flagMask
	if allocated {
		v |= AllocatedBit
	}
	return v
}

// UnpackTag decodes a boundary-tag word.
func UnpackTag(v uint64) Tag {
	return Tag{
		Size:      int(v &^ flagMask),
		Allocated: v&AllocatedBit != 0,
	}
}

// FooterOffset returns the offset of the footer tag of a block of size bytes
// that starts at start.
func FooterOffset(start, size int) int {
	return start + size - WordSize
}

// PayloadStart maps a block start to the first payload byte.
func PayloadStart(start int) int {
	return start + PayloadOffset
}

// BlockStart maps a payload offset back to its block start.
func BlockStart(payload int) int {
	return payload - PayloadOffset
}

// UsableSize returns the payload capacity of a block of the given total size.
func UsableSize(size int) int {
	return size - Overhead
}

// ReadHeader decodes the header tag of the block at start.
func ReadHeader(b []byte, start int) (Tag, error) {
	off := start + HeaderOffset
	if off < 0 || off+WordSize > len(b) {
		return Tag{}, fmt.Errorf("header at %d: %w", start, ErrTruncated)
	}
	return UnpackTag(ReadU64(b, off)), nil
}

// ReadTagAt decodes the tag word stored at off. Used to read the footer of
// the block physically preceding a given start (off = start - WordSize).
func ReadTagAt(b []byte, off int) (Tag, error) {
	if off < 0 || off+WordSize > len(b) {
		return Tag{}, fmt.Errorf("tag at %d: %w", off, ErrTruncated)
	}
	return UnpackTag(ReadU64(b, off)), nil
}

// ReadBlock decodes the header of the block at start and checks it against
// the footer the header points at.
func ReadBlock(b []byte, start int) (Tag, error) {
	hdr, err := ReadHeader(b, start)
	if err != nil {
		return Tag{}, err
	}
	if hdr.Size < MinBlockSize || !IsAligned(hdr.Size) {
		return hdr, fmt.Errorf("block at %d size %d: %w", start, hdr.Size, ErrBadSize)
	}
	ftr, err := ReadTagAt(b, FooterOffset(start, hdr.Size))
	if err != nil {
		return hdr, err
	}
	if ftr != hdr {
		return hdr, fmt.Errorf("block at %d: header %+v footer %+v: %w", start, hdr, ftr, ErrTagMismatch)
	}
	return hdr, nil
}

// WriteTags stamps both boundary tags of the block at start.
// The caller guarantees [start, start+size) lies inside b.
func WriteTags(b []byte, start, size int, allocated bool) {
	v := PackTag(size, allocated)
	PutU64(b, start+HeaderOffset, v)
	PutU64(b, FooterOffset(start, size), v)
}

// ReadLink returns the free-list link stored in the block at start.
func ReadLink(b []byte, start int) uint64 {
	return ReadU64(b, start+LinkOffset)
}

// WriteLink stores a free-list link in the block at start.
func WriteLink(b []byte, start int, next uint64) {
	PutU64(b, start+LinkOffset, next)
}
