package alloc

import (
	"fmt"

	"github.com/shouao/CSAPP-Labs/internal/buf"
	"github.com/shouao/CSAPP-Labs/internal/format"
)

// bucketFor returns the free-list index for a block of size bytes.
func (a *Allocator) bucketFor(size int) int {
	return a.sizeTable.getSizeClass(size / format.Alignment)
}

// blockSize reads the size from the header of the block at start.
func blockSize(data []byte, start int) int {
	return format.UnpackTag(format.ReadU64(data, start+format.HeaderOffset)).Size
}

// linkOK reports whether a list link addresses a block start inside data.
func linkOK(data []byte, link uint64) bool {
	if link > uint64(len(data)) {
		return false
	}
	return buf.Has(data, int(link), format.MinBlockSize)
}

// insert pushes the free block at start onto the head of its bucket.
// The footer is rewritten from the header so both tags agree.
func (a *Allocator) insert(start int) {
	data := a.h.Bytes()
	hdr := format.UnpackTag(format.ReadU64(data, start+format.HeaderOffset))
	idx := a.bucketFor(hdr.Size)

	format.PutU64(data, format.FooterOffset(start, hdr.Size), format.PackTag(hdr.Size, hdr.Allocated))

	if a.heads[idx] == uint64(start) {
		panic(fmt.Errorf("insert block 0x%X: already head of bucket %d: %w", start, idx, ErrCorrupt))
	}
	format.WriteLink(data, start, a.heads[idx])
	a.heads[idx] = uint64(start)
	a.stats.ListInserts++
}

// erase unlinks the block at start from its bucket. It reports false when
// the block is not on the list; the list is left unchanged in that case.
func (a *Allocator) erase(start int) bool {
	data := a.h.Bytes()
	idx := a.bucketFor(blockSize(data, start))
	target := uint64(start)

	prev := format.NoLink
	cur := a.heads[idx]
	for cur != format.NoLink {
		if !linkOK(data, cur) {
			return false
		}
		next := format.ReadLink(data, int(cur))
		if cur == target {
			if prev == format.NoLink {
				a.heads[idx] = next
			} else {
				format.WriteLink(data, int(prev), next)
			}
			a.stats.ListErases++
			return true
		}
		prev = cur
		cur = next
	}
	return false
}

// search returns the first free block of at least need bytes, scanning the
// bucket for need and then every larger bucket in order. It returns -1 when
// nothing fits.
func (a *Allocator) search(need int) int {
	data := a.h.Bytes()
	for idx := a.bucketFor(need); idx < len(a.heads); idx++ {
		cur := a.heads[idx]
		for cur != format.NoLink {
			if !linkOK(data, cur) {
				break
			}
			if blockSize(data, int(cur)) >= need {
				return int(cur)
			}
			cur = format.ReadLink(data, int(cur))
		}
	}
	return -1
}

// resetLists empties every bucket.
func (a *Allocator) resetLists() {
	for i := range a.heads {
		a.heads[i] = format.NoLink
	}
}
