package alloc

import (
	"fmt"

	"github.com/shouao/CSAPP-Labs/heap/verify"
	"github.com/shouao/CSAPP-Labs/internal/format"
)

// Check validates the heap and the free lists against each other:
//
//   - the physical block walk passes verify.HeapStructure
//   - every list node is a free block in the bucket its size maps to
//   - no node appears twice (no cycles)
//   - every free block is on exactly one list
//
// The first violation is returned as a *verify.ValidationError.
func (a *Allocator) Check() error {
	data := a.h.Bytes()
	sum, err := verify.HeapStructure(data)
	if err != nil {
		return err
	}

	seen := make(map[int]struct{}, sum.FreeBlocks)
	for idx, head := range a.heads {
		for cur := head; cur != format.NoLink; {
			if cur >= uint64(len(data)) {
				return &verify.ValidationError{
					Type:    verify.TypeFreeList,
					Message: fmt.Sprintf("bucket %d links to 0x%X beyond heap end 0x%X", idx, cur, len(data)),
					Offset:  -1,
				}
			}
			off := int(cur)
			size, ok := sum.FreeBlockSize(off)
			if !ok {
				return &verify.ValidationError{
					Type:    verify.TypeFreeList,
					Message: fmt.Sprintf("bucket %d holds a node that is not a free block", idx),
					Offset:  off,
				}
			}
			if _, dup := seen[off]; dup {
				return &verify.ValidationError{
					Type:    verify.TypeFreeList,
					Message: fmt.Sprintf("node listed twice (cycle in bucket %d)", idx),
					Offset:  off,
				}
			}
			seen[off] = struct{}{}
			if want := a.bucketFor(size); want != idx {
				return &verify.ValidationError{
					Type:    verify.TypeFreeList,
					Message: fmt.Sprintf("block of %d bytes in bucket %d, belongs in %d", size, idx, want),
					Offset:  off,
				}
			}
			cur = format.ReadLink(data, off)
		}
	}

	if len(seen) != sum.FreeBlocks {
		return &verify.ValidationError{
			Type:    verify.TypeFreeList,
			Message: fmt.Sprintf("%d free blocks in heap, %d on free lists", sum.FreeBlocks, len(seen)),
			Offset:  -1,
		}
	}
	return nil
}
