package verify

import (
	"fmt"

	"github.com/shouao/CSAPP-Labs/internal/format"
)

// Validation error categories.
const (
	TypeBlockSize   = "BlockSize"
	TypeBlockBounds = "BlockBounds"
	TypeBlockTags   = "BlockTags"
	TypeCoalescing  = "Coalescing"
	TypeFreeList    = "FreeList"
)

// ValidationError describes the first structural violation found.
type ValidationError struct {
	Type    string
	Message string
	Offset  int
	Details map[string]interface{}
}

func (e *ValidationError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s at offset 0x%X: %s", e.Type, e.Offset, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Summary describes a heap that passed HeapStructure.
type Summary struct {
	Blocks          int
	AllocatedBlocks int
	FreeBlocks      int
	AllocatedBytes  int
	FreeBytes       int
	LargestFree     int

	free map[int]int // free block start -> size
}

// FreeBlockSize returns the size of the free block starting at off.
func (s *Summary) FreeBlockSize(off int) (int, bool) {
	size, ok := s.free[off]
	return size, ok
}

// HeapStructure walks every block of the heap image data.
func HeapStructure(data []byte) (*Summary, error) {
	sum := &Summary{free: make(map[int]int)}
	prevFree := false
	pos := 0

	for pos < len(data) {
		if pos+format.MinBlockSize > len(data) {
			return nil, &ValidationError{
				Type:    TypeBlockBounds,
				Message: fmt.Sprintf("trailing %d bytes cannot hold a block", len(data)-pos),
				Offset:  pos,
			}
		}

		hdr, err := format.ReadHeader(data, pos)
		if err != nil {
			return nil, &ValidationError{Type: TypeBlockBounds, Message: err.Error(), Offset: pos}
		}
		if hdr.Size < format.MinBlockSize || !format.IsAligned(hdr.Size) {
			return nil, &ValidationError{
				Type:    TypeBlockSize,
				Message: fmt.Sprintf("invalid block size %d", hdr.Size),
				Offset:  pos,
			}
		}
		if hdr.Size > len(data)-pos {
			return nil, &ValidationError{
				Type:    TypeBlockBounds,
				Message: fmt.Sprintf("block of %d bytes extends beyond heap end 0x%X", hdr.Size, len(data)),
				Offset:  pos,
			}
		}

		ftr, _ := format.ReadTagAt(data, format.FooterOffset(pos, hdr.Size))
		if ftr != hdr {
			return nil, &ValidationError{
				Type:    TypeBlockTags,
				Message: "header and footer disagree",
				Offset:  pos,
				Details: map[string]interface{}{
					"header": hdr,
					"footer": ftr,
				},
			}
		}

		sum.Blocks++
		if hdr.Allocated {
			sum.AllocatedBlocks++
			sum.AllocatedBytes += hdr.Size
			prevFree = false
		} else {
			if prevFree {
				return nil, &ValidationError{
					Type:    TypeCoalescing,
					Message: "free block follows another free block",
					Offset:  pos,
				}
			}
			sum.FreeBlocks++
			sum.FreeBytes += hdr.Size
			if hdr.Size > sum.LargestFree {
				sum.LargestFree = hdr.Size
			}
			sum.free[pos] = hdr.Size
			prevFree = true
		}

		pos += hdr.Size
	}

	return sum, nil
}
