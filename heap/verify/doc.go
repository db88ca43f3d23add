// Package verify validates the physical block structure of an allocator heap.
//
// # Overview
//
// HeapStructure walks the heap image from offset 0 to its end, one block at a
// time, using only the boundary tags stored in the heap itself. It checks:
//
//   - every block size is at least format.MinBlockSize and 8-byte aligned
//   - every block lies entirely inside the heap
//   - header and footer tags of each block agree
//   - no two physically adjacent blocks are both free (eager coalescing)
//
// The returned Summary records block counts and the set of free block
// starts, which the allocator's own checker compares against its free lists.
//
// # ValidationError
//
// All failures are reported as *ValidationError:
//
//	type ValidationError struct {
//	    Type    string                 // Error category (e.g., "BlockTags")
//	    Message string                 // Human-readable description
//	    Offset  int                    // Heap offset where error occurred (-1 if N/A)
//	    Details map[string]interface{} // Additional context
//	}
//
// Example:
//
//	sum, err := verify.HeapStructure(h.Bytes())
//	if err != nil {
//	    var verr *verify.ValidationError
//	    if errors.As(err, &verr) {
//	        fmt.Printf("%s at 0x%X\n", verr.Type, verr.Offset)
//	    }
//	}
//	fmt.Printf("%d blocks, %d free\n", sum.Blocks, sum.FreeBlocks)
package verify
