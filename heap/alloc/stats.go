package alloc

import (
	"fmt"
	"io"
	"os"

	"github.com/shouao/CSAPP-Labs/internal/format"
)

// Stats holds allocator counters since the last Init.
type Stats struct {
	MallocCalls      int   // Total Malloc() calls (including those made by Realloc)
	FreeCalls        int   // Total Free() calls (including those made by Realloc)
	ReallocCalls     int   // Total Realloc() calls
	AllocFastPath    int   // Allocations served from a free list
	AllocSlowPath    int   // Allocations that required heap growth
	Failures         int   // Allocations that returned ErrNoMemory
	GrowCalls        int   // Number of successful Sbrk() calls
	GrowBytes        int64 // Total bytes added via Sbrk()
	BytesAllocated   int64 // Total block bytes handed out (including overhead)
	BytesFreed       int64 // Total block bytes released
	SplitCount       int   // Number of block splits
	CoalesceForward  int   // Merges with the following block
	CoalesceBackward int   // Merges with the preceding block
	ListInserts      int   // Free-list pushes
	ListErases       int   // Free-list removals
}

// FreeStats summarizes the free lists.
type FreeStats struct {
	Buckets     int   // Non-empty buckets
	FreeBlocks  int   // Blocks on all lists
	FreeBytes   int64 // Bytes on all lists
	LargestFree int   // Largest free block
}

// SizeClass describes one bucket of the size-class table.
type SizeClass struct {
	Index   int
	MinSize int // Smallest block size (bytes) held by the bucket
	MaxSize int // Largest block size (bytes); -1 for the unbounded last bucket
}

// Stats returns the allocator counters.
func (a *Allocator) Stats() Stats {
	return a.stats
}

// FreeStats walks every free list.
func (a *Allocator) FreeStats() FreeStats {
	var fs FreeStats
	data := a.h.Bytes()
	for _, head := range a.heads {
		if head == format.NoLink {
			continue
		}
		fs.Buckets++
		for cur := head; cur != format.NoLink && linkOK(data, cur); cur = format.ReadLink(data, int(cur)) {
			size := blockSize(data, int(cur))
			fs.FreeBlocks++
			fs.FreeBytes += int64(size)
			if size > fs.LargestFree {
				fs.LargestFree = size
			}
		}
	}
	return fs
}

// SizeClasses returns the bucket table of the active policy.
func (a *Allocator) SizeClasses() []SizeClass {
	classes := make([]SizeClass, a.sizeTable.NumClasses())
	for i := range classes {
		lo, hi := a.sizeTable.classRange(i)
		classes[i] = SizeClass{Index: i, MinSize: lo, MaxSize: hi}
	}
	return classes
}

// Policy returns the name of the active size-class configuration.
func (a *Allocator) Policy() string {
	return a.sizeTable.String()
}

// PrintStats writes allocator statistics to w.
func (a *Allocator) PrintStats(w io.Writer) {
	s := a.stats
	fs := a.FreeStats()
	heapSize := a.h.Hi() + 1 - a.h.Lo()

	fmt.Fprintf(w, "\n=== ALLOCATOR STATISTICS (%s) ===\n", a.sizeTable)
	fmt.Fprintf(w, "Heap size:          %d bytes (%d grow calls)\n", heapSize, s.GrowCalls)
	fmt.Fprintf(w, "Malloc calls:       %d (fast: %d, slow: %d, failed: %d)\n",
		s.MallocCalls, s.AllocFastPath, s.AllocSlowPath, s.Failures)
	fmt.Fprintf(w, "Free calls:         %d\n", s.FreeCalls)
	fmt.Fprintf(w, "Realloc calls:      %d\n", s.ReallocCalls)
	fmt.Fprintf(w, "Bytes allocated:    %d\n", s.BytesAllocated)
	fmt.Fprintf(w, "Bytes freed:        %d\n", s.BytesFreed)
	fmt.Fprintf(w, "Block splits:       %d\n", s.SplitCount)
	fmt.Fprintf(w, "Coalesce fwd:       %d\n", s.CoalesceForward)
	fmt.Fprintf(w, "Coalesce back:      %d\n", s.CoalesceBackward)

	fmt.Fprintf(w, "\nFragmentation:\n")
	fmt.Fprintf(w, "  Free blocks:      %d in %d buckets\n", fs.FreeBlocks, fs.Buckets)
	fmt.Fprintf(w, "  Free bytes:       %d\n", fs.FreeBytes)
	fmt.Fprintf(w, "  Largest free:     %d\n", fs.LargestFree)
	if heapSize > 0 {
		fmt.Fprintf(w, "  Free ratio:       %.1f%%\n", 100.0*float64(fs.FreeBytes)/float64(heapSize))
	}
	fmt.Fprintf(w, "==================================\n\n")
}

// ============================================================================
// Debug helpers
// ============================================================================

// debugLogf prints debug messages if debugAlloc is enabled.
func debugLogf(format string, args ...any) {
	if debugAlloc {
		fmt.Fprintf(os.Stderr, "[ALLOC] "+format+"\n", args...)
	}
}

// dumpAllocatorState dumps the non-empty buckets for debugging.
func (a *Allocator) dumpAllocatorState(need int) {
	if !debugAlloc {
		return
	}

	data := a.h.Bytes()
	fmt.Fprintf(os.Stderr, "\n=== ALLOCATOR STATE DUMP (need=%d) ===\n", need)
	fmt.Fprintf(os.Stderr, "Heap: [0x%X, 0x%X]\n", a.h.Lo(), a.h.Hi())
	for idx, head := range a.heads {
		if head == format.NoLink {
			continue
		}
		fmt.Fprintf(os.Stderr, "  B[%d]:", idx)
		for cur := head; cur != format.NoLink && linkOK(data, cur); cur = format.ReadLink(data, int(cur)) {
			fmt.Fprintf(os.Stderr, " 0x%X(%d)", cur, blockSize(data, int(cur)))
		}
		fmt.Fprintln(os.Stderr)
	}
	fmt.Fprintf(os.Stderr, "===================================\n\n")
}
