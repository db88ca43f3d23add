package alloc

import (
	"fmt"
	"math"

	"github.com/shouao/CSAPP-Labs/internal/format"
)

// SizeClassConfig defines the bucket policy for segregated free lists.
// Sizes are measured in alignment units (8 bytes).
type SizeClassConfig struct {
	// Name for this configuration (for reports and benchmarks)
	Name string

	// Threshold is the first unit count that is grouped into bands. Every
	// smaller unit count has its own exact-fit bucket.
	Threshold int

	// BandWidth is the number of units covered by each banded bucket.
	BandWidth int
}

// Predefined configurations.
var (
	// Malloclab: exact buckets up to 8KB, then 128KB bands.
	// 1024 exact classes + maxHeap/8/16384 bands (1184 total for 20MB).
	ConfigMalloclab = SizeClassConfig{
		Name:      "Malloclab",
		Threshold: 1024,
		BandWidth: 16384,
	}

	// Fine: exact buckets up to 32KB, then 8KB bands. Large tables, short lists.
	ConfigFine = SizeClassConfig{
		Name:      "Fine",
		Threshold: 4096,
		BandWidth: 1024,
	}

	// Coarse: exact buckets up to 512B, then 2KB bands. Small table, longer scans.
	ConfigCoarse = SizeClassConfig{
		Name:      "Coarse",
		Threshold: 64,
		BandWidth: 256,
	}

	// Default configuration (used if none specified).
	DefaultConfig = ConfigMalloclab
)

// sizeClassTable maps block sizes to bucket indexes.
type sizeClassTable struct {
	config     SizeClassConfig
	numClasses int
}

// newSizeClassTable sizes the bucket table for a heap of at most maxHeap
// bytes. The table must give the largest possible block its own in-range
// bucket; otherwise the configuration is rejected.
func newSizeClassTable(config SizeClassConfig, maxHeap int) (*sizeClassTable, error) {
	if config.Threshold <= 0 || config.BandWidth <= 0 {
		return nil, fmt.Errorf("%w: threshold=%d band=%d", ErrConfig, config.Threshold, config.BandWidth)
	}
	if maxHeap <= 0 || uint64(maxHeap) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: max heap %d out of range", ErrConfig, maxHeap)
	}

	maxUnits := maxHeap / format.Alignment
	table := &sizeClassTable{
		config:     config,
		numClasses: maxUnits/config.BandWidth + config.Threshold,
	}

	if idx := table.rawClass(maxUnits); idx >= table.numClasses {
		return nil, fmt.Errorf(
			"%w: %s maps %d units to bucket %d of %d",
			ErrConfig, config.Name, maxUnits, idx, table.numClasses,
		)
	}
	return table, nil
}

// rawClass applies the policy without clamping.
func (t *sizeClassTable) rawClass(units int) int {
	if units < t.config.Threshold {
		return units
	}
	return t.config.Threshold + (units-t.config.Threshold)/t.config.BandWidth
}

// getSizeClass returns the bucket for a block of the given size in units.
// Sizes past the table clamp to the last bucket.
func (t *sizeClassTable) getSizeClass(units int) int {
	idx := t.rawClass(units)
	if idx >= t.numClasses {
		return t.numClasses - 1
	}
	return idx
}

// classRange returns the inclusive byte range of block sizes held by bucket idx.
// The last bucket has no upper bound; hi is reported as -1.
func (t *sizeClassTable) classRange(idx int) (lo, hi int) {
	if idx < t.config.Threshold {
		return idx * format.Alignment, idx * format.Alignment
	}
	band := idx - t.config.Threshold
	loUnits := t.config.Threshold + band*t.config.BandWidth
	if idx == t.numClasses-1 {
		return loUnits * format.Alignment, -1
	}
	return loUnits * format.Alignment, (loUnits+t.config.BandWidth)*format.Alignment - format.Alignment
}

// String returns a human-readable description of the size class table.
func (t *sizeClassTable) String() string {
	return t.config.Name
}

// NumClasses returns the number of buckets.
func (t *sizeClassTable) NumClasses() int {
	return t.numClasses
}
