// Package replay drives an allocator through trace files, validating every
// result and measuring space utilization and throughput.
package replay

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/shouao/CSAPP-Labs/heap"
	"github.com/shouao/CSAPP-Labs/heap/alloc"
	"github.com/shouao/CSAPP-Labs/internal/buf"
	"github.com/shouao/CSAPP-Labs/internal/format"
	"github.com/shouao/CSAPP-Labs/internal/logger"
	"github.com/shouao/CSAPP-Labs/internal/trace"
)

// Defaults for Options fields left zero.
const (
	DefaultUtilWeight = 0.60
	DefaultLibcKops   = 600.0
)

// Validation failures.
var (
	ErrMisaligned   = errors.New("replay: payload not 8-byte aligned")
	ErrOutOfBounds  = errors.New("replay: payload outside heap")
	ErrOverlap      = errors.New("replay: payload overlaps a live block")
	ErrPayload      = errors.New("replay: payload contents changed")
	ErrUnknownBlock = errors.New("replay: op on unknown block id")
	ErrAllocFailed  = errors.New("replay: allocator call failed")
	ErrInconsistent = errors.New("replay: heap check failed")
	ErrNoResults    = errors.New("replay: no weighted traces with operations")
)

// OpError reports the op at which validation failed.
type OpError struct {
	Index int
	Op    trace.Op
	Err   error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("op %d (%s id=%d size=%d): %v", e.Index, e.Op.Kind, e.Op.ID, e.Op.Size, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// Options configures a replay.
type Options struct {
	MaxHeap    int                    // Heap limit in bytes. Default: heap.DefaultMaxSize
	Policy     *alloc.SizeClassConfig // Nil for alloc.DefaultConfig
	Check      bool                   // Run the heap checker after every op
	Iterations int                    // Timed replays. Default: 1
	UtilWeight *float64               // Weight of utilization in the index. Nil for DefaultUtilWeight
	LibcKops   float64                // Reference throughput. Default: 600
}

func (o Options) withDefaults() Options {
	if o.MaxHeap <= 0 {
		o.MaxHeap = heap.DefaultMaxSize
	}
	if o.Iterations <= 0 {
		o.Iterations = 1
	}
	if o.UtilWeight == nil {
		w := DefaultUtilWeight
		o.UtilWeight = &w
	}
	if o.LibcKops <= 0 {
		o.LibcKops = DefaultLibcKops
	}
	return o
}

// Result is the outcome of replaying one trace.
type Result struct {
	Name     string      `json:"name"`
	Weight   int         `json:"weight"`
	Ops      int         `json:"ops"`
	PeakLive int         `json:"peak_live_bytes"`
	HeapSize int         `json:"heap_bytes"`
	Util     float64     `json:"util"`
	Seconds  float64     `json:"seconds"`
	Kops     float64     `json:"kops"`
	MeanNs   float64     `json:"mean_ns"`
	P50Ns    float64     `json:"p50_ns"`
	P99Ns    float64     `json:"p99_ns"`
	Stats    alloc.Stats `json:"stats"`
}

// Run validates tr against a fresh allocator and then times it.
func Run(name string, tr *trace.Trace, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	h, err := heap.New(opts.MaxHeap)
	if err != nil {
		return nil, err
	}
	defer h.Close()

	a, err := alloc.New(h, opts.Policy)
	if err != nil {
		return nil, err
	}

	res := &Result{Name: name, Weight: tr.Weight, Ops: len(tr.Ops)}

	logger.Debug("validity pass", "trace", name, "ops", len(tr.Ops), "policy", a.Policy())
	v := newValidator(a, h, tr.NumIDs)
	for i, op := range tr.Ops {
		if err := v.apply(op); err != nil {
			return nil, fmt.Errorf("%s: %w", name, &OpError{Index: i, Op: op, Err: err})
		}
		if opts.Check {
			if err := a.Check(); err != nil {
				return nil, fmt.Errorf("%s: %w", name, &OpError{Index: i, Op: op, Err: fmt.Errorf("%w: %w", ErrInconsistent, err)})
			}
		}
	}
	res.PeakLive = v.peak
	res.HeapSize = h.Size()
	if res.HeapSize > 0 {
		res.Util = float64(res.PeakLive) / float64(res.HeapSize)
	}
	res.Stats = a.Stats()

	if err := timeTrace(a, tr, opts.Iterations, res); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	logger.Info("replayed trace", "trace", name, "util", res.Util, "kops", res.Kops)
	return res, nil
}

// timeTrace replays tr iterations times without validation.
func timeTrace(a *alloc.Allocator, tr *trace.Trace, iterations int, res *Result) error {
	ptrs := make([]alloc.Ptr, tr.NumIDs)
	lats := make([]float64, 0, len(tr.Ops)*iterations)
	var total time.Duration

	for range iterations {
		if err := a.Init(); err != nil {
			return err
		}
		clear(ptrs)

		for i, op := range tr.Ops {
			var err error
			start := time.Now()
			switch op.Kind {
			case trace.Alloc:
				ptrs[op.ID], err = a.Malloc(op.Size)
			case trace.Realloc:
				ptrs[op.ID], err = a.Realloc(ptrs[op.ID], op.Size)
			case trace.Free:
				err = a.Free(ptrs[op.ID])
				ptrs[op.ID] = alloc.Nil
			}
			d := time.Since(start)
			if err != nil {
				return &OpError{Index: i, Op: op, Err: err}
			}
			total += d
			lats = append(lats, float64(d.Nanoseconds()))
		}
	}

	if len(lats) == 0 {
		return nil
	}
	res.Seconds = max(total, time.Nanosecond).Seconds()
	res.Kops = float64(len(lats)) / res.Seconds / 1000

	var err error
	if res.MeanNs, err = stats.Mean(lats); err != nil {
		return err
	}
	if res.P50Ns, err = stats.Percentile(lats, 50); err != nil {
		return err
	}
	if res.P99Ns, err = stats.Percentile(lats, 99); err != nil {
		return err
	}
	return nil
}

// Summary aggregates results the way the malloc lab scores a run: mean
// utilization over weighted traces and throughput over their total time.
type Summary struct {
	Traces     int     `json:"traces"`
	Ops        int     `json:"ops"`
	AvgUtil    float64 `json:"avg_util"`
	Seconds    float64 `json:"seconds"`
	Kops       float64 `json:"kops"`
	PerfIndex  float64 `json:"perf_index"`
	UtilWeight float64 `json:"util_weight"`
}

// Summarize computes the performance index
// weight*util + (1-weight)*min(1, kops/libcKops) over weighted results.
func Summarize(results []*Result, opts Options) (*Summary, error) {
	opts = opts.withDefaults()
	sum := &Summary{UtilWeight: *opts.UtilWeight}

	var utilSum float64
	for _, r := range results {
		if r.Weight == 0 {
			continue
		}
		sum.Traces++
		sum.Ops += r.Ops
		sum.Seconds += r.Seconds
		utilSum += r.Util
	}
	if sum.Traces == 0 || sum.Ops == 0 {
		return sum, ErrNoResults
	}

	sum.AvgUtil = utilSum / float64(sum.Traces)
	sum.Seconds = max(sum.Seconds, time.Nanosecond.Seconds())
	sum.Kops = float64(sum.Ops) / sum.Seconds / 1000
	sum.PerfIndex = PerfIndex(sum.AvgUtil, sum.Kops, *opts.UtilWeight, opts.LibcKops)
	return sum, nil
}

// PerfIndex combines utilization and throughput into a score in [0, 1].
func PerfIndex(util, kops, weight, libcKops float64) float64 {
	return weight*util + (1-weight)*math.Min(1, kops/libcKops)
}

// span is a live payload range [lo, hi).
type span struct {
	lo, hi int
	id     int
}

// validator replays ops and checks every allocator result.
type validator struct {
	a    *alloc.Allocator
	h    alloc.Heap
	ptrs []alloc.Ptr
	size []int
	live []span // sorted by lo
	cur  int
	peak int
}

func newValidator(a *alloc.Allocator, h alloc.Heap, numIDs int) *validator {
	return &validator{
		a:    a,
		h:    h,
		ptrs: make([]alloc.Ptr, numIDs),
		size: make([]int, numIDs),
	}
}

func (v *validator) apply(op trace.Op) error {
	if op.ID < 0 || op.ID >= len(v.ptrs) {
		return ErrUnknownBlock
	}

	switch op.Kind {
	case trace.Alloc:
		if v.ptrs[op.ID] != alloc.Nil {
			return fmt.Errorf("%w: id already live", ErrUnknownBlock)
		}
		p, err := v.a.Malloc(op.Size)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrAllocFailed, err)
		}
		return v.place(op.ID, p, op.Size)

	case trace.Realloc:
		old := v.ptrs[op.ID]
		if old == alloc.Nil {
			return fmt.Errorf("%w: realloc of dead id", ErrUnknownBlock)
		}
		if err := v.verify(op.ID); err != nil {
			return err
		}
		keep := min(v.size[op.ID], op.Size)
		v.remove(op.ID)

		p, err := v.a.Realloc(old, op.Size)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrAllocFailed, err)
		}
		if op.Size == 0 {
			return nil
		}
		payload, err := v.a.Payload(p)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrAllocFailed, err)
		}
		for i := range keep {
			if payload[i] != patternByte(op.ID, i) {
				return fmt.Errorf("%w: realloc lost byte %d", ErrPayload, i)
			}
		}
		return v.place(op.ID, p, op.Size)

	case trace.Free:
		if v.ptrs[op.ID] == alloc.Nil {
			return fmt.Errorf("%w: free of dead id", ErrUnknownBlock)
		}
		if err := v.verify(op.ID); err != nil {
			return err
		}
		p := v.ptrs[op.ID]
		v.remove(op.ID)
		if err := v.a.Free(p); err != nil {
			return fmt.Errorf("%w: %w", ErrAllocFailed, err)
		}
		return nil
	}
	return fmt.Errorf("%w: kind %v", ErrUnknownBlock, op.Kind)
}

// checkRange validates alignment, bounds and disjointness of a new payload.
func (v *validator) checkRange(p alloc.Ptr, size int) error {
	lo := int(p)
	if !format.IsAligned(lo) {
		return fmt.Errorf("%w: 0x%X", ErrMisaligned, lo)
	}
	data := v.h.Bytes()
	if !buf.Within(format.PayloadOffset, len(data), lo, size) {
		return fmt.Errorf("%w: [0x%X, 0x%X) heap [0, 0x%X)", ErrOutOfBounds, lo, lo+size, len(data))
	}
	if size == 0 {
		return nil
	}
	hi := lo + size
	i := sort.Search(len(v.live), func(i int) bool { return v.live[i].hi > lo })
	if i < len(v.live) && v.live[i].lo < hi {
		return fmt.Errorf("%w: [0x%X, 0x%X) and id %d [0x%X, 0x%X)",
			ErrOverlap, lo, hi, v.live[i].id, v.live[i].lo, v.live[i].hi)
	}
	return nil
}

// place records a validated payload and fills it with the id's pattern.
func (v *validator) place(id int, p alloc.Ptr, size int) error {
	if err := v.checkRange(p, size); err != nil {
		return err
	}
	payload, err := v.a.Payload(p)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAllocFailed, err)
	}
	for i := range size {
		payload[i] = patternByte(id, i)
	}

	v.ptrs[id] = p
	v.size[id] = size
	v.cur += size
	v.peak = max(v.peak, v.cur)

	if size > 0 {
		s := span{lo: int(p), hi: int(p) + size, id: id}
		i := sort.Search(len(v.live), func(i int) bool { return v.live[i].lo >= s.lo })
		v.live = append(v.live, span{})
		copy(v.live[i+1:], v.live[i:])
		v.live[i] = s
	}
	return nil
}

// remove forgets the payload of id.
func (v *validator) remove(id int) {
	p, size := v.ptrs[id], v.size[id]
	v.ptrs[id] = alloc.Nil
	v.size[id] = 0
	v.cur -= size
	if size == 0 {
		return
	}
	lo := int(p)
	i := sort.Search(len(v.live), func(i int) bool { return v.live[i].lo >= lo })
	if i < len(v.live) && v.live[i].lo == lo {
		v.live = append(v.live[:i], v.live[i+1:]...)
	}
}

// verify checks that id's payload still holds its pattern.
func (v *validator) verify(id int) error {
	payload, err := v.a.Payload(v.ptrs[id])
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAllocFailed, err)
	}
	for i := range v.size[id] {
		if payload[i] != patternByte(id, i) {
			return fmt.Errorf("%w: id %d byte %d", ErrPayload, id, i)
		}
	}
	return nil
}

func patternByte(id, i int) byte {
	return byte(id*31 + i)
}
