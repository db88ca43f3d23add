package trace

import (
	"math/rand"

	"github.com/shouao/CSAPP-Labs/internal/format"
)

// GenOptions controls Generate.
type GenOptions struct {
	Ops     int   // Target number of operations, including the closing frees
	IDs     int   // Maximum number of distinct block ids
	MaxSize int   // Largest request size in bytes
	Seed    int64 // Random seed
}

// Generate builds a random, well-formed trace. Every allocated id is freed
// before the trace ends. SuggestedHeap is the peak of live block sizes.
func Generate(opts GenOptions) *Trace {
	rng := rand.New(rand.NewSource(opts.Seed))
	maxSize := max(opts.MaxSize, 1)
	size := func() int { return 1 + rng.Intn(maxSize) }

	tr := &Trace{Weight: 1}
	sizes := make(map[int]int)
	var live []int
	nextID := 0
	liveBytes, peak := 0, 0

	resize := func(id, n int) {
		liveBytes += format.BlockSizeFor(n) - format.BlockSizeFor(sizes[id])
		sizes[id] = n
		peak = max(peak, liveBytes)
	}

	for len(tr.Ops)+len(live) < opts.Ops {
		canAlloc := nextID < opts.IDs
		if !canAlloc && len(live) == 0 {
			break
		}

		if canAlloc && (len(live) == 0 || rng.Intn(2) == 0) {
			id := nextID
			nextID++
			n := size()
			tr.Ops = append(tr.Ops, Op{Kind: Alloc, ID: id, Size: n})
			live = append(live, id)
			sizes[id] = n
			liveBytes += format.BlockSizeFor(n)
			peak = max(peak, liveBytes)
			continue
		}

		i := rng.Intn(len(live))
		id := live[i]
		if rng.Intn(3) == 0 {
			n := size()
			tr.Ops = append(tr.Ops, Op{Kind: Realloc, ID: id, Size: n})
			resize(id, n)
			continue
		}
		tr.Ops = append(tr.Ops, Op{Kind: Free, ID: id})
		liveBytes -= format.BlockSizeFor(sizes[id])
		delete(sizes, id)
		live[i] = live[len(live)-1]
		live = live[:len(live)-1]
	}

	rng.Shuffle(len(live), func(i, j int) { live[i], live[j] = live[j], live[i] })
	for _, id := range live {
		tr.Ops = append(tr.Ops, Op{Kind: Free, ID: id})
	}

	tr.NumIDs = nextID
	tr.NumOps = len(tr.Ops)
	tr.SuggestedHeap = peak
	return tr
}
