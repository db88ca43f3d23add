package alloc

import (
	"math/rand"
	"testing"
)

func BenchmarkMallocFree_Small(b *testing.B) {
	a, _ := newTestAllocator(b, testHeapSize, nil)
	b.ReportAllocs()

	for b.Loop() {
		p, err := a.Malloc(64)
		if err != nil {
			b.Fatal(err)
		}
		if err := a.Free(p); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkMallocFree_Mixed(b *testing.B) {
	for _, cfg := range []SizeClassConfig{ConfigMalloclab, ConfigFine, ConfigCoarse} {
		b.Run(cfg.Name, func(b *testing.B) {
			a, _ := newTestAllocator(b, 16<<20, &cfg)
			rng := rand.New(rand.NewSource(7))
			ring := make([]Ptr, 512)

			for b.Loop() {
				i := rng.Intn(len(ring))
				if ring[i] != Nil {
					if err := a.Free(ring[i]); err != nil {
						b.Fatal(err)
					}
				}
				p, err := a.Malloc(rng.Intn(4096))
				if err != nil {
					b.Fatal(err)
				}
				ring[i] = p
			}
		})
	}
}

func BenchmarkRealloc_Grow(b *testing.B) {
	a, _ := newTestAllocator(b, 16<<20, nil)

	for b.Loop() {
		p, err := a.Malloc(16)
		if err != nil {
			b.Fatal(err)
		}
		for size := 32; size <= 4096; size *= 2 {
			if p, err = a.Realloc(p, size); err != nil {
				b.Fatal(err)
			}
		}
		if err := a.Free(p); err != nil {
			b.Fatal(err)
		}
	}
}
