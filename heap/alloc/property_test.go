package alloc

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shouao/CSAPP-Labs/internal/format"
)

type liveBlock struct {
	size int
	fill byte
}

// Test_Property_RandomOps runs a seeded mix of malloc, free, and realloc and
// validates the heap and every live payload after each step.
func Test_Property_RandomOps(t *testing.T) {
	for _, seed := range []int64{1, 42, 1234} {
		a, _ := newTestAllocator(t, 16<<20, nil)
		rng := rand.New(rand.NewSource(seed))
		live := make(map[Ptr]liveBlock)
		order := make([]Ptr, 0, 256)

		pick := func() (Ptr, int) {
			i := rng.Intn(len(order))
			return order[i], i
		}
		drop := func(i int) {
			order[i] = order[len(order)-1]
			order = order[:len(order)-1]
		}

		for step := range 2000 {
			op := rng.Intn(10)
			switch {
			case op < 5 || len(order) == 0:
				size := rng.Intn(2048)
				if rng.Intn(20) == 0 {
					size = rng.Intn(64 << 10)
				}
				fill := byte(step)
				p := mustMalloc(t, a, size, fill)
				require.Zero(t, int(p)%format.Alignment)
				_, exists := live[p]
				require.False(t, exists, "step %d: pointer 0x%X handed out twice", step, p)
				live[p] = liveBlock{size: size, fill: fill}
				order = append(order, p)

			case op < 8:
				p, i := pick()
				b := live[p]
				requirePattern(t, a, p, b.size, b.fill)
				require.NoError(t, a.Free(p), "step %d", step)
				delete(live, p)
				drop(i)

			default:
				p, i := pick()
				b := live[p]
				size := rng.Intn(4096)
				q, err := a.Realloc(p, size)
				require.NoError(t, err, "step %d", step)
				delete(live, p)
				drop(i)
				if size == 0 {
					require.Equal(t, Nil, q)
					break
				}
				requirePattern(t, a, q, min(b.size, size), b.fill)
				payload, err := a.Payload(q)
				require.NoError(t, err)
				for j := range payload {
					payload[j] = b.fill
				}
				live[q] = liveBlock{size: size, fill: b.fill}
				order = append(order, q)
			}

			require.NoError(t, a.Check(), "seed %d step %d", seed, step)
		}

		for p, b := range live {
			requirePattern(t, a, p, b.size, b.fill)
			require.NoError(t, a.Free(p))
		}
		requireConsistent(t, a)
		fs := a.FreeStats()
		require.Equal(t, 1, fs.FreeBlocks, "seed %d: everything should coalesce into one block", seed)
	}
}
