package kalloc

import (
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/kheap/internal/format"
	"github.com/joshuapare/kheap/pkg/types"
)

type liveBlock struct {
	heap types.HeapID
	addr types.Addr
	size uint64
	fill byte
}

// Test_Property_RandomTraffic interleaves allocations, reallocs and frees
// and checks that live blocks never overlap or lose their contents.
func Test_Property_RandomTraffic(t *testing.T) {
	a := newTestAllocator(t, nil)
	rng := rand.New(rand.NewPCG(1, 2))
	heaps := []types.HeapID{types.HeapDefault, types.HeapDataBuffers, types.HeapKext}

	var live []liveBlock
	owner := map[types.Addr]int{}
	check := func(b liveBlock) {
		requireFilled(t, a, b.addr, b.size, b.fill)
	}

	for i := 0; i < 3000; i++ {
		switch op := rng.IntN(10); {
		case op < 5 || len(live) == 0:
			size := uint64(rng.IntN(40000)) + 1
			h := heaps[rng.IntN(len(heaps))]
			r := a.Alloc(h, size, types.Wait)
			require.False(t, r.Empty())
			require.GreaterOrEqual(t, r.Size, size)
			_, dup := owner[r.Addr]
			require.False(t, dup, "address %s live twice", r.Addr)
			b := liveBlock{h, r.Addr, size, byte(i)}
			fill(t, a, b.addr, b.size, b.fill)
			owner[r.Addr] = len(live)
			live = append(live, b)
		case op < 7:
			j := rng.IntN(len(live))
			b := live[j]
			check(b)
			newSize := uint64(rng.IntN(40000)) + 1
			r := a.Realloc(b.heap, b.addr, b.size, newSize, types.Zero)
			require.False(t, r.Empty())
			requireFilled(t, a, r.Addr, min(b.size, newSize), b.fill)
			delete(owner, b.addr)
			b.addr, b.size = r.Addr, newSize
			fill(t, a, b.addr, b.size, b.fill)
			owner[b.addr] = j
			live[j] = b
		default:
			j := rng.IntN(len(live))
			b := live[j]
			check(b)
			if rng.IntN(2) == 0 {
				a.Free(b.heap, b.addr, b.size)
			} else {
				a.FreeAddr(b.heap, b.addr)
			}
			delete(owner, b.addr)
			last := len(live) - 1
			if j != last {
				live[j] = live[last]
				owner[live[j].addr] = j
			}
			live = live[:last]
		}
	}

	for _, b := range live {
		check(b)
		a.Free(b.heap, b.addr, b.size)
	}
	for _, h := range heaps {
		require.Zero(t, a.Heap(h).Stats().Snapshot().LiveBytes, "heap %s", h)
	}
	require.Zero(t, a.LargeStats().InUse)
}

func Test_Property_ConcurrentAllocFree(t *testing.T) {
	a := newTestAllocator(t, nil)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(seed uint64) {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(seed, seed))
			for i := 0; i < 500; i++ {
				size := uint64(rng.IntN(int(8*format.KiB))) + 1
				r := a.Alloc(types.HeapDefault, size, types.Wait)
				if r.Empty() {
					t.Errorf("alloc %d failed", size)
					return
				}
				a.Free(types.HeapDefault, r.Addr, size)
			}
		}(uint64(g))
	}
	wg.Wait()
	require.Zero(t, a.Heap(types.HeapDefault).Stats().Snapshot().LiveBytes)
}
