package kalloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/kheap/internal/format"
	"github.com/joshuapare/kheap/pkg/types"
)

func Test_Free_NilIsNoop(t *testing.T) {
	a := newTestAllocator(t, nil)
	require.NotPanics(t, func() {
		a.Free(types.HeapDefault, 0, 64)
		a.FreeAddr(types.HeapDefault, 0)
		a.FreeBounded(types.HeapDefault, 0, 16, 64)
	})
}

func Test_Free_UpdatesStats(t *testing.T) {
	a := newTestAllocator(t, nil)
	h := a.Heap(types.HeapDefault)

	r := a.Alloc(types.HeapDefault, 100, types.Wait)
	st := h.Stats().Snapshot()
	assert.Equal(t, uint64(1), st.Allocs)
	assert.Equal(t, int64(128), st.LiveBytes)

	a.Free(types.HeapDefault, r.Addr, 100)
	st = h.Stats().Snapshot()
	assert.Equal(t, uint64(1), st.Frees)
	assert.Zero(t, st.LiveBytes)
}

func Test_Free_DomainMismatchPanics(t *testing.T) {
	a := newTestAllocator(t, nil)

	heaps := []types.HeapID{types.HeapDefault, types.HeapDataBuffers, types.HeapKext}
	for _, from := range heaps {
		for _, to := range heaps {
			if from == to {
				continue
			}
			r := a.Alloc(from, 64, types.Wait)
			v := requireViolation(t, types.KindHeapConfusion, func() {
				a.Free(to, r.Addr, 64)
			})
			assert.Contains(t, v.Msg, "instead of "+to.String())
			a.Free(from, r.Addr, 64)

			big := a.Alloc(from, 40000, types.Wait)
			require.False(t, big.Empty())
			v = requireViolation(t, types.KindHeapConfusion, func() {
				a.Free(to, big.Addr, 40000)
			})
			assert.Contains(t, v.Msg, "instead of "+to.String())
			a.Free(from, big.Addr, 40000)
		}
	}
}

func Test_FreeAny_LargeBlocks(t *testing.T) {
	a := newTestAllocator(t, func(c *Config) { c.Options = 0 })

	def := a.Alloc(types.HeapDefault, 40000, types.Wait)
	require.NotPanics(t, func() { a.FreeAny(def.Addr, 40000) })

	data := a.AllocData(40000, types.Wait)
	requireViolation(t, types.KindHeapConfusion, func() {
		a.FreeAny(data.Addr, 40000)
	})
	a.FreeData(data.Addr, 40000)
	assert.Zero(t, a.LargeStats().InUse)
}

func Test_Free_SizeConfusion(t *testing.T) {
	a := newTestAllocator(t, nil)

	r := a.Alloc(types.HeapDefault, 40, types.Wait)
	v := requireViolation(t, types.KindSizeConfusion, func() {
		a.Free(types.HeapDefault, r.Addr, 49)
	})
	assert.Contains(t, v.Msg, "elem_size 48")

	// Smaller sizes in the same element are accepted.
	a.Free(types.HeapDefault, r.Addr, 33)
}

func Test_Free_UnownedAddress(t *testing.T) {
	a := newTestAllocator(t, nil)

	requireViolation(t, types.KindSizeConfusion, func() {
		a.Free(types.HeapDefault, a.Heap(types.HeapDefault).LargeMap().Min(), 64)
	})
	requireViolation(t, types.KindUnowned, func() {
		a.FreeAddr(types.HeapDefault, 0x1000)
	})
	requireViolation(t, types.KindUnowned, func() {
		a.Free(types.HeapDefault, a.Heap(types.HeapDefault).LargeMap().Min(), 64*format.KiB)
	})
}

func Test_Free_AbsurdSize(t *testing.T) {
	a := newTestAllocator(t, nil)
	r := a.Alloc(types.HeapDefault, 64, types.Wait)

	v := requireViolation(t, types.KindInvalidSize, func() {
		a.Free(types.HeapDefault, r.Addr, types.AbsurdSize+1)
	})
	assert.Contains(t, v.Msg, "nonsensical size")
	a.Free(types.HeapDefault, r.Addr, 64)
}

func Test_Free_LargeSizeAboveLargest(t *testing.T) {
	a := newTestAllocator(t, nil)
	r := a.Alloc(types.HeapDefault, 64*format.KiB, types.Wait)

	requireViolation(t, types.KindSizeConfusion, func() {
		a.Free(types.HeapDefault, r.Addr, 4*format.MiB)
	})
	requireViolation(t, types.KindSizeConfusion, func() {
		a.Free(types.HeapDefault, r.Addr, 128*format.KiB)
	})
	a.Free(types.HeapDefault, r.Addr, 64*format.KiB)
}

func Test_Free_DoubleFree(t *testing.T) {
	a := newTestAllocator(t, nil)
	r := a.Alloc(types.HeapDefault, 64, types.Wait)
	a.Free(types.HeapDefault, r.Addr, 64)
	requireViolation(t, types.KindDoubleFree, func() {
		a.Free(types.HeapDefault, r.Addr, 64)
	})
}

func Test_Free_UnknownSize(t *testing.T) {
	a := newTestAllocator(t, nil)

	small := a.Alloc(types.HeapDefault, 200, types.Wait)
	large := a.Alloc(types.HeapDefault, 100*format.KiB, types.Wait)
	a.FreeAddr(types.HeapDefault, small.Addr)
	a.FreeAddr(types.HeapDefault, large.Addr)

	assert.Zero(t, a.Heap(types.HeapDefault).Stats().Snapshot().LiveBytes)
	assert.Zero(t, a.LargeStats().InUse)
}

func Test_FreeAny_Domains(t *testing.T) {
	a := newTestAllocator(t, nil)

	for _, id := range []types.HeapID{types.HeapDefault, types.HeapKext, types.HeapDataBuffers} {
		r := a.Alloc(id, 64, types.Wait)
		require.NotPanics(t, func() { a.FreeAny(r.Addr, 64) }, "heap %s", id)
	}
}

func Test_FreeAny_StrictRejectsData(t *testing.T) {
	a := newTestAllocator(t, func(c *Config) { c.Options = 0 })

	r := a.AllocData(64, types.Wait)
	v := requireViolation(t, types.KindHeapConfusion, func() {
		a.FreeAny(r.Addr, 64)
	})
	assert.Contains(t, v.Msg, "any (default/kext)")
	a.FreeData(r.Addr, 64)
}

func Test_FreeBounded(t *testing.T) {
	a := newTestAllocator(t, nil)

	r := a.Alloc(types.HeapDefault, 100, types.Wait) // 128 byte element
	requireViolation(t, types.KindBounds, func() {
		a.FreeBounded(types.HeapDefault, r.Addr, 16, 64)
	})
	requireViolation(t, types.KindBounds, func() {
		a.FreeBounded(types.HeapDefault, r.Addr, 256, 512)
	})
	requireViolation(t, types.KindBounds, func() {
		a.FreeBounded(types.HeapDefault, r.Addr, 512, 256)
	})
	requireViolation(t, types.KindBounds, func() {
		a.FreeBounded(types.HeapDefault, r.Addr, 16, a.KallocMax())
	})

	// 100 rounds to the same 128 byte class as the element.
	a.FreeBounded(types.HeapDefault, r.Addr, 65, 100)
	assert.Zero(t, a.Heap(types.HeapDefault).Stats().Snapshot().LiveBytes)
}
