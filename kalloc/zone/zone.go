package zone

import (
	"fmt"
	"sync"

	"github.com/joshuapare/kheap/pkg/types"
)

// ID identifies a zone within its Registry.
type ID uint16

// Options configures a new zone.
type Options struct {
	Heap       types.HeapID // owning heap, HeapNone for plain type zones
	KallocType bool         // created for type isolation
	Caching    bool         // fast-path caching hint
}

// Zone is a pool of fixed-size elements.
type Zone struct {
	id       ID
	name     string
	elemSize uint64
	opts     Options
	reg      *Registry
	stats    Stats

	mu     sync.Mutex
	free   []types.Addr
	onFree map[types.Addr]struct{}
	chunks int
}

// ID returns the zone's registry index.
func (z *Zone) ID() ID { return z.id }

// Name returns the zone name without heap prefix.
func (z *Zone) Name() string { return z.name }

// FullName returns the heap prefix followed by the zone name ("default.kalloc.64").
func (z *Zone) FullName() string { return z.opts.Heap.Prefix() + z.name }

// ElemSize returns the element size.
func (z *Zone) ElemSize() uint64 { return z.elemSize }

// Heap returns the owning heap.
func (z *Zone) Heap() types.HeapID { return z.opts.Heap }

// KallocType reports whether the zone was created for type isolation.
func (z *Zone) KallocType() bool { return z.opts.KallocType }

// Caching reports the fast-path caching hint.
func (z *Zone) Caching() bool { return z.opts.Caching }

// Stats returns the zone's own counters.
func (z *Zone) Stats() *Stats { return &z.stats }

// Chunks returns the number of chunks mapped for this zone.
func (z *Zone) Chunks() int {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.chunks
}

// Alloc returns one zeroed element. Traffic is counted in stats, or in the
// zone's own Stats when stats is nil. With types.NoFail an exhausted zone
// map panics instead of returning ErrExhausted.
func (z *Zone) Alloc(stats *Stats, flags types.Flags) (types.Addr, error) {
	z.mu.Lock()
	if len(z.free) == 0 {
		if err := z.growLocked(); err != nil {
			z.mu.Unlock()
			if flags&types.NoFail != 0 {
				types.Panicf(types.KindNoFail, "zalloc: zone %s%s exhausted with NoFail: %v",
					z.opts.Heap.Prefix(), z.name, err)
			}
			return 0, err
		}
	}
	n := len(z.free) - 1
	addr := z.free[n]
	z.free = z.free[:n]
	delete(z.onFree, addr)
	z.mu.Unlock()

	if stats == nil {
		stats = &z.stats
	}
	stats.recordAlloc(z.elemSize)
	return addr, nil
}

// growLocked maps one chunk and pushes its elements, lowest address on top.
func (z *Zone) growLocked() error {
	base, err := z.reg.mapChunk(z)
	if err != nil {
		return err
	}
	z.chunks++
	count := z.reg.chunk / z.elemSize
	for i := count; i > 0; i-- {
		addr := base.Add((i - 1) * z.elemSize)
		z.free = append(z.free, addr)
		z.onFree[addr] = struct{}{}
	}
	return nil
}

// Free clears the element at addr and returns it to the zone.
func (z *Zone) Free(addr types.Addr, stats *Stats) {
	owner, base := z.reg.owner(addr)
	if owner != z {
		if owner == nil {
			types.Panicf(types.KindWrongZone, "zfree: address %s freed to zone %s%s is not a zone element",
				addr, z.opts.Heap.Prefix(), z.name)
		}
		types.Panicf(types.KindWrongZone, "zfree: address %s belongs to zone %s%s, freed to zone %s%s",
			addr, owner.opts.Heap.Prefix(), owner.name, z.opts.Heap.Prefix(), z.name)
	}
	off := uint64(addr - base)
	if off%z.elemSize != 0 || off/z.elemSize >= z.reg.chunk/z.elemSize {
		types.Panicf(types.KindWrongZone, "zfree: address %s is not an element boundary of zone %s%s (elem_size %d)",
			addr, z.opts.Heap.Prefix(), z.name, z.elemSize)
	}

	buf, err := z.reg.Bytes(addr, z.elemSize)
	if err != nil {
		types.Panicf(types.KindUnowned, "zfree: %v", err)
	}

	z.mu.Lock()
	if _, dup := z.onFree[addr]; dup {
		z.mu.Unlock()
		types.Panicf(types.KindDoubleFree, "zfree: double free of %s in zone %s%s", addr, z.opts.Heap.Prefix(), z.name)
	}
	clear(buf)
	z.free = append(z.free, addr)
	z.onFree[addr] = struct{}{}
	z.mu.Unlock()

	if stats == nil {
		stats = &z.stats
	}
	stats.recordFree(z.elemSize)
}

func (z *Zone) String() string {
	return fmt.Sprintf("%s%s(%d)", z.opts.Heap.Prefix(), z.name, z.elemSize)
}
