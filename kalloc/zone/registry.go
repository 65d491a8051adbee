package zone

import (
	"fmt"
	"sync"

	"github.com/joshuapare/kheap/internal/format"
	"github.com/joshuapare/kheap/kalloc/vm"
	"github.com/joshuapare/kheap/pkg/types"
)

// DefaultChunkSize is the chunk granularity zones grow by.
const DefaultChunkSize = 64 << 10

// Registry creates zones on one zone map and answers owner queries for
// addresses inside it.
type Registry struct {
	vm    *vm.Map
	chunk uint64

	mu     sync.RWMutex
	zones  []*Zone
	owners map[types.Addr]*Zone // chunk base -> zone
}

// NewRegistry returns a registry carving chunks of chunkSize bytes from m.
// chunkSize must be a power of two and a multiple of m's page size; 0 picks
// DefaultChunkSize.
func NewRegistry(m *vm.Map, chunkSize uint64) (*Registry, error) {
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	}
	if !format.IsPow2(chunkSize) || chunkSize < m.PageSize() {
		return nil, fmt.Errorf("zone: chunk size %d must be a power of two >= page size %d", chunkSize, m.PageSize())
	}
	return &Registry{
		vm:     m,
		chunk:  chunkSize,
		owners: make(map[types.Addr]*Zone),
	}, nil
}

// ChunkSize returns the chunk granularity.
func (r *Registry) ChunkSize() uint64 { return r.chunk }

// Map returns the zone map.
func (r *Registry) Map() *vm.Map { return r.vm }

// Create registers a new zone. Zones are never destroyed.
func (r *Registry) Create(name string, elemSize uint64, opts Options) (*Zone, error) {
	if elemSize == 0 || elemSize > r.chunk {
		return nil, fmt.Errorf("%w: %s elem_size %d (chunk %d)", ErrElemSize, name, elemSize, r.chunk)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	z := &Zone{
		id:       ID(len(r.zones)),
		name:     name,
		elemSize: elemSize,
		opts:     opts,
		reg:      r,
		onFree:   make(map[types.Addr]struct{}),
	}
	r.zones = append(r.zones, z)
	return z, nil
}

// Zones returns all zones in creation order.
func (r *Registry) Zones() []*Zone {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Zone, len(r.zones))
	copy(out, r.zones)
	return out
}

// ByID returns the zone with the given id, or nil.
func (r *Registry) ByID(id ID) *Zone {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id) >= len(r.zones) {
		return nil
	}
	return r.zones[id]
}

func (r *Registry) mapChunk(z *Zone) (types.Addr, error) {
	base, err := r.vm.Allocate(r.chunk, r.chunk)
	if err != nil {
		return 0, fmt.Errorf("%w: growing %s: %v", ErrExhausted, z.name, err)
	}
	r.mu.Lock()
	r.owners[base] = z
	r.mu.Unlock()
	return base, nil
}

func (r *Registry) owner(addr types.Addr) (*Zone, types.Addr) {
	base := types.Addr(format.Trunc(uint64(addr), r.chunk))
	r.mu.RLock()
	z := r.owners[base]
	r.mu.RUnlock()
	return z, base
}

// Owner returns the zone owning addr, or nil when addr is not inside any
// zone chunk.
func (r *Registry) Owner(addr types.Addr) *Zone {
	z, _ := r.owner(addr)
	return z
}

// ElementSize returns the element size of the zone owning addr together
// with that zone. It returns (0, nil) for addresses outside every zone.
func (r *Registry) ElementSize(addr types.Addr) (uint64, *Zone) {
	z := r.Owner(addr)
	if z == nil {
		return 0, nil
	}
	return z.elemSize, z
}

// Contains reports whether addr lies inside the zone map.
func (r *Registry) Contains(addr types.Addr) bool {
	return r.vm.Contains(addr, 1)
}

// Bytes returns the backing memory for [addr, addr+n) in the zone map.
func (r *Registry) Bytes(addr types.Addr, n uint64) ([]byte, error) {
	return r.vm.Bytes(addr, n)
}
