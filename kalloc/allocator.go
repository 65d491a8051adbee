package kalloc

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/joshuapare/kheap/internal/logger"
	"github.com/joshuapare/kheap/kalloc/ktype"
	"github.com/joshuapare/kheap/kalloc/policy"
	"github.com/joshuapare/kheap/kalloc/sizeclass"
	"github.com/joshuapare/kheap/kalloc/vm"
	"github.com/joshuapare/kheap/kalloc/zone"
	"github.com/joshuapare/kheap/pkg/types"
)

// Result is an allocation: its address and usable size. The zero Result
// means the request failed.
type Result struct {
	Addr types.Addr
	Size uint64
}

// Empty reports whether the request failed.
func (r Result) Empty() bool { return r.Addr.IsNil() }

// Ledger is charged for large allocations.
type Ledger interface {
	Debit(bytes uint64)
	Credit(bytes uint64)
}

// Allocator is a complete kalloc instance: maps, heaps, zones and the
// classification state produced by Boot.
type Allocator struct {
	cfg   Config
	log   *slog.Logger
	trace bool

	// Maps. The root spans every submap; large and kernel maps are carved
	// from it at New.
	root          *vm.Map
	zoneMap       *vm.Map
	largeMap      *vm.Map
	kernelMap     *vm.Map
	largeDataMap  *vm.Map // nil without KernelDataMap
	kernelDataMap *vm.Map // nil without KernelDataMap

	zones     *zone.Registry
	heaps     [types.HeapAny + 1]*Heap
	kallocMax uint64 // first size served by the large path

	// Type isolation state, written once by Boot.
	drawer    *policy.Drawer
	typeZones [][]*zone.Zone // per Default class
	varLadder *sizeclass.VarLadder
	varZones  [][]*zone.Zone // [sub-heap][var class]; sub-heap 0 is virtual
	fixed     []*ktype.Fixed // every fixed descriptor Boot bound
	booted    bool
	report    *BootReport

	// Large path bookkeeping.
	largeMu      sync.Mutex
	largeStats   LargeStats
	largeOwners  map[types.Addr]types.HeapID // heap each large block was mapped for
	fallbackWarn rate.Sometimes
	fallbacks    atomic.Uint64
}

// New builds the maps and the Default, DataBuffers and Kext heaps. Type
// isolation is inactive until Boot runs.
func New(cfg Config) (*Allocator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.normalize()

	a := &Allocator{
		cfg:          cfg,
		log:          logger.Or(cfg.Logger),
		trace:        os.Getenv(logger.EnvVar) == "1",
		fallbackWarn: rate.Sometimes{First: 1},
		largeOwners:  make(map[types.Addr]types.HeapID),
	}
	if cfg.Logger == nil {
		if l := logger.FromEnv(); l != nil {
			a.log = l
		}
	}
	src := cfg.Entropy
	if src == nil {
		src = policy.NewBootSource()
	}
	a.drawer = policy.NewDrawer(src)

	if err := a.initMaps(); err != nil {
		return nil, err
	}
	if err := a.initHeaps(); err != nil {
		a.root.Close()
		return nil, err
	}
	a.largeStats.Largest = cfg.KernmapThreshold
	a.tracef("maps ready: root=%s zone=%s large=%s kernel=%s", a.root, a.zoneMap, a.largeMap, a.kernelMap)
	return a, nil
}

type submapSpec struct {
	dst   **vm.Map
	name  string
	size  uint64
	align uint64
}

func (a *Allocator) initMaps() error {
	c := &a.cfg
	total := c.ZoneMapSize + c.ZoneChunkSize + c.MapSize + c.FallbackMapSize
	if c.KernelDataMap {
		total += 2 * c.DataMapSize
	}

	root, err := vm.New(vm.Config{Name: "kernel_map", Base: c.Base, Size: total, PageSize: c.PageSize})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	a.root = root

	subs := []submapSpec{
		{&a.zoneMap, "zone_map", c.ZoneMapSize, c.ZoneChunkSize},
		{&a.largeMap, "kalloc_large_map", c.MapSize, 0},
		{&a.kernelMap, "kernel_fallback_map", c.FallbackMapSize, 0},
	}
	if c.KernelDataMap {
		subs = append(subs,
			submapSpec{&a.largeDataMap, "kalloc_large_data_map", c.DataMapSize, 0},
			submapSpec{&a.kernelDataMap, "kernel_data_map", c.DataMapSize, 0},
		)
	}
	for _, s := range subs {
		m, err := root.Submap(s.name, s.size, s.align)
		if err != nil {
			root.Close()
			return fmt.Errorf("%w: %v", ErrConfig, err)
		}
		*s.dst = m
	}

	a.zones, err = zone.NewRegistry(a.zoneMap, c.ZoneChunkSize)
	if err != nil {
		root.Close()
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return nil
}

func (a *Allocator) initHeaps() error {
	defTable, err := sizeclass.NewTable(sizeclass.Default())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	dataTable, err := sizeclass.NewTable(sizeclass.Data())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	a.kallocMax = defTable.MaxSize()

	mk := func(id types.HeapID, table *sizeclass.Table, large, fallback *vm.Map) (*Heap, error) {
		h := &Heap{id: id, table: table, large: large, fallback: fallback, kernmap: a.cfg.KernmapThreshold}
		if table == nil {
			return h, nil
		}
		for _, e := range table.Entries() {
			z, err := a.zones.Create(e.Name, e.Size, zone.Options{Heap: id, Caching: e.Caching})
			if err != nil {
				return nil, fmt.Errorf("%w: heap %s: %v", ErrConfig, id, err)
			}
			h.zones = append(h.zones, z)
		}
		return h, nil
	}

	dataLarge, dataFallback := a.largeMap, a.kernelMap
	if a.cfg.KernelDataMap {
		dataLarge, dataFallback = a.largeDataMap, a.kernelDataMap
	}

	specs := []struct {
		id       types.HeapID
		table    *sizeclass.Table
		large    *vm.Map
		fallback *vm.Map
	}{
		{types.HeapDefault, defTable, a.largeMap, a.kernelMap},
		{types.HeapDataBuffers, dataTable, dataLarge, dataFallback},
		{types.HeapKext, defTable, a.largeMap, a.kernelMap},
		{types.HeapKTVar, nil, a.largeMap, a.kernelMap},
		{types.HeapAny, nil, a.largeMap, a.kernelMap},
	}
	for _, s := range specs {
		h, err := mk(s.id, s.table, s.large, s.fallback)
		if err != nil {
			return err
		}
		a.heaps[s.id] = h
	}
	return nil
}

// Close releases the backing memory. Every address handed out becomes
// invalid.
func (a *Allocator) Close() error {
	return a.root.Close()
}

// Config returns the normalized configuration.
func (a *Allocator) Config() Config { return a.cfg }

// Heap returns the heap for id, or nil for HeapNone.
func (a *Allocator) Heap(id types.HeapID) *Heap {
	if int(id) >= len(a.heaps) {
		return nil
	}
	return a.heaps[id]
}

// Registry returns the zone registry.
func (a *Allocator) Registry() *zone.Registry { return a.zones }

// KallocMax returns the first request size served by the large path.
func (a *Allocator) KallocMax() uint64 { return a.kallocMax }

// Booted reports whether Boot has run.
func (a *Allocator) Booted() bool { return a.booted }

// tracef writes a [KALLOC] line to stderr when KALLOC_LOG=1.
func (a *Allocator) tracef(format string, args ...any) {
	if a.trace {
		fmt.Fprintf(os.Stderr, "[KALLOC] "+format+"\n", args...)
	}
}

// heapFor returns the heap for id, panicking on HeapNone.
func (a *Allocator) heapFor(id types.HeapID) *Heap {
	h := a.Heap(id)
	if h == nil {
		types.Panicf(types.KindHeapConfusion, "kalloc: no heap %s", id)
	}
	return h
}
