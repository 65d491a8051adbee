package vm

import (
	"fmt"
	"sort"
	"sync"

	"github.com/joshuapare/kheap/internal/format"
	"github.com/joshuapare/kheap/internal/mmap"
	"github.com/joshuapare/kheap/pkg/types"
)

// span is a free range [start, end).
type span struct {
	start, end types.Addr
}

// Entry is one mapped allocation.
type Entry struct {
	Start types.Addr
	Size  uint64
}

// End returns the first address after the entry.
func (e Entry) End() types.Addr { return e.Start.Add(e.Size) }

// Map is a range of virtual addresses with page-granular allocation.
type Map struct {
	name string
	min  types.Addr
	max  types.Addr
	page uint64

	mem     []byte
	release func() error
	parent  *Map

	mu      sync.Mutex
	free    []span  // sorted by start, never adjacent
	entries []Entry // sorted by start
	used    uint64
}

// Config describes a root map.
type Config struct {
	Name     string
	Base     types.Addr // first address; must be page aligned and non-zero
	Size     uint64     // bytes; rounded up to the page size
	PageSize uint64     // default types.DefaultPageSize
}

// New creates a root map backed by anonymous memory.
func New(cfg Config) (*Map, error) {
	page := cfg.PageSize
	if page == 0 {
		page = types.DefaultPageSize
	}
	if !format.IsPow2(page) {
		return nil, fmt.Errorf("%w: page size %d", ErrBadAlign, page)
	}
	if cfg.Base == 0 || !format.IsAligned(uint64(cfg.Base), page) {
		return nil, fmt.Errorf("%w: base %s", ErrBadAlign, cfg.Base)
	}
	size := format.RoundPage(cfg.Size, page)
	if size == 0 || uint64(cfg.Base)+size < uint64(cfg.Base) {
		return nil, fmt.Errorf("%w: %d", ErrBadSize, cfg.Size)
	}
	if size > uint64(maxInt) {
		return nil, fmt.Errorf("%w: %d exceeds address space", ErrBadSize, size)
	}

	mem, release, err := mmap.Anon(int(size))
	if err != nil {
		return nil, err
	}
	return newMap(cfg.Name, cfg.Base, size, page, mem, release, nil), nil
}

const maxInt = int(^uint(0) >> 1)

func newMap(name string, base types.Addr, size, page uint64, mem []byte, release func() error, parent *Map) *Map {
	m := &Map{
		name:    name,
		min:     base,
		max:     base.Add(size),
		page:    page,
		mem:     mem,
		release: release,
		parent:  parent,
	}
	m.free = []span{{start: m.min, end: m.max}}
	return m
}

// Submap reserves size bytes of m (aligned to align, 0 for page) and returns
// a child map over that range sharing m's memory.
func (m *Map) Submap(name string, size, align uint64) (*Map, error) {
	size = format.RoundPage(size, m.page)
	addr, err := m.Allocate(size, align)
	if err != nil {
		return nil, fmt.Errorf("submap %s: %w", name, err)
	}
	off := uint64(addr - m.min)
	return newMap(name, addr, size, m.page, m.mem[off:off+size:off+size], nil, m), nil
}

// Close releases the backing memory of a root map. Submaps are no-ops.
func (m *Map) Close() error {
	if m.release == nil {
		return nil
	}
	err := m.release()
	m.release = nil
	return err
}

// Name returns the map name.
func (m *Map) Name() string { return m.name }

// Min returns the first address of the map.
func (m *Map) Min() types.Addr { return m.min }

// Max returns the first address after the map.
func (m *Map) Max() types.Addr { return m.max }

// Size returns the size of the map in bytes.
func (m *Map) Size() uint64 { return uint64(m.max - m.min) }

// PageSize returns the page granularity.
func (m *Map) PageSize() uint64 { return m.page }

// Parent returns the map this submap was carved from, or nil.
func (m *Map) Parent() *Map { return m.parent }

// RoundPage rounds size up to the map's page size.
func (m *Map) RoundPage(size uint64) uint64 { return format.RoundPage(size, m.page) }

// Contains reports whether [addr, addr+size) lies inside the map.
func (m *Map) Contains(addr types.Addr, size uint64) bool {
	end := addr.Add(size)
	return addr >= m.min && end >= addr && end <= m.max
}

// Used returns the number of bytes currently allocated.
func (m *Map) Used() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.used
}

// Entries returns the number of live entries.
func (m *Map) Entries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Allocate maps size bytes (a page multiple) aligned to align and returns
// the start address. The memory reads as zero.
func (m *Map) Allocate(size, align uint64) (types.Addr, error) {
	if size == 0 || !format.IsAligned(size, m.page) {
		return 0, fmt.Errorf("%w: %d", ErrBadSize, size)
	}
	if align == 0 {
		align = m.page
	}
	if !format.IsPow2(align) || align < m.page {
		return 0, fmt.Errorf("%w: %d", ErrBadAlign, align)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, s := range m.free {
		start := types.Addr(format.Align(uint64(s.start), align))
		if start < s.start {
			continue
		}
		end := start.Add(size)
		if end < start || end > s.end {
			continue
		}
		m.carve(i, start, end)
		m.insertEntry(Entry{Start: start, Size: size})
		m.used += size
		return start, nil
	}
	return 0, fmt.Errorf("%s: %w (want %d bytes, used %d of %d)", m.name, ErrNoSpace, size, m.used, m.Size())
}

// carve removes [start, end) from free span i, keeping any head or tail.
func (m *Map) carve(i int, start, end types.Addr) {
	s := m.free[i]
	var repl []span
	if s.start < start {
		repl = append(repl, span{s.start, start})
	}
	if end < s.end {
		repl = append(repl, span{end, s.end})
	}
	m.free = append(m.free[:i], append(repl, m.free[i+1:]...)...)
}

func (m *Map) insertEntry(e Entry) {
	i := sort.Search(len(m.entries), func(i int) bool { return m.entries[i].Start >= e.Start })
	m.entries = append(m.entries, Entry{})
	copy(m.entries[i+1:], m.entries[i:])
	m.entries[i] = e
}

// find returns the index of the entry containing addr, or -1.
func (m *Map) find(addr types.Addr) int {
	i := sort.Search(len(m.entries), func(i int) bool { return m.entries[i].End() > addr })
	if i < len(m.entries) && m.entries[i].Start <= addr {
		return i
	}
	return -1
}

// LookupSize returns the size of the entry starting at addr.
func (m *Map) LookupSize(addr types.Addr) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookupLocked(addr)
}

func (m *Map) lookupLocked(addr types.Addr) (uint64, error) {
	i := m.find(addr)
	if i < 0 {
		return 0, fmt.Errorf("%w: %s in %s", ErrNotAllocated, addr, m.name)
	}
	e := m.entries[i]
	if e.Start != addr {
		return 0, fmt.Errorf("%w: %s in [%s:%s) of %s", ErrInsideEntry, addr, e.Start, e.End(), m.name)
	}
	return e.Size, nil
}

// Free unmaps the entry starting at addr. A size of 0 uses the recorded
// size; otherwise size (rounded to the page) must match it. It returns the
// number of bytes released.
func (m *Map) Free(addr types.Addr, size uint64) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	have, err := m.lookupLocked(addr)
	if err != nil {
		return 0, err
	}
	if size != 0 && format.RoundPage(size, m.page) != have {
		return 0, fmt.Errorf("%w: freeing %d bytes of a %d byte entry at %s", ErrBadSize, size, have, addr)
	}

	i := m.find(addr)
	m.entries = append(m.entries[:i], m.entries[i+1:]...)
	m.used -= have

	off := uint64(addr - m.min)
	mmap.Release(m.mem[off : off+have])
	m.insertFree(span{addr, addr.Add(have)})
	return have, nil
}

// insertFree returns s to the free list, merging with its neighbours.
func (m *Map) insertFree(s span) {
	i := sort.Search(len(m.free), func(i int) bool { return m.free[i].start >= s.start })
	if i > 0 && m.free[i-1].end == s.start {
		i--
		s.start = m.free[i].start
		m.free = append(m.free[:i], m.free[i+1:]...)
	}
	if i < len(m.free) && m.free[i].start == s.end {
		s.end = m.free[i].end
		m.free = append(m.free[:i], m.free[i+1:]...)
	}
	m.free = append(m.free, span{})
	copy(m.free[i+1:], m.free[i:])
	m.free[i] = s
}

// Bytes returns the backing memory for [addr, addr+n).
func (m *Map) Bytes(addr types.Addr, n uint64) ([]byte, error) {
	if !m.Contains(addr, n) {
		return nil, fmt.Errorf("%w: [%s, +%d) not in %s [%s:%s)", ErrOutOfRange, addr, n, m.name, m.min, m.max)
	}
	off := uint64(addr - m.min)
	return m.mem[off : off+n : off+n], nil
}

// LargestFree returns the size of the largest free span.
func (m *Map) LargestFree() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best uint64
	for _, s := range m.free {
		if n := uint64(s.end - s.start); n > best {
			best = n
		}
	}
	return best
}

func (m *Map) String() string {
	return fmt.Sprintf("%s [%s:%s)", m.name, m.min, m.max)
}
