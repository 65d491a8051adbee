package kalloc

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/joshuapare/kheap/internal/format"
	"github.com/joshuapare/kheap/kalloc/policy"
	"github.com/joshuapare/kheap/pkg/types"
)

// Options are the kt= boot flags.
type Options uint32

const (
	// OptAcct gives descriptors carrying ktype.FlagDefault private stats.
	OptAcct Options = 0x1
	// OptDebug logs the per-class policy table at boot.
	OptDebug Options = 0x2
	// OptLooseFree lets domain-agnostic frees release DataBuffers elements.
	// Without it FreeAny rejects DataBuffers blocks. XNU's kfree_ext panics
	// on nothing in that mode, so the strict check goes beyond it.
	OptLooseFree Options = 0x4
)

func (o Options) String() string {
	var parts []string
	if o&OptAcct != 0 {
		parts = append(parts, "acct")
	}
	if o&OptDebug != 0 {
		parts = append(parts, "debug")
	}
	if o&OptLooseFree != 0 {
		parts = append(parts, "loose_free")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

const (
	// DefaultBase is the first address of the allocator's root map.
	DefaultBase types.Addr = 0xffffff8000000000

	// MinMapSize is the smallest large map New accepts; smaller values are
	// raised to it.
	MinMapSize = 16 * format.MiB

	// DefaultTypeBudget is the number of type zones the fixed pipeline may
	// create across all size classes.
	DefaultTypeBudget = 85

	// DefaultVarHeaps is the number of variable sub-heaps, not counting the
	// virtual data heap.
	DefaultVarHeaps = 3

	// DefaultScratchEntries bounds the descriptors one boot may classify.
	DefaultScratchEntries = 32768
)

// Config configures an Allocator.
type Config struct {
	// TypeBudget is the total number of fixed type zones. 0 disables type
	// isolation; typed call sites then share the Default heap zones.
	// Default: 85
	TypeBudget int `yaml:"type_budget"`

	// VarHeaps is the number of variable sub-heaps (1..7). Sub-heap 1 holds
	// pointer arrays; the others are drawn at random per signature group.
	// Default: 3
	VarHeaps int `yaml:"var_heaps"`

	// ScratchEntries bounds the number of descriptors parsed per pipeline.
	// Overflowing it at boot is fatal.
	// Default: 32768
	ScratchEntries int `yaml:"scratch_entries"`

	// Base is the first address handed out. It must be page aligned.
	// Default: DefaultBase
	Base types.Addr `yaml:"base"`

	// ZoneMapSize is the size of the map zone chunks are carved from.
	// Default: 128 MiB
	ZoneMapSize uint64 `yaml:"zone_map_size"`

	// MapSize is the size of the large map shared by the Default, Kext and
	// KTVar heaps (and DataBuffers without KernelDataMap).
	// Default: 64 MiB, never less than 16 MiB
	MapSize uint64 `yaml:"map_size"`

	// FallbackMapSize is the size of the kernel map large requests fall
	// back to.
	// Default: 64 MiB
	FallbackMapSize uint64 `yaml:"fallback_map_size"`

	// DataMapSize is the size of each dedicated data map when
	// KernelDataMap is set.
	// Default: 64 MiB
	DataMapSize uint64 `yaml:"data_map_size"`

	// KernelDataMap gives the DataBuffers heap its own large and fallback
	// maps.
	// Default: false
	KernelDataMap bool `yaml:"kernel_data_map"`

	// KernmapThreshold sends large requests of at least this size straight
	// to the fallback map.
	// Default: 1 MiB
	KernmapThreshold uint64 `yaml:"kernmap_threshold"`

	// PageSize is the page granularity of every map.
	// Default: 4096
	PageSize uint64 `yaml:"page_size"`

	// ZoneChunkSize is the granularity zones grow by. It must hold at least
	// one element of the largest class.
	// Default: 64 KiB
	ZoneChunkSize uint64 `yaml:"zone_chunk_size"`

	// Options are the kt= flags.
	// Default: OptLooseFree
	Options Options `yaml:"options"`

	// Entropy seeds the zone shuffle and sub-heap draw.
	// Default: policy.NewBootSource()
	Entropy policy.Source `yaml:"-"`

	// Ledger is debited and credited for large allocations. Optional.
	Ledger Ledger `yaml:"-"`

	// Logger receives diagnostics. Default: the package logger, or a
	// stderr debug logger when KALLOC_LOG=1.
	Logger *slog.Logger `yaml:"-"`
}

// DefaultConfig returns the boot defaults.
func DefaultConfig() Config {
	return Config{
		TypeBudget:       DefaultTypeBudget,
		VarHeaps:         DefaultVarHeaps,
		ScratchEntries:   DefaultScratchEntries,
		Base:             DefaultBase,
		ZoneMapSize:      128 * format.MiB,
		MapSize:          64 * format.MiB,
		FallbackMapSize:  64 * format.MiB,
		DataMapSize:      64 * format.MiB,
		KernmapThreshold: 1 * format.MiB,
		PageSize:         types.DefaultPageSize,
		ZoneChunkSize:    64 * format.KiB,
		Options:          OptLooseFree,
	}
}

// normalize fills zero sizes with defaults and clamps MapSize.
func (c *Config) normalize() {
	def := DefaultConfig()
	if c.Base == 0 {
		c.Base = def.Base
	}
	if c.ScratchEntries == 0 {
		c.ScratchEntries = def.ScratchEntries
	}
	if c.ZoneMapSize == 0 {
		c.ZoneMapSize = def.ZoneMapSize
	}
	if c.MapSize < MinMapSize {
		c.MapSize = MinMapSize
	}
	if c.FallbackMapSize == 0 {
		c.FallbackMapSize = def.FallbackMapSize
	}
	if c.DataMapSize == 0 {
		c.DataMapSize = def.DataMapSize
	}
	if c.KernmapThreshold == 0 {
		c.KernmapThreshold = def.KernmapThreshold
	}
	if c.PageSize == 0 {
		c.PageSize = def.PageSize
	}
	if c.ZoneChunkSize == 0 {
		c.ZoneChunkSize = def.ZoneChunkSize
	}
}

// Validate reports inconsistent settings. Zero sizes are accepted and
// replaced with defaults by New.
func (c *Config) Validate() error {
	if c.TypeBudget < 0 || c.TypeBudget > 0xFFFF {
		return fmt.Errorf("%w: type budget %d out of range", ErrConfig, c.TypeBudget)
	}
	if c.VarHeaps < 1 || c.VarHeaps >= types.MaxVarHeaps {
		return fmt.Errorf("%w: var heaps %d not in [1, %d]", ErrConfig, c.VarHeaps, types.MaxVarHeaps-1)
	}
	if c.ScratchEntries < 0 {
		return fmt.Errorf("%w: scratch entries %d", ErrConfig, c.ScratchEntries)
	}
	if c.PageSize != 0 && (!format.IsPow2(c.PageSize) || c.PageSize < types.MinAlign) {
		return fmt.Errorf("%w: page size %d", ErrConfig, c.PageSize)
	}
	page := c.PageSize
	if page == 0 {
		page = types.DefaultPageSize
	}
	if c.Base != 0 && !format.IsAligned(uint64(c.Base), page) {
		return fmt.Errorf("%w: base %s not page aligned", ErrConfig, c.Base)
	}
	if c.ZoneChunkSize != 0 && (!format.IsPow2(c.ZoneChunkSize) || c.ZoneChunkSize < page) {
		return fmt.Errorf("%w: zone chunk size %d", ErrConfig, c.ZoneChunkSize)
	}
	if c.Options&^(OptAcct|OptDebug|OptLooseFree) != 0 {
		return fmt.Errorf("%w: unknown kt options %#x", ErrConfig, uint32(c.Options))
	}
	return nil
}

// ApplyBootArgs parses space separated kernel boot arguments. Recognized
// keys are kt, kt_var_heaps, kt_budget and kalloc_map_size; other keys
// belong to other subsystems and are ignored.
func (c *Config) ApplyBootArgs(args string) error {
	for _, field := range strings.Fields(args) {
		key, val, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		var err error
		switch key {
		case "kt":
			var n uint64
			n, err = strconv.ParseUint(val, 0, 32)
			c.Options = Options(n)
		case "kt_var_heaps":
			var n uint64
			n, err = strconv.ParseUint(val, 0, 16)
			c.VarHeaps = int(n)
		case "kt_budget":
			var n uint64
			n, err = strconv.ParseUint(val, 0, 16)
			c.TypeBudget = int(n)
		case "kalloc_map_size":
			c.MapSize, err = strconv.ParseUint(val, 0, 64)
		default:
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: boot-arg %s: %v", ErrConfig, field, err)
		}
	}
	return nil
}
