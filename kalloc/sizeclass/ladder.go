package sizeclass

import (
	"fmt"
	"math"

	"github.com/joshuapare/kheap/internal/format"
	"github.com/joshuapare/kheap/pkg/types"
)

// Entry is one size class.
type Entry struct {
	Size    uint64 // element size
	Caching bool   // fast-path caching hint for the pool
	Name    string // display name, "kalloc.<size>"
}

func entry(size uint64, caching bool) Entry {
	return Entry{Size: size, Caching: caching, Name: fmt.Sprintf("kalloc.%d", size)}
}

// Default returns the ladder of the default and kext heaps.
func Default() []Entry {
	return []Entry{
		entry(16, true),
		entry(32, true),
		entry(48, true),
		entry(64, true),
		entry(80, true),
		entry(96, true),
		entry(128, true),
		entry(160, true),
		entry(192, true),
		entry(224, true),
		entry(256, true),
		entry(288, true),
		entry(368, true),
		entry(400, true),
		entry(512, true),
		entry(576, true),
		entry(768, true),
		entry(1024, true),
		entry(1152, false),
		entry(1280, false),
		entry(1664, false),
		entry(2048, true),
		entry(4096, true),
		entry(6144, false),
		entry(8192, true),
		entry(16384, false),
		entry(32768, false),
	}
}

// Data returns the ladder of the data-buffers heap.
func Data() []Entry {
	return []Entry{
		entry(16, true),
		entry(32, true),
		entry(48, true),
		entry(64, true),
		entry(96, true),
		entry(128, true),
		entry(160, true),
		entry(192, true),
		entry(256, true),
		entry(368, true),
		entry(512, true),
		entry(768, true),
		entry(1024, true),
		entry(1152, false),
		entry(1664, false),
		entry(2048, true),
		entry(4096, true),
		entry(6144, false),
		entry(8192, true),
		entry(16384, false),
		entry(32768, false),
	}
}

// Config describes a generated ladder: linear steps for small sizes, then
// geometric growth.
type Config struct {
	// Name for this configuration (for reports)
	Name string

	// Small allocation settings (linear increments)
	SmallMin       uint64 // Minimum class (typically 16)
	SmallMax       uint64 // Max for linear increments
	SmallIncrement uint64 // Increment size for small classes

	// Medium/Large settings (geometric growth)
	MediumMax    uint64  // Largest class
	GrowthFactor float64 // Growth factor between medium classes (1.25, 1.5, 2.0)

	// CachingMax is the largest class marked for fast-path caching.
	CachingMax uint64
}

// ConfigCoarse is a small generated ladder useful for experiments.
var ConfigCoarse = Config{
	Name:           "Coarse",
	SmallMin:       16,
	SmallMax:       256,
	SmallIncrement: 32,
	MediumMax:      32768,
	GrowthFactor:   2.0,
	CachingMax:     1024,
}

// Generate builds a ladder from cfg. Every class is rounded up to the
// minimum alignment and classes that round to the same size collapse.
func Generate(cfg Config) []Entry {
	var out []Entry
	add := func(size uint64) {
		size = format.Align(size, types.MinAlign)
		out = append(out, entry(size, size <= cfg.CachingMax))
	}

	// Phase 1: linear increments
	for size := cfg.SmallMin; size < cfg.SmallMax; size += cfg.SmallIncrement {
		add(size)
	}

	// Phase 2: geometric growth
	if cfg.SmallMax < cfg.MediumMax {
		size := cfg.SmallMax
		add(size)
		for size < cfg.MediumMax {
			next := uint64(math.Ceil(float64(size) * cfg.GrowthFactor))
			if next <= size {
				next = size + 1 // Ensure progress
			}
			if next > cfg.MediumMax {
				next = cfg.MediumMax
			}
			add(next)
			size = next
		}
	}
	return Collapse(out)
}

// Collapse merges adjacent entries that share an element size. The merged
// entry caches if either input did.
func Collapse(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if n := len(out); n > 0 && out[n-1].Size == e.Size {
			out[n-1].Caching = out[n-1].Caching || e.Caching
			continue
		}
		out = append(out, e)
	}
	return out
}
