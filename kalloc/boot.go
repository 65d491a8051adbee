package kalloc

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/joshuapare/kheap/kalloc/ktype"
	"github.com/joshuapare/kheap/kalloc/policy"
	"github.com/joshuapare/kheap/kalloc/sizeclass"
	"github.com/joshuapare/kheap/kalloc/zone"
	"github.com/joshuapare/kheap/pkg/types"
)

// Variable sub-heap layout.
const (
	VarDataHeap          = 0 // virtual; served by DataBuffers
	VarPtrHeap           = 1 // pointer arrays
	VarFirstFlexibleHeap = 2
)

// Assignment records where Boot routed one descriptor.
type Assignment struct {
	Site     string
	Variable bool
	Route    ktype.Class
	Heap     types.HeapID // heap allocations go through
	Zone     string       // fixed descriptors; "" on the large path
	Class    int          // fixed size-class index, -1 on the large path
	SubHeap  int          // variable descriptors
}

// PolicyRow is one size class of the fixed policy table.
type PolicyRow struct {
	Size      uint64
	TotalSig  int // distinct call sites
	UniqueSig int // signature groups
	Zones     int
}

// BootReport summarizes one Boot.
type BootReport struct {
	Fixed       int // fixed descriptors classified
	Var         int // variable descriptors classified
	Skipped     int // descriptors already processed by an earlier boot
	Policy      []PolicyRow
	Assigned    int // type zones created
	Wasted      int // budget the policy could not use
	Degraded    bool
	Assignments []Assignment
}

func (r *BootReport) add(as Assignment) { r.Assignments = append(r.Assignments, as) }

// PolicyTable renders Policy the way the OptDebug boot log prints it.
func (r *BootReport) PolicyTable() string {
	var b strings.Builder
	b.WriteString("Size\ttotal_sig\tunique_signatures\tzones\n")
	for _, row := range r.Policy {
		fmt.Fprintf(&b, "%d\t%d\t%d\t%d\n", row.Size, row.TotalSig, row.UniqueSig, row.Zones)
	}
	return b.String()
}

// Boot classifies the descriptors of every image, creates the type zones
// and binds each descriptor to its zone or sub-heap. It runs once; the
// tables it builds are read-only afterwards.
//
// Policy errors are returned wrapped in ErrConfig. Overflowing
// Config.ScratchEntries panics.
func (a *Allocator) Boot(images ...ktype.Image) (*BootReport, error) {
	if a.booted {
		return nil, ErrBooted
	}
	rep := &BootReport{}
	if err := a.bootFixed(images, rep); err != nil {
		return nil, err
	}
	if err := a.bootVar(images, rep); err != nil {
		return nil, err
	}
	a.booted = true
	a.report = rep
	a.tracef("boot done: fixed=%d var=%d skipped=%d type_zones=%d wasted=%d",
		rep.Fixed, rep.Var, rep.Skipped, rep.Assigned, rep.Wasted)
	return rep, nil
}

// Report returns the report of the completed Boot, or nil.
func (a *Allocator) Report() *BootReport { return a.report }

// parseViews walks the descriptors of every image, marks each processed
// and returns the Mixed ones. The others are handed to redirect.
func parseViews[D ktype.Descriptor](a *Allocator, images []ktype.Image, walk func(ktype.Image, func(D, bool)),
	variable bool, redirect func(D, ktype.Class)) (buf []D, skipped int) {
	maxSize := a.heaps[types.HeapDefault].table.LastSize()
	for _, img := range images {
		var views []D
		var slid []bool
		walk(img, func(d D, s bool) {
			views = append(views, d)
			slid = append(slid, s)
		})
		if len(buf)+len(views) >= a.cfg.ScratchEntries {
			types.Panicf(types.KindScratch, "kalloc: insufficient space in scratch buffer (%d parsed, %d more, %d entries)",
				len(buf), len(views), a.cfg.ScratchEntries)
		}
		for i, d := range views {
			if !d.MarkProcessed() {
				skipped++
				continue
			}
			if slid[i] {
				d.AddFlags(ktype.FlagSlid)
			}
			c := ktype.Classify(d, maxSize, variable)
			if c == ktype.Mixed {
				buf = append(buf, d)
				continue
			}
			d.AddFlags(ktype.FlagFor(c))
			redirect(d, c)
		}
	}
	return buf, skipped
}

func walkFixed(img ktype.Image, fn func(*ktype.Fixed, bool)) { img.ForEachFixed(fn) }
func walkVar(img ktype.Image, fn func(*ktype.Var, bool))     { img.ForEachVar(fn) }

// privateStats returns fresh stats for descriptors that account on their
// own, nil for those sharing their zone's.
func (a *Allocator) privateStats(f ktype.Flags, fixed bool) *zone.Stats {
	if f&ktype.FlagPrivAcct != 0 || (fixed && a.cfg.Options&OptAcct != 0 && f&ktype.FlagDefault != 0) {
		return new(zone.Stats)
	}
	return nil
}

// span is one signature group [start, end) of the sorted buffer.
type span struct{ start, end int }

func (a *Allocator) bootFixed(images []ktype.Image, rep *BootReport) error {
	def := a.heaps[types.HeapDefault]
	data := a.heaps[types.HeapDataBuffers]

	buf, skipped := parseViews(a, images, walkFixed, false, func(d *ktype.Fixed, c ktype.Class) {
		rep.Fixed++
		switch c {
		case ktype.DataOnly:
			idx, _ := data.table.Index(d.Sz)
			d.Class = idx
			z := data.zones[idx]
			d.Resolve(z, a.privateStats(d.Flag, true))
			a.fixed = append(a.fixed, d)
			rep.add(Assignment{Site: d.Name, Route: c, Heap: types.HeapDataBuffers, Zone: z.FullName(), Class: idx})
		default:
			d.Class = -1
			rep.add(Assignment{Site: d.Name, Route: c, Heap: types.HeapKext, Class: -1})
		}
	})
	rep.Skipped += skipped
	rep.Fixed += len(buf)

	for _, d := range buf {
		idx, ok := def.table.Index(d.Sz)
		if !ok {
			types.Panicf(types.KindConfig, "kalloc: %s size %d outside the size-class ladder", d.Name, d.Sz)
		}
		d.Class = idx
	}
	slices.SortStableFunc(buf, func(x, y *ktype.Fixed) int {
		return cmp.Or(
			cmp.Compare(x.Class, y.Class),
			strings.Compare(string(x.Sig), string(y.Sig)),
			strings.Compare(x.Name, y.Name),
		)
	})

	// Group by signature prefix within each class.
	classes := def.table.Len()
	groups := make([][]span, classes)
	freq := make([]int, classes)
	total := make([]int, classes)
	for i, d := range buf {
		c := d.Class
		first := len(groups[c]) == 0
		if first || !d.Sig.Compatible(buf[i-1].Sig) {
			groups[c] = append(groups[c], span{i, i + 1})
		} else {
			groups[c][len(groups[c])-1].end = i + 1
		}
		if first || buf[i-1].Name != d.Name {
			total[c]++
		}
	}
	for c := range groups {
		freq[c] = len(groups[c])
	}

	zonesPer := make([]int, classes)
	if a.cfg.TypeBudget == 0 {
		for c, f := range freq {
			zonesPer[c] = min(f, 1)
		}
	} else {
		res, err := policy.Apply(freq, a.cfg.TypeBudget)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrConfig, err)
		}
		zonesPer = res.Zones
		rep.Wasted = res.Wasted
		rep.Degraded = res.Degraded
		if res.Degraded {
			a.log.Warn("kalloc_type: zone budget below two zones per class, degrading",
				"budget", a.cfg.TypeBudget, "assigned", res.Assigned)
		}
		a.tracef("kalloc_type_apply_policy: assigned %d zones wasted %d zones", res.Assigned, res.Wasted)
	}

	for c := 0; c < classes; c++ {
		rep.Policy = append(rep.Policy, PolicyRow{
			Size:      def.table.Entry(c).Size,
			TotalSig:  total[c],
			UniqueSig: freq[c],
			Zones:     zonesPer[c],
		})
	}
	if a.cfg.Options&OptDebug != 0 {
		for _, line := range strings.Split(strings.TrimSuffix(rep.PolicyTable(), "\n"), "\n") {
			a.log.Info(line)
		}
	}

	a.typeZones = make([][]*zone.Zone, classes)
	for c := 0; c < classes; c++ {
		if freq[c] == 0 {
			continue
		}
		e := def.table.Entry(c)
		var zs []*zone.Zone
		if a.cfg.TypeBudget == 0 {
			zs = []*zone.Zone{def.zones[c]}
		} else {
			for j := 0; j < zonesPer[c]; j++ {
				z, err := a.zones.Create(fmt.Sprintf("kalloc.type%d.%d", j, e.Size), e.Size,
					zone.Options{KallocType: true, Caching: e.Caching})
				if err != nil {
					return fmt.Errorf("%w: %v", ErrConfig, err)
				}
				zs = append(zs, z)
			}
			rep.Assigned += len(zs)
		}
		a.typeZones[c] = zs

		perm := []int{0}
		if freq[c] > 1 {
			perm = a.drawer.Shuffle(freq[c])
		}
		for j := 0; j < freq[c]; j++ {
			g := groups[c][perm[j]]
			z := zs[j%len(zs)]
			for _, d := range buf[g.start:g.end] {
				d.Resolve(z, a.privateStats(d.Flag, true))
				a.fixed = append(a.fixed, d)
				rep.add(Assignment{Site: d.Name, Route: ktype.Mixed, Heap: types.HeapDefault, Zone: z.FullName(), Class: c})
			}
		}
	}
	return nil
}

func (a *Allocator) bootVar(images []ktype.Image, rep *BootReport) error {
	ladder, err := sizeclass.NewVarLadder(a.heaps[types.HeapDefault].table.LastSize())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	a.varLadder = ladder

	// Zones come first: redirected descriptors are bound as they are found.
	heaps := a.cfg.VarHeaps
	a.varZones = make([][]*zone.Zone, heaps+1)
	for h := VarPtrHeap; h <= heaps; h++ {
		for _, size := range ladder.Sizes() {
			z, err := a.zones.Create(fmt.Sprintf("kalloc.type.var%d.%d", h, size), size,
				zone.Options{Heap: types.HeapKTVar, KallocType: true})
			if err != nil {
				return fmt.Errorf("%w: %v", ErrConfig, err)
			}
			a.varZones[h] = append(a.varZones[h], z)
		}
	}

	record := func(v *ktype.Var, c ktype.Class) {
		rep.add(Assignment{Site: v.Name, Variable: true, Route: c, Heap: a.varHeap(v, false).id, SubHeap: v.Heap(), Class: -1})
	}
	buf, skipped := parseViews(a, images, walkVar, true, func(v *ktype.Var, c ktype.Class) {
		rep.Var++
		switch c {
		case ktype.DataOnly:
			if v.Flag&ktype.FlagChanged == 0 {
				v.AddFlags(ktype.FlagChanged | ktype.FlagDataOnly)
			}
			v.AssignHeap(VarDataHeap, a.privateStats(v.Flag, false))
		case ktype.PointerArray:
			v.AssignHeap(VarPtrHeap, a.privateStats(v.Flag, false))
		}
		record(v, c)
	})
	rep.Skipped += skipped
	rep.Var += len(buf)

	slices.SortStableFunc(buf, func(x, y *ktype.Var) int {
		return cmp.Or(
			strings.Compare(string(x.TypeSig), string(y.TypeSig)),
			strings.Compare(string(x.HeaderSig), string(y.HeaderSig)),
		)
	})

	fixed := VarFirstFlexibleHeap
	if heaps < VarFirstFlexibleHeap {
		fixed = VarPtrHeap
	}
	for start := 0; start < len(buf); {
		end := start + 1
		for end < len(buf) && buf[end].TypeSig == buf[start].TypeSig && buf[end].HeaderSig == buf[start].HeaderSig {
			end++
		}
		sub := int(a.drawer.Draw(uint16(heaps-fixed))) + fixed
		for _, v := range buf[start:end] {
			v.AssignHeap(sub, a.privateStats(v.Flag, false))
			record(v, ktype.Mixed)
		}
		start = end
	}
	return nil
}

// TypeZones returns the type zones created for Default class idx.
func (a *Allocator) TypeZones(idx int) []*zone.Zone {
	if idx < 0 || idx >= len(a.typeZones) {
		return nil
	}
	return append([]*zone.Zone(nil), a.typeZones[idx]...)
}

// VarZones returns the zones of variable sub-heap sub.
func (a *Allocator) VarZones(sub int) []*zone.Zone {
	if sub < 0 || sub >= len(a.varZones) {
		return nil
	}
	return append([]*zone.Zone(nil), a.varZones[sub]...)
}

// VarLadder returns the variable-heap ladder, nil before Boot.
func (a *Allocator) VarLadder() *sizeclass.VarLadder { return a.varLadder }
