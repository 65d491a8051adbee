package kalloc

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joshuapare/kheap/internal/format"
	"github.com/joshuapare/kheap/kalloc/ktype"
	"github.com/joshuapare/kheap/pkg/types"
)

func Test_RequireData(t *testing.T) {
	a := newTestAllocator(t, nil)

	d := a.AllocData(48, types.Wait)
	a.RequireData(d.Addr, 48)
	requireViolation(t, types.KindRequireData, func() { a.RequireData(d.Addr, 49) })

	p := a.Alloc(types.HeapDefault, 48, types.Wait)
	v := requireViolation(t, types.KindRequireData, func() { a.RequireData(p.Addr, 16) })
	assert.Contains(t, v.Msg, "default.kalloc.48")

	// Without a kernel data map large blocks are not checked.
	large := a.Alloc(types.HeapDefault, 64*format.KiB, types.Wait)
	a.RequireData(large.Addr, 64*format.KiB)
}

func Test_RequireData_KernelDataMap(t *testing.T) {
	a := newTestAllocator(t, func(c *Config) { c.KernelDataMap = true })

	data := a.AllocData(64*format.KiB, types.Wait)
	a.RequireData(data.Addr, data.Size)
	a.RequireNonData(a.Alloc(types.HeapDefault, 64*format.KiB, types.Wait).Addr, 64*format.KiB)

	def := a.Alloc(types.HeapDefault, 64*format.KiB, types.Wait)
	requireViolation(t, types.KindRequireData, func() { a.RequireData(def.Addr, def.Size) })
	requireViolation(t, types.KindRequireNonData, func() { a.RequireNonData(data.Addr, data.Size) })
}

func Test_RequireNonData(t *testing.T) {
	d := mustFixed(t, "site.proc", 40, "pppp")
	a, _ := newBootedAllocator(t, nil, (&ktype.Static{}).AddFixed(d))

	p := a.Alloc(types.HeapDefault, 64, types.Wait)
	a.RequireNonData(p.Addr, 64)
	requireViolation(t, types.KindRequireNonData, func() { a.RequireNonData(p.Addr, 65) })

	k := a.Alloc(types.HeapKext, 64, types.Wait)
	a.RequireNonData(k.Addr, 64)

	typed := a.AllocType(d, types.Wait)
	a.RequireNonData(typed, 40)
	a.RequireNonData(typed, 48)

	data := a.AllocData(64, types.Wait)
	v := requireViolation(t, types.KindRequireNonData, func() { a.RequireNonData(data.Addr, 16) })
	assert.Contains(t, v.Msg, "data.kalloc.64")
}
