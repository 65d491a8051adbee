package kalloc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joshuapare/kheap/kalloc/ktype"
	"github.com/joshuapare/kheap/kalloc/policy"
	"github.com/joshuapare/kheap/pkg/types"
)

// selfTestMaxFreq bounds the random signature counts fed to the policy.
const selfTestMaxFreq = 25

// SelfTest checks the allocator's boot results and runs a short realloc
// scenario on the Default heap. budget drives the policy check, which is
// skipped when it cannot give every class two zones. Failures are returned
// wrapped in ErrSelfTest; contract violations raised along the way are
// reported the same way.
func (a *Allocator) SelfTest(budget int) (err error) {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrSelfTest, fmt.Sprintf(format, args...)))
	}
	defer func() {
		if r := recover(); r != nil {
			v, ok := AsViolation(r)
			if !ok {
				panic(r)
			}
			fail("%v", v)
			err = errors.Join(errs...)
		}
	}()

	a.selfTestPolicy(budget, fail)
	a.selfTestZones(fail)
	a.selfTestDataRedirect(fail)
	a.selfTestRealloc(fail)

	return errors.Join(errs...)
}

func (a *Allocator) selfTestPolicy(budget int, fail func(string, ...any)) {
	classes := a.heaps[types.HeapDefault].table.Len()
	if budget < policy.MinZonesPerClass*classes {
		return
	}
	freq := make([]int, classes)
	for i := range freq {
		freq[i] = int(a.drawer.Draw(selfTestMaxFreq - 1))
	}
	res, err := policy.Apply(freq, budget)
	if err != nil {
		fail("policy: %v", err)
		return
	}
	if res.Wasted != 0 {
		fail("policy wasted %d of %d zones for %v", res.Wasted, budget, freq)
	}
}

func (a *Allocator) selfTestZones(fail func(string, ...any)) {
	for _, d := range a.fixed {
		if z := d.Zone(); z != nil && d.Sz > z.ElemSize() {
			fail("%s (%d bytes) bound to %s", d.Name, d.Sz, z.FullName())
		}
	}
	for c, zs := range a.typeZones {
		for _, z := range zs {
			if z.KallocType() && !strings.HasPrefix(z.Name(), "kalloc.type") {
				fail("type zone %q for class %d", z.Name(), c)
			}
		}
	}
	for _, zs := range a.varZones {
		for _, z := range zs {
			if !strings.HasPrefix(z.Name(), "kalloc.type") {
				fail("var zone %q", z.Name())
			}
		}
	}
}

func (a *Allocator) selfTestDataRedirect(fail func(string, ...any)) {
	maxSize := a.heaps[types.HeapDefault].table.LastSize()
	fixed := &ktype.Fixed{Name: "selftest.data", Sz: 64, Sig: "dddd"}
	if c := ktype.Classify(fixed, maxSize, false); c != ktype.DataOnly {
		fail("data fixed descriptor classified %s", c)
	}
	v := &ktype.Var{Name: "selftest.data_var", TypeSize: 8, TypeSig: "d"}
	if h := a.varHeap(v, false).id; h != types.HeapDataBuffers {
		fail("data var descriptor routed to %s", h)
	}
}

func (a *Allocator) selfTestRealloc(fail func(string, ...any)) {
	heap := types.HeapDefault
	r := a.Alloc(heap, 9, types.Wait)
	if r.Empty() {
		fail("alloc 9 failed")
		return
	}
	r2 := a.Realloc(heap, r.Addr, 9, 10, types.Wait)
	if r2.Addr != r.Addr {
		fail("realloc 9->10 moved %s to %s", r.Addr, r2.Addr)
	}
	if a.BucketSize(heap, 10) != a.BucketSize(heap, 9) {
		fail("9 and 10 in different buckets")
	}
	r3 := a.Realloc(heap, r2.Addr, 10, 20, types.Wait)
	if r3.Empty() || r3.Addr == r2.Addr {
		fail("realloc 10->20 stayed at %s", r2.Addr)
	}
	r4 := a.Realloc(heap, r3.Addr, 20, 40, types.Wait)
	if r4.Empty() || r4.Addr == r3.Addr {
		fail("realloc 20->40 stayed at %s", r3.Addr)
	}
	a.Free(heap, r4.Addr, 40)

	big := a.Alloc(heap, 3544, types.Wait)
	if big.Empty() {
		fail("alloc 3544 failed")
		return
	}
	a.Free(heap, big.Addr, 3544)
}
