package kalloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/kheap/internal/format"
	"github.com/joshuapare/kheap/kalloc/ktype"
	"github.com/joshuapare/kheap/kalloc/policy"
	"github.com/joshuapare/kheap/pkg/types"
)

const testSeed = 0x6b616c6c6f63

// testConfig is DefaultConfig shrunk to keep test mappings small, with
// deterministic entropy.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ZoneMapSize = 32 * format.MiB
	cfg.MapSize = MinMapSize
	cfg.FallbackMapSize = 16 * format.MiB
	cfg.DataMapSize = 16 * format.MiB
	cfg.Entropy = policy.NewSeededSource(testSeed)
	return cfg
}

// newTestAllocator builds an allocator from testConfig after applying mutate.
func newTestAllocator(t *testing.T, mutate func(*Config)) *Allocator {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	a, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close()) })
	return a
}

// newBootedAllocator is newTestAllocator followed by Boot(images...).
func newBootedAllocator(t *testing.T, mutate func(*Config), images ...ktype.Image) (*Allocator, *BootReport) {
	t.Helper()
	a := newTestAllocator(t, mutate)
	rep, err := a.Boot(images...)
	require.NoError(t, err)
	return a, rep
}

func mustFixed(t *testing.T, name string, size uint64, sig string) *ktype.Fixed {
	t.Helper()
	d, err := ktype.NewFixed(name, size, sig, 0)
	require.NoError(t, err)
	return d
}

func mustVar(t *testing.T, name string, hdrSize uint64, hdrSig string, typeSize uint64, typeSig string) *ktype.Var {
	t.Helper()
	v, err := ktype.NewVar(name, hdrSize, hdrSig, typeSize, typeSig, 0)
	require.NoError(t, err)
	return v
}

// requireViolation runs fn and requires it to panic with a violation of kind.
func requireViolation(t *testing.T, kind types.ViolationKind, fn func()) *Violation {
	t.Helper()
	var got *Violation
	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r, "expected panic")
			v, ok := AsViolation(r)
			require.True(t, ok, "panic value %T is not a violation", r)
			got = v
		}()
		fn()
	}()
	require.Equal(t, kind, got.Kind, got.Msg)
	return got
}

// fill writes b into every byte of [addr, addr+n).
func fill(t *testing.T, a *Allocator, addr types.Addr, n uint64, b byte) {
	t.Helper()
	buf, err := a.Bytes(addr, n)
	require.NoError(t, err)
	for i := range buf {
		buf[i] = b
	}
}

// requireFilled requires every byte of [addr, addr+n) to equal b.
func requireFilled(t *testing.T, a *Allocator, addr types.Addr, n uint64, b byte) {
	t.Helper()
	buf, err := a.Bytes(addr, n)
	require.NoError(t, err)
	for i, got := range buf {
		if got != b {
			require.Failf(t, "unexpected byte", "byte %d of %s is %#x, want %#x", i, addr, got, b)
		}
	}
}

type countingLedger struct {
	debits, credits uint64
}

func (l *countingLedger) Debit(n uint64)  { l.debits += n }
func (l *countingLedger) Credit(n uint64) { l.credits += n }
