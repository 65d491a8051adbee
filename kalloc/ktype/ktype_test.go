package ktype

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_ParseSignature_Normalizes(t *testing.T) {
	tests := []struct {
		in   string
		want Signature
	}{
		{"pp d", "ppd"},
		{"112", "ppd"},
		{"dddd", "dddd"},
		{"0_-.", "...."},
		{"P A D", "pad"},
		{"", ""},
	}
	for _, tt := range tests {
		got, err := ParseSignature(tt.in)
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseSignature("pxd")
	require.ErrorIs(t, err, ErrBadSignature)
	_, err = ParseSignature("3")
	require.ErrorIs(t, err, ErrBadSignature)
	require.Panics(t, func() { MustSignature("?") })
}

func Test_Signature_Predicates(t *testing.T) {
	require.True(t, MustSignature("dddd").IsData())
	require.True(t, MustSignature("d.d.").IsData())
	require.True(t, MustSignature("").IsData())
	require.False(t, MustSignature("pp d").IsData())

	require.True(t, MustSignature("pppa").IsPointerArray())
	require.False(t, MustSignature("pp.").IsPointerArray(), "padding is not part of a pointer array")
	require.False(t, MustSignature("").IsPointerArray())

	require.True(t, MustSignature("ppdd").Compatible("ppd"))
	require.True(t, MustSignature("ppd").Compatible(""))
	require.False(t, MustSignature("pdd").Compatible("ppd"))

	require.Equal(t, []Granule{Pointer, Data, Padding, AuthPointer}, MustSignature("pd.a").Granules())
	require.Equal(t, "auth-pointer", AuthPointer.String())
}

func Test_Classify_Fixed(t *testing.T) {
	mixed, err := NewFixed("site.mixed", 24, "pp d", 0)
	require.NoError(t, err)
	data, err := NewFixed("site.data", 32, "dddd", 0)
	require.NoError(t, err)
	ptrs, err := NewFixed("site.ptrs", 16, "pp", 0)
	require.NoError(t, err)
	huge, err := NewFixed("site.huge", 40000, "pd", 0)
	require.NoError(t, err)

	require.Equal(t, Mixed, Classify(mixed, 32768, false))
	require.Equal(t, DataOnly, Classify(data, 32768, false))
	require.Equal(t, Mixed, Classify(ptrs, 32768, false), "pointer arrays only exist on the variable heap")
	require.Equal(t, VMRedirect, Classify(huge, 32768, false))

	// Pure: classifying twice does not touch the descriptor.
	require.Equal(t, Mixed, Classify(mixed, 32768, false))
	require.Equal(t, Flags(0), mixed.Flags())
}

func Test_Classify_Var(t *testing.T) {
	parray, err := NewVar("site.parray", 0, "", 8, "p", 0)
	require.NoError(t, err)
	hdrData, err := NewVar("site.hdrdata", 16, "dd", 8, "d", 0)
	require.NoError(t, err)
	hdrMixed, err := NewVar("site.hdrmixed", 16, "pd", 8, "d", 0)
	require.NoError(t, err)
	ptrHdr, err := NewVar("site.ptrhdr", 8, "p", 8, "a", 0)
	require.NoError(t, err)

	require.Equal(t, PointerArray, Classify(parray, 32768, true))
	require.Equal(t, DataOnly, Classify(hdrData, 32768, true))
	require.Equal(t, Mixed, Classify(hdrMixed, 32768, true))
	require.Equal(t, PointerArray, Classify(ptrHdr, 32768, true))
	require.Equal(t, uint64(16), ptrHdr.Size())
}

func Test_Classify_ChangedFlagsAreAuthoritative(t *testing.T) {
	d, err := NewFixed("site.override", 64, "pd", FlagChanged|FlagDataOnly)
	require.NoError(t, err)
	require.Equal(t, DataOnly, Classify(d, 32768, false))

	big, err := NewFixed("site.small_but_vm", 64, "pd", FlagChanged|FlagVM)
	require.NoError(t, err)
	require.Equal(t, VMRedirect, Classify(big, 32768, false))

	notData, err := NewFixed("site.changed_mixed", 64, "dd", FlagChanged)
	require.NoError(t, err)
	require.Equal(t, Mixed, Classify(notData, 32768, false))
}

func Test_Fixed_ProcessedAndResolve(t *testing.T) {
	d, err := NewFixed("site.x", 24, "pd", 0)
	require.NoError(t, err)
	require.False(t, d.Processed())
	require.True(t, d.MarkProcessed())
	require.False(t, d.MarkProcessed())
	require.True(t, d.Processed())
	require.Nil(t, d.Zone())
	require.Contains(t, d.String(), "processed")

	_, err = NewFixed("", 24, "pd", 0)
	require.ErrorIs(t, err, ErrBadDescriptor)
	_, err = NewFixed("site.zero", 0, "pd", 0)
	require.ErrorIs(t, err, ErrBadDescriptor)
	_, err = NewFixed("site.badsig", 8, "q", 0)
	require.ErrorIs(t, err, ErrBadSignature)
}

func Test_Var_AllocSize(t *testing.T) {
	v, err := NewVar("site.v", 16, "pd", 8, "p", 0)
	require.NoError(t, err)

	n, ok := v.AllocSize(4)
	require.True(t, ok)
	require.Equal(t, uint64(48), n)

	_, ok = v.AllocSize(^uint64(0) / 4)
	require.False(t, ok)

	require.Equal(t, []Signature{"pd", "p"}, v.Signatures())
	require.True(t, v.MarkProcessed())
	require.False(t, v.MarkProcessed())
}

func Test_Flags_StringAndParse(t *testing.T) {
	require.Equal(t, "none", Flags(0).String())
	require.Equal(t, "processed|data_only", (FlagProcessed | FlagDataOnly).String())

	f, err := ParseFlag("priv_acct")
	require.NoError(t, err)
	require.Equal(t, FlagPrivAcct, f)
	_, err = ParseFlag("bogus")
	require.ErrorIs(t, err, ErrBadDescriptor)
}

const testManifest = `
name: boot
slide: true
fixed:
  - name: site.proc
    size: 40
    signature: "pp d"
  - name: site.buf
    size: 128
    signature: "dddd"
    flags: [priv_acct]
var:
  - name: site.path
    header_size: 16
    header_signature: "pd"
    type_size: 8
    type_signature: "d"
`

func Test_ParseManifest(t *testing.T) {
	img, err := ParseManifest(strings.NewReader(testManifest))
	require.NoError(t, err)
	require.Equal(t, "boot", img.Name)
	require.Len(t, img.Fixed, 2)
	require.Len(t, img.Var, 1)
	require.Equal(t, Signature("ppd"), img.Fixed[0].Sig)
	require.Equal(t, FlagPrivAcct, img.Fixed[1].Flag)

	var slid []bool
	img.ForEachFixed(func(_ *Fixed, s bool) { slid = append(slid, s) })
	require.Equal(t, []bool{true, true}, slid)

	var names []string
	img.ForEachVar(func(d *Var, _ bool) { names = append(names, d.Name) })
	require.Equal(t, []string{"site.path"}, names)
}

func Test_ParseManifest_Errors(t *testing.T) {
	_, err := ParseManifest(strings.NewReader("fixed:\n  - name: x\n    size: 8\n    signature: zz\n"))
	require.ErrorIs(t, err, ErrBadSignature)

	_, err = ParseManifest(strings.NewReader("bogus_key: 1\n"))
	require.ErrorIs(t, err, ErrBadManifest)

	_, err = ParseManifest(strings.NewReader("fixed:\n  - name: x\n    size: 8\n    signature: p\n    flags: [nope]\n"))
	require.ErrorIs(t, err, ErrBadDescriptor)

	img, err := ParseManifest(strings.NewReader(""))
	require.NoError(t, err)
	require.Empty(t, img.Fixed)
}

func Test_LoadManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kext.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fixed:\n  - name: site.k\n    size: 64\n    signature: pd\n"), 0o644))

	img, err := LoadManifest(path)
	require.NoError(t, err)
	require.Equal(t, path, img.Name)
	require.Len(t, img.Fixed, 1)

	_, err = LoadManifest(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func Test_Images_Chain(t *testing.T) {
	a := (&Static{}).AddFixed(&Fixed{Name: "a"})
	b := (&Static{Slide: true}).AddFixed(&Fixed{Name: "b"}).AddVar(&Var{Name: "v"})

	var got []string
	Images{a, b}.ForEachFixed(func(d *Fixed, _ bool) { got = append(got, d.Name) })
	require.Equal(t, []string{"a", "b"}, got)

	n := 0
	Images{a, b}.ForEachVar(func(*Var, bool) { n++ })
	require.Equal(t, 1, n)
}
