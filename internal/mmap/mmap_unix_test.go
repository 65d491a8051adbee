//go:build unix

package mmap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Anon_ZeroFilledWritable(t *testing.T) {
	data, cleanup, err := Anon(64 << 10)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, cleanup())
	}()

	require.Len(t, data, 64<<10)
	for i := range data {
		if data[i] != 0 {
			t.Fatalf("byte %d not zero: 0x%x", i, data[i])
		}
	}
	data[100] = 0xAB
	require.Equal(t, byte(0xAB), data[100])
}

func Test_Anon_ZeroLength(t *testing.T) {
	data, cleanup, err := Anon(0)
	require.NoError(t, err)
	require.Empty(t, data)
	require.NotNil(t, cleanup)
	require.NoError(t, cleanup())
}

func Test_Anon_DoubleCleanup(t *testing.T) {
	_, cleanup, err := Anon(4096)
	require.NoError(t, err)
	require.NoError(t, cleanup())
	require.NoError(t, cleanup())
}

func Test_Release_ZeroesRange(t *testing.T) {
	data, cleanup, err := Anon(64 << 10)
	require.NoError(t, err)
	defer cleanup()

	for i := range data {
		data[i] = 0xFF
	}
	Release(data[16<<10 : 32<<10])
	require.Equal(t, byte(0xFF), data[(16<<10)-1])
	require.Equal(t, byte(0), data[16<<10])
	require.Equal(t, byte(0), data[(32<<10)-1])
	require.Equal(t, byte(0xFF), data[32<<10])
}

func Test_Release_Unaligned(t *testing.T) {
	data, cleanup, err := Anon(8192)
	require.NoError(t, err)
	defer cleanup()

	data[10] = 1
	data[20] = 1
	Release(data[5:15])
	require.Equal(t, byte(0), data[10])
	require.Equal(t, byte(1), data[20])
}
