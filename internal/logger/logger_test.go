package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Logger_DisabledDiscards(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Enabled: false, Writer: &buf})
	l.Error("boom")
	require.Zero(t, buf.Len())
}

func Test_Logger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Enabled: true, Writer: &buf, Level: slog.LevelWarn})
	l.Info("hidden")
	l.Warn("shown", "zone", "kalloc.16")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "zone=kalloc.16")
}

func Test_Logger_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Enabled: true, Writer: &buf, JSON: true})
	l.Info("boot", "zones", 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "boot", rec["msg"])
	require.EqualValues(t, 3, rec["zones"])
}

func Test_Logger_InitAndOr(t *testing.T) {
	prev := L
	t.Cleanup(func() { L = prev })

	var buf bytes.Buffer
	Init(Options{Enabled: true, Writer: &buf})
	Info("hello")
	require.Contains(t, buf.String(), "hello")

	require.Same(t, L, Or(nil))
	other := New(Options{})
	require.Same(t, other, Or(other))
}

func Test_Logger_FromEnv(t *testing.T) {
	t.Setenv(EnvVar, "")
	require.Nil(t, FromEnv())
	t.Setenv(EnvVar, "1")
	require.NotNil(t, FromEnv())
}
