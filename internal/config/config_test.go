package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/shouao/CSAPP-Labs/heap/alloc"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mmctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ByteSize(20<<20), cfg.Heap.MaxSize)

	policy, err := cfg.SizeClassPolicy()
	require.NoError(t, err)
	assert.Equal(t, alloc.ConfigMalloclab, *policy)
}

func TestLoad_Full(t *testing.T) {
	path := writeConfig(t, `
heap:
  max_size: 4MiB
policy: custom
size_classes:
  threshold: 128
  band_width: 512
driver:
  util_weight: 0.5
  libc_kops: 900
  iterations: 5
  check: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ByteSize(4<<20), cfg.Heap.MaxSize)
	assert.Equal(t, 0.5, cfg.Driver.UtilWeight)
	assert.Equal(t, 900.0, cfg.Driver.LibcKops)
	assert.Equal(t, 5, cfg.Driver.Iterations)
	assert.True(t, cfg.Driver.Check)

	policy, err := cfg.SizeClassPolicy()
	require.NoError(t, err)
	assert.Equal(t, alloc.SizeClassConfig{Name: "Custom", Threshold: 128, BandWidth: 512}, *policy)
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "policy: coarse\nheap:\n  max_size: 1048576\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ByteSize(1<<20), cfg.Heap.MaxSize)
	assert.Equal(t, DefaultUtilWeight, cfg.Driver.UtilWeight)
	assert.Equal(t, DefaultIterations, cfg.Driver.Iterations)

	policy, err := cfg.SizeClassPolicy()
	require.NoError(t, err)
	assert.Equal(t, "Coarse", policy.Name)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown field", "heap:\n  max: 1MiB\n"},
		{"bad size", "heap:\n  max_size: lots\n"},
		{"unknown policy", "policy: buddy\n"},
		{"custom without bands", "policy: custom\nsize_classes:\n  threshold: 0\n"},
		{"weight out of range", "driver:\n  util_weight: 1.5\n"},
		{"zero iterations", "driver:\n  iterations: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"20MiB", 20 << 20},
		{"64 kB", 64000},
		{"4096", 4096},
		{" 1 GiB ", 1 << 30},
	}
	for _, tt := range tests {
		got, err := ParseSize(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseSize("0")
	require.ErrorIs(t, err, ErrInvalid)
	_, err = ParseSize("8GiB")
	require.ErrorIs(t, err, ErrInvalid)
	_, err = ParseSize("abc")
	require.ErrorIs(t, err, ErrInvalid)
}

func TestByteSize_MarshalYAML(t *testing.T) {
	out, err := yaml.Marshal(HeapConfig{MaxSize: 20 << 20})
	require.NoError(t, err)
	assert.Equal(t, "max_size: 20 MiB\n", string(out))
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, "# nothing here\n"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
