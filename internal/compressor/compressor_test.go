package compressor

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressRoundTrip(t *testing.T) {
	t.Parallel()

	src := filepath.Join(t.TempDir(), "reservoir_data.db")
	payload := bytes.Repeat([]byte("20230615,1234567\n"), 4096)
	require.NoError(t, os.WriteFile(src, payload, 0o644))

	stats, err := Compress(src)
	require.NoError(t, err)

	assert.Equal(t, src, stats.Path)
	assert.Equal(t, src+Suffix, stats.CompressedPath)
	assert.Equal(t, int64(len(payload)), stats.OriginalBytes)
	assert.Less(t, stats.CompressedBytes, stats.OriginalBytes, "repetitive payload must shrink")
	assert.InDelta(t, float64(stats.CompressedBytes)/float64(stats.OriginalBytes)*100, stats.RatioPercent(), 1e-9)

	compressed, err := os.ReadFile(stats.CompressedPath)
	require.NoError(t, err)
	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()
	decoded, err := dec.DecodeAll(compressed, nil)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)

	// The uncompressed artifact is untouched.
	original, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, payload, original)
}

func TestCompressOverwritesPreviousOutput(t *testing.T) {
	t.Parallel()

	src := filepath.Join(t.TempDir(), "artifact.json")
	require.NoError(t, os.WriteFile(src, []byte(`{"observations":[]}`), 0o644))
	require.NoError(t, os.WriteFile(src+Suffix, []byte("stale compressed junk"), 0o644))

	stats, err := Compress(src)
	require.NoError(t, err)

	compressed, err := os.ReadFile(src + Suffix)
	require.NoError(t, err)
	assert.Equal(t, int64(len(compressed)), stats.CompressedBytes)
	assert.False(t, strings.HasPrefix(string(compressed), "stale"), "old output must be replaced")
}

func TestCompressMissingSource(t *testing.T) {
	t.Parallel()

	src := filepath.Join(t.TempDir(), "missing.db")
	_, err := Compress(src)
	require.Error(t, err)

	// No partial .zst left behind.
	_, statErr := os.Stat(src + Suffix)
	assert.True(t, os.IsNotExist(statErr))
}

func TestStatsString(t *testing.T) {
	t.Parallel()

	s := Stats{OriginalBytes: 1000, CompressedBytes: 250}
	assert.Equal(t, "original 1000 bytes, compressed 250 bytes (25.00%)", s.String())

	assert.Zero(t, Stats{}.RatioPercent())
}
