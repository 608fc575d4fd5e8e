// Package compressor produces the distributable .zst sibling of a finished
// artifact and reports size statistics.
//
// Compression is observational tooling around the loader's output: a
// failure here removes the partial .zst but never touches the uncompressed
// artifact.
package compressor

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// Suffix is appended to the artifact path for the compressed sibling.
const Suffix = ".zst"

// Stats reports the outcome of one compression pass.
type Stats struct {
	Path            string
	CompressedPath  string
	OriginalBytes   int64
	CompressedBytes int64
}

// RatioPercent is compressed size as a percentage of the original.
func (s Stats) RatioPercent() float64 {
	if s.OriginalBytes == 0 {
		return 0
	}
	return float64(s.CompressedBytes) / float64(s.OriginalBytes) * 100
}

func (s Stats) String() string {
	return fmt.Sprintf("original %d bytes, compressed %d bytes (%.2f%%)",
		s.OriginalBytes, s.CompressedBytes, s.RatioPercent())
}

// Compress streams the file at src through zstd at best compression into
// src + Suffix, overwriting any previous compressed output.
func Compress(src string) (Stats, error) {
	dst := src + Suffix

	in, err := os.Open(src)
	if err != nil {
		return Stats{}, fmt.Errorf("compress: open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return Stats{}, fmt.Errorf("compress: create %s: %w", dst, err)
	}

	enc, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return Stats{}, fmt.Errorf("compress: encoder: %w", err)
	}

	if _, err := io.Copy(enc, in); err != nil {
		_ = enc.Close()
		_ = out.Close()
		_ = os.Remove(dst)
		return Stats{}, fmt.Errorf("compress: %s: %w", src, err)
	}
	if err := enc.Close(); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return Stats{}, fmt.Errorf("compress: finish %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return Stats{}, fmt.Errorf("compress: close %s: %w", dst, err)
	}

	stats := Stats{Path: src, CompressedPath: dst}
	if stats.OriginalBytes, err = fileSize(src); err != nil {
		return Stats{}, err
	}
	if stats.CompressedBytes, err = fileSize(dst); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("compress: stat %s: %w", path, err)
	}
	return info.Size(), nil
}
