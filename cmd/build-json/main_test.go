package main

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ulikunitz/xz"
)

func TestRunUsageError(t *testing.T) {
	var stderr bytes.Buffer
	code := run(context.Background(), []string{"-no-such-flag"}, &stderr)
	if code != 2 {
		t.Fatalf("exit code = %d, want 2; stderr=%q", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), "flag provided but not defined") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}

func TestRunMissingArchive(t *testing.T) {
	dir := t.TempDir()
	var stderr bytes.Buffer
	code := run(context.Background(), []string{
		"-statewide", filepath.Join(dir, "nope.tar.lzma"),
		"-out", filepath.Join(dir, "out.json"),
	}, &stderr)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1; stderr=%q", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), "build-json:") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}

func TestRunBuildsDocument(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "cumulative.tar.xz")
	writeFixture(t, archivePath, "20230615,1234567\n")
	outPath := filepath.Join(dir, "out.json")

	var stderr bytes.Buffer
	code := run(context.Background(), []string{
		"-statewide", archivePath,
		"-out", outPath,
	}, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d; stderr=%q", code, stderr.String())
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != `{"observations":[["2023-06-15",1234567]]}` {
		t.Fatalf("document = %s", data)
	}
	if _, err := os.Stat(outPath + ".zst"); err != nil {
		t.Fatalf("compressed sibling: %v", err)
	}
}

func writeFixture(t *testing.T, path, csv string) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	zw, err := xz.NewWriter(f)
	if err != nil {
		t.Fatalf("xz: %v", err)
	}
	tw := tar.NewWriter(zw)
	if err := tw.WriteHeader(&tar.Header{Name: "cumulative.csv", Mode: 0o644, Size: int64(len(csv))}); err != nil {
		t.Fatalf("tar header: %v", err)
	}
	if _, err := io.WriteString(tw, csv); err != nil {
		t.Fatalf("tar body: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("xz close: %v", err)
	}
}
