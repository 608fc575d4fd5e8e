// Package archive decodes the two-stage input containers: an outer xz or
// legacy-lzma compressed stream wrapping a tar archive whose single file is
// the CSV payload.
//
// Extraction is all-or-nothing. Any failure at either stage returns an
// *ExtractionError and no payload; there is no temp file and no partial
// output.
package archive

import (
	"archive/tar"
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

// xzMagic is the file signature of the xz container format. Anything else
// is treated as a raw legacy lzma stream, which is what `xz -d` does.
var xzMagic = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}

// ExtractionError is the fatal error class for container decoding. Stage
// names the layer that failed ("open", "decompress", "untar") so operator
// diagnostics can tell a corrupt outer stream from a corrupt inner archive.
type ExtractionError struct {
	Path  string
	Stage string
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %s: %v", e.Path, e.Stage, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Extract decodes the container at path and returns the embedded text
// payload.
//
// The tar layer may carry directory entries or metadata entries around the
// payload; the first regular file wins, matching `tar -xO` against the
// single-file archives this tool has always consumed. A tar with no regular
// file at all is an extraction error.
func Extract(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &ExtractionError{Path: path, Stage: "open", Err: err}
	}
	defer f.Close()

	br := bufio.NewReader(f)
	magic, err := br.Peek(len(xzMagic))
	if err != nil {
		return "", &ExtractionError{Path: path, Stage: "decompress", Err: fmt.Errorf("read magic: %w", err)}
	}

	var zr io.Reader
	if bytes.Equal(magic, xzMagic) {
		zr, err = xz.NewReader(br)
	} else {
		zr, err = lzma.NewReader(br)
	}
	if err != nil {
		return "", &ExtractionError{Path: path, Stage: "decompress", Err: err}
	}

	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return "", &ExtractionError{Path: path, Stage: "untar", Err: fmt.Errorf("no regular file entry")}
		}
		if err != nil {
			return "", &ExtractionError{Path: path, Stage: "untar", Err: err}
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		payload, err := io.ReadAll(tr)
		if err != nil {
			return "", &ExtractionError{Path: path, Stage: "untar", Err: fmt.Errorf("read %s: %w", hdr.Name, err)}
		}
		return string(payload), nil
	}
}
