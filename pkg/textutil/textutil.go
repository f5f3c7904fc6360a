// Package textutil provides byte-level text utilities: binary detection,
// line counting, and atomic file output.
package textutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// BinarySniffLength is the maximum number of bytes scanned for null-byte
// detection. Matches the heuristic used by Git and most editors.
const BinarySniffLength = 8000

// Permissions for generated artifacts and their parent directories.
const (
	OutputFilePerm = 0o644
	OutputDirPerm  = 0o750
)

// IsBinary returns true if data contains a null byte within the first
// BinarySniffLength bytes. Empty data is not binary.
func IsBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}

	sniff := data
	if len(sniff) > BinarySniffLength {
		sniff = sniff[:BinarySniffLength]
	}

	return bytes.IndexByte(sniff, 0) >= 0
}

// CountLines returns the number of newline-delimited lines in data.
// A non-empty buffer without a trailing newline counts the last partial line.
// Returns 0 for empty data.
func CountLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}

	lines := bytes.Count(data, []byte{'\n'})

	if data[len(data)-1] != '\n' {
		lines++
	}

	return lines
}

// WriteFileAtomic creates the parent directories of path and replaces path
// with data via a temp file and rename, so readers never observe a
// truncated artifact.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	mkErr := os.MkdirAll(dir, OutputDirPerm)
	if mkErr != nil {
		return fmt.Errorf("create output dir %s: %w", dir, mkErr)
	}

	writeErr := renameio.WriteFile(path, data, OutputFilePerm)
	if writeErr != nil {
		return fmt.Errorf("write %s: %w", path, writeErr)
	}

	return nil
}
