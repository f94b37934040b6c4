// Package fsutil holds small filesystem helpers shared by the extraction
// and relocation paths.
package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CopyChunkSize is the buffer size used when streaming file contents.
// It is an implementation constant, independent of entry sizes.
const CopyChunkSize = 32 * 1024

// WriteAtomic streams src into target through a temporary file in the same
// directory, renaming it into place once the copy completed. Concurrent
// writers of the same target are last-rename-wins; a reader never observes
// a half-written file. Short writes surface as errors from the copy.
func WriteAtomic(target string, src io.Reader) error {
	dir := filepath.Dir(target)

	tmp, err := os.CreateTemp(dir, filepath.Base(target)+".partial-*")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}

	buf := make([]byte, CopyChunkSize)
	if _, err := io.CopyBuffer(tmp, src, buf); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", target, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename %s to %s: %w", tmp.Name(), target, err)
	}

	return nil
}
