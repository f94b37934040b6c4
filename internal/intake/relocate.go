// Package intake runs the worker side of the service: a fixed pool of
// workers pulls jobs from the task queue, classifies each source path and
// either unpacks it as an archive or relocates it into the output root.
package intake

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/luckystars0612/SecGram/internal/fsutil"
)

// Relocate copies a non-archive file into the output root unchanged, as
// outputRoot/basename(path). The output root is created if missing; the
// copy goes through a temporary name and atomic rename, so two jobs racing
// on the same basename are last-rename-wins without interleaved bytes.
func Relocate(path, outputRoot string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open source %s: %w", path, err)
	}
	defer src.Close()

	if err := os.MkdirAll(outputRoot, 0o755); err != nil {
		return fmt.Errorf("create output root %s: %w", outputRoot, err)
	}

	dst := filepath.Join(outputRoot, filepath.Base(path))
	return fsutil.WriteAtomic(dst, src)
}
