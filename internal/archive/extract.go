package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"

	"github.com/luckystars0612/SecGram/internal/fsutil"
	"github.com/luckystars0612/SecGram/internal/observability"
)

// Extractor unpacks archives into an output root, streaming entry contents
// in bounded chunks. The first unrecoverable error aborts the archive;
// earlier entries stay on disk (no rollback).
type Extractor struct {
	logger  observability.Logger
	metrics observability.Metrics
}

// NewExtractor creates an Extractor with the given observability components
func NewExtractor(logger observability.Logger, metrics observability.Metrics) *Extractor {
	return &Extractor{
		logger:  logger.WithFields(map[string]interface{}{"component": "extractor"}),
		metrics: metrics,
	}
}

// Extract unpacks the archive at archivePath beneath outputRoot. Format and
// filter negotiation is delegated to the decoding library: container formats
// (zip, tar, rar, 7z and their compressed variants) stream entry by entry,
// while bare compression formats (a lone .gz or .bz2) decompress to a single
// file. Success is reported only when the entry stream is exhausted cleanly.
func (e *Extractor) Extract(ctx context.Context, archivePath, outputRoot string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", archivePath, err)
	}
	defer f.Close()

	format, input, err := archives.Identify(ctx, archivePath, f)
	if err != nil {
		return fmt.Errorf("identify format of %s: %w", archivePath, err)
	}

	if err := os.MkdirAll(outputRoot, 0o755); err != nil {
		return fmt.Errorf("create output root %s: %w", outputRoot, err)
	}

	switch fmtImpl := format.(type) {
	case archives.Extractor:
		return e.extractEntries(ctx, fmtImpl, input, archivePath, outputRoot)
	case archives.Decompressor:
		return e.decompressSingle(fmtImpl, input, archivePath, outputRoot)
	default:
		return fmt.Errorf("format %s of %s supports neither extraction nor decompression", format.Extension(), archivePath)
	}
}

func (e *Extractor) extractEntries(ctx context.Context, ex archives.Extractor, input io.Reader, archivePath, outputRoot string) error {
	err := ex.Extract(ctx, input, func(ctx context.Context, entry archives.FileInfo) error {
		target, err := confine(outputRoot, entry.NameInArchive)
		if err != nil {
			return err
		}

		if entry.IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}
			return nil
		}

		if entry.LinkTarget != "" || !entry.Mode().IsRegular() {
			// Links and special files could point outside the root; skip them.
			e.logger.Warn("skipping non-regular entry",
				"entry", entry.NameInArchive,
				"archive", archivePath)
			e.metrics.IncrementCounter("extract.entries.skipped", nil)
			return nil
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create parent directories for %s: %w", target, err)
		}

		e.logger.Info("extracting entry",
			"entry", entry.NameInArchive,
			"archive", archivePath)

		src, err := entry.Open()
		if err != nil {
			return fmt.Errorf("open entry %s: %w", entry.NameInArchive, err)
		}
		defer src.Close()

		if err := fsutil.WriteAtomic(target, src); err != nil {
			return err
		}

		e.metrics.IncrementCounter("extract.entries.written", nil)
		e.metrics.RecordHistogram("extract.entry_size_bytes", float64(entry.Size()), nil)
		return nil
	})
	if err != nil {
		return fmt.Errorf("extract %s: %w", archivePath, err)
	}
	return nil
}

// decompressSingle handles bare compression formats: the output is one file
// named by stripping the compression suffix from the archive's basename.
func (e *Extractor) decompressSingle(d archives.Decompressor, input io.Reader, archivePath, outputRoot string) error {
	base := filepath.Base(archivePath)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" {
		name = base
	}

	rc, err := d.OpenReader(input)
	if err != nil {
		return fmt.Errorf("open decompressor for %s: %w", archivePath, err)
	}
	defer rc.Close()

	e.logger.Info("decompressing single member", "archive", archivePath, "output", name)

	if err := fsutil.WriteAtomic(filepath.Join(outputRoot, name), rc); err != nil {
		return err
	}

	e.metrics.IncrementCounter("extract.entries.written", nil)
	return nil
}

// confine joins an entry's pathname onto the output root and rejects any
// entry that would resolve outside it. Traversal entries fail the whole job
// rather than being silently renamed.
func confine(outputRoot, name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))

	if filepath.IsAbs(cleaned) ||
		cleaned == ".." ||
		strings.HasPrefix(cleaned, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("entry path %q escapes the output root", name)
	}

	return filepath.Join(outputRoot, cleaned), nil
}
