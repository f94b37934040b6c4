// Package archive decides whether a file is an archive and unpacks archives
// into an output root. Container parsing is delegated to mholt/archives;
// this package owns classification, path confinement and the write policy.
package archive

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// archiveExtensions is the fixed set of extensions treated as archives.
// Matching is case-insensitive: .ZIP and .zip are the same format.
var archiveExtensions = map[string]struct{}{
	".zip": {},
	".rar": {},
	".tar": {},
	".gz":  {},
	".bz2": {},
	".7z":  {},
}

// magicSignatures are the 4-byte prefixes sniffed when the extension is
// inconclusive: ZIP local-file-header and RAR.
var magicSignatures = [][]byte{
	{0x50, 0x4B, 0x03, 0x04}, // ZIP
	{0x52, 0x61, 0x72, 0x21}, // RAR
}

// IsArchive reports whether the file at path looks like an archive, first by
// extension and then by sniffing the first four bytes. It is a heuristic:
// any I/O failure while sniffing fails open to "not an archive", which sends
// the file down the non-destructive copy path. The extractor must still
// tolerate false positives.
func IsArchive(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := archiveExtensions[ext]; ok {
		return true
	}

	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	var header [4]byte
	if _, err := io.ReadFull(f, header[:]); err != nil {
		return false
	}

	for _, magic := range magicSignatures {
		if bytes.Equal(header[:], magic) {
			return true
		}
	}
	return false
}
