package fsutil

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAtomic_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.bin")

	content := bytes.Repeat([]byte("0123456789abcdef"), 8192) // > one chunk
	require.NoError(t, WriteAtomic(target, bytes.NewReader(content)))

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestWriteAtomic_OverwritesExistingTarget(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(target, []byte("old"), 0o644))

	require.NoError(t, WriteAtomic(target, strings.NewReader("new contents")))

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "new contents", string(got))
}

// failingReader errors midway through, simulating a truncated decode stream
type failingReader struct {
	data []byte
	read bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.read {
		return 0, errors.New("stream truncated")
	}
	r.read = true
	return copy(p, r.data), nil
}

func TestWriteAtomic_FailedCopyLeavesNothingBehind(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.bin")

	err := WriteAtomic(target, &failingReader{data: []byte("partial")})
	require.Error(t, err)

	// Neither the target nor a stray temp file may remain.
	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestWriteAtomic_MissingDirectoryFails(t *testing.T) {
	err := WriteAtomic(filepath.Join(t.TempDir(), "no", "such", "dir", "f"), strings.NewReader("x"))
	assert.Error(t, err)
}
