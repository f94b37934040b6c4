package archive

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luckystars0612/SecGram/internal/observability"
)

func newTestExtractor() *Extractor {
	return NewExtractor(observability.NopLogger{}, observability.NopMetrics{})
}

// buildZip writes a zip archive with the given name->content entries.
// A nil content creates a directory entry.
func buildZip(t *testing.T, path string, entries map[string][]byte) {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		if content == nil {
			_, err := w.Create(name + "/")
			require.NoError(t, err)
			continue
		}
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestExtract_NestedFilesAndEmptyDir(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "in.zip")
	outputRoot := filepath.Join(dir, "out")

	buildZip(t, archivePath, map[string][]byte{
		"a/b.txt": []byte("hello from the archive"),
		"c":       nil,
	})

	err := newTestExtractor().Extract(context.Background(), archivePath, outputRoot)
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(outputRoot, "a", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello from the archive", string(content))

	info, err := os.Stat(filepath.Join(outputRoot, "c"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestExtract_RejectsTraversalEntry(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "evil.zip")
	outputRoot := filepath.Join(dir, "out")

	buildZip(t, archivePath, map[string][]byte{
		"../evil.txt": []byte("escaped"),
	})

	err := newTestExtractor().Extract(context.Background(), archivePath, outputRoot)
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "evil.txt"))
	assert.True(t, os.IsNotExist(statErr), "traversal entry must not be written outside the root")
}

func TestExtract_AbsoluteEntryIsRejectedByConfine(t *testing.T) {
	target, err := confine("/out", "sub/ok.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/out", "sub", "ok.txt"), target)

	_, err = confine("/out", "/etc/passwd")
	assert.Error(t, err)

	_, err = confine("/out", "a/../../evil")
	assert.Error(t, err)

	// Internal dot-dot segments that stay inside the root are fine.
	target, err = confine("/out", "a/../b.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/out", "b.txt"), target)
}

func TestExtract_CorruptArchiveFailsJob(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "broken.zip")
	require.NoError(t, os.WriteFile(archivePath, []byte("this is not a zip at all"), 0o644))

	err := newTestExtractor().Extract(context.Background(), archivePath, filepath.Join(dir, "out"))
	assert.Error(t, err)
}

func TestExtract_SingleGzipMember(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "notes.txt.gz")
	outputRoot := filepath.Join(dir, "out")

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte("compressed notes"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, os.WriteFile(archivePath, buf.Bytes(), 0o644))

	require.NoError(t, newTestExtractor().Extract(context.Background(), archivePath, outputRoot))

	content, err := os.ReadFile(filepath.Join(outputRoot, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "compressed notes", string(content))
}

func TestExtract_OutputRootIsCreated(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "in.zip")
	outputRoot := filepath.Join(dir, "deeply", "nested", "out")

	buildZip(t, archivePath, map[string][]byte{"f.txt": []byte("x")})

	require.NoError(t, newTestExtractor().Extract(context.Background(), archivePath, outputRoot))

	_, err := os.Stat(filepath.Join(outputRoot, "f.txt"))
	assert.NoError(t, err)
}

func TestExtract_NoPartialFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "in.zip")
	outputRoot := filepath.Join(dir, "out")

	buildZip(t, archivePath, map[string][]byte{"a.txt": []byte("done")})

	require.NoError(t, newTestExtractor().Extract(context.Background(), archivePath, outputRoot))

	entries, err := os.ReadDir(outputRoot)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.NotContains(t, entry.Name(), ".partial-")
	}
}
