package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, line string) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	return entry
}

func TestLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("filehandler", "info", &buf)

	logger.Info("processing file", "path", "/data/in.zip", "worker", 3)

	entry := decodeLine(t, strings.TrimSpace(buf.String()))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "filehandler", entry["service"])
	assert.Equal(t, "processing file", entry["message"])
	assert.Equal(t, "/data/in.zip", entry["path"])
	assert.Equal(t, float64(3), entry["worker"])
	assert.NotEmpty(t, entry["timestamp"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("filehandler", "warn", &buf)

	logger.Debug("dropped")
	logger.Info("dropped too")
	logger.Warn("kept")
	logger.Error("kept as well")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "warn", decodeLine(t, lines[0])["level"])
	assert.Equal(t, "error", decodeLine(t, lines[1])["level"])
}

func TestLogger_ErrorFieldsAreStringified(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("filehandler", "info", &buf)

	logger.Error("job failed", "error", errors.New("disk full"))

	entry := decodeLine(t, strings.TrimSpace(buf.String()))
	assert.Equal(t, "disk full", entry["error"])
}

func TestLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("filehandler", "info", &buf).
		WithFields(map[string]interface{}{"component": "consumer"})

	logger.Info("connected")

	entry := decodeLine(t, strings.TrimSpace(buf.String()))
	assert.Equal(t, "consumer", entry["component"])
}

func TestLogger_OddFieldCountIsTolerated(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("filehandler", "info", &buf)

	logger.Info("lonely key", "orphan")

	entry := decodeLine(t, strings.TrimSpace(buf.String()))
	assert.Equal(t, "lonely key", entry["message"])
	_, present := entry["orphan"]
	assert.False(t, present)
}
