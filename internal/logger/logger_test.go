package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogLoggerLevels(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelInfo, time.UTC)

	log.Debug("hidden")
	log.Info("shown", String("species", "Jania adhaerens"))
	log.Warn("warned")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, `species="Jania adhaerens"`)
	assert.Contains(t, out, "level=WARN")
	assert.NotContains(t, out, "time=", "console output omits timestamps")
}

func TestTraceLevelRendering(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelTrace, time.UTC)
	log.Trace("sql query")

	assert.Contains(t, buf.String(), "level=TRACE")
}

func TestModuleAndWithFields(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	base := NewSlogLogger(buf, LogLevelDebug, time.UTC)

	log := base.Module("api").Module("v2").With(Int("page", 3))
	log.Info("listing species", Float64("latitude", -17.1234567))

	out := buf.String()
	assert.Contains(t, out, "module=api.v2")
	assert.Contains(t, out, "page=3")
	assert.Contains(t, out, "latitude=-17.123457")
}

func TestWithContextAddsTraceID(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelInfo, time.UTC)

	ctx := WithTraceID(context.Background(), "req-123")
	log.WithContext(ctx).Info("handled")
	log.WithContext(context.Background()).Info("untraced")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "trace_id=req-123")
	assert.NotContains(t, lines[1], "trace_id")
}

func TestErrorField(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelInfo, time.UTC)
	log.Error("failed", Error(errors.New("disk full")))

	assert.Contains(t, buf.String(), `error="disk full"`)
}

func TestCentralLoggerModuleLevels(t *testing.T) {
	t.Parallel()

	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "warn",
		Console:      &ConsoleOutput{Enabled: false},
		FileOutput:   &FileOutput{Enabled: false},
		ModuleLevels: map[string]string{"datastore": "trace"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cl.Close() })

	cl.mu.RLock()
	defer cl.mu.RUnlock()
	assert.Equal(t, traceLevelValue, cl.getModuleLevelLocked("datastore"))
	assert.Equal(t, traceLevelValue, cl.getModuleLevelLocked("datastore.sqlite"))
	assert.Equal(t, parseLogLevel("warn"), cl.getModuleLevelLocked("api"))
}

func TestCentralLoggerFileOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "survey.log")
	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "info",
		Timezone:     "UTC",
		Console:      &ConsoleOutput{Enabled: false},
		FileOutput:   &FileOutput{Enabled: true, Path: path, Level: "info"},
	})
	require.NoError(t, err)

	cl.Module("importer").Info("import finished", Int("rows", 42))
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
	assert.Equal(t, "import finished", entry["msg"])
	assert.Equal(t, "importer", entry["module"])
	assert.InDelta(t, 42, entry["rows"], 0)
}

func TestNewCentralLoggerRejectsBadTimezone(t *testing.T) {
	t.Parallel()

	_, err := NewCentralLogger(&LoggingConfig{Timezone: "Mars/Olympus_Mons"})
	assert.Error(t, err)
}
