package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(level LogLevel) (*BuilderLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := NewLogger(&LoggerConfig{Level: level, Format: "json", Output: buf})

	return logger, buf
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}

	return out
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "FATAL", LevelFatal.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug": LevelDebug, "INFO": LevelInfo, "": LevelInfo,
		"warning": LevelWarn, " error ": LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestBuilderLoggerFiltersByLevel(t *testing.T) {
	logger, buf := newBufferLogger(LevelWarn)
	ctx := context.Background()

	logger.Debug(ctx, "debug")
	logger.Info(ctx, "info")
	logger.Warn(ctx, nil, "warn")
	logger.Error(ctx, errors.New("boom"), "error")

	entries := lines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "warn", entries[0]["msg"])
	assert.Equal(t, "error", entries[1]["msg"])
	assert.Equal(t, "boom", entries[1]["error"])
}

func TestFatalIgnoresLevel(t *testing.T) {
	l, out := newBufferLogger(LevelFatal)
	l.Error(context.Background(), nil, "dropped")
	l.Fatal(context.Background(), errors.New("x"), "kept")

	entries := lines(t, out)
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0]["msg"])
}

func TestWithAndWithComponent(t *testing.T) {
	logger, buf := newBufferLogger(LevelDebug)

	scoped := logger.With("design", "home").WithComponent("store").With("odd")
	scoped.Info(context.Background(), "section added", "section_id", "s1")

	entries := lines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "store", entries[0]["component"])
	assert.Equal(t, "home", entries[0]["design"])
	assert.Equal(t, "s1", entries[0]["section_id"])
}

func TestMultiLogger(t *testing.T) {
	a, bufA := newBufferLogger(LevelInfo)
	b, bufB := newBufferLogger(LevelInfo)

	multi := NewMultiLogger(a, b).WithComponent("server").With("port", 8080)
	multi.Info(context.Background(), "listening")
	multi.Debug(context.Background(), "hidden")

	for _, buf := range []*bytes.Buffer{bufA, bufB} {
		entries := lines(t, buf)
		require.Len(t, entries, 1)
		assert.Equal(t, "server", entries[0]["component"])
		assert.Equal(t, float64(8080), entries[0]["port"])
	}
}

func TestFileLogger(t *testing.T) {
	dir := t.TempDir()

	fl, err := NewFileLogger(&LoggerConfig{Level: LevelInfo, Format: "text"}, dir)
	require.NoError(t, err)
	fl.Info(context.Background(), "written to file")
	require.NoError(t, fl.Close())

	data, err := os.ReadFile(fl.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestNop(t *testing.T) {
	n := Nop()
	n.Info(context.Background(), "nothing")
	assert.Equal(t, n, n.With("a", 1).WithComponent("x"))
}

func TestPerfLogger(t *testing.T) {
	logger, buf := newBufferLogger(LevelDebug)

	op := StartOperation(logger, "export")
	op.End(context.Background(), "sections", 3)
	StartOperation(logger, "import").EndWithError(context.Background(), errors.New("bad"))

	entries := lines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "export", entries[0]["operation"])
	assert.Equal(t, float64(3), entries[0]["sections"])
	assert.Contains(t, entries[0], "duration_ms")
	assert.Equal(t, "Operation failed", entries[1]["msg"])
	assert.Equal(t, "bad", entries[1]["error"])
}
