package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile time checks for the Logger implementations.
var (
	_ Logger = (*SlogAdapter)(nil)
	_ Logger = NoOpLogger{}
	_ Logger = (*KernelLogger)(nil)
)

func TestLogLevel_String(t *testing.T) {
	assert.Equal(t, "DEBUG", LogLevelDebug.String())
	assert.Equal(t, "INFO", LogLevelInfo.String())
	assert.Equal(t, "WARN", LogLevelWarn.String())
	assert.Equal(t, "ERROR", LogLevelError.String())
	assert.Equal(t, "UNKNOWN", LogLevel(99).String())
}

func TestNewLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf, Component: "kernel"})

	logger.Info("dispatch ready")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "dispatch ready", entry["msg"])
	assert.Equal(t, "kernel", entry["component"])
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LogLevelWarn, Format: "text", Output: &buf})

	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
}

func TestKernelLogger_WithContextAndComponent(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf})

	child := base.WithComponent("memory").WithContext("session", "abc")
	child.Info("stored entry")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "memory", entry["component"])
	assert.Equal(t, "abc", entry["session"])

	// The parent is untouched. Unmarshal into a fresh map: decoding into a
	// non-nil map keeps existing entries, which would leak the child's keys.
	buf.Reset()
	base.Info("plain")
	entry = map[string]any{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.NotContains(t, entry, "session")
}

func TestKernelLogger_PrintfFormatting(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "text", Output: &buf})

	logger.Info("processed %d items", 7)
	assert.Contains(t, buf.String(), "processed 7 items")
}

func TestKernelLogger_LogPrimitiveCall(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf})

	logger.LogPrimitiveCall("attention", 5*time.Millisecond, false, errors.New("boom"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Primitive call failed", entry["msg"])
	assert.Equal(t, "attention", entry["primitive"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, false, entry["success"])
}

func TestKernelLogger_LogMemoryOp(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf})

	logger.LogMemoryOp("retrieve", "stm", 3, time.Millisecond)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Memory operation completed", entry["msg"])
	assert.Equal(t, "retrieve", entry["operation"])
	assert.InDelta(t, 3, entry["entry_count"], 1e-9)
}

func TestKernelLogger_StartTimer(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "text", Output: &buf})

	stop := logger.StartTimer("compress")
	stop()
	out := buf.String()
	assert.Contains(t, out, "compress")
	assert.True(t, strings.Contains(out, "completed"))
}

func TestNoOpLogger(t *testing.T) {
	// Must not panic.
	l := NoOpLogger{}
	l.Debug("a")
	l.Info("b", 1)
	l.Warn("c")
	l.Error("d")
}
