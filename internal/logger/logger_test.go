package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput redirects logger output to a buffer for testing.
// Returns the buffer and a cleanup function to restore original output.
func captureOutput() (*bytes.Buffer, func()) {
	buf := new(bytes.Buffer)

	mu.Lock()
	originalOutput := output
	originalColor := useColor
	output = buf
	useColor = false // Disable colors for easier testing
	mu.Unlock()

	reconfigure()

	cleanup := func() {
		mu.Lock()
		output = originalOutput
		useColor = originalColor
		mu.Unlock()
		reconfigure()
	}

	return buf, cleanup
}

func TestLevelFiltering(t *testing.T) {
	t.Run("DebugLevelShowsAllMessages", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("DEBUG")

		Debug("debug message")
		Info("info message")
		Warn("warn message")
		Error("error message")

		out := buf.String()
		assert.Contains(t, out, "debug message")
		assert.Contains(t, out, "info message")
		assert.Contains(t, out, "warn message")
		assert.Contains(t, out, "error message")
	})

	t.Run("InfoLevelFiltersDebug", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")

		Debug("debug message")
		Info("info message")

		out := buf.String()
		assert.NotContains(t, out, "debug message")
		assert.Contains(t, out, "info message")
	})

	t.Run("ErrorLevelShowsOnlyErrors", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("ERROR")

		Debug("debug message")
		Info("info message")
		Warn("warn message")
		Error("error message")

		out := buf.String()
		assert.NotContains(t, out, "debug message")
		assert.NotContains(t, out, "info message")
		assert.NotContains(t, out, "warn message")
		assert.Contains(t, out, "error message")
	})

	t.Run("InvalidLevelIgnored", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")
		SetLevel("BOGUS")

		Info("still info")
		assert.Contains(t, buf.String(), "still info")
	})
}

func TestStructuredFields(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")
	SetFormat("text")

	Info("session spawned", KeySessionID, "abc-123", KeyShell, "/bin/bash", KeyCols, 80)

	out := buf.String()
	assert.Contains(t, out, "session spawned")
	assert.Contains(t, out, "session_id=abc-123")
	assert.Contains(t, out, "shell=/bin/bash")
	assert.Contains(t, out, "cols=80")
}

func TestJSONFormat(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")
	SetFormat("json")
	defer SetFormat("text")

	Info("client attached", KeySessionID, "s1", KeyClientID, "c1")

	line := strings.TrimSpace(buf.String())
	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &record))

	assert.Equal(t, "client attached", record["msg"])
	assert.Equal(t, "s1", record[KeySessionID])
	assert.Equal(t, "c1", record[KeyClientID])
}

func TestContextFields(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")
	SetFormat("text")

	lc := NewLogContext("10.0.0.7")
	lc = lc.WithSession("sess-9").WithClient("cli-4").WithUser("alice")
	ctx := WithContext(context.Background(), lc)

	InfoCtx(ctx, "frame dispatched", KeyFrameType, "terminal.data")

	out := buf.String()
	assert.Contains(t, out, "session_id=sess-9")
	assert.Contains(t, out, "client_id=cli-4")
	assert.Contains(t, out, "user=alice")
	assert.Contains(t, out, "remote=10.0.0.7")
	assert.Contains(t, out, "frame_type=terminal.data")
}

func TestContextCloneIsIndependent(t *testing.T) {
	lc := NewLogContext("192.168.1.1")
	clone := lc.WithSession("other")

	assert.Empty(t, lc.SessionID)
	assert.Equal(t, "other", clone.SessionID)
	assert.Equal(t, lc.RemoteAddr, clone.RemoteAddr)
}

func TestFromContextMissing(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	assert.Nil(t, FromContext(nil)) //nolint:staticcheck
}

func TestInitFileOutput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.log")

	require.NoError(t, Init(Config{Level: "INFO", Format: "text", Output: path}))
	defer func() {
		// Restore stdout output for other tests
		mu.Lock()
		output = os.Stdout
		mu.Unlock()
		reconfigure()
	}()

	Info("written to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestFormatHelpers(t *testing.T) {
	assert.True(t, Err(nil).Equal(slog.Attr{}))

	attr := Err(errors.New("pty read failed"))
	assert.Equal(t, KeyError, attr.Key)
	assert.Equal(t, "pty read failed", attr.Value.String())

	d := Dims(120, 40)
	assert.Equal(t, "120x40", d.Value.String())
}
