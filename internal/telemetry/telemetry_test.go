package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "ptyhub", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Enabled = false

	shutdown, err := Init(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	// Should be able to call shutdown without error
	err = shutdown(ctx)
	assert.NoError(t, err)

	// Should not be enabled
	assert.False(t, IsEnabled())
}

func TestTracerReturnsNoOp(t *testing.T) {
	// Reset state
	tracer = nil
	enabled = false

	// Without initialization, should return no-op tracer
	tr := Tracer()
	require.NotNil(t, tr)
}

func TestStartSpan(t *testing.T) {
	ctx := context.Background()

	// Even without initialization, StartSpan should work (no-op)
	newCtx, span := StartSpan(ctx, "test.operation")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)

	// Should be able to end the span
	span.End()
}

func TestSpanFromContext(t *testing.T) {
	ctx := context.Background()

	// Should return a span even without active span
	span := SpanFromContext(ctx)
	require.NotNil(t, span)
}

func TestAddEvent(t *testing.T) {
	ctx := context.Background()

	// Should not panic with no active span
	require.NotPanics(t, func() {
		AddEvent(ctx, "test.event")
	})
}

func TestRecordError(t *testing.T) {
	ctx := context.Background()

	// Should not panic with nil error
	require.NotPanics(t, func() {
		RecordError(ctx, nil)
	})

	// Should not panic with error
	require.NotPanics(t, func() {
		RecordError(ctx, errors.New("test error"))
	})
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Ok, "success")
	})

	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Error, "failed")
	})
}

func TestSetAttributes(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetAttributes(ctx, ClientIP("192.168.1.1"))
	})
}

func TestTraceID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	traceID := TraceID(ctx)
	assert.Equal(t, "", traceID)
}

func TestSpanID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	spanID := SpanID(ctx)
	assert.Equal(t, "", spanID)
}

func TestAttributeHelpers(t *testing.T) {
	t.Run("ClientIP", func(t *testing.T) {
		attr := ClientIP("192.168.1.100")
		assert.Equal(t, AttrClientIP, string(attr.Key))
		assert.Equal(t, "192.168.1.100", attr.Value.AsString())
	})

	t.Run("ClientAddr", func(t *testing.T) {
		attr := ClientAddr("192.168.1.100:12345")
		assert.Equal(t, AttrClientAddr, string(attr.Key))
		assert.Equal(t, "192.168.1.100:12345", attr.Value.AsString())
	})

	t.Run("SessionID", func(t *testing.T) {
		attr := SessionID("sess-123")
		assert.Equal(t, AttrSessionID, string(attr.Key))
		assert.Equal(t, "sess-123", attr.Value.AsString())
	})

	t.Run("SessionName", func(t *testing.T) {
		attr := SessionName("build watcher")
		assert.Equal(t, AttrSessionName, string(attr.Key))
		assert.Equal(t, "build watcher", attr.Value.AsString())
	})

	t.Run("SessionStatus", func(t *testing.T) {
		attr := SessionStatus("running")
		assert.Equal(t, AttrSessionStatus, string(attr.Key))
		assert.Equal(t, "running", attr.Value.AsString())
	})

	t.Run("SessionShell", func(t *testing.T) {
		attr := SessionShell("/bin/zsh")
		assert.Equal(t, AttrSessionShell, string(attr.Key))
		assert.Equal(t, "/bin/zsh", attr.Value.AsString())
	})

	t.Run("ExitCode", func(t *testing.T) {
		attr := ExitCode(137)
		assert.Equal(t, AttrExitCode, string(attr.Key))
		assert.Equal(t, int64(137), attr.Value.AsInt64())
	})

	t.Run("FrameType", func(t *testing.T) {
		attr := FrameType("session.create")
		assert.Equal(t, AttrFrameType, string(attr.Key))
		assert.Equal(t, "session.create", attr.Value.AsString())
	})

	t.Run("FrameID", func(t *testing.T) {
		attr := FrameID("req-42")
		assert.Equal(t, AttrFrameID, string(attr.Key))
		assert.Equal(t, "req-42", attr.Value.AsString())
	})

	t.Run("Direction", func(t *testing.T) {
		attr := Direction("in")
		assert.Equal(t, AttrDirection, string(attr.Key))
		assert.Equal(t, "in", attr.Value.AsString())
	})

	t.Run("Bytes", func(t *testing.T) {
		attr := Bytes(4096)
		assert.Equal(t, AttrBytes, string(attr.Key))
		assert.Equal(t, int64(4096), attr.Value.AsInt64())
	})

	t.Run("UserID", func(t *testing.T) {
		attr := UserID("user-1")
		assert.Equal(t, AttrUserID, string(attr.Key))
		assert.Equal(t, "user-1", attr.Value.AsString())
	})

	t.Run("Username", func(t *testing.T) {
		attr := Username("alice")
		assert.Equal(t, AttrUsername, string(attr.Key))
		assert.Equal(t, "alice", attr.Value.AsString())
	})

	t.Run("AuthMethod", func(t *testing.T) {
		attr := AuthMethod("token")
		assert.Equal(t, AttrAuth, string(attr.Key))
		assert.Equal(t, "token", attr.Value.AsString())
	})

	t.Run("StoreDriver", func(t *testing.T) {
		attr := StoreDriver("sqlite")
		assert.Equal(t, AttrStoreDriver, string(attr.Key))
		assert.Equal(t, "sqlite", attr.Value.AsString())
	})
}

func TestStartFrameSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartFrameSpan(ctx, "session.create", "req-1")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// Broadcast frames carry no correlation id
	newCtx2, span2 := StartFrameSpan(ctx, "terminal.data", "")
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()

	// With additional attributes
	newCtx3, span3 := StartFrameSpan(ctx, "terminal.data", "req-2", Direction("in"), Bytes(4096))
	require.NotNil(t, newCtx3)
	require.NotNil(t, span3)
	span3.End()
}

func TestStartSessionSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartSessionSpan(ctx, "create", "sess-123")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// With additional attributes
	newCtx2, span2 := StartSessionSpan(ctx, "terminate", "sess-456", ExitCode(0))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartStoreSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartStoreSpan(ctx, "query")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// With additional attributes
	newCtx2, span2 := StartStoreSpan(ctx, "upsert", StoreDriver("postgres"))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}
