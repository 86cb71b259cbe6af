package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for hub operations.
// These follow OpenTelemetry semantic conventions where applicable.
// Generic keys use standard prefixes, domain-specific keys use "session." / "ws.".
const (
	// ========================================================================
	// Client attributes
	// ========================================================================
	AttrClientIP   = "client.ip"
	AttrClientAddr = "client.address"
	AttrClientID   = "client.id"

	// ========================================================================
	// Session attributes
	// ========================================================================
	AttrSessionID       = "session.id"
	AttrSessionName     = "session.name"
	AttrSessionStatus   = "session.status"
	AttrSessionShell    = "session.shell"
	AttrSessionOwner    = "session.owner"
	AttrSessionCategory = "session.category"
	AttrSessionCols     = "session.cols"
	AttrSessionRows     = "session.rows"
	AttrExitCode        = "session.exit_code"

	// ========================================================================
	// WebSocket frame attributes
	// ========================================================================
	AttrFrameType = "ws.frame_type"
	AttrFrameID   = "ws.frame_id"
	AttrDirection = "ws.direction" // in, out
	AttrBytes     = "ws.bytes"

	// ========================================================================
	// User/Auth attributes
	// ========================================================================
	AttrUserID   = "user.id"
	AttrUsername = "user.name"
	AttrAuth     = "auth.method"

	// ========================================================================
	// Store attributes
	// ========================================================================
	AttrStoreDriver = "store.driver"
	AttrStoreTable  = "store.table"
)

// Span names for operations.
// Format: <component>.<operation>.
const (
	// Root span for WebSocket frame processing
	SpanWSFrame = "ws.frame"

	// Session lifecycle spans
	SpanSessionCreate    = "session.create"
	SpanSessionAttach    = "session.attach"
	SpanSessionDetach    = "session.detach"
	SpanSessionTerminate = "session.terminate"
	SpanSessionDelete    = "session.delete"
	SpanSessionResize    = "session.resize"
	SpanSessionReap      = "session.reap"

	// Store operations
	SpanStoreQuery  = "store.query"
	SpanStoreUpsert = "store.upsert"
	SpanStoreDelete = "store.delete"
)

// ClientIP returns an attribute for the client IP address
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// ClientAddr returns an attribute for the full client address
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// ClientID returns an attribute for the connection identifier
func ClientID(id string) attribute.KeyValue {
	return attribute.String(AttrClientID, id)
}

// SessionID returns an attribute for the session identifier
func SessionID(id string) attribute.KeyValue {
	return attribute.String(AttrSessionID, id)
}

// SessionName returns an attribute for the session display name
func SessionName(name string) attribute.KeyValue {
	return attribute.String(AttrSessionName, name)
}

// SessionStatus returns an attribute for the session lifecycle status
func SessionStatus(status string) attribute.KeyValue {
	return attribute.String(AttrSessionStatus, status)
}

// SessionShell returns an attribute for the shell command
func SessionShell(shell string) attribute.KeyValue {
	return attribute.String(AttrSessionShell, shell)
}

// SessionOwner returns an attribute for the owning user
func SessionOwner(owner string) attribute.KeyValue {
	return attribute.String(AttrSessionOwner, owner)
}

// ExitCode returns an attribute for the process exit code
func ExitCode(code int) attribute.KeyValue {
	return attribute.Int(AttrExitCode, code)
}

// FrameType returns an attribute for the protocol frame type
func FrameType(t string) attribute.KeyValue {
	return attribute.String(AttrFrameType, t)
}

// FrameID returns an attribute for the frame correlation id
func FrameID(id string) attribute.KeyValue {
	return attribute.String(AttrFrameID, id)
}

// Direction returns an attribute for the frame direction
func Direction(dir string) attribute.KeyValue {
	return attribute.String(AttrDirection, dir)
}

// Bytes returns an attribute for a payload byte count
func Bytes(n int) attribute.KeyValue {
	return attribute.Int(AttrBytes, n)
}

// UserID returns an attribute for the user identifier
func UserID(id string) attribute.KeyValue {
	return attribute.String(AttrUserID, id)
}

// Username returns an attribute for the username
func Username(name string) attribute.KeyValue {
	return attribute.String(AttrUsername, name)
}

// AuthMethod returns an attribute for the authentication method
func AuthMethod(method string) attribute.KeyValue {
	return attribute.String(AttrAuth, method)
}

// StoreDriver returns an attribute for the database driver name
func StoreDriver(driver string) attribute.KeyValue {
	return attribute.String(AttrStoreDriver, driver)
}

// StartFrameSpan starts a span for an inbound WebSocket frame.
// This is a convenience function that sets common attributes.
func StartFrameSpan(ctx context.Context, frameType, frameID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		FrameType(frameType),
	}
	if frameID != "" {
		allAttrs = append(allAttrs, FrameID(frameID))
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, SpanWSFrame, trace.WithAttributes(allAttrs...))
}

// StartSessionSpan starts a span for a session lifecycle operation.
func StartSessionSpan(ctx context.Context, operation, sessionID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		SessionID(sessionID),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "session."+operation, trace.WithAttributes(allAttrs...))
}

// StartStoreSpan starts a span for a metadata store operation.
func StartStoreSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "store."+operation, trace.WithAttributes(attrs...))
}
