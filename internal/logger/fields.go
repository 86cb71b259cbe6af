package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so logs can be
// aggregated and queried by session, client, or user.
const (
	// Distributed tracing
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// Session & client identification
	KeySessionID  = "session_id" // Terminal session ID
	KeyClientID   = "client_id"  // WebSocket client ID
	KeyUser       = "user"       // Resolved principal login name
	KeyRemoteAddr = "remote"     // Client remote address
	KeyRequestID  = "request_id" // HTTP middleware request ID

	// Terminal & protocol
	KeyFrameType = "frame_type" // Protocol frame type (session.create, terminal.data, ...)
	KeyMessageID = "message_id" // Frame correlation ID
	KeyShell     = "shell"      // Shell path of a session
	KeyCwd       = "cwd"        // Working directory of a session
	KeyCols      = "cols"       // Terminal columns
	KeyRows      = "rows"       // Terminal rows
	KeyExitCode  = "exit_code"  // Child process exit code
	KeyMuxHandle = "mux_handle" // External multiplexer session name
	KeyKind      = "kind"       // Notification kind
	KeyCategory  = "category"   // Category ID

	// Operation metadata
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyBytes      = "bytes"       // Byte count for PTY I/O
	KeyCount      = "count"       // Generic count (sessions, clients, rows)
	KeyPath       = "path"        // Filesystem path (config, database, logs)
	KeyEvent      = "event"       // Session event log type
)

// Err returns a slog attribute for an error, handling nil gracefully.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Session returns a slog attribute for a session ID.
func Session(id string) slog.Attr {
	return slog.String(KeySessionID, id)
}

// Client returns a slog attribute for a client ID.
func Client(id string) slog.Attr {
	return slog.String(KeyClientID, id)
}

// Dims formats terminal dimensions for logging.
func Dims(cols, rows int) slog.Attr {
	return slog.String("dims", fmt.Sprintf("%dx%d", cols, rows))
}
