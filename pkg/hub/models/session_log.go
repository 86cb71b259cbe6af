package models

import "time"

// Session event types recorded in the event log.
const (
	EventSessionCreated = "create"
	EventClientAttached = "attach-client"
	EventClientDetached = "detach-client"
	EventSessionRenamed = "rename"
	EventSessionMoved   = "move"
	EventSessionExited  = "exit"
	EventSessionKilled  = "terminate"
	EventSessionDeleted = "delete"
)

// SessionLog is one entry in the append-only per-session event stream.
// Details is an optional JSON payload. Deleted with its session.
type SessionLog struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	SessionID string    `gorm:"not null;index;size:36" json:"session_id"`
	EventType string    `gorm:"not null;size:50" json:"event_type"`
	Details   string    `gorm:"type:text" json:"details,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for SessionLog.
func (SessionLog) TableName() string {
	return "session_logs"
}
