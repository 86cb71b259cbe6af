package models

import "time"

// Session status values. A terminated session never transitions back; the
// store enforces this with a status predicate on every status update.
const (
	SessionStatusActive     = "active"
	SessionStatusIdle       = "idle"
	SessionStatusTerminated = "terminated"
)

// Terminal dimension bounds accepted for sessions and resize requests.
const (
	MinDimension = 1
	MaxDimension = 500
)

// Input limits applied before anything touches a PTY or the store.
const (
	MaxSessionNameLength = 100
	MaxCwdLength         = 500
)

// Session is the durable record of a terminal session. The live PTY, ring
// and subscriber state are held by the session manager; this row is what
// survives a restart.
type Session struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	Name           string    `gorm:"not null;size:100" json:"name"`
	Shell          string    `gorm:"not null;size:255" json:"shell"`
	Cwd            string    `gorm:"size:500" json:"cwd"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	LastAccessedAt time.Time `gorm:"not null" json:"last_accessed_at"`
	OwnerID        string    `gorm:"size:255;index" json:"owner_id,omitempty"`
	Status         string    `gorm:"not null;default:active;size:20;index" json:"status"`
	Cols           int       `gorm:"not null;default:80" json:"cols"`
	Rows           int       `gorm:"not null;default:24" json:"rows"`

	// ExternalMuxHandle names the tmux session hosting the shell, when the
	// multiplexer persistence mode is in effect. Empty in fallback mode.
	ExternalMuxHandle string `gorm:"size:255" json:"external_mux_handle,omitempty"`

	// CategoryID is nil for uncategorized sessions. Deleting a category
	// nulls this out rather than cascading into sessions.
	CategoryID *string `gorm:"size:36;index" json:"category_id"`
	SortOrder  int     `gorm:"not null;default:0" json:"sort_order"`
}

// TableName returns the table name for Session.
func (Session) TableName() string {
	return "sessions"
}

// Terminated reports whether the session has reached its final status.
func (s *Session) Terminated() bool {
	return s.Status == SessionStatusTerminated
}
