package models

import "time"

// Scrollback is the stored history blob for one session, written when the
// server runs without an external multiplexer. At most one row per session;
// saves upsert in place. Deleted with its session.
type Scrollback struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	SessionID string    `gorm:"not null;uniqueIndex;size:36" json:"session_id"`
	Content   string    `gorm:"type:text" json:"content"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for Scrollback.
func (Scrollback) TableName() string {
	return "scrollback"
}
