package models

import "time"

// NotificationPreferences is the per-principal notification record. Every
// flag defaults to enabled; principals with no row get DefaultPreferences.
// The bool columns carry no DB-side default so gorm always writes the
// struct values; a column default would win over false on insert.
type NotificationPreferences struct {
	UserID            string    `gorm:"primaryKey;size:255" json:"user_id"`
	BrowserEnabled    bool      `gorm:"not null" json:"browser_enabled"`
	VisualEnabled     bool      `gorm:"not null" json:"visual_enabled"`
	NotifyOnInput     bool      `gorm:"not null" json:"notify_on_input"`
	NotifyOnCompleted bool      `gorm:"not null" json:"notify_on_completed"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for NotificationPreferences.
func (NotificationPreferences) TableName() string {
	return "notification_preferences"
}

// DefaultPreferences returns the all-enabled record used for principals
// that have never saved preferences.
func DefaultPreferences(userID string) *NotificationPreferences {
	return &NotificationPreferences{
		UserID:            userID,
		BrowserEnabled:    true,
		VisualEnabled:     true,
		NotifyOnInput:     true,
		NotifyOnCompleted: true,
	}
}

// AllowsKind reports whether the per-kind flag permits a notification of
// the given kind ("needs-input" or "completed").
func (p *NotificationPreferences) AllowsKind(kind string) bool {
	switch kind {
	case "needs-input":
		return p.NotifyOnInput
	case "completed":
		return p.NotifyOnCompleted
	default:
		return false
	}
}
