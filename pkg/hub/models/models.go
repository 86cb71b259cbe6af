// Package models defines the durable records of the hub and the sentinel
// errors shared by the store and session layers.
package models

// AllModels returns all GORM models for auto-migration.
func AllModels() []any {
	return []any{
		&Session{},
		&Category{},
		&Scrollback{},
		&SessionLog{},
		&NotificationPreferences{},
		&Migration{},
	}
}
