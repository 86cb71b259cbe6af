package models

import "time"

// Migration records one applied data migration. Schema shape itself comes
// from AutoMigrate; numbered migrations cover data fixes that AutoMigrate
// cannot express. Each is applied once, by name.
type Migration struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null;size:255" json:"name"`
	AppliedAt time.Time `gorm:"autoCreateTime" json:"applied_at"`
}

// TableName returns the table name for Migration.
func (Migration) TableName() string {
	return "migrations"
}
