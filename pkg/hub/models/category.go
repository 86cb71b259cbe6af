package models

import "time"

// Category is a named, ordered group of sessions. Owner-scoped so different
// principals keep independent sidebars.
type Category struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"not null;size:100" json:"name"`
	SortOrder int       `gorm:"not null;default:0" json:"sort_order"`
	Collapsed bool      `gorm:"not null;default:false" json:"collapsed"`
	OwnerID   string    `gorm:"size:255;index" json:"owner_id,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for Category.
func (Category) TableName() string {
	return "categories"
}
