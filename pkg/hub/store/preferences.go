package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ptyhub/ptyhub/pkg/hub/models"
)

// ============================================
// NOTIFICATION PREFERENCES
// ============================================

// GetPreferences returns the notification preferences for a principal.
// Principals without a saved row get the all-enabled defaults; absence is
// not an error.
func (s *GORMStore) GetPreferences(ctx context.Context, userID string) (*models.NotificationPreferences, error) {
	var prefs models.NotificationPreferences
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&prefs).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.DefaultPreferences(userID), nil
		}
		return nil, err
	}
	return &prefs, nil
}

// UpsertPreferences saves the preferences, replacing any existing row for
// the principal.
func (s *GORMStore) UpsertPreferences(ctx context.Context, prefs *models.NotificationPreferences) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"browser_enabled", "visual_enabled",
			"notify_on_input", "notify_on_completed", "updated_at",
		}),
	}).Create(prefs).Error
}
