package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/ptyhub/ptyhub/pkg/hub/models"
)

// ============================================
// SCROLLBACK OPERATIONS
// ============================================

// SaveScrollback upserts the stored history blob for a session. Each session
// keeps at most one row; a later save replaces the content in place.
func (s *GORMStore) SaveScrollback(ctx context.Context, sessionID, content string) error {
	row := &models.Scrollback{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Content:   content,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.Assignments(map[string]any{"content": content}),
	}).Create(row).Error
}

// GetScrollback returns the stored history blob for a session, or the empty
// string when none was ever saved. Absence is not an error: sessions running
// under the external multiplexer never store scrollback.
func (s *GORMStore) GetScrollback(ctx context.Context, sessionID string) (string, error) {
	row, err := getByField[models.Scrollback](s.db, ctx, "session_id", sessionID, models.ErrSessionNotFound)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			return "", nil
		}
		return "", err
	}
	return row.Content, nil
}
