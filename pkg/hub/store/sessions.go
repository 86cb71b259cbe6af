package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ptyhub/ptyhub/pkg/hub/models"
)

// ============================================
// SESSION OPERATIONS
// ============================================

// CreateSession inserts the session and its create event in one transaction.
// The ID is generated if empty; the generated ID is returned.
func (s *GORMStore) CreateSession(ctx context.Context, session *models.Session) (string, error) {
	now := time.Now()
	session.CreatedAt = now
	if session.LastAccessedAt.IsZero() {
		session.LastAccessedAt = now
	}
	if session.Status == "" {
		session.Status = models.SessionStatusActive
	}

	var id string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := createWithID(tx, ctx, session,
			func(m *models.Session, id string) { m.ID = id },
			session.ID, models.ErrDuplicateSession)
		if err != nil {
			return err
		}
		id = created
		return appendLog(tx, ctx, id, models.EventSessionCreated, "")
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetSession returns a session by ID.
// Returns models.ErrSessionNotFound if the session doesn't exist.
func (s *GORMStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	return getByField[models.Session](s.db, ctx, "id", id, models.ErrSessionNotFound)
}

// ListSessions returns all sessions ordered for display: by category sort
// order within each category, oldest first among ties.
func (s *GORMStore) ListSessions(ctx context.Context) ([]*models.Session, error) {
	return listOrdered[models.Session](s.db, ctx, "sort_order asc, created_at asc")
}

// DeleteSession removes the session and, in the same transaction, its stored
// scrollback and its entire event log.
// Returns models.ErrSessionNotFound if the session doesn't exist.
func (s *GORMStore) DeleteSession(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", id).Delete(&models.Scrollback{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", id).Delete(&models.SessionLog{}).Error; err != nil {
			return err
		}
		return deleteByField[models.Session](tx, ctx, "id", id, models.ErrSessionNotFound)
	})
}

// RenameSession updates the display name and logs the rename in one
// transaction. Returns models.ErrSessionNotFound if the session doesn't exist.
func (s *GORMStore) RenameSession(ctx context.Context, id, name string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Session{}).Where("id = ?", id).Update("name", name)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return models.ErrSessionNotFound
		}
		return appendLog(tx, ctx, id, models.EventSessionRenamed, jsonDetail("name", name))
	})
}

// MoveSession reassigns the session's category and sort order and logs the
// move in one transaction. A nil categoryID uncategorizes the session.
func (s *GORMStore) MoveSession(ctx context.Context, id string, categoryID *string, sortOrder int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Session{}).Where("id = ?", id).Updates(map[string]any{
			"category_id": categoryID,
			"sort_order":  sortOrder,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return models.ErrSessionNotFound
		}
		target := ""
		if categoryID != nil {
			target = *categoryID
		}
		return appendLog(tx, ctx, id, models.EventSessionMoved, jsonDetail("category_id", target))
	})
}

// UpdateSessionStatus transitions the session status, refusing to resurrect
// a terminated session. When event is non-empty, an event-log row carrying
// details is written in the same transaction. A guarded-away transition is
// not an error: the update is simply dropped, which keeps status writes
// idempotent across races with terminate.
func (s *GORMStore) UpdateSessionStatus(ctx context.Context, id, status, event, details string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Session{}).
			Where("id = ? AND status <> ?", id, models.SessionStatusTerminated).
			Update("status", status)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// Distinguish "already terminated" (drop silently) from unknown.
			var count int64
			if err := tx.Model(&models.Session{}).Where("id = ?", id).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return models.ErrSessionNotFound
			}
			return nil
		}
		if event == "" {
			return nil
		}
		return appendLog(tx, ctx, id, event, details)
	})
}

// UpdateSessionDimensions persists a resize.
// Returns models.ErrSessionNotFound if the session doesn't exist.
func (s *GORMStore) UpdateSessionDimensions(ctx context.Context, id string, cols, rows int) error {
	result := s.db.WithContext(ctx).Model(&models.Session{}).Where("id = ?", id).Updates(map[string]any{
		"cols": cols,
		"rows": rows,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrSessionNotFound
	}
	return nil
}

// TouchSession advances last_accessed_at and flips an idle session back to
// active, since a touch is proof of activity. Timestamps only move forward,
// so a late debounced touch cannot rewind a newer one. Terminated sessions
// stay terminated.
func (s *GORMStore) TouchSession(ctx context.Context, id string, t time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Session{}).
			Where("id = ? AND last_accessed_at < ?", id, t).
			Update("last_accessed_at", t).Error; err != nil {
			return err
		}
		return tx.Model(&models.Session{}).
			Where("id = ? AND status = ?", id, models.SessionStatusIdle).
			Update("status", models.SessionStatusActive).Error
	})
}

// CountActiveSessions counts non-terminated sessions, the number the session
// quota is checked against.
func (s *GORMStore) CountActiveSessions(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("status <> ?", models.SessionStatusTerminated).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// NextSessionSortOrder returns max(sort_order)+1 among the sessions of the
// given category (nil for the uncategorized group).
func (s *GORMStore) NextSessionSortOrder(ctx context.Context, categoryID *string) (int, error) {
	q := s.db.WithContext(ctx).Model(&models.Session{})
	if categoryID == nil {
		q = q.Where("category_id IS NULL")
	} else {
		q = q.Where("category_id = ?", *categoryID)
	}

	var max *int
	if err := q.Select("MAX(sort_order)").Scan(&max).Error; err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max + 1, nil
}
