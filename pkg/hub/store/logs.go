package store

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ptyhub/ptyhub/pkg/hub/models"
)

// ============================================
// SESSION EVENT LOG
// ============================================

// AppendSessionLog writes one entry to the session's event stream. Details
// may be empty or a JSON payload.
func (s *GORMStore) AppendSessionLog(ctx context.Context, sessionID, eventType, details string) error {
	return appendLog(s.db, ctx, sessionID, eventType, details)
}

// ListSessionLogs returns the event stream for a session, oldest first.
func (s *GORMStore) ListSessionLogs(ctx context.Context, sessionID string) ([]*models.SessionLog, error) {
	logs := make([]*models.SessionLog, 0)
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at asc, id asc").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// appendLog is the shared insert used directly and inside the transactions
// that pair a mutation with its event entry.
func appendLog(db *gorm.DB, ctx context.Context, sessionID, eventType, details string) error {
	return db.WithContext(ctx).Create(&models.SessionLog{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		EventType: eventType,
		Details:   details,
	}).Error
}

// jsonDetail renders a single key/value pair as the details payload.
func jsonDetail(key, value string) string {
	data, err := json.Marshal(map[string]string{key: value})
	if err != nil {
		return ""
	}
	return string(data)
}
