// Package store provides the hub persistence layer.
//
// It keeps the durable half of the data model: session records, categories,
// stored scrollback, the per-session event log and per-user notification
// preferences. Two backends are supported through GORM:
//   - SQLite (single-node, default)
//   - PostgreSQL
package store

import (
	"context"
	"time"

	"github.com/ptyhub/ptyhub/pkg/hub/models"
)

// Store is the hub persistence interface.
//
// Thread safety: implementations must be safe for concurrent use from
// multiple goroutines. Mutations that the data model pairs with an event-log
// entry write both rows in a single transaction.
type Store interface {
	// ============================================
	// SESSION OPERATIONS
	// ============================================

	// CreateSession inserts the session plus its create event.
	// The ID is generated if empty; the generated ID is returned.
	CreateSession(ctx context.Context, session *models.Session) (string, error)

	// GetSession returns a session by ID.
	// Returns models.ErrSessionNotFound if the session doesn't exist.
	GetSession(ctx context.Context, id string) (*models.Session, error)

	// ListSessions returns all sessions in display order.
	ListSessions(ctx context.Context) ([]*models.Session, error)

	// DeleteSession removes the session, its stored scrollback and its
	// event log in one transaction.
	// Returns models.ErrSessionNotFound if the session doesn't exist.
	DeleteSession(ctx context.Context, id string) error

	// RenameSession updates the display name plus its rename event.
	RenameSession(ctx context.Context, id, name string) error

	// MoveSession reassigns category and sort order plus its move event.
	// A nil categoryID uncategorizes the session.
	MoveSession(ctx context.Context, id string, categoryID *string, sortOrder int) error

	// UpdateSessionStatus transitions the status; terminated is final and
	// the store silently drops transitions away from it. A non-empty event
	// appends an event-log row carrying details in the same transaction.
	UpdateSessionStatus(ctx context.Context, id, status, event, details string) error

	// UpdateSessionDimensions persists a resize.
	UpdateSessionDimensions(ctx context.Context, id string, cols, rows int) error

	// TouchSession advances last_accessed_at and revives an idle session
	// to active; stale times are ignored and terminated stays final.
	TouchSession(ctx context.Context, id string, t time.Time) error

	// CountActiveSessions counts non-terminated sessions for quota checks.
	CountActiveSessions(ctx context.Context) (int64, error)

	// NextSessionSortOrder returns max(sort_order)+1 within a category
	// (nil for the uncategorized group).
	NextSessionSortOrder(ctx context.Context, categoryID *string) (int, error)

	// ============================================
	// CATEGORY OPERATIONS
	// ============================================

	// CreateCategory inserts the category, assigning sort_order=max+1 when
	// unset. The ID is generated if empty; the generated ID is returned.
	CreateCategory(ctx context.Context, category *models.Category) (string, error)

	// GetCategory returns a category by ID.
	// Returns models.ErrCategoryNotFound if the category doesn't exist.
	GetCategory(ctx context.Context, id string) (*models.Category, error)

	// ListCategories returns all categories in display order.
	ListCategories(ctx context.Context) ([]*models.Category, error)

	// RenameCategory updates the category name.
	RenameCategory(ctx context.Context, id, name string) error

	// DeleteCategory removes the category and uncategorizes its sessions.
	DeleteCategory(ctx context.Context, id string) error

	// ReorderCategories rewrites sort_order to match the given ID order in
	// one transaction.
	ReorderCategories(ctx context.Context, orderedIDs []string) error

	// ToggleCategory persists the collapsed/expanded UI hint.
	ToggleCategory(ctx context.Context, id string, collapsed bool) error

	// NextCategorySortOrder returns max(sort_order)+1 across categories.
	NextCategorySortOrder(ctx context.Context) (int, error)

	// ============================================
	// SCROLLBACK
	// ============================================

	// SaveScrollback upserts the stored history blob for a session.
	SaveScrollback(ctx context.Context, sessionID, content string) error

	// GetScrollback returns the stored blob, or "" when none exists.
	GetScrollback(ctx context.Context, sessionID string) (string, error)

	// ============================================
	// SESSION EVENT LOG
	// ============================================

	// AppendSessionLog writes one entry to the session's event stream.
	AppendSessionLog(ctx context.Context, sessionID, eventType, details string) error

	// ListSessionLogs returns the event stream, oldest first.
	ListSessionLogs(ctx context.Context, sessionID string) ([]*models.SessionLog, error)

	// ============================================
	// NOTIFICATION PREFERENCES
	// ============================================

	// GetPreferences returns the saved preferences or all-enabled defaults.
	GetPreferences(ctx context.Context, userID string) (*models.NotificationPreferences, error)

	// UpsertPreferences saves the preferences for a principal.
	UpsertPreferences(ctx context.Context, prefs *models.NotificationPreferences) error

	// ============================================
	// HEALTH & LIFECYCLE
	// ============================================

	// Healthcheck pings the underlying database.
	Healthcheck(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
