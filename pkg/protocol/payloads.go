package protocol

import "time"

// Client request payloads. Fields are optional unless the dispatcher's
// validation says otherwise; zero values mean "not provided".

type AuthPayload struct {
	Token string `json:"token,omitempty"`
}

type SessionCreatePayload struct {
	Name       string            `json:"name,omitempty"`
	Shell      string            `json:"shell,omitempty"`
	Cwd        string            `json:"cwd,omitempty"`
	Cols       int               `json:"cols,omitempty"`
	Rows       int               `json:"rows,omitempty"`
	CategoryID string            `json:"categoryId,omitempty"`
	Env        map[string]string `json:"env,omitempty"`
}

type SessionAttachPayload struct {
	SessionID string `json:"sessionId"`
}

type SessionTerminatePayload struct {
	SessionID string `json:"sessionId"`
}

type SessionDeletePayload struct {
	SessionID string `json:"sessionId"`
}

type SessionRenamePayload struct {
	SessionID string `json:"sessionId"`
	Name      string `json:"name"`
}

// SessionMovePayload moves a session into a category. A null or absent
// categoryId makes the session uncategorized.
type SessionMovePayload struct {
	SessionID  string  `json:"sessionId"`
	CategoryID *string `json:"categoryId"`
}

type TerminalDataPayload struct {
	SessionID string `json:"sessionId"`
	Data      string `json:"data"`
}

type TerminalResizePayload struct {
	SessionID string `json:"sessionId"`
	Cols      int    `json:"cols"`
	Rows      int    `json:"rows"`
}

type CategoryCreatePayload struct {
	Name string `json:"name"`
}

type CategoryRenamePayload struct {
	CategoryID string `json:"categoryId"`
	Name       string `json:"name"`
}

type CategoryDeletePayload struct {
	CategoryID string `json:"categoryId"`
}

// CategoryReorderPayload carries category ids in their new display order.
type CategoryReorderPayload struct {
	Order []string `json:"order"`
}

type CategoryTogglePayload struct {
	CategoryID string `json:"categoryId"`
	Collapsed  bool   `json:"collapsed"`
}

type PreferencesSetPayload struct {
	BrowserEnabled    bool `json:"browserEnabled"`
	VisualEnabled     bool `json:"visualEnabled"`
	NotifyOnInput     bool `json:"notifyOnInput"`
	NotifyOnCompleted bool `json:"notifyOnCompleted"`
}

type NotificationDismissPayload struct {
	SessionID string `json:"sessionId"`
}

// Server payloads and shared wire records.

// SessionInfo is the session record as clients see it. Attachable reports
// whether a live in-memory session backs the durable row right now.
type SessionInfo struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Shell          string    `json:"shell"`
	Cwd            string    `json:"cwd"`
	Status         string    `json:"status"`
	Cols           int       `json:"cols"`
	Rows           int       `json:"rows"`
	CategoryID     *string   `json:"categoryId"`
	SortOrder      int       `json:"sortOrder"`
	Attachable     bool      `json:"attachable"`
	CreatedAt      time.Time `json:"createdAt"`
	LastAccessedAt time.Time `json:"lastAccessedAt"`

	// Notification is the pending badge for the session, if any, so
	// reconnecting clients restore badges from a single list reply.
	Notification *NotificationPayload `json:"notification,omitempty"`
}

type CategoryInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SortOrder int       `json:"sortOrder"`
	Collapsed bool      `json:"collapsed"`
	CreatedAt time.Time `json:"createdAt"`
}

type PreferencesInfo struct {
	BrowserEnabled    bool `json:"browserEnabled"`
	VisualEnabled     bool `json:"visualEnabled"`
	NotifyOnInput     bool `json:"notifyOnInput"`
	NotifyOnCompleted bool `json:"notifyOnCompleted"`
}

type AuthSuccessPayload struct {
	ClientID    string `json:"clientId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type SessionListPayload struct {
	Sessions []SessionInfo `json:"sessions"`
}

// SessionAttachedPayload carries the session record plus the joined
// scrollback string sent on every attach.
type SessionAttachedPayload struct {
	Session    SessionInfo `json:"session"`
	Scrollback string      `json:"scrollback"`
}

type SessionDetachedPayload struct {
	SessionID string `json:"sessionId"`
}

type SessionRefPayload struct {
	SessionID string `json:"sessionId"`
}

type TerminalExitPayload struct {
	SessionID string `json:"sessionId"`
	ExitCode  int    `json:"exitCode"`
}

type CategoryListPayload struct {
	Categories []CategoryInfo `json:"categories"`
}

type NotificationPayload struct {
	SessionID string    `json:"sessionId"`
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorPayload is carried on error, session.error and auth.failure frames.
type ErrorPayload struct {
	Message string `json:"message"`
}
