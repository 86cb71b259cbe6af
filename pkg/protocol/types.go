package protocol

// Client-to-server frame types.
const (
	TypeAuth                = "auth"
	TypePing                = "ping"
	TypeSessionList         = "session.list"
	TypeSessionCreate       = "session.create"
	TypeSessionAttach       = "session.attach"
	TypeSessionDetach       = "session.detach"
	TypeSessionTerminate    = "session.terminate"
	TypeSessionDelete       = "session.delete"
	TypeSessionRename       = "session.rename"
	TypeSessionMove         = "session.move"
	TypeTerminalData        = "terminal.data"
	TypeTerminalResize      = "terminal.resize"
	TypeCategoryList        = "category.list"
	TypeCategoryCreate      = "category.create"
	TypeCategoryRename      = "category.rename"
	TypeCategoryDelete      = "category.delete"
	TypeCategoryReorder     = "category.reorder"
	TypeCategoryToggle      = "category.toggle"
	TypePreferencesGet      = "notification.preferences.get"
	TypePreferencesSet      = "notification.preferences.set"
	TypeNotificationDismiss = "notification.dismiss"
)

// Server-to-client frame types. TypeSessionList, TypeTerminalData and
// TypeCategoryList are reused for the corresponding replies.
const (
	TypeAuthSuccess        = "auth.success"
	TypeAuthFailure        = "auth.failure"
	TypePong               = "pong"
	TypeSessionCreated     = "session.created"
	TypeSessionAttached    = "session.attached"
	TypeSessionDetached    = "session.detached"
	TypeSessionTerminated  = "session.terminated"
	TypeSessionDeleted     = "session.deleted"
	TypeSessionRenamed     = "session.renamed"
	TypeSessionMoved       = "session.moved"
	TypeSessionError       = "session.error"
	TypeTerminalExit       = "terminal.exit"
	TypeCategoryCreated    = "category.created"
	TypeCategoryRenamed    = "category.renamed"
	TypeCategoryDeleted    = "category.deleted"
	TypeCategoryReordered  = "category.reordered"
	TypeCategoryToggled    = "category.toggled"
	TypePreferences        = "notification.preferences"
	TypePreferencesUpdated = "notification.preferences.updated"
	TypeNotification       = "notification"
	TypeError              = "error"
)

// Notification kinds accepted by the hook ingress and carried on
// notification frames.
const (
	KindNeedsInput = "needs-input"
	KindCompleted  = "completed"
)

// ValidNotificationKind reports whether kind is one of the accepted values.
func ValidNotificationKind(kind string) bool {
	return kind == KindNeedsInput || kind == KindCompleted
}

// CloseUnauthorized is the transport close code for a failed identity gate.
const CloseUnauthorized = 4001
