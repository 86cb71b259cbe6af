package ws

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/ptyhub/ptyhub/internal/logger"
	"github.com/ptyhub/ptyhub/pkg/hub/models"
	"github.com/ptyhub/ptyhub/pkg/identity"
	"github.com/ptyhub/ptyhub/pkg/protocol"
	"github.com/ptyhub/ptyhub/pkg/session"
)

// frameTimeout bounds the store work done for a single client frame.
const frameTimeout = 30 * time.Second

// handleFrame processes one inbound frame: rate limit, decode, dispatch.
// Every request that passes decoding gets exactly one reply; validation
// failures reply with an error frame carrying the correlation id.
func (c *Conn) handleFrame(data []byte) {
	if !c.h.limiter.Allow(c.id) {
		c.h.metrics.RecordRateLimited()
		// Best-effort id echo: the frame may not even parse, but when it
		// does the client can correlate the rejection.
		var probe struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(data, &probe)
		c.sendError(protocol.TypeError, probe.ID, "Rate limit exceeded")
		return
	}

	f, err := protocol.Decode(data)
	if err != nil {
		c.sendError(protocol.TypeError, "", "Invalid message format")
		return
	}
	c.h.metrics.RecordFrame(f.Type, "in")

	ctx, cancel := context.WithTimeout(context.Background(), frameTimeout)
	defer cancel()

	switch f.Type {
	case protocol.TypeAuth:
		c.handleAuth(ctx, f)
	case protocol.TypePing:
		c.sendReply(protocol.TypePong, f.ID, nil)
	case protocol.TypeSessionList:
		c.handleSessionList(ctx, f)
	case protocol.TypeSessionCreate:
		c.handleSessionCreate(ctx, f)
	case protocol.TypeSessionAttach:
		c.handleSessionAttach(ctx, f)
	case protocol.TypeSessionDetach:
		c.handleSessionDetach(ctx, f)
	case protocol.TypeSessionTerminate:
		c.handleSessionTerminate(ctx, f)
	case protocol.TypeSessionDelete:
		c.handleSessionDelete(ctx, f)
	case protocol.TypeSessionRename:
		c.handleSessionRename(ctx, f)
	case protocol.TypeSessionMove:
		c.handleSessionMove(ctx, f)
	case protocol.TypeTerminalData:
		c.handleTerminalData(f)
	case protocol.TypeTerminalResize:
		c.handleTerminalResize(ctx, f)
	case protocol.TypeCategoryList:
		c.handleCategoryList(ctx, f)
	case protocol.TypeCategoryCreate:
		c.handleCategoryCreate(ctx, f)
	case protocol.TypeCategoryRename:
		c.handleCategoryRename(ctx, f)
	case protocol.TypeCategoryDelete:
		c.handleCategoryDelete(ctx, f)
	case protocol.TypeCategoryReorder:
		c.handleCategoryReorder(ctx, f)
	case protocol.TypeCategoryToggle:
		c.handleCategoryToggle(ctx, f)
	case protocol.TypePreferencesGet:
		c.handlePreferencesGet(ctx, f)
	case protocol.TypePreferencesSet:
		c.handlePreferencesSet(ctx, f)
	case protocol.TypeNotificationDismiss:
		c.handleNotificationDismiss(f)
	default:
		c.sendError(protocol.TypeError, f.ID, "Unknown message type: "+f.Type)
	}
}

// handleAuth re-resolves the principal with a client-supplied token. A
// failed re-auth closes the connection the same way a failed upgrade gate
// would.
func (c *Conn) handleAuth(ctx context.Context, f *protocol.Frame) {
	var p protocol.AuthPayload
	if err := f.DecodePayload(&p); err != nil {
		c.sendError(protocol.TypeError, f.ID, "Invalid auth payload")
		return
	}

	principal, err := c.h.resolver.Resolve(ctx, identity.Request{
		RemoteAddr: c.remoteAddr,
		Token:      p.Token,
	})
	if err != nil {
		c.sendError(protocol.TypeAuthFailure, f.ID, "Authentication failed")
		c.closeWithCode(protocol.CloseUnauthorized)
		return
	}

	c.setPrincipal(principal)
	c.sendReply(protocol.TypeAuthSuccess, f.ID, protocol.AuthSuccessPayload{
		ClientID:    c.id,
		UserID:      principal.UserID,
		DisplayName: principal.DisplayName,
	})
}

func (c *Conn) handleSessionList(ctx context.Context, f *protocol.Frame) {
	infos, err := c.h.manager.List(ctx)
	if err != nil {
		c.sendError(protocol.TypeSessionError, f.ID, "Failed to list sessions")
		return
	}

	sessions := make([]protocol.SessionInfo, 0, len(infos))
	for _, info := range infos {
		si := toSessionInfo(info)
		if n, ok := c.h.bus.Latest(info.ID); ok {
			si.Notification = &protocol.NotificationPayload{
				SessionID: n.SessionID,
				Kind:      n.Kind,
				Timestamp: n.Timestamp,
			}
		}
		sessions = append(sessions, si)
	}
	c.sendReply(protocol.TypeSessionList, f.ID, protocol.SessionListPayload{Sessions: sessions})
}

// handleSessionCreate creates the session, then switches this connection
// onto it: detach from any current session first, attach to the new one
// after. The ordering is what keeps the old data subscription from leaking.
func (c *Conn) handleSessionCreate(ctx context.Context, f *protocol.Frame) {
	var p protocol.SessionCreatePayload
	if err := f.DecodePayload(&p); err != nil {
		c.sendError(protocol.TypeSessionError, f.ID, "Invalid create payload")
		return
	}

	record, err := c.h.manager.Create(ctx, session.CreateOptions{
		Name:    p.Name,
		Shell:   p.Shell,
		Cwd:     p.Cwd,
		Cols:    p.Cols,
		Rows:    p.Rows,
		OwnerID: c.Principal().UserID,
		Env:     p.Env,
	})
	if err != nil {
		c.sendError(protocol.TypeSessionError, f.ID, createErrorMessage(err))
		return
	}
	c.h.metrics.SetSessionsActive(c.h.manager.LiveCount())

	info := &session.Info{Session: *record, Attachable: true}
	c.sendReply(protocol.TypeSessionCreated, f.ID, toSessionInfo(info))
	c.h.broadcast(protocol.TypeSessionCreated, toSessionInfo(info), c.id)

	// Auto-attach. The session is brand new, so its scrollback is empty.
	if _, _, err := c.performAttach(ctx, record.ID); err != nil {
		logger.Warn("auto-attach after create failed",
			logger.KeyClientID, c.id,
			logger.KeySessionID, record.ID,
			logger.KeyError, err)
		return
	}
	c.sendEvent(protocol.TypeSessionAttached, protocol.SessionAttachedPayload{
		Session:    toSessionInfo(info),
		Scrollback: "",
	})
}

func (c *Conn) handleSessionAttach(ctx context.Context, f *protocol.Frame) {
	var p protocol.SessionAttachPayload
	if err := f.DecodePayload(&p); err != nil || p.SessionID == "" {
		c.sendError(protocol.TypeSessionError, f.ID, "Invalid attach payload")
		return
	}

	info, scrollback, err := c.performAttach(ctx, p.SessionID)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			c.sendError(protocol.TypeSessionError, f.ID, "Session not found")
		} else {
			c.sendError(protocol.TypeSessionError, f.ID, "Failed to attach session")
		}
		return
	}

	c.sendReply(protocol.TypeSessionAttached, f.ID, protocol.SessionAttachedPayload{
		Session:    toSessionInfo(info),
		Scrollback: scrollback,
	})
}

// performAttach switches the connection onto a session and returns its
// record and joined scrollback. Re-attaching the current session is a
// no-op that does not duplicate subscription tokens; anything else
// releases the previous attachment before acquiring the new one.
func (c *Conn) performAttach(ctx context.Context, id string) (*session.Info, string, error) {
	info, err := c.h.manager.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}

	if c.attached() == id {
		scrollback, err := c.h.manager.Scrollback(ctx, id)
		if err != nil {
			return nil, "", err
		}
		return info, scrollback, nil
	}

	c.detachCurrent(ctx)

	// Terminated or unloaded sessions are attachable only for their
	// stored history: there is no live stream to subscribe to.
	if info.Attachable {
		dataSub, err := c.h.manager.SubscribeData(id, func(data []byte) {
			c.h.metrics.RecordPTYBytes("output", len(data))
			c.sendEvent(protocol.TypeTerminalData, protocol.TerminalDataPayload{
				SessionID: id,
				Data:      string(data),
			})
		})
		if err != nil {
			return nil, "", err
		}
		exitSub, err := c.h.manager.SubscribeExit(id, func(code int) {
			c.handleSessionExit(id, code)
		})
		if err != nil {
			dataSub.Cancel()
			return nil, "", err
		}
		if err := c.h.manager.AttachClient(ctx, id, c.id); err != nil {
			dataSub.Cancel()
			exitSub.Cancel()
			return nil, "", err
		}

		c.mu.Lock()
		c.attachedID = id
		c.dataSub, c.exitSub = dataSub, exitSub
		c.mu.Unlock()
	} else {
		c.mu.Lock()
		c.attachedID = id
		c.mu.Unlock()
	}

	c.h.bus.Clear(id)

	scrollback, err := c.h.manager.Scrollback(ctx, id)
	if err != nil {
		return nil, "", err
	}
	return info, scrollback, nil
}

// handleSessionExit runs on the PTY exit path when the attached session's
// child dies: deliver the exit frame, then fall back to the detached state.
func (c *Conn) handleSessionExit(id string, code int) {
	c.sendEvent(protocol.TypeTerminalExit, protocol.TerminalExitPayload{
		SessionID: id,
		ExitCode:  code,
	})

	c.mu.Lock()
	if c.attachedID == id {
		c.attachedID = ""
		if c.dataSub != nil {
			c.dataSub.Cancel()
		}
		if c.exitSub != nil {
			c.exitSub.Cancel()
		}
		c.dataSub, c.exitSub = nil, nil
	}
	c.mu.Unlock()
}

func (c *Conn) handleSessionDetach(ctx context.Context, f *protocol.Frame) {
	id := c.attached()
	c.detachCurrent(ctx)
	c.sendReply(protocol.TypeSessionDetached, f.ID, protocol.SessionDetachedPayload{SessionID: id})
}

func (c *Conn) handleSessionTerminate(ctx context.Context, f *protocol.Frame) {
	var p protocol.SessionTerminatePayload
	if err := f.DecodePayload(&p); err != nil || p.SessionID == "" {
		c.sendError(protocol.TypeSessionError, f.ID, "Invalid terminate payload")
		return
	}

	// Every attached connection must drop the session, not just this one,
	// or the others keep dead subscriptions and stale attachment state.
	c.h.releaseAttachments(ctx, p.SessionID)

	known, err := c.h.manager.Terminate(ctx, p.SessionID)
	if err != nil {
		c.sendError(protocol.TypeSessionError, f.ID, "Failed to terminate session")
		return
	}
	if !known {
		c.sendError(protocol.TypeSessionError, f.ID, "Session not found")
		return
	}
	c.h.metrics.SetSessionsActive(c.h.manager.LiveCount())

	payload := protocol.SessionRefPayload{SessionID: p.SessionID}
	c.sendReply(protocol.TypeSessionTerminated, f.ID, payload)
	c.h.broadcast(protocol.TypeSessionTerminated, payload, c.id)
}

func (c *Conn) handleSessionDelete(ctx context.Context, f *protocol.Frame) {
	var p protocol.SessionDeletePayload
	if err := f.DecodePayload(&p); err != nil || p.SessionID == "" {
		c.sendError(protocol.TypeSessionError, f.ID, "Invalid delete payload")
		return
	}

	c.h.releaseAttachments(ctx, p.SessionID)

	if err := c.h.manager.Delete(ctx, p.SessionID); err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			c.sendError(protocol.TypeSessionError, f.ID, "Session not found")
		} else {
			c.sendError(protocol.TypeSessionError, f.ID, "Failed to delete session")
		}
		return
	}
	c.h.metrics.SetSessionsActive(c.h.manager.LiveCount())

	payload := protocol.SessionRefPayload{SessionID: p.SessionID}
	c.sendReply(protocol.TypeSessionDeleted, f.ID, payload)
	c.h.broadcast(protocol.TypeSessionDeleted, payload, c.id)
}

func (c *Conn) handleSessionRename(ctx context.Context, f *protocol.Frame) {
	var p protocol.SessionRenamePayload
	if err := f.DecodePayload(&p); err != nil || p.SessionID == "" {
		c.sendError(protocol.TypeSessionError, f.ID, "Invalid rename payload")
		return
	}

	if err := c.h.manager.Rename(ctx, p.SessionID, p.Name); err != nil {
		c.sendError(protocol.TypeSessionError, f.ID, renameErrorMessage(err))
		return
	}

	payload := protocol.SessionRenamePayload{SessionID: p.SessionID, Name: strings.TrimSpace(p.Name)}
	c.sendReply(protocol.TypeSessionRenamed, f.ID, payload)
	c.h.broadcast(protocol.TypeSessionRenamed, payload, c.id)
}

func (c *Conn) handleSessionMove(ctx context.Context, f *protocol.Frame) {
	var p protocol.SessionMovePayload
	if err := f.DecodePayload(&p); err != nil || p.SessionID == "" {
		c.sendError(protocol.TypeSessionError, f.ID, "Invalid move payload")
		return
	}

	if err := c.h.manager.Move(ctx, p.SessionID, p.CategoryID); err != nil {
		switch {
		case errors.Is(err, models.ErrCategoryNotFound):
			c.sendError(protocol.TypeError, f.ID, "Category not found")
		case errors.Is(err, models.ErrSessionNotFound):
			c.sendError(protocol.TypeSessionError, f.ID, "Session not found")
		default:
			c.sendError(protocol.TypeSessionError, f.ID, "Failed to move session")
		}
		return
	}

	payload := protocol.SessionMovePayload{SessionID: p.SessionID, CategoryID: p.CategoryID}
	c.sendReply(protocol.TypeSessionMoved, f.ID, payload)
	c.h.broadcast(protocol.TypeSessionMoved, payload, "")
}

// handleTerminalData forwards keystrokes. Input only flows to the session
// this connection is attached to; anything else is rejected so one client
// cannot type into another's session.
func (c *Conn) handleTerminalData(f *protocol.Frame) {
	var p protocol.TerminalDataPayload
	if err := f.DecodePayload(&p); err != nil || p.SessionID == "" {
		c.sendError(protocol.TypeSessionError, f.ID, "Invalid data payload")
		return
	}

	if c.attached() != p.SessionID {
		c.sendError(protocol.TypeSessionError, f.ID, "Not attached to this session")
		return
	}

	data := []byte(p.Data)
	if err := c.h.manager.Write(p.SessionID, data); err != nil {
		c.sendError(protocol.TypeSessionError, f.ID, "Session not found")
		return
	}
	c.h.metrics.RecordPTYBytes("input", len(data))
}

// handleTerminalResize applies new dimensions. A resize for a session this
// connection is not attached to is dropped without a reply; stale resizes
// arrive routinely during reconnect storms and are not errors.
func (c *Conn) handleTerminalResize(ctx context.Context, f *protocol.Frame) {
	var p protocol.TerminalResizePayload
	if err := f.DecodePayload(&p); err != nil || p.SessionID == "" {
		c.sendError(protocol.TypeError, f.ID, "Invalid resize payload")
		return
	}

	if c.attached() != p.SessionID {
		return
	}

	if err := c.h.manager.Resize(ctx, p.SessionID, p.Cols, p.Rows); err != nil {
		if errors.Is(err, models.ErrInvalidInput) {
			c.sendError(protocol.TypeError, f.ID, err.Error())
		} else {
			logger.Warn("resize failed",
				logger.KeyClientID, c.id,
				logger.KeySessionID, p.SessionID,
				logger.KeyError, err)
		}
	}
}

func createErrorMessage(err error) string {
	switch {
	case models.IsQuotaExceeded(err):
		return err.Error()
	case errors.Is(err, models.ErrInvalidInput):
		return err.Error()
	default:
		return "Failed to create session"
	}
}

func renameErrorMessage(err error) string {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return err.Error()
	case errors.Is(err, models.ErrSessionNotFound):
		return "Session not found"
	default:
		return "Failed to rename session"
	}
}

// toSessionInfo converts a manager record to its wire shape.
func toSessionInfo(info *session.Info) protocol.SessionInfo {
	return protocol.SessionInfo{
		ID:             info.ID,
		Name:           info.Name,
		Shell:          info.Shell,
		Cwd:            info.Cwd,
		Status:         info.Status,
		Cols:           info.Cols,
		Rows:           info.Rows,
		CategoryID:     info.CategoryID,
		SortOrder:      info.SortOrder,
		Attachable:     info.Attachable,
		CreatedAt:      info.CreatedAt,
		LastAccessedAt: info.LastAccessedAt,
	}
}
