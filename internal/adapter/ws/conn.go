package ws

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ptyhub/ptyhub/internal/logger"
	"github.com/ptyhub/ptyhub/pkg/identity"
	"github.com/ptyhub/ptyhub/pkg/protocol"
	"github.com/ptyhub/ptyhub/pkg/session"
)

const (
	// outboundQueueSize bounds the per-connection send queue. A client that
	// cannot drain this much is disconnected rather than silently losing
	// frames.
	outboundQueueSize = 256

	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second

	maxFrameSize = 1 << 20
)

// Conn is one client connection: the websocket, the resolved principal, the
// current attachment and its subscription tokens, and the serialized
// outbound queue. All writes to the socket go through the queue and a
// single writer goroutine.
type Conn struct {
	id         string
	h          *Handler
	ws         *websocket.Conn
	remoteAddr string

	mu         sync.Mutex
	principal  identity.Principal
	attachedID string
	dataSub    *session.Subscription
	exitSub    *session.Subscription
	closeCode  int

	out       chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newConn(h *Handler, ws *websocket.Conn, id string, principal identity.Principal, remoteAddr string) *Conn {
	return &Conn{
		id:         id,
		h:          h,
		ws:         ws,
		remoteAddr: remoteAddr,
		principal:  principal,
		closeCode:  websocket.CloseNormalClosure,
		out:        make(chan []byte, outboundQueueSize),
		done:       make(chan struct{}),
	}
}

// ID returns the server-assigned client id.
func (c *Conn) ID() string {
	return c.id
}

// Principal returns the connection's current principal.
func (c *Conn) Principal() identity.Principal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.principal
}

func (c *Conn) setPrincipal(p identity.Principal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.principal = p
}

// attached returns the currently attached session id, or "".
func (c *Conn) attached() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attachedID
}

// send queues one frame for delivery. Fan-out callbacks run on PTY reader
// goroutines, so the enqueue never blocks: a full queue means the client
// cannot keep up, and the connection is closed instead of dropping frames
// silently.
func (c *Conn) send(f *protocol.Frame) {
	data, err := protocol.Encode(f)
	if err != nil {
		logger.Error("failed to encode frame",
			logger.KeyClientID, c.id,
			logger.KeyFrameType, f.Type,
			logger.KeyError, err)
		return
	}

	select {
	case <-c.done:
	case c.out <- data:
		c.h.metrics.RecordFrame(f.Type, "out")
	default:
		logger.Warn("outbound queue full, disconnecting slow client",
			logger.KeyClientID, c.id,
			logger.KeyFrameType, f.Type)
		// The teardown does store bookkeeping and must not run on the
		// fan-out goroutine, which is a PTY reader serving every other
		// subscriber of the session.
		go c.shutdown()
	}
}

// sendReply builds and queues a frame correlated to a request id.
func (c *Conn) sendReply(frameType, id string, payload any) {
	f, err := protocol.NewFrame(frameType, id, payload)
	if err != nil {
		logger.Error("failed to build frame",
			logger.KeyClientID, c.id,
			logger.KeyFrameType, frameType,
			logger.KeyError, err)
		return
	}
	c.send(f)
}

// sendEvent queues an uncorrelated server event.
func (c *Conn) sendEvent(frameType string, payload any) {
	c.sendReply(frameType, "", payload)
}

// sendError queues an error frame of the given type carrying the
// correlation id.
func (c *Conn) sendError(frameType, id, message string) {
	c.sendReply(frameType, id, protocol.ErrorPayload{Message: message})
}

// writeLoop is the single writer: it drains the outbound queue, keeps the
// connection alive with pings, and owns closing the socket. On shutdown it
// flushes frames queued before the teardown so a final error frame reaches
// the client ahead of the close handshake.
func (c *Conn) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer func() { _ = c.ws.Close() }()

	for {
		select {
		case <-c.done:
			c.flushOutbound()
			c.mu.Lock()
			code := c.closeCode
			c.mu.Unlock()
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(code, ""),
				time.Now().Add(writeWait))
			return
		case data := <-c.out:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.shutdown()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.shutdown()
				return
			}
		}
	}
}

// flushOutbound writes frames already sitting in the queue. Stops at the
// first write failure; the peer is gone at that point.
func (c *Conn) flushOutbound() {
	for {
		select {
		case data := <-c.out:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		default:
			return
		}
	}
}

// readLoop pumps inbound frames through the dispatcher until the transport
// closes. Binary frames are rejected; the channel is text-only.
func (c *Conn) readLoop() {
	defer c.shutdown()

	c.ws.SetReadLimit(maxFrameSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("websocket read error",
					logger.KeyClientID, c.id,
					logger.KeyError, err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			c.sendError(protocol.TypeError, "", "Binary frames are not supported")
			continue
		}
		c.handleFrame(data)
	}
}

// closeWithCode records the close code for the handshake and starts the
// teardown. Used where the protocol mandates a specific code, like 4001
// on a failed re-auth.
func (c *Conn) closeWithCode(code int) {
	c.mu.Lock()
	c.closeCode = code
	c.mu.Unlock()
	c.shutdown()
}

// shutdown tears the connection down exactly once: release the attachment,
// drop the rate-limiter state and unregister. Closing done hands the socket
// to the writer, which flushes pending frames and completes the close
// handshake. Fan-out callbacks racing with the teardown drop their frames.
func (c *Conn) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		c.detachCurrent(ctx)
		cancel()

		c.h.limiter.Forget(c.id)
		c.h.unregister(c)

		logger.Info("client disconnected",
			logger.KeyClientID, c.id,
			logger.KeyRemoteAddr, c.remoteAddr)
	})
}

// detachCurrent releases the current attachment, if any: cancel both
// subscription tokens before detaching so a racing fan-out cannot land on
// a half-closed connection.
func (c *Conn) detachCurrent(ctx context.Context) {
	c.mu.Lock()
	id := c.attachedID
	dataSub, exitSub := c.dataSub, c.exitSub
	c.attachedID = ""
	c.dataSub, c.exitSub = nil, nil
	c.mu.Unlock()

	if id == "" {
		return
	}
	dataSub.Cancel()
	exitSub.Cancel()
	if err := c.h.manager.DetachClient(ctx, id, c.id); err != nil {
		logger.Warn("detach bookkeeping failed",
			logger.KeyClientID, c.id,
			logger.KeySessionID, id,
			logger.KeyError, err)
	}
}

// detachFrom releases the attachment only when it targets the given
// session. Used when a session goes away so every attached connection
// drops its subscriptions, not just the one that issued the request.
func (c *Conn) detachFrom(ctx context.Context, sessionID string) {
	c.mu.Lock()
	if c.attachedID != sessionID {
		c.mu.Unlock()
		return
	}
	dataSub, exitSub := c.dataSub, c.exitSub
	c.attachedID = ""
	c.dataSub, c.exitSub = nil, nil
	c.mu.Unlock()

	dataSub.Cancel()
	exitSub.Cancel()
	if err := c.h.manager.DetachClient(ctx, sessionID, c.id); err != nil {
		logger.Warn("detach bookkeeping failed",
			logger.KeyClientID, c.id,
			logger.KeySessionID, sessionID,
			logger.KeyError, err)
	}
}
