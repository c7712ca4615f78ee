package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/digitalbuzz/buzzchat/internal/chat"
	"github.com/digitalbuzz/buzzchat/internal/store"
	"github.com/google/uuid"
	"nhooyr.io/websocket"
)

// Handler upgrades HTTP requests to WebSocket sessions and runs each
// session's read loop. Inbound events for one session are processed
// strictly in arrival order; the implicit disconnect raised when the
// socket closes is handled on the same goroutine after the loop exits.
type Handler struct {
	conns     *ConnManager
	router    *Router
	directory store.Directory
}

// NewHandler creates a WebSocket handler.
func NewHandler(conns *ConnManager, router *Router, directory store.Directory) *Handler {
	return &Handler{conns: conns, router: router, directory: directory}
}

// ServeHTTP accepts the WebSocket, resolves the durable user, and runs
// the session until the socket closes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // Allow all origins in dev; tighten in production.
	})
	if err != nil {
		log.Printf("ws: accept error: %v", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	user, err := h.resolveUser(r)
	if err != nil {
		log.Printf("ws: resolve user: %v", err)
		conn.Close(websocket.StatusInternalError, "login failed")
		return
	}

	s := NewSession(conn, user)
	connCtx := h.conns.Add(s)
	if connCtx.Err() != nil {
		// Rejected: shutting down or at capacity. Add already closed
		// the socket with the right status.
		return
	}
	defer func() {
		// Cleanup order matters: unregister and announce the departure
		// first, so the leave round never targets the closing session.
		h.router.HandleDisconnect(context.Background(), s)
		h.conns.Remove(s.ID)
	}()

	h.readLoop(r.Context(), connCtx, s)
}

// resolveUser creates or fetches the durable user for this connection.
// Anonymous connections get a generated name.
func (h *Handler) resolveUser(r *http.Request) (*chat.User, error) {
	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if username == "" {
		username = "anon-" + uuid.NewString()[:8]
	}
	return h.directory.EnsureUser(r.Context(), username)
}

// readLoop processes inbound frames until the socket closes or the
// connection manager cancels connCtx.
func (h *Handler) readLoop(ctx context.Context, connCtx context.Context, s *Session) {
	for {
		select {
		case <-connCtx.Done():
			return
		default:
		}

		_, data, err := s.conn.Read(ctx)
		if err != nil {
			// Normal close or context cancelled.
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}

		switch env.Type {
		case eventJoin:
			var p joinPayload
			if err := json.Unmarshal(env.Payload, &p); err != nil || strings.TrimSpace(p.RoomID) == "" {
				continue
			}
			h.router.HandleJoin(ctx, s, p.RoomID)
		case eventLeave:
			var p leavePayload
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				continue
			}
			h.router.HandleLeave(ctx, s, p.RoomID)
		case eventMessage:
			var p messagePayload
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				continue
			}
			h.router.HandleMessage(ctx, s, p.RoomID, p.Content)
		case eventImage:
			var p imagePayload
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				continue
			}
			h.router.HandleImage(ctx, s, p.RoomID, p.Image)
		}
	}
}
