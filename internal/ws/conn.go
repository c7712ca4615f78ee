package ws

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"
)

const (
	// defaultSendBuffer is the number of frames queued per session
	// before the session counts as a slow consumer.
	defaultSendBuffer = 16

	// writeTimeout is the max time to wait for a single write to complete.
	writeTimeout = 5 * time.Second

	// defaultMaxConns is the default maximum concurrent connections
	// (0 = unlimited).
	defaultMaxConns = 0
)

// connEntry pairs a session with the cancel for its write pump.
type connEntry struct {
	sess   *Session
	cancel context.CancelFunc
}

// ConnStats holds point-in-time connection statistics.
type ConnStats struct {
	Active        int
	MaxConns      int
	Rejected      int64
	SlowConsumers int64
}

// ConnManager tracks all live sessions and owns their outbound delivery.
// Each session gets a bounded send channel drained by a write pump
// goroutine; enqueueing never blocks. A session whose buffer fills up
// is disconnected rather than allowed to stall a broadcast.
type ConnManager struct {
	mu       sync.Mutex
	sessions map[string]*connEntry
	closed   bool
	maxConns int
	bufSize  int

	rejected      atomic.Int64
	slowConsumers atomic.Int64
}

// ConnManagerOption configures a ConnManager.
type ConnManagerOption func(*ConnManager)

// WithMaxConns sets the maximum number of concurrent connections.
// New connections beyond the limit are rejected. 0 means unlimited.
func WithMaxConns(n int) ConnManagerOption {
	return func(cm *ConnManager) {
		cm.maxConns = n
	}
}

// WithSendBuffer sets the per-session outbound queue depth.
func WithSendBuffer(n int) ConnManagerOption {
	return func(cm *ConnManager) {
		if n > 0 {
			cm.bufSize = n
		}
	}
}

// NewConnManager creates a connection manager.
func NewConnManager(opts ...ConnManagerOption) *ConnManager {
	cm := &ConnManager{
		sessions: make(map[string]*connEntry),
		maxConns: defaultMaxConns,
		bufSize:  defaultSendBuffer,
	}
	for _, opt := range opts {
		opt(cm)
	}
	return cm
}

// Add registers a session and starts its write pump. The returned
// context is cancelled when the session is removed or the manager shuts
// down; read loops should exit when it is done. Returns an already
// cancelled context if the manager is closed or at capacity.
func (cm *ConnManager) Add(s *Session) context.Context {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.closed {
		s.conn.Close(websocket.StatusGoingAway, "server shutting down")
		return cancelledContext()
	}

	if cm.maxConns > 0 && len(cm.sessions) >= cm.maxConns {
		cm.rejected.Add(1)
		s.conn.Close(websocket.StatusTryAgainLater, "server at capacity")
		return cancelledContext()
	}

	s.send = make(chan []byte, cm.bufSize)
	ctx, cancel := context.WithCancel(context.Background())
	cm.sessions[s.ID] = &connEntry{sess: s, cancel: cancel}

	go cm.writePump(ctx, s)

	return ctx
}

// Remove stops a session's write pump and forgets it. Idempotent. The
// send channel is never closed; the pump exits via its context, so
// concurrent Send calls stay safe.
func (cm *ConnManager) Remove(sessionID string) {
	cm.mu.Lock()
	entry, ok := cm.sessions[sessionID]
	if ok {
		delete(cm.sessions, sessionID)
	}
	cm.mu.Unlock()

	if ok {
		entry.cancel()
	}
}

// Send enqueues a frame for delivery without blocking. A full buffer
// means the session cannot keep up with its room: the session is
// disconnected so one slow client never stalls the broadcaster. Returns
// false if the frame was not queued.
func (cm *ConnManager) Send(sessionID string, data []byte) bool {
	cm.mu.Lock()
	entry, ok := cm.sessions[sessionID]
	cm.mu.Unlock()
	if !ok {
		return false
	}

	select {
	case entry.sess.send <- data:
		return true
	default:
		cm.slowConsumers.Add(1)
		log.Printf("ws: send queue full for %s, disconnecting slow consumer", entry.sess.Username)
		cm.Remove(sessionID)
		entry.sess.conn.Close(websocket.StatusPolicyViolation, "send queue overflow")
		return false
	}
}

// Count returns the number of live sessions.
func (cm *ConnManager) Count() int {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return len(cm.sessions)
}

// Stats returns point-in-time connection statistics.
func (cm *ConnManager) Stats() ConnStats {
	cm.mu.Lock()
	active := len(cm.sessions)
	maxConns := cm.maxConns
	cm.mu.Unlock()
	return ConnStats{
		Active:        active,
		MaxConns:      maxConns,
		Rejected:      cm.rejected.Load(),
		SlowConsumers: cm.slowConsumers.Load(),
	}
}

// Shutdown closes every connection with StatusGoingAway and stops
// accepting new ones.
func (cm *ConnManager) Shutdown() {
	cm.mu.Lock()
	cm.closed = true
	entries := make([]*connEntry, 0, len(cm.sessions))
	for _, e := range cm.sessions {
		entries = append(entries, e)
	}
	cm.sessions = make(map[string]*connEntry)
	cm.mu.Unlock()

	for _, e := range entries {
		e.cancel()
		e.sess.conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
}

// writePump drains the session's send channel onto the socket. It exits
// when ctx is cancelled or a write fails.
func (cm *ConnManager) writePump(ctx context.Context, s *Session) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-s.send:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := s.conn.Write(writeCtx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				log.Printf("ws: write to %s failed: %v", s.Username, err)
				return
			}
		}
	}
}

func cancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}
