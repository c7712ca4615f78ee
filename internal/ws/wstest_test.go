package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/digitalbuzz/buzzchat/internal/chat"
	"github.com/digitalbuzz/buzzchat/internal/registry"
	"github.com/digitalbuzz/buzzchat/internal/store"
	"nhooyr.io/websocket"
)

// chatHarness wires a full in-memory chat stack behind an httptest server.
type chatHarness struct {
	srv     *httptest.Server
	mem     *store.Memory
	reg     *registry.Registry
	conns   *ConnManager
	roomIDs map[string]string // name -> id
}

func newHarness(t *testing.T, roomNames ...string) *chatHarness {
	t.Helper()
	return newHarnessWithMessages(t, nil, roomNames...)
}

// newHarnessWithMessages swaps in a custom message store; the room and
// user directory stays in memory.
func newHarnessWithMessages(t *testing.T, messages store.MessageStore, roomNames ...string) *chatHarness {
	t.Helper()

	mem := store.NewMemory()
	ctx := context.Background()
	if err := mem.SeedRooms(ctx, roomNames); err != nil {
		t.Fatalf("seed rooms: %v", err)
	}
	rooms, err := mem.Rooms(ctx)
	if err != nil {
		t.Fatalf("list rooms: %v", err)
	}
	roomIDs := make(map[string]string, len(rooms))
	for _, r := range rooms {
		roomIDs[r.Name] = r.ID
	}

	if messages == nil {
		messages = mem
	}
	reg := registry.New()
	conns := NewConnManager()
	bcast := NewBroadcaster(reg, conns)
	router := NewRouter(reg, bcast, messages, mem)
	handler := NewHandler(conns, router, mem)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Cleanup(conns.Shutdown)

	return &chatHarness{srv: srv, mem: mem, reg: reg, conns: conns, roomIDs: roomIDs}
}

// client is one connected chat participant.
type client struct {
	t    *testing.T
	conn *websocket.Conn
}

func (h *chatHarness) dial(t *testing.T, username string) *client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	wsURL := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "?username=" + username
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	c := &client{t: t, conn: conn}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return c
}

func (c *client) close() {
	c.conn.Close(websocket.StatusNormalClosure, "")
}

func (c *client) send(eventType string, payload any) {
	c.t.Helper()
	data, err := marshalEnvelope(eventType, payload)
	if err != nil {
		c.t.Fatalf("marshal %s: %v", eventType, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		c.t.Fatalf("write %s: %v", eventType, err)
	}
}

// read returns the next envelope, failing the test on timeout.
func (c *client) read() Envelope {
	c.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := c.conn.Read(ctx)
	if err != nil {
		c.t.Fatalf("read: %v", err)
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.t.Fatalf("unmarshal envelope: %v", err)
	}
	return env
}

// expectNotification reads the next frame and asserts it is a
// notification with the given text and type.
func (c *client) expectNotification(text string, typ chat.NotificationType) {
	c.t.Helper()
	env := c.read()
	if env.Type != EventNotification {
		c.t.Fatalf("expected notification, got %s: %s", env.Type, env.Payload)
	}
	var n chat.NotificationEvent
	if err := json.Unmarshal(env.Payload, &n); err != nil {
		c.t.Fatalf("unmarshal notification: %v", err)
	}
	if n.Message != text || n.Type != typ {
		c.t.Fatalf("expected notification %q (%s), got %q (%s)", text, typ, n.Message, n.Type)
	}
}

// expectUserList reads the next frame and asserts the presence snapshot.
func (c *client) expectUserList(users ...string) {
	c.t.Helper()
	env := c.read()
	if env.Type != EventUserList {
		c.t.Fatalf("expected user_list_update, got %s: %s", env.Type, env.Payload)
	}
	var ul chat.UserListEvent
	if err := json.Unmarshal(env.Payload, &ul); err != nil {
		c.t.Fatalf("unmarshal user list: %v", err)
	}
	if ul.Count != len(users) || len(ul.Users) != len(users) {
		c.t.Fatalf("expected %d users %v, got %d %v", len(users), users, ul.Count, ul.Users)
	}
	for i, u := range users {
		if ul.Users[i] != u {
			c.t.Fatalf("expected users %v, got %v", users, ul.Users)
		}
	}
}

// expectNewMessage reads the next frame and asserts the message payload.
func (c *client) expectNewMessage(username, content string, kind chat.ContentKind) chat.NewMessageEvent {
	c.t.Helper()
	env := c.read()
	if env.Type != EventNewMessage {
		c.t.Fatalf("expected new_message, got %s: %s", env.Type, env.Payload)
	}
	var nm chat.NewMessageEvent
	if err := json.Unmarshal(env.Payload, &nm); err != nil {
		c.t.Fatalf("unmarshal new_message: %v", err)
	}
	if nm.Username != username || nm.Content != content || nm.ContentType != kind {
		c.t.Fatalf("expected %s message %q from %s, got %s %q from %s",
			kind, content, username, nm.ContentType, nm.Content, nm.Username)
	}
	if _, err := time.Parse(time.RFC3339, nm.Timestamp); err != nil {
		c.t.Fatalf("timestamp %q is not RFC3339: %v", nm.Timestamp, err)
	}
	return nm
}

// expectError reads the next frame and asserts it is a unicast error.
func (c *client) expectError(text string) {
	c.t.Helper()
	env := c.read()
	if env.Type != EventError {
		c.t.Fatalf("expected error, got %s: %s", env.Type, env.Payload)
	}
	var e chat.ErrorEvent
	if err := json.Unmarshal(env.Payload, &e); err != nil {
		c.t.Fatalf("unmarshal error: %v", err)
	}
	if e.Message != text {
		c.t.Fatalf("expected error %q, got %q", text, e.Message)
	}
}

// join joins the named room and consumes the joiner's own notification
// and presence frames.
func (c *client) join(h *chatHarness, roomName, username string, expectUsers ...string) {
	c.t.Helper()
	c.send(eventJoin, joinPayload{RoomID: h.roomIDs[roomName]})
	c.expectNotification(username+" has joined the room", chat.NotifyJoin)
	c.expectUserList(expectUsers...)
}
