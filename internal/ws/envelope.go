package ws

import "encoding/json"

// Envelope is the JSON frame exchanged over the WebSocket in both
// directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Inbound event types.
const (
	eventJoin    = "join"
	eventLeave   = "leave"
	eventMessage = "message"
	eventImage   = "image"
)

// Outbound event types.
const (
	EventNewMessage   = "new_message"
	EventNotification = "notification"
	EventUserList     = "user_list_update"
	EventError        = "error"
)

// joinPayload is sent by the client to join a room.
type joinPayload struct {
	RoomID string `json:"room_id"`
}

// leavePayload is sent by the client to leave a room.
type leavePayload struct {
	RoomID string `json:"room_id"`
}

// messagePayload is sent by the client to post a text message.
type messagePayload struct {
	RoomID      string `json:"room_id"`
	Content     string `json:"content"`
	ContentType string `json:"content_type"`
}

// imagePayload is sent by the client to post an image. The image is a
// data-URI string produced by the client-side resize pipeline; the core
// treats it as an opaque blob after validation.
type imagePayload struct {
	RoomID string `json:"room_id"`
	Image  string `json:"image"`
}

// marshalEnvelope wraps a payload in an Envelope and marshals the frame.
func marshalEnvelope(eventType string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: eventType, Payload: data})
}
