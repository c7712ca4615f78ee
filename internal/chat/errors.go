package chat

import "errors"

// Session-level errors. All of these are recoverable: they are reported
// to the originating client as a unicast error event and never terminate
// the connection.
var (
	// ErrNotInRoom is returned when a session sends before joining a room.
	ErrNotInRoom = errors.New("not in a room")

	// ErrRoomNotFound is returned for operations on an unknown room id.
	ErrRoomNotFound = errors.New("room not found")

	// ErrImageProcessing is returned when an image payload cannot be
	// decoded or exceeds the post-resize size bound.
	ErrImageProcessing = errors.New("image processing failed")

	// ErrAlreadyRegisteredElsewhere is returned by the registry when a
	// register call would violate the one-room-per-session invariant.
	// The router leaves the old room first, so seeing this indicates a
	// caller bug rather than a client mistake.
	ErrAlreadyRegisteredElsewhere = errors.New("session already registered in another room")
)
