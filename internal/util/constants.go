package util

import "time"

const (
	// DefaultTypingWindow is how long a typing signal stays fresh.
	DefaultTypingWindow = 5 * time.Second
)

// Realtime event types pushed over the chat websocket.
const (
	EventNewMessage     = "NEW_MESSAGE"
	EventMessageUpdated = "MESSAGE_UPDATED"
	EventMessageDeleted = "MESSAGE_DELETED"
	EventTyping         = "TYPING"
	EventUserStatus     = "USER_STATUS"
)
