package chat

import (
	"github.com/janhq/jan-chat-client/internal/domain/conversation"
	"github.com/janhq/jan-chat-client/internal/domain/status"
)

// EventType identifies a UI-facing event.
type EventType string

const (
	EventMessageAppended         EventType = "message_appended"
	EventPendingStarted          EventType = "pending_started"
	EventPendingTick             EventType = "pending_tick"
	EventPendingEnded            EventType = "pending_ended"
	EventConnectionStatusChanged EventType = "connection_status_changed"
	EventSessionReplaced         EventType = "session_replaced"
	EventNotice                  EventType = "notice"
)

// Event is emitted for the rendering layer.
type Event struct {
	Type           EventType
	Role           conversation.Role
	Text           string
	Status         status.ConnectionStatus
	ConversationID int64
	Messages       []conversation.Message // set on EventSessionReplaced
	// Ephemeral marks display-only messages that are not in the session log.
	Ephemeral bool
}

// Listener receives events. It may be called from the pending indicator and
// connection goroutines as well as the caller's, so it must be safe for
// concurrent use and must not block.
type Listener func(Event)

func nopListener(Event) {}
