package conversation

import (
	"encoding/json"
	"fmt"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"

	// legacyAssistant is how older device stores recorded assistant turns.
	legacyAssistant = "bot"
)

// UnmarshalJSON accepts the legacy "bot" role.
func (r *Role) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw {
	case string(RoleUser):
		*r = RoleUser
	case string(RoleAssistant), legacyAssistant:
		*r = RoleAssistant
	default:
		return fmt.Errorf("unknown message role %q", raw)
	}
	return nil
}

// Message is a single turn in a conversation.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Conversation is an ordered message log with an immutable identity.
type Conversation struct {
	ID        int64     `json:"id"`
	StartedAt int64     `json:"ts"` // unix milliseconds
	Messages  []Message `json:"messages"`
}

// IsEmpty reports whether the conversation holds no messages.
func (c Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// Started returns StartedAt as a time.
func (c Conversation) Started() time.Time {
	return time.UnixMilli(c.StartedAt)
}

// AssistantReplies counts assistant messages.
func (c Conversation) AssistantReplies() int {
	n := 0
	for _, m := range c.Messages {
		if m.Role == RoleAssistant {
			n++
		}
	}
	return n
}

// Clone returns a deep copy so callers never share the message slice.
func (c Conversation) Clone() Conversation {
	out := c
	if c.Messages != nil {
		out.Messages = make([]Message, len(c.Messages))
		copy(out.Messages, c.Messages)
	}
	return out
}

// Preview returns the first user message truncated to n runes, used as a
// history title.
func (c Conversation) Preview(n int) string {
	for _, m := range c.Messages {
		if m.Role != RoleUser {
			continue
		}
		r := []rune(m.Text)
		if len(r) <= n {
			return m.Text
		}
		return string(r[:n]) + "..."
	}
	return ""
}
