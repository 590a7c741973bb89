package conversation

import (
	"sync"
	"time"
)

// IDSource issues new conversation ids.
type IDSource interface {
	Next() int64
}

// Session holds the single active conversation.
type Session struct {
	mu    sync.RWMutex
	conv  Conversation
	ids   IDSource
	clock func() time.Time
}

// NewSession creates a session holding a fresh empty conversation.
func NewSession(ids IDSource) *Session {
	s := &Session{ids: ids, clock: time.Now}
	s.conv = s.fresh()
	return s
}

func (s *Session) fresh() Conversation {
	return Conversation{
		ID:        s.ids.Next(),
		StartedAt: s.clock().UnixMilli(),
		Messages:  []Message{},
	}
}

// Append adds a message to the log. It never fails; text is not validated.
func (s *Session) Append(role Role, text string) Message {
	msg := Message{Role: role, Text: text}
	s.mu.Lock()
	s.conv.Messages = append(s.conv.Messages, msg)
	s.mu.Unlock()
	return msg
}

// Reset replaces the active conversation with a new empty one.
func (s *Session) Reset() Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conv = s.fresh()
	return s.conv.Clone()
}

// Replace swaps in conv wholesale.
func (s *Session) Replace(conv Conversation) {
	c := conv.Clone()
	if c.Messages == nil {
		c.Messages = []Message{}
	}
	s.mu.Lock()
	s.conv = c
	s.mu.Unlock()
}

// Snapshot returns a copy of the active conversation.
func (s *Session) Snapshot() Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conv.Clone()
}

// ID returns the active conversation id.
func (s *Session) ID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conv.ID
}

// Len returns the number of messages in the active conversation.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conv.Messages)
}

// IsEmpty reports whether the active conversation has no messages.
func (s *Session) IsEmpty() bool {
	return s.Len() == 0
}
