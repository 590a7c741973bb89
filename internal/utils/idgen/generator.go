package idgen

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ConversationIDs issues creation-time conversation ids (unix milliseconds).
// Ids are strictly increasing even when two are requested within the same
// millisecond.
type ConversationIDs struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewConversationIDs creates a generator backed by the wall clock.
func NewConversationIDs() *ConversationIDs {
	return &ConversationIDs{now: time.Now}
}

// Next returns the next conversation id.
func (g *ConversationIDs) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}

// RequestID returns a correlation id for an outbound frame or request.
func RequestID() string {
	return uuid.NewString()
}
