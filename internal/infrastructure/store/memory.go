package store

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/janhq/jan-chat-client/internal/domain/conversation"
)

// MemoryStore is a mutex-based in-memory conversation store.
// Used when STORE_BACKEND=memory and in tests.
type MemoryStore struct {
	mu    sync.RWMutex
	convs []conversation.Conversation
	log   zerolog.Logger
}

// NewMemoryStore creates a new in-memory conversation store.
func NewMemoryStore(log zerolog.Logger) *MemoryStore {
	return &MemoryStore{
		log: log.With().Str("component", "conversation-store").Logger(),
	}
}

// LoadAll returns every stored conversation.
func (s *MemoryStore) LoadAll(ctx context.Context) []conversation.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]conversation.Conversation, 0, len(s.convs))
	for _, c := range s.convs {
		out = append(out, c.Clone())
	}
	return out
}

// Upsert replaces or appends conv. Empty conversations are ignored.
func (s *MemoryStore) Upsert(ctx context.Context, conv conversation.Conversation) error {
	if conv.IsEmpty() {
		return nil
	}
	s.mu.Lock()
	s.convs = upsert(s.convs, conv)
	total := len(s.convs)
	s.mu.Unlock()

	s.log.Debug().
		Int64("conversation_id", conv.ID).
		Int("messages", len(conv.Messages)).
		Int("conversations", total).
		Msg("conversation saved in memory")
	return nil
}

// Find retrieves a conversation by id.
func (s *MemoryStore) Find(ctx context.Context, id int64) (conversation.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return find(s.convs, id)
}

// upsert drops any entry sharing conv.ID and appends conv, so the most
// recently saved conversation is always last.
func upsert(list []conversation.Conversation, conv conversation.Conversation) []conversation.Conversation {
	out := make([]conversation.Conversation, 0, len(list)+1)
	for _, c := range list {
		if c.ID != conv.ID {
			out = append(out, c)
		}
	}
	return append(out, conv.Clone())
}

func find(list []conversation.Conversation, id int64) (conversation.Conversation, bool) {
	for _, c := range list {
		if c.ID == id {
			return c.Clone(), true
		}
	}
	return conversation.Conversation{}, false
}
