package conversation

import "context"

// Store is the device-local archive of past conversations.
// Implementations hold at most one entry per conversation id.
type Store interface {
	// LoadAll returns every stored conversation in insertion order.
	// A missing or corrupt backing store yields an empty slice, never an error.
	LoadAll(ctx context.Context) []Conversation

	// Upsert replaces the entry sharing conv.ID or appends a new one.
	// It is a no-op for a conversation without messages.
	Upsert(ctx context.Context, conv Conversation) error

	// Find returns the conversation with the given id.
	Find(ctx context.Context, id int64) (Conversation, bool)
}
