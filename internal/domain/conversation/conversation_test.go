package conversation_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/jan-chat-client/internal/domain/conversation"
)

type seqIDs struct{ next int64 }

func (s *seqIDs) Next() int64 {
	s.next++
	return s.next
}

func TestSessionAppendPreservesOrder(t *testing.T) {
	s := conversation.NewSession(&seqIDs{})
	require.True(t, s.IsEmpty())

	s.Append(conversation.RoleUser, "hello")
	s.Append(conversation.RoleAssistant, "Hi!")
	s.Append(conversation.RoleUser, "")

	snap := s.Snapshot()
	assert.Equal(t, []conversation.Message{
		{Role: conversation.RoleUser, Text: "hello"},
		{Role: conversation.RoleAssistant, Text: "Hi!"},
		{Role: conversation.RoleUser, Text: ""},
	}, snap.Messages)
	assert.Equal(t, 3, s.Len())
}

func TestSessionResetIssuesNewIdentity(t *testing.T) {
	s := conversation.NewSession(&seqIDs{})
	firstID := s.ID()
	s.Append(conversation.RoleUser, "hello")

	fresh := s.Reset()

	assert.NotEqual(t, firstID, fresh.ID)
	assert.Equal(t, fresh.ID, s.ID())
	assert.True(t, s.IsEmpty())
	assert.NotNil(t, s.Snapshot().Messages)
}

func TestSessionReplaceIsWholesaleAndIsolated(t *testing.T) {
	s := conversation.NewSession(&seqIDs{})
	s.Append(conversation.RoleUser, "current")

	stored := conversation.Conversation{
		ID:        42,
		StartedAt: 1000,
		Messages:  []conversation.Message{{Role: conversation.RoleUser, Text: "old"}},
	}
	s.Replace(stored)
	s.Append(conversation.RoleAssistant, "welcome back")

	assert.Equal(t, int64(42), s.ID())
	assert.Equal(t, 2, s.Len())
	assert.Len(t, stored.Messages, 1, "replace must not alias the caller's slice")
}

func TestSnapshotIsACopy(t *testing.T) {
	s := conversation.NewSession(&seqIDs{})
	s.Append(conversation.RoleUser, "a")

	snap := s.Snapshot()
	snap.Messages[0].Text = "mutated"

	assert.Equal(t, "a", s.Snapshot().Messages[0].Text)
}

func TestRoleAcceptsLegacyBot(t *testing.T) {
	raw := `{"id":1,"ts":2,"messages":[{"role":"user","text":"q"},{"role":"bot","text":"a"}]}`

	var conv conversation.Conversation
	require.NoError(t, json.Unmarshal([]byte(raw), &conv))

	assert.Equal(t, conversation.RoleAssistant, conv.Messages[1].Role)
	assert.Equal(t, 1, conv.AssistantReplies())

	out, err := json.Marshal(conv)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"role":"assistant"`)
}

func TestRoleRejectsUnknown(t *testing.T) {
	var r conversation.Role
	assert.Error(t, json.Unmarshal([]byte(`"system"`), &r))
}

func TestPreview(t *testing.T) {
	conv := conversation.Conversation{Messages: []conversation.Message{
		{Role: conversation.RoleAssistant, Text: "greeting"},
		{Role: conversation.RoleUser, Text: "I have a headache since yesterday"},
	}}
	assert.Equal(t, "I have a ...", conv.Preview(9))
	assert.Equal(t, "I have a headache since yesterday", conv.Preview(100))
	assert.Equal(t, "", conversation.Conversation{}.Preview(10))
}
