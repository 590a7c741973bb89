package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/janhq/jan-chat-client/internal/domain/conversation"
	"github.com/janhq/jan-chat-client/internal/infrastructure/metrics"
)

func conv(id int64, texts ...string) conversation.Conversation {
	c := conversation.Conversation{ID: id, StartedAt: id, Messages: []conversation.Message{}}
	for i, text := range texts {
		role := conversation.RoleUser
		if i%2 == 1 {
			role = conversation.RoleAssistant
		}
		c.Messages = append(c.Messages, conversation.Message{Role: role, Text: text})
	}
	return c
}

func openTestBolt(t *testing.T, path string) *BoltStore {
	t.Helper()
	s, err := OpenBolt(path, "mediAI_conversations", 8, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func stores(t *testing.T) map[string]conversation.Store {
	return map[string]conversation.Store{
		"memory": NewMemoryStore(zerolog.Nop()),
		"bolt":   openTestBolt(t, filepath.Join(t.TempDir(), "nested", "chat.db")),
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			assert.Empty(t, s.LoadAll(ctx))

			require.NoError(t, s.Upsert(ctx, conv(1)))
			assert.Empty(t, s.LoadAll(ctx), "empty conversation must not be persisted")

			require.NoError(t, s.Upsert(ctx, conv(1, "hello", "Hi!")))
			require.NoError(t, s.Upsert(ctx, conv(2, "other")))
			require.NoError(t, s.Upsert(ctx, conv(1, "hello", "Hi!", "again", "sure")))

			all := s.LoadAll(ctx)
			require.Len(t, all, 2, "same id upserted twice keeps one entry")
			assert.Equal(t, int64(2), all[0].ID)
			assert.Equal(t, int64(1), all[1].ID)
			assert.Len(t, all[1].Messages, 4, "last write wins")

			found, ok := s.Find(ctx, 1)
			require.True(t, ok)
			assert.Equal(t, "sure", found.Messages[3].Text)

			_, ok = s.Find(ctx, 99)
			assert.False(t, ok)
		})
	}
}

func TestStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Upsert(ctx, conv(7, "q", "a")))

			found, ok := s.Find(ctx, 7)
			require.True(t, ok)
			found.Messages[0].Text = "mutated"

			again, _ := s.Find(ctx, 7)
			assert.Equal(t, "q", again.Messages[0].Text)
		})
	}
}

func TestBoltStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chat.db")

	first, err := OpenBolt(path, "mediAI_conversations", 8, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, first.Upsert(ctx, conv(10, "persist me", "ok")))
	require.NoError(t, first.Close())

	second := openTestBolt(t, path)
	found, ok := second.Find(ctx, 10)
	require.True(t, ok)
	assert.Equal(t, "persist me", found.Messages[0].Text)
}

func TestBoltStoreCorruptPayloadDegradesToEmpty(t *testing.T) {
	ctx := context.Background()
	s := openTestBolt(t, filepath.Join(t.TempDir(), "chat.db"))

	require.NoError(t, s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(s.key, []byte("{not json"))
	}))

	assert.Empty(t, s.LoadAll(ctx))
	_, ok := s.Find(ctx, 1)
	assert.False(t, ok)

	require.NoError(t, s.Upsert(ctx, conv(3, "fresh start")))
	all := s.LoadAll(ctx)
	require.Len(t, all, 1)
	assert.Equal(t, int64(3), all[0].ID)
}

func TestBoltStoreSkipsUnreadableRecords(t *testing.T) {
	ctx := context.Background()
	s := openTestBolt(t, filepath.Join(t.TempDir(), "chat.db"))

	mixed := `[{"id":1,"ts":1,"messages":[{"role":"user","text":"headache"},{"role":"bot","text":"Rest."}]},` +
		`{"id":2,"ts":2,"messages":[{"role":"system","text":"hidden"}]}]`
	require.NoError(t, s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(s.key, []byte(mixed))
	}))

	before := testutil.ToFloat64(metrics.StoreErrors)
	all := s.LoadAll(ctx)
	require.Len(t, all, 1)
	assert.Equal(t, int64(1), all[0].ID)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.StoreErrors))

	require.NoError(t, s.Upsert(ctx, conv(3, "new question")))

	var ids []int64
	for _, c := range s.LoadAll(ctx) {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []int64{1, 3}, ids)

	// The unreadable record stays in the payload untouched.
	require.NoError(t, s.db.View(func(tx *bolt.Tx) error {
		assert.Contains(t, string(tx.Bucket(bucketName).Get(s.key)), `"role":"system"`)
		return nil
	}))
}

func TestBoltStoreUpsertReplacesRecordBesideUnreadableOne(t *testing.T) {
	ctx := context.Background()
	s := openTestBolt(t, filepath.Join(t.TempDir(), "chat.db"))

	mixed := `[{"id":1,"ts":1,"messages":[{"role":"user","text":"old"}]},"garbage"]`
	require.NoError(t, s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(s.key, []byte(mixed))
	}))

	require.NoError(t, s.Upsert(ctx, conv(1, "old", "updated")))

	all := s.LoadAll(ctx)
	require.Len(t, all, 1)
	assert.Len(t, all[0].Messages, 2)
	require.NoError(t, s.db.View(func(tx *bolt.Tx) error {
		assert.Contains(t, string(tx.Bucket(bucketName).Get(s.key)), `"garbage"`)
		return nil
	}))
}

func TestBoltStoreCorruptPayloadCountsStoreError(t *testing.T) {
	ctx := context.Background()
	s := openTestBolt(t, filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(s.key, []byte(`{"id":1}`))
	}))

	before := testutil.ToFloat64(metrics.StoreErrors)
	assert.Empty(t, s.LoadAll(ctx))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.StoreErrors))
}

func TestBoltStoreReadsLegacyRoles(t *testing.T) {
	ctx := context.Background()
	s := openTestBolt(t, filepath.Join(t.TempDir(), "chat.db"))

	legacy := `[{"id":1700000000000,"ts":1700000000000,"messages":[{"role":"user","text":"fever?"},{"role":"bot","text":"Drink water."}]}]`
	require.NoError(t, s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(s.key, []byte(legacy))
	}))

	found, ok := s.Find(ctx, 1700000000000)
	require.True(t, ok)
	assert.Equal(t, conversation.RoleAssistant, found.Messages[1].Role)
}
