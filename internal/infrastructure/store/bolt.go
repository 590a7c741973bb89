package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"

	"github.com/janhq/jan-chat-client/internal/domain/conversation"
	chaterrors "github.com/janhq/jan-chat-client/internal/domain/errors"
	"github.com/janhq/jan-chat-client/internal/infrastructure/metrics"
)

var bucketName = []byte("chat_store")

// BoltStore persists all conversations as one JSON array under a single
// fixed key in a BoltDB file on the local device.
type BoltStore struct {
	db    *bolt.DB
	key   []byte
	cache *lru.Cache // conversation id -> conversation.Conversation
	log   zerolog.Logger
}

// OpenBolt opens (or creates) the store file at path.
func OpenBolt(path, key string, cacheSize int, log zerolog.Logger) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, chaterrors.NewStoreError("create store directory", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, chaterrors.NewStoreError("open store", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, chaterrors.NewStoreError("create bucket", err)
	}

	if cacheSize <= 0 {
		cacheSize = 64
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create conversation cache: %w", err)
	}

	return &BoltStore{
		db:    db,
		key:   []byte(key),
		cache: cache,
		log:   log.With().Str("component", "conversation-store").Str("path", path).Logger(),
	}, nil
}

// Close releases the database file lock.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// LoadAll returns every stored conversation. Records that fail to decode are
// logged and skipped; an unreadable payload yields an empty slice.
func (s *BoltStore) LoadAll(ctx context.Context) []conversation.Conversation {
	var raw []json.RawMessage
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return nil
		}
		var err error
		raw, err = decodeRecords(b.Get(s.key))
		return err
	})
	if err != nil {
		metrics.RecordStoreError()
		s.log.Warn().Err(chaterrors.NewStoreError("load conversations", err)).Msg("conversation store unreadable, treating as empty")
		return []conversation.Conversation{}
	}

	convs := make([]conversation.Conversation, 0, len(raw))
	for i, rec := range raw {
		var c conversation.Conversation
		if err := json.Unmarshal(rec, &c); err != nil {
			metrics.RecordStoreError()
			s.log.Warn().Err(err).Int("record", i).Msg("skipping unreadable conversation record")
			continue
		}
		convs = append(convs, c)
	}
	return convs
}

// Upsert replaces the record sharing conv.ID or appends conv. Records that no
// longer decode are kept as stored; a payload that is not an array at all is
// overwritten rather than blocking new writes.
func (s *BoltStore) Upsert(ctx context.Context, conv conversation.Conversation) error {
	if conv.IsEmpty() {
		return nil
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return err
		}
		raw, err := decodeRecords(b.Get(s.key))
		if err != nil {
			metrics.RecordStoreError()
			s.log.Warn().Err(err).Msg("discarding corrupt conversation payload")
			raw = nil
		}
		rec, err := json.Marshal(conv)
		if err != nil {
			return err
		}
		data, err := json.Marshal(upsertRecord(raw, conv.ID, rec))
		if err != nil {
			return err
		}
		return b.Put(s.key, data)
	})
	if err != nil {
		return chaterrors.NewStoreError("upsert conversation", err)
	}

	s.cache.Add(conv.ID, conv.Clone())
	return nil
}

// Find retrieves a conversation by id.
func (s *BoltStore) Find(ctx context.Context, id int64) (conversation.Conversation, bool) {
	if v, ok := s.cache.Get(id); ok {
		return v.(conversation.Conversation).Clone(), true
	}
	conv, ok := find(s.LoadAll(ctx), id)
	if ok {
		s.cache.Add(id, conv.Clone())
	}
	return conv, ok
}

// decodeRecords splits the stored payload into its array elements without
// decoding them, so one bad record cannot hide the rest.
func decodeRecords(data []byte) ([]json.RawMessage, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode conversations: %w", err)
	}
	return raw, nil
}

// upsertRecord drops any record whose id matches and appends rec, so the most
// recently saved conversation is always last.
func upsertRecord(raw []json.RawMessage, id int64, rec json.RawMessage) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(raw)+1)
	for _, r := range raw {
		var key struct {
			ID int64 `json:"id"`
		}
		if err := json.Unmarshal(r, &key); err == nil && key.ID == id {
			continue
		}
		out = append(out, r)
	}
	return append(out, rec)
}
