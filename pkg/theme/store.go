package theme

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

// MemoryStore keeps preferences in process.
type MemoryStore struct {
	m *xsync.Map[string, Theme]
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: xsync.NewMap[string, Theme]()}
}

func (s *MemoryStore) Get(_ context.Context, clientID string) (Theme, bool, error) {
	t, ok := s.m.Load(clientID)
	return t, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, clientID string, t Theme) error {
	s.m.Store(clientID, t)
	return nil
}

// KV is the part of the Redis client RedisStore needs.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// RedisStore keeps preferences under "pandaskiing-theme:<client>".
type RedisStore struct {
	kv  KV
	ttl time.Duration
}

// NewRedisStore creates a RedisStore. ttl 0 keeps preferences forever.
func NewRedisStore(kv KV, ttl time.Duration) *RedisStore {
	return &RedisStore{kv: kv, ttl: ttl}
}

func key(clientID string) string { return StorageKey + ":" + clientID }

func (s *RedisStore) Get(ctx context.Context, clientID string) (Theme, bool, error) {
	v, ok, err := s.kv.Get(ctx, key(clientID))
	if err != nil || !ok {
		return "", false, err
	}
	t, err := Parse(v)
	if err != nil {
		// Unknown stored values count as unset.
		return "", false, nil
	}
	return t, true, nil
}

func (s *RedisStore) Set(ctx context.Context, clientID string, t Theme) error {
	return s.kv.Set(ctx, key(clientID), string(t), s.ttl)
}
