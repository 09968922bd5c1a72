package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"focusgallery/cache"
)

// KVStore keeps sessions in a cache.Store (Redis in production) so they
// survive bot restarts. Expiry is delegated to the backend TTL.
type KVStore struct {
	kv   cache.Store
	idle time.Duration
	now  func() time.Time
}

func NewKVStore(kv cache.Store, idle time.Duration) *KVStore {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &KVStore{kv: kv, idle: idle, now: time.Now}
}

func (k *KVStore) WithClock(now func() time.Time) *KVStore {
	k.now = now
	return k
}

func (k *KVStore) Get(ctx context.Context, key Key) (*Session, error) {
	raw, err := k.kv.Get(ctx, storeKey(key))
	if errors.Is(err, cache.ErrMiss) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", key, err)
	}

	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", key, err)
	}
	if !s.State.Valid() || k.now().Sub(s.UpdatedAt) >= k.idle {
		_ = k.kv.Delete(ctx, storeKey(key))
		return nil, ErrNotFound
	}
	return &s, nil
}

func (k *KVStore) Put(ctx context.Context, s *Session) error {
	s.UpdatedAt = k.now()
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.Key, err)
	}
	if err := k.kv.Set(ctx, storeKey(s.Key), string(raw), k.idle); err != nil {
		return fmt.Errorf("save session %s: %w", s.Key, err)
	}
	return nil
}

func (k *KVStore) Clear(ctx context.Context, key Key) error {
	return k.kv.Delete(ctx, storeKey(key))
}

// SweepExpired is a no-op; the backend expires keys on its own.
func (k *KVStore) SweepExpired(context.Context) (int, error) {
	return 0, nil
}

func storeKey(key Key) string {
	return "session:" + key.String()
}
