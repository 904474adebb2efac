package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/abduss/imgbed/internal/hoster"
)

// MemoryStore is a process-local store for tests and single-instance deployments.
type MemoryStore struct {
	items *ttlcache.Cache[string, hoster.Result]
}

// NewMemoryStore creates a store whose entries expire after ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	items := ttlcache.New[string, hoster.Result](
		ttlcache.WithTTL[string, hoster.Result](ttl),
		ttlcache.WithDisableTouchOnHit[string, hoster.Result](),
	)
	return &MemoryStore{items: items}
}

func (s *MemoryStore) Lookup(_ context.Context, key string) (hoster.Result, bool, error) {
	item := s.items.Get(key)
	if item == nil || item.IsExpired() {
		return hoster.Result{}, false, nil
	}
	return item.Value(), true, nil
}

func (s *MemoryStore) Save(_ context.Context, key string, result hoster.Result) error {
	s.items.Set(key, result, ttlcache.DefaultTTL)
	return nil
}

// Len reports the number of live entries.
func (s *MemoryStore) Len() int {
	s.items.DeleteExpired()
	return s.items.Len()
}
