package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/abduss/imgbed/internal/hoster"
)

// RedisStore keeps entries as JSON strings with a server-side expiry.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore creates a store whose keys are prefix+"cache:"+key.
func NewRedisStore(client redis.Cmdable, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl, now: time.Now}
}

func (s *RedisStore) redisKey(key string) string {
	return s.prefix + "cache:" + key
}

func (s *RedisStore) Lookup(ctx context.Context, key string) (hoster.Result, bool, error) {
	raw, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return hoster.Result{}, false, nil
	}
	if err != nil {
		return hoster.Result{}, false, fmt.Errorf("cache lookup %s: %w", key, err)
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil || entry.expired(s.now(), s.ttl) {
		if err := s.client.Del(ctx, s.redisKey(key)).Err(); err != nil {
			return hoster.Result{}, false, fmt.Errorf("cache purge %s: %w", key, err)
		}
		return hoster.Result{}, false, nil
	}
	return entry.Data, true, nil
}

func (s *RedisStore) Save(ctx context.Context, key string, result hoster.Result) error {
	payload, err := json.Marshal(Entry{Timestamp: s.now().Unix(), Data: result})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := s.client.Set(ctx, s.redisKey(key), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("cache save %s: %w", key, err)
	}
	return nil
}
