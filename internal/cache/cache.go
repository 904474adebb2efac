// Package cache maps content hashes of uploaded images to their previous
// hosting result so repeated uploads skip the remote call.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/abduss/imgbed/internal/config"
	"github.com/abduss/imgbed/internal/hoster"
)

// ErrRedisRequired is returned when the redis backend is selected without a client.
var ErrRedisRequired = errors.New("redis client required for redis cache backend")

// Store looks up and saves hosting results by content key.
type Store interface {
	Lookup(ctx context.Context, key string) (hoster.Result, bool, error)
	Save(ctx context.Context, key string, result hoster.Result) error
}

// Entry is the persisted form of a cached result.
type Entry struct {
	Timestamp int64         `json:"timestamp"`
	Data      hoster.Result `json:"data"`
}

func (e Entry) expired(now time.Time, ttl time.Duration) bool {
	return now.Unix()-e.Timestamp >= int64(ttl/time.Second)
}

// Disabled never finds anything and never stores anything.
type Disabled struct{}

func (Disabled) Lookup(context.Context, string) (hoster.Result, bool, error) {
	return hoster.Result{}, false, nil
}

func (Disabled) Save(context.Context, string, hoster.Result) error { return nil }

// New returns the store selected by cfg. rdb is only used by the redis backend.
func New(cfg config.CacheConfig, rdb redis.Cmdable, prefix string) (Store, error) {
	if !cfg.Enabled {
		return Disabled{}, nil
	}
	switch cfg.Backend {
	case config.BackendFile:
		return NewFileStore(cfg.Dir, cfg.TTL), nil
	case config.BackendMemory:
		return NewMemoryStore(cfg.TTL), nil
	case config.BackendRedis:
		if rdb == nil {
			return nil, ErrRedisRequired
		}
		return NewRedisStore(rdb, prefix, cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unsupported cache backend %q", cfg.Backend)
	}
}
