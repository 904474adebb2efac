// Package ratelimit admits at most N requests per client within a sliding window.
package ratelimit

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/abduss/imgbed/internal/config"
)

// ErrRedisRequired is returned when the redis backend is selected without a client.
var ErrRedisRequired = errors.New("redis client required for redis rate limit backend")

// Limiter decides whether a client may issue another request. An admitted
// request is recorded as part of the decision.
type Limiter interface {
	Allow(ctx context.Context, clientID string) (bool, error)
}

// Disabled admits everything.
type Disabled struct{}

func (Disabled) Allow(context.Context, string) (bool, error) { return true, nil }

// New returns the limiter selected by cfg.
func New(cfg config.RateLimitConfig, rdb redis.Cmdable, prefix string) (Limiter, error) {
	if !cfg.Enabled {
		return Disabled{}, nil
	}
	switch cfg.Backend {
	case config.BackendFile:
		return NewFileLimiter(cfg.Dir, cfg.Requests, cfg.Window), nil
	case config.BackendRedis:
		if rdb == nil {
			return nil, ErrRedisRequired
		}
		return NewRedisLimiter(rdb, prefix, cfg.Requests, cfg.Window), nil
	default:
		return nil, fmt.Errorf("unsupported rate limit backend %q", cfg.Backend)
	}
}
