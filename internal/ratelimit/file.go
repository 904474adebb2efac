package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/abduss/imgbed/internal/filelock"
)

// FileLimiter stores one JSON array of unix timestamps per client.
type FileLimiter struct {
	dir    string
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewFileLimiter creates a limiter persisting windows under dir.
func NewFileLimiter(dir string, limit int, window time.Duration) *FileLimiter {
	return &FileLimiter{dir: dir, limit: limit, window: window, now: time.Now}
}

func (l *FileLimiter) path(clientID string) string {
	return filepath.Join(l.dir, fmt.Sprintf("%016x.json", xxhash.Sum64String(clientID)))
}

func (l *FileLimiter) Allow(ctx context.Context, clientID string) (bool, error) {
	path := l.path(clientID)
	allowed := false

	err := filelock.WithLock(ctx, path, func() error {
		raw, err := filelock.ReadFile(path)
		if err != nil {
			return err
		}

		var stamps []int64
		if len(raw) > 0 {
			// a damaged window starts over
			if err := json.Unmarshal(raw, &stamps); err != nil {
				stamps = nil
			}
		}

		now := l.now().Unix()
		windowSec := int64(l.window / time.Second)
		live := stamps[:0]
		for _, ts := range stamps {
			if now-ts < windowSec {
				live = append(live, ts)
			}
		}

		if len(live) >= l.limit {
			return nil
		}

		allowed = true
		payload, err := json.Marshal(append(live, now))
		if err != nil {
			return err
		}
		return filelock.WriteFile(path, payload)
	})
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", clientID, err)
	}
	return allowed, nil
}
