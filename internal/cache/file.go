package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/abduss/imgbed/internal/filelock"
	"github.com/abduss/imgbed/internal/hoster"
)

// FileStore keeps one JSON document per key under dir.
type FileStore struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string, ttl time.Duration) *FileStore {
	return &FileStore{dir: dir, ttl: ttl, now: time.Now}
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Lookup returns the cached result for key. Expired or unreadable entries are removed.
func (s *FileStore) Lookup(ctx context.Context, key string) (hoster.Result, bool, error) {
	var (
		result hoster.Result
		found  bool
	)
	path := s.path(key)
	// a plain miss takes no lock, so it leaves no sidecar behind
	exists, err := filelock.Exists(path)
	if err != nil {
		return hoster.Result{}, false, fmt.Errorf("cache lookup %s: %w", key, err)
	}
	if !exists {
		return hoster.Result{}, false, nil
	}
	err = filelock.WithLock(ctx, path, func() error {
		raw, err := filelock.ReadFile(path)
		if err != nil || raw == nil {
			return err
		}
		var entry Entry
		if err := json.Unmarshal(raw, &entry); err != nil || entry.expired(s.now(), s.ttl) {
			return filelock.Purge(path)
		}
		result, found = entry.Data, true
		return nil
	})
	if err != nil {
		return hoster.Result{}, false, fmt.Errorf("cache lookup %s: %w", key, err)
	}
	return result, found, nil
}

// Save overwrites the entry for key.
func (s *FileStore) Save(ctx context.Context, key string, result hoster.Result) error {
	payload, err := json.Marshal(Entry{Timestamp: s.now().Unix(), Data: result})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	path := s.path(key)
	if err := filelock.WithLock(ctx, path, func() error {
		return filelock.WriteFile(path, payload)
	}); err != nil {
		return fmt.Errorf("cache save %s: %w", key, err)
	}
	return nil
}
