package gallery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abduss/imgbed/internal/config"
	"github.com/abduss/imgbed/internal/filelock"
)

// MutateFunc receives the current catalog and returns the new one. Returning
// changed=false or an error leaves the stored catalog untouched.
type MutateFunc func(records []Record) (updated []Record, changed bool, err error)

// Backend persists the catalog. Update runs fn inside one exclusive critical
// section covering the whole read-modify-write.
type Backend interface {
	Load(ctx context.Context) ([]Record, error)
	Update(ctx context.Context, fn MutateFunc) error
}

// FileBackend stores the catalog as a pretty-printed JSON array.
type FileBackend struct {
	path string
}

// NewFileBackend creates a backend writing to path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the catalog file location.
func (b *FileBackend) Path() string { return b.path }

// Load reads the catalog without locking; writers replace the file atomically.
func (b *FileBackend) Load(_ context.Context) ([]Record, error) {
	return b.read()
}

func (b *FileBackend) Update(ctx context.Context, fn MutateFunc) error {
	return filelock.WithLock(ctx, b.path, func() error {
		records, err := b.read()
		if err != nil {
			return err
		}
		updated, changed, err := fn(records)
		if err != nil || !changed {
			return err
		}
		payload, err := encodeCatalog(updated)
		if err != nil {
			return err
		}
		if err := filelock.WriteFile(b.path, payload); err != nil {
			return fmt.Errorf("write catalog: %w", err)
		}
		return nil
	})
}

func (b *FileBackend) read() ([]Record, error) {
	raw, err := filelock.ReadFile(b.path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return decodeCatalog(raw)
}

func decodeCatalog(raw []byte) ([]Record, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return []Record{}, nil
	}
	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

func encodeCatalog(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("encode catalog: %w", err)
	}
	return buf.Bytes(), nil
}

// MemoryBackend keeps the catalog in process memory.
type MemoryBackend struct {
	mu      sync.Mutex
	records []Record
}

// NewMemoryBackend returns a backend seeded with records.
func NewMemoryBackend(records ...Record) *MemoryBackend {
	return &MemoryBackend{records: append([]Record{}, records...)}
}

func (b *MemoryBackend) Load(_ context.Context) ([]Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Record{}, b.records...), nil
}

func (b *MemoryBackend) Update(_ context.Context, fn MutateFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	updated, changed, err := fn(append([]Record{}, b.records...))
	if err != nil || !changed {
		return err
	}
	b.records = append([]Record{}, updated...)
	return nil
}

// ErrPoolRequired is returned when the postgres backend is selected without a pool.
var ErrPoolRequired = errors.New("postgres pool required for postgres gallery backend")

// NewBackend returns the backend selected by cfg. pool is only used, and its
// schema prepared, by the postgres backend.
func NewBackend(ctx context.Context, cfg config.GalleryConfig, pool *pgxpool.Pool) (Backend, error) {
	switch cfg.Backend {
	case config.BackendFile:
		return NewFileBackend(cfg.Path), nil
	case config.BackendMemory:
		return NewMemoryBackend(), nil
	case config.BackendPostgres:
		if pool == nil {
			return nil, ErrPoolRequired
		}
		backend := NewPostgresBackend(pool)
		if err := backend.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return backend, nil
	default:
		return nil, fmt.Errorf("unsupported gallery backend %q", cfg.Backend)
	}
}
