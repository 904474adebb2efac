package gallery

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Store applies catalog operations on top of a Backend.
type Store struct {
	backend Backend
}

// NewStore constructs a catalog store.
func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// Append prepends rec and evicts the oldest records beyond MaxRecords.
func (s *Store) Append(ctx context.Context, rec Record) error {
	rec.Category = NormalizeCategory(rec.Category)
	err := s.backend.Update(ctx, func(records []Record) ([]Record, bool, error) {
		updated := make([]Record, 0, len(records)+1)
		updated = append(updated, rec)
		updated = append(updated, records...)
		if len(updated) > MaxRecords {
			updated = updated[:MaxRecords]
		}
		return updated, true, nil
	})
	if err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

// Delete removes the record with id and returns the remaining total.
func (s *Store) Delete(ctx context.Context, id string) (int, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return 0, ErrMissingParam
	}

	var total int
	err := s.backend.Update(ctx, func(records []Record) ([]Record, bool, error) {
		for i, rec := range records {
			if rec.ID == id {
				updated := append(records[:i:i], records[i+1:]...)
				total = len(updated)
				return updated, true, nil
			}
		}
		return nil, false, ErrNotFound
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// SetCategory files one record under category and returns the stored value.
func (s *Store) SetCategory(ctx context.Context, id, category string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrMissingParam
	}
	category = NormalizeCategory(category)

	err := s.backend.Update(ctx, func(records []Record) ([]Record, bool, error) {
		for i := range records {
			if records[i].ID == id {
				records[i].Category = category
				return records, true, nil
			}
		}
		return nil, false, ErrNotFound
	})
	if err != nil {
		return "", err
	}
	return category, nil
}

// RenameCategory moves every record in from to to and returns how many moved.
func (s *Store) RenameCategory(ctx context.Context, from, to string) (int, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" || to == "" {
		return 0, ErrMissingParam
	}
	return s.recategorize(ctx, from, to)
}

// DeleteCategory moves every record in name to replacement, or to
// DefaultCategory when replacement is blank.
func (s *Store) DeleteCategory(ctx context.Context, name, replacement string) (int, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, "", ErrMissingParam
	}
	replacement = NormalizeCategory(replacement)
	moved, err := s.recategorize(ctx, name, replacement)
	if err != nil {
		return 0, "", err
	}
	return moved, replacement, nil
}

func (s *Store) recategorize(ctx context.Context, from, to string) (int, error) {
	var count int
	err := s.backend.Update(ctx, func(records []Record) ([]Record, bool, error) {
		count = 0
		for i := range records {
			if records[i].Category == from {
				records[i].Category = to
				count++
			}
		}
		if count == 0 {
			return nil, false, ErrNoChanges
		}
		return records, true, nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// List returns the catalog, most recent first.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	records, err := s.backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

// Categories counts records per category, largest first.
func (s *Store) Categories(ctx context.Context) ([]CategoryCount, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return countCategories(records), nil
}

func countCategories(records []Record) []CategoryCount {
	counts := make(map[string]int)
	for _, rec := range records {
		counts[NormalizeCategory(rec.Category)]++
	}
	out := make([]CategoryCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, CategoryCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}
