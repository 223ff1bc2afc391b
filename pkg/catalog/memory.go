package catalog

import (
	"context"
	"slices"

	"github.com/docker/mdattach/pkg/concurrent"
)

type InMemoryStore struct {
	entries *concurrent.Map[string, *Entry]
}

func NewInMemoryStore() Store {
	return &InMemoryStore{
		entries: concurrent.NewMap[string, *Entry](),
	}
}

func (s *InMemoryStore) Add(_ context.Context, entry *Entry) error {
	if entry.ID == "" {
		return ErrEmptyID
	}
	s.entries.Store(entry.ID, entry)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*Entry, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	entry, exists := s.entries.Load(id)
	if !exists {
		return nil, ErrNotFound
	}
	return entry, nil
}

func (s *InMemoryStore) GetByKey(ctx context.Context, key string) (*Entry, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.StorageKey == key {
			return e, nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) List(_ context.Context) ([]*Entry, error) {
	entries := make([]*Entry, 0, s.entries.Length())
	s.entries.Range(func(_ string, value *Entry) bool {
		entries = append(entries, value)
		return true
	})
	slices.SortFunc(entries, func(a, b *Entry) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return entries, nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}
	if _, exists := s.entries.Load(id); !exists {
		return ErrNotFound
	}
	s.entries.Delete(id)
	return nil
}
