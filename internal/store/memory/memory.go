package memory

import (
	"context"
	"encoding/json"
	"slices"
	"sync"

	"hisabkitab/backend/internal/store"
)

type table struct {
	records map[int64]json.RawMessage
	order   []int64
}

type Store struct {
	mu     sync.RWMutex
	tables map[string]*table
}

func New() *Store {
	return &Store{tables: make(map[string]*table)}
}

func (s *Store) GetAll(_ context.Context, name string) ([]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[name]
	if !ok {
		return []json.RawMessage{}, nil
	}
	out := make([]json.RawMessage, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, slices.Clone(t.records[id]))
	}
	return out, nil
}

func (s *Store) GetByID(_ context.Context, name string, id int64) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[name]
	if !ok {
		return nil, store.ErrNotFound
	}
	raw, ok := t.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return slices.Clone(raw), nil
}

func (s *Store) Put(_ context.Context, name string, id int64, record json.RawMessage) error {
	if !json.Valid(record) {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[name]
	if !ok {
		t = &table{records: make(map[int64]json.RawMessage)}
		s.tables[name] = t
	}
	if _, exists := t.records[id]; !exists {
		t.order = append(t.order, id)
	}
	t.records[id] = slices.Clone(record)
	return nil
}

func (s *Store) DeleteByID(_ context.Context, name string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[name]
	if !ok {
		return nil
	}
	if _, exists := t.records[id]; !exists {
		return nil
	}
	delete(t.records, id)
	t.order = slices.DeleteFunc(t.order, func(v int64) bool { return v == id })
	return nil
}

func (s *Store) Close() error {
	return nil
}
