package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// LocalStore is the device-side key/value table abstraction. Each named
// store holds JSON records keyed by their numeric id.
type LocalStore interface {
	GetAll(ctx context.Context, store string) ([]json.RawMessage, error)
	GetByID(ctx context.Context, store string, id int64) (json.RawMessage, error)
	Put(ctx context.Context, store string, id int64, record json.RawMessage) error
	DeleteByID(ctx context.Context, store string, id int64) error
	Close() error
}

func All[T any](ctx context.Context, s LocalStore, name string) ([]T, error) {
	raws, err := s.GetAll(ctx, name)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("decode %s record: %w", name, err)
		}
		out = append(out, item)
	}
	return out, nil
}

func Get[T any](ctx context.Context, s LocalStore, name string, id int64) (*T, error) {
	raw, err := s.GetByID(ctx, name, id)
	if err != nil {
		return nil, err
	}
	var item T
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("decode %s/%d: %w", name, id, err)
	}
	return &item, nil
}

func Save[T any](ctx context.Context, s LocalStore, name string, id int64, item T) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return s.Put(ctx, name, id, raw)
}
