package bolt

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"time"

	"go.etcd.io/bbolt"

	"hisabkitab/backend/internal/store"
)

// Store keeps one bucket per named store. Keys are big-endian ids, so a
// full scan returns records in id order; local ids are time based, which
// keeps that close to insertion order.
type Store struct {
	db *bbolt.DB
}

func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) GetAll(_ context.Context, name string) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, 64)
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(name))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(_, v []byte) error {
			out = append(out, bytes.Clone(v))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) GetByID(_ context.Context, name string, id int64) (json.RawMessage, error) {
	var raw json.RawMessage
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(name))
		if bucket == nil {
			return store.ErrNotFound
		}
		v := bucket.Get(key(id))
		if v == nil {
			return store.ErrNotFound
		}
		raw = bytes.Clone(v)
		return nil
	})
	return raw, err
}

func (s *Store) Put(_ context.Context, name string, id int64, record json.RawMessage) error {
	if !json.Valid(record) {
		return store.ErrInvalidInput
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(name))
		if err != nil {
			return err
		}
		return bucket.Put(key(id), record)
	})
}

func (s *Store) DeleteByID(_ context.Context, name string, id int64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(name))
		if bucket == nil {
			return nil
		}
		return bucket.Delete(key(id))
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}

func key(id int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}
