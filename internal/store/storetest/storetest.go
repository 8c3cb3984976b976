// Package storetest holds the behaviour every store.LocalStore
// implementation must share.
package storetest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"hisabkitab/backend/internal/store"
)

func Run(t *testing.T, open func(t *testing.T) store.LocalStore) {
	t.Helper()

	t.Run("PutThenGetByID", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		if err := s.Put(ctx, "expenses", 1, json.RawMessage(`{"id":1,"amount":"100"}`)); err != nil {
			t.Fatalf("put: %v", err)
		}
		raw, err := s.GetByID(ctx, "expenses", 1)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		var got map[string]any
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got["amount"] != "100" {
			t.Fatalf("expected amount 100, got %v", got["amount"])
		}
	})

	t.Run("PutTwiceKeepsOneRecord", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		record := json.RawMessage(`{"id":7,"title":"same"}`)
		for i := 0; i < 2; i++ {
			if err := s.Put(ctx, "notifications", 7, record); err != nil {
				t.Fatalf("put #%d: %v", i, err)
			}
		}
		all, err := s.GetAll(ctx, "notifications")
		if err != nil {
			t.Fatalf("get all: %v", err)
		}
		if len(all) != 1 {
			t.Fatalf("expected 1 record after duplicate put, got %d", len(all))
		}
	})

	t.Run("PutOverwritesAndKeepsOrder", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		for _, id := range []int64{10, 20, 30} {
			if err := store.Save(ctx, s, "products", id, map[string]any{"id": id, "v": 1}); err != nil {
				t.Fatalf("save %d: %v", id, err)
			}
		}
		if err := store.Save(ctx, s, "products", 10, map[string]any{"id": 10, "v": 2}); err != nil {
			t.Fatalf("overwrite: %v", err)
		}

		all, err := store.All[struct {
			ID int64 `json:"id"`
			V  int   `json:"v"`
		}](ctx, s, "products")
		if err != nil {
			t.Fatalf("all: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("expected 3 records, got %d", len(all))
		}
		if all[0].ID != 10 || all[0].V != 2 {
			t.Fatalf("expected first record id=10 v=2, got %+v", all[0])
		}
		if all[1].ID != 20 || all[2].ID != 30 {
			t.Fatalf("unexpected order: %+v", all)
		}
	})

	t.Run("GetByIDMissing", func(t *testing.T) {
		s := open(t)
		_, err := s.GetByID(context.Background(), "expenses", 404)
		if !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("DeleteIsNoopWhenAbsent", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		if err := s.DeleteByID(ctx, "expenses", 99); err != nil {
			t.Fatalf("delete on empty store: %v", err)
		}
		if err := s.Put(ctx, "expenses", 99, json.RawMessage(`{"id":99}`)); err != nil {
			t.Fatalf("put: %v", err)
		}
		if err := s.DeleteByID(ctx, "expenses", 99); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := s.DeleteByID(ctx, "expenses", 99); err != nil {
			t.Fatalf("second delete: %v", err)
		}
		if _, err := s.GetByID(ctx, "expenses", 99); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected deleted record to be gone, got %v", err)
		}
	})

	t.Run("StoresAreIsolated", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		if err := s.Put(ctx, "sales", 1, json.RawMessage(`{"id":1}`)); err != nil {
			t.Fatalf("put: %v", err)
		}
		all, err := s.GetAll(ctx, "purchases")
		if err != nil {
			t.Fatalf("get all: %v", err)
		}
		if len(all) != 0 {
			t.Fatalf("expected empty purchases store, got %d", len(all))
		}
	})

	t.Run("RejectsInvalidJSON", func(t *testing.T) {
		s := open(t)
		err := s.Put(context.Background(), "sales", 1, json.RawMessage(`{broken`))
		if !errors.Is(err, store.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})
}
