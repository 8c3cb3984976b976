package sqlite

import (
	"context"
	"testing"

	"hisabkitab/backend/internal/store"
	"hisabkitab/backend/internal/store/storetest"
)

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.LocalStore {
		s, err := Open(context.Background(), "file::memory:")
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}
