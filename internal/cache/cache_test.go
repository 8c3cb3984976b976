package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"hisabkitab/backend/internal/domain"
)

func TestMemorySettingsCacheExpires(t *testing.T) {
	c := NewMemorySettingsCache()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	if err := c.Set(ctx, 1, &domain.BusinessSettings{BusinessName: "Shop"}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := c.Get(ctx, 1)
	if err != nil || !ok || got.BusinessName != "Shop" {
		t.Fatalf("expected cached settings, got %+v ok=%v err=%v", got, ok, err)
	}

	got.BusinessName = "mutated"
	again, _, _ := c.Get(ctx, 1)
	if again.BusinessName != "Shop" {
		t.Fatalf("cache handed out shared state")
	}

	now = now.Add(time.Minute)
	if _, ok, _ := c.Get(ctx, 1); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestMemorySettingsCacheInvalidate(t *testing.T) {
	c := NewMemorySettingsCache()
	ctx := context.Background()
	_ = c.Set(ctx, 1, &domain.BusinessSettings{BusinessName: "A"}, 0)
	_ = c.Set(ctx, 2, &domain.BusinessSettings{BusinessName: "B"}, 0)

	if err := c.Invalidate(ctx, 1); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, _ := c.Get(ctx, 1); ok {
		t.Fatalf("expected company 1 evicted")
	}
	if _, ok, _ := c.Get(ctx, 2); !ok {
		t.Fatalf("company 2 must stay cached")
	}
}

func TestRedisCacheIntegration(t *testing.T) {
	addr := os.Getenv("HISABKITAB_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set HISABKITAB_TEST_REDIS_ADDR to run redis integration test")
	}

	ctx := context.Background()
	c := NewRedisCache(addr, "", 0)
	t.Cleanup(func() { _ = c.Close() })
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	companyID := time.Now().UnixNano()
	settings := c.Settings()
	if err := settings.Set(ctx, companyID, &domain.BusinessSettings{BusinessName: "Redis Shop"}, time.Minute); err != nil {
		t.Fatalf("set settings: %v", err)
	}
	got, ok, err := settings.Get(ctx, companyID)
	if err != nil || !ok || got.BusinessName != "Redis Shop" {
		t.Fatalf("unexpected settings %+v ok=%v err=%v", got, ok, err)
	}
	if err := settings.Invalidate(ctx, companyID); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, _ := settings.Get(ctx, companyID); ok {
		t.Fatalf("expected settings evicted")
	}

	reports := c.Reports()
	key := "it-" + time.Now().Format(time.RFC3339Nano)
	if err := reports.Set(ctx, key, &domain.Dashboard{SalesCount: 3}, time.Minute); err != nil {
		t.Fatalf("set report: %v", err)
	}
	d, ok, err := reports.Get(ctx, key)
	if err != nil || !ok || d.SalesCount != 3 {
		t.Fatalf("unexpected dashboard %+v ok=%v err=%v", d, ok, err)
	}
}
