package cache

import (
	"context"
	"sync"
	"time"

	"hisabkitab/backend/internal/domain"
)

type ReportCache interface {
	Get(ctx context.Context, key string) (*domain.Dashboard, bool, error)
	Set(ctx context.Context, key string, value *domain.Dashboard, ttl time.Duration) error
}

type NoopReportCache struct{}

func (NoopReportCache) Get(_ context.Context, _ string) (*domain.Dashboard, bool, error) {
	return nil, false, nil
}

func (NoopReportCache) Set(_ context.Context, _ string, _ *domain.Dashboard, _ time.Duration) error {
	return nil
}

// SettingsCache holds each company's business settings between reads.
type SettingsCache interface {
	Get(ctx context.Context, companyID int64) (*domain.BusinessSettings, bool, error)
	Set(ctx context.Context, companyID int64, value *domain.BusinessSettings, ttl time.Duration) error
	Invalidate(ctx context.Context, companyID int64) error
}

type settingsEntry struct {
	value     domain.BusinessSettings
	expiresAt time.Time
}

type MemorySettingsCache struct {
	mu      sync.Mutex
	entries map[int64]settingsEntry
	now     func() time.Time
}

func NewMemorySettingsCache() *MemorySettingsCache {
	return &MemorySettingsCache{entries: map[int64]settingsEntry{}, now: time.Now}
}

func (c *MemorySettingsCache) Get(_ context.Context, companyID int64) (*domain.BusinessSettings, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[companyID]
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		delete(c.entries, companyID)
		return nil, false, nil
	}
	value := entry.value
	return &value, true, nil
}

// Set stores a copy of value; a non-positive ttl never expires.
func (c *MemorySettingsCache) Set(_ context.Context, companyID int64, value *domain.BusinessSettings, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := settingsEntry{value: *value}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.entries[companyID] = entry
	return nil
}

func (c *MemorySettingsCache) Invalidate(_ context.Context, companyID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, companyID)
	return nil
}
