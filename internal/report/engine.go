package report

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"hisabkitab/backend/internal/cache"
	"hisabkitab/backend/internal/domain"
)

// Sources are the collections a dashboard is computed from.
type Sources struct {
	Sales     []domain.Sale
	Purchases []domain.Purchase
	Expenses  []domain.Expense
	Products  []domain.Product
}

// Loader fetches Sources on a cache miss.
type Loader func(ctx context.Context) (Sources, error)

type Engine struct {
	cache    cache.ReportCache
	cacheTTL time.Duration
	now      func() time.Time
}

func NewEngine(cacheStore cache.ReportCache, cacheTTL time.Duration) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopReportCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 20 * time.Second
	}

	return &Engine{
		cache:    cacheStore,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// Dashboard summarizes the company's data for r, reading through the cache.
// lowStockLevel is the fallback reorder level for products without one.
func (e *Engine) Dashboard(ctx context.Context, companyID int64, r Range, lowStockLevel int, load Loader) (domain.Dashboard, error) {
	cacheKey := buildCacheKey(companyID, r, lowStockLevel)
	if cached, ok, err := e.cache.Get(ctx, cacheKey); err == nil && ok {
		cached.Cached = true
		return *cached, nil
	}

	src, err := load(ctx)
	if err != nil {
		return domain.Dashboard{}, err
	}

	d := Summarize(src.Sales, src.Purchases, src.Expenses, src.Products, r)
	if lowStockLevel > 0 {
		d.LowStock = StockAlerts(src.Products, lowStockLevel)
	}
	d.GeneratedAt = e.now().UTC().Format(time.RFC3339)

	_ = e.cache.Set(ctx, cacheKey, &d, e.cacheTTL)
	return d, nil
}

func buildCacheKey(companyID int64, r Range, lowStockLevel int) string {
	parts := []string{
		strconv.FormatInt(companyID, 10),
		r.From.String(),
		r.To.String(),
		strconv.Itoa(lowStockLevel),
	}
	hash := sha1.Sum([]byte(strings.Join(parts, "|")))
	return "dash:" + hex.EncodeToString(hash[:])
}
