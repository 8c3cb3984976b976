package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"hisabkitab/backend/internal/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(n int) domain.Date { return domain.NewDate(2024, time.May, n) }

func fixtures() Sources {
	pid := int64(7)
	return Sources{
		Sales: []domain.Sale{
			{SaleDate: day(1), TotalAmount: d("100"), Items: []domain.LineItem{{ProductID: &pid, Name: "Tea", Quantity: 2, Total: d("100")}}},
			{SaleDate: day(3), TotalAmount: d("50"), Items: []domain.LineItem{{Name: "Biscuit", Quantity: 5, UnitPrice: d("10")}}},
			{SaleDate: day(3), TotalAmount: d("30"), Items: []domain.LineItem{{ProductID: &pid, Name: "Tea", Quantity: 1, Total: d("30")}}},
			{SaleDate: day(20), TotalAmount: d("999")},
		},
		Purchases: []domain.Purchase{
			{PurchaseDate: day(2), TotalAmount: d("60")},
			{PurchaseDate: day(30), TotalAmount: d("500")},
		},
		Expenses: []domain.Expense{
			{ExpenseDate: day(1), Category: "rent", Amount: d("40")},
			{ExpenseDate: day(2), Category: "power", Amount: d("15")},
			{ExpenseDate: day(3), Category: "rent", Amount: d("5")},
		},
		Products: []domain.Product{
			{Meta: domain.Meta{ID: 1}, Name: "Tea", Stock: 20, ReorderLevel: 5},
			{Meta: domain.Meta{ID: 2}, Name: "Sugar", Stock: 3, ReorderLevel: 5},
			{Meta: domain.Meta{ID: 3}, Name: "Salt", Stock: 0, ReorderLevel: 2},
			{Meta: domain.Meta{ID: 4}, Name: "Rice", Stock: 1},
		},
	}
}

func TestSummarizeTotalsWithinRange(t *testing.T) {
	src := fixtures()
	got := Summarize(src.Sales, src.Purchases, src.Expenses, src.Products, Range{From: day(1), To: day(3)})

	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"sales", got.TotalSales, "180"},
		{"purchases", got.TotalPurchases, "60"},
		{"expenses", got.TotalExpenses, "60"},
		{"gross", got.GrossProfit, "120"},
		{"net", got.NetProfit, "60"},
		{"average", got.AverageTicket, "60"},
	}
	for _, c := range checks {
		if !c.got.Equal(d(c.want)) {
			t.Fatalf("%s: expected %s, got %s", c.name, c.want, c.got)
		}
	}
	if got.SalesCount != 3 {
		t.Fatalf("expected 3 sales, got %d", got.SalesCount)
	}

	if len(got.DailySales) != 3 {
		t.Fatalf("expected 3 zero-filled days, got %d", len(got.DailySales))
	}
	if !got.DailySales[1].Amount.IsZero() || got.DailySales[2].Count != 2 || !got.DailySales[2].Amount.Equal(d("80")) {
		t.Fatalf("unexpected trend %+v", got.DailySales)
	}

	if len(got.ExpensesByCategory) != 2 || got.ExpensesByCategory[0].Category != "rent" || !got.ExpensesByCategory[0].Amount.Equal(d("45")) {
		t.Fatalf("unexpected categories %+v", got.ExpensesByCategory)
	}
}

func TestTopProductsRanksByQuantity(t *testing.T) {
	top := TopProducts(fixtures().Sales, Range{From: day(1), To: day(3)}, 5)
	if len(top) != 2 {
		t.Fatalf("expected 2 products, got %+v", top)
	}
	if top[0].Name != "Biscuit" || top[0].Quantity != 5 || !top[0].Revenue.Equal(d("50")) {
		t.Fatalf("unexpected leader %+v", top[0])
	}
	if top[1].Quantity != 3 || !top[1].Revenue.Equal(d("130")) {
		t.Fatalf("tea lines were not merged by product id: %+v", top[1])
	}
	if len(TopProducts(fixtures().Sales, Range{}, 1)) != 1 {
		t.Fatalf("limit not applied")
	}
}

func TestStockAlertsOrdersOutOfStockFirst(t *testing.T) {
	alerts := StockAlerts(fixtures().Products, 0)
	if len(alerts) != 2 || alerts[0].Name != "Salt" || !alerts[0].OutOfStock || alerts[1].Name != "Sugar" {
		t.Fatalf("unexpected alerts %+v", alerts)
	}

	withFallback := StockAlerts(fixtures().Products, 2)
	if len(withFallback) != 3 || withFallback[1].Name != "Rice" {
		t.Fatalf("expected fallback level to catch Rice, got %+v", withFallback)
	}
}

func TestPaymentStats(t *testing.T) {
	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.AddDate(0, 1, 0)
	stats := PaymentStats([]domain.SubscriptionPayment{
		{Meta: domain.Meta{ID: 1}, Status: domain.PaymentStatusSuccess, TotalAmount: d("352.82"), PaidAt: &early},
		{Meta: domain.Meta{ID: 2}, Status: domain.PaymentStatusSuccess, TotalAmount: d("352.82"), PaidAt: &late},
		{Meta: domain.Meta{ID: 3}, Status: domain.PaymentStatusFailed, TotalAmount: d("100")},
		{Meta: domain.Meta{ID: 4}, Status: domain.PaymentStatusPending, TotalAmount: d("50")},
	})

	if stats.Total != 4 || stats.Success.Count != 2 || stats.Failed.Count != 1 || stats.Pending.Count != 1 {
		t.Fatalf("unexpected counts %+v", stats)
	}
	if !stats.TotalCollected.Equal(d("705.64")) {
		t.Fatalf("unexpected collected %s", stats.TotalCollected)
	}
	if stats.LastSuccessful == nil || stats.LastSuccessful.ID != 2 {
		t.Fatalf("expected latest success to be payment 2, got %+v", stats.LastSuccessful)
	}
}

type mapReportCache struct {
	items map[string]domain.Dashboard
}

func (m *mapReportCache) Get(_ context.Context, key string) (*domain.Dashboard, bool, error) {
	v, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	return &v, true, nil
}

func (m *mapReportCache) Set(_ context.Context, key string, value *domain.Dashboard, _ time.Duration) error {
	m.items[key] = *value
	return nil
}

func TestEngineReadsThroughCache(t *testing.T) {
	c := &mapReportCache{items: map[string]domain.Dashboard{}}
	engine := NewEngine(c, time.Minute)
	loads := 0
	load := func(context.Context) (Sources, error) {
		loads++
		return fixtures(), nil
	}
	r := Range{From: day(1), To: day(3)}
	ctx := context.Background()

	first, err := engine.Dashboard(ctx, 1, r, 0, load)
	if err != nil || first.Cached {
		t.Fatalf("expected fresh dashboard, got cached=%v err=%v", first.Cached, err)
	}
	second, err := engine.Dashboard(ctx, 1, r, 0, load)
	if err != nil || !second.Cached || !second.TotalSales.Equal(first.TotalSales) {
		t.Fatalf("expected cached dashboard, got %+v err=%v", second, err)
	}
	if _, err := engine.Dashboard(ctx, 2, r, 0, load); err != nil {
		t.Fatalf("other company: %v", err)
	}
	if loads != 2 {
		t.Fatalf("expected 2 loads (one per company), got %d", loads)
	}
}

func TestEnginePropagatesLoadError(t *testing.T) {
	engine := NewEngine(nil, 0)
	boom := errors.New("boom")
	_, err := engine.Dashboard(context.Background(), 1, Range{}, 0, func(context.Context) (Sources, error) {
		return Sources{}, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}
}
