// Package report derives dashboard figures from in-memory collections.
// Everything here is pure; caching lives in Engine.
package report

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"hisabkitab/backend/internal/domain"
)

// maxTrendDays bounds the zero-filled daily series.
const maxTrendDays = 366

// Range is an inclusive span of calendar days. A zero bound is open.
type Range struct {
	From domain.Date
	To   domain.Date
}

func (r Range) Contains(d domain.Date) bool {
	if d.IsZero() {
		return false
	}
	if !r.From.IsZero() && d.Before(r.From.Time) {
		return false
	}
	if !r.To.IsZero() && d.After(r.To.Time) {
		return false
	}
	return true
}

// Days lists every day of a closed range, capped at maxTrendDays.
func (r Range) Days() []domain.Date {
	if r.From.IsZero() || r.To.IsZero() || r.To.Before(r.From.Time) {
		return nil
	}
	days := make([]domain.Date, 0, 31)
	for d := r.From.Time; !d.After(r.To.Time) && len(days) < maxTrendDays; d = d.AddDate(0, 0, 1) {
		days = append(days, domain.Date{Time: d})
	}
	return days
}

// LastDays is the range of n days ending on the UTC day of now.
func LastDays(now time.Time, n int) Range {
	to := domain.DateOf(now)
	if n < 1 {
		n = 1
	}
	return Range{From: domain.Date{Time: to.AddDate(0, 0, -(n - 1))}, To: to}
}

func Summarize(sales []domain.Sale, purchases []domain.Purchase, expenses []domain.Expense, products []domain.Product, r Range) domain.Dashboard {
	d := domain.Dashboard{
		From:               r.From,
		To:                 r.To,
		TotalSales:         decimal.Zero,
		TotalPurchases:     decimal.Zero,
		TotalExpenses:      decimal.Zero,
		AverageTicket:      decimal.Zero,
		DailySales:         []domain.DailyPoint{},
		ExpensesByCategory: []domain.CategoryTotal{},
	}

	daily := map[string]*domain.DailyPoint{}
	for _, day := range r.Days() {
		point := domain.DailyPoint{Date: day, Amount: decimal.Zero}
		d.DailySales = append(d.DailySales, point)
	}
	for i := range d.DailySales {
		daily[d.DailySales[i].Date.String()] = &d.DailySales[i]
	}

	for _, s := range sales {
		if !r.Contains(s.SaleDate) {
			continue
		}
		d.TotalSales = d.TotalSales.Add(s.TotalAmount)
		d.SalesCount++
		if point, ok := daily[s.SaleDate.String()]; ok {
			point.Amount = point.Amount.Add(s.TotalAmount)
			point.Count++
		}
	}
	for _, p := range purchases {
		if r.Contains(p.PurchaseDate) {
			d.TotalPurchases = d.TotalPurchases.Add(p.TotalAmount)
		}
	}

	byCategory := map[string]decimal.Decimal{}
	for _, e := range expenses {
		if !r.Contains(e.ExpenseDate) {
			continue
		}
		d.TotalExpenses = d.TotalExpenses.Add(e.Amount)
		category := strings.TrimSpace(e.Category)
		if category == "" {
			category = "uncategorized"
		}
		byCategory[category] = byCategory[category].Add(e.Amount)
	}
	for category, amount := range byCategory {
		d.ExpensesByCategory = append(d.ExpensesByCategory, domain.CategoryTotal{Category: category, Amount: amount})
	}
	sort.Slice(d.ExpensesByCategory, func(i, j int) bool {
		a, b := d.ExpensesByCategory[i], d.ExpensesByCategory[j]
		if !a.Amount.Equal(b.Amount) {
			return a.Amount.GreaterThan(b.Amount)
		}
		return a.Category < b.Category
	})

	d.GrossProfit = d.TotalSales.Sub(d.TotalPurchases)
	d.NetProfit = d.GrossProfit.Sub(d.TotalExpenses)
	if d.SalesCount > 0 {
		d.AverageTicket = d.TotalSales.Div(decimal.NewFromInt(int64(d.SalesCount))).Round(2)
	}
	d.TopProducts = TopProducts(sales, r, 5)
	d.LowStock = StockAlerts(products, 0)
	return d
}

// TopProducts ranks line items sold within r by quantity, then revenue.
func TopProducts(sales []domain.Sale, r Range, limit int) []domain.ProductSales {
	totals := map[string]*domain.ProductSales{}
	for _, s := range sales {
		if !r.Contains(s.SaleDate) {
			continue
		}
		for _, item := range s.Items {
			key := strings.ToLower(strings.TrimSpace(item.Name))
			if item.ProductID != nil {
				key = "#" + strconv.FormatInt(*item.ProductID, 10)
			}
			entry, ok := totals[key]
			if !ok {
				entry = &domain.ProductSales{ProductID: item.ProductID, Name: item.Name, Revenue: decimal.Zero}
				totals[key] = entry
			}
			entry.Quantity += item.Quantity
			revenue := item.Total
			if revenue.IsZero() {
				revenue = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
			}
			entry.Revenue = entry.Revenue.Add(revenue)
		}
	}

	out := make([]domain.ProductSales, 0, len(totals))
	for _, entry := range totals {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		if !out[i].Revenue.Equal(out[j].Revenue) {
			return out[i].Revenue.GreaterThan(out[j].Revenue)
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// StockAlerts lists products at or below their reorder level, out of stock
// first. fallbackLevel applies to products without a reorder level.
func StockAlerts(products []domain.Product, fallbackLevel int) []domain.StockAlert {
	out := []domain.StockAlert{}
	for _, p := range products {
		level := p.ReorderLevel
		if level == 0 {
			level = fallbackLevel
		}
		if p.Stock > level {
			continue
		}
		out = append(out, domain.StockAlert{
			ProductID:    p.ID,
			Name:         p.Name,
			Stock:        p.Stock,
			ReorderLevel: level,
			OutOfStock:   p.Stock <= 0,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OutOfStock != out[j].OutOfStock {
			return out[i].OutOfStock
		}
		if out[i].Stock != out[j].Stock {
			return out[i].Stock < out[j].Stock
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func PaymentStats(payments []domain.SubscriptionPayment) domain.PaymentStats {
	stats := domain.PaymentStats{
		Pending:        domain.StatusTotal{Amount: decimal.Zero},
		Success:        domain.StatusTotal{Amount: decimal.Zero},
		Failed:         domain.StatusTotal{Amount: decimal.Zero},
		TotalCollected: decimal.Zero,
	}
	for i := range payments {
		p := payments[i]
		stats.Total++
		switch p.Status {
		case domain.PaymentStatusSuccess:
			stats.Success.Count++
			stats.Success.Amount = stats.Success.Amount.Add(p.TotalAmount)
			stats.TotalCollected = stats.TotalCollected.Add(p.TotalAmount)
			if stats.LastSuccessful == nil || paidAt(p).After(paidAt(*stats.LastSuccessful)) {
				stats.LastSuccessful = &p
			}
		case domain.PaymentStatusFailed:
			stats.Failed.Count++
			stats.Failed.Amount = stats.Failed.Amount.Add(p.TotalAmount)
		default:
			stats.Pending.Count++
			stats.Pending.Amount = stats.Pending.Amount.Add(p.TotalAmount)
		}
	}
	return stats
}

func paidAt(p domain.SubscriptionPayment) time.Time {
	if p.PaidAt != nil {
		return *p.PaidAt
	}
	return p.UpdatedAt
}
