package domain

import (
	"github.com/shopspring/decimal"
)

type DailyPoint struct {
	Date   Date            `json:"date"`
	Amount decimal.Decimal `json:"amount"`
	Count  int             `json:"count"`
}

type ProductSales struct {
	ProductID *int64          `json:"product_id,omitempty"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Revenue   decimal.Decimal `json:"revenue"`
}

type StockAlert struct {
	ProductID    int64  `json:"product_id"`
	Name         string `json:"name"`
	Stock        int    `json:"stock"`
	ReorderLevel int    `json:"reorder_level"`
	OutOfStock   bool   `json:"out_of_stock"`
}

type CategoryTotal struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

type Dashboard struct {
	From               Date            `json:"from"`
	To                 Date            `json:"to"`
	TotalSales         decimal.Decimal `json:"total_sales"`
	TotalPurchases     decimal.Decimal `json:"total_purchases"`
	TotalExpenses      decimal.Decimal `json:"total_expenses"`
	GrossProfit        decimal.Decimal `json:"gross_profit"`
	NetProfit          decimal.Decimal `json:"net_profit"`
	SalesCount         int             `json:"sales_count"`
	AverageTicket      decimal.Decimal `json:"average_ticket"`
	DailySales         []DailyPoint    `json:"daily_sales"`
	TopProducts        []ProductSales  `json:"top_products"`
	LowStock           []StockAlert    `json:"low_stock"`
	ExpensesByCategory []CategoryTotal `json:"expenses_by_category"`
	GeneratedAt        string          `json:"generated_at"`
	Cached             bool            `json:"cached"`
}

type StatusTotal struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

type PaymentStats struct {
	Total          int                  `json:"total"`
	Pending        StatusTotal          `json:"pending"`
	Success        StatusTotal          `json:"success"`
	Failed         StatusTotal          `json:"failed"`
	TotalCollected decimal.Decimal      `json:"total_collected"`
	LastSuccessful *SubscriptionPayment `json:"last_successful,omitempty"`
}

type RunSummary struct {
	Processed int      `json:"processed"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors"`
}
