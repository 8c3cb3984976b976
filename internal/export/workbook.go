package export

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"hisabkitab/backend/internal/domain"
	"hisabkitab/backend/internal/report"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Data is what a company exports; only the listed ReportTypes get a sheet.
type Data struct {
	ReportTypes []string
	Sales       []domain.Sale
	Purchases   []domain.Purchase
	Expenses    []domain.Expense
}

var sheetTitles = map[string]string{
	domain.ReportSales:     "Sales",
	domain.ReportPurchases: "Purchases",
	domain.ReportExpenses:  "Expenses",
}

func FileName(period report.Range) string {
	return fmt.Sprintf("hisabkitab-report-%s_%s.xlsx", period.From.String(), period.To.String())
}

// BuildWorkbook renders one sheet per report type with the rows dated
// inside period.
func BuildWorkbook(data Data, period report.Range) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	types := data.ReportTypes
	if len(types) == 0 {
		types = []string{domain.ReportSales, domain.ReportPurchases, domain.ReportExpenses}
	}

	first := true
	seen := map[string]bool{}
	for _, kind := range types {
		title, ok := sheetTitles[kind]
		if !ok {
			return nil, fmt.Errorf("unknown report type %q", kind)
		}
		if seen[kind] {
			continue
		}
		seen[kind] = true
		if first {
			if err := f.SetSheetName("Sheet1", title); err != nil {
				return nil, err
			}
			first = false
		} else if _, err := f.NewSheet(title); err != nil {
			return nil, err
		}

		var rows [][]any
		switch kind {
		case domain.ReportSales:
			rows = salesRows(data.Sales, period)
		case domain.ReportPurchases:
			rows = purchaseRows(data.Purchases, period)
		case domain.ReportExpenses:
			rows = expenseRows(data.Expenses, period)
		}
		if err := writeRows(f, title, rows); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func money(v decimal.Decimal) float64 {
	return v.Round(2).InexactFloat64()
}

func salesRows(sales []domain.Sale, period report.Range) [][]any {
	rows := [][]any{{"Date", "Invoice", "Customer", "Subtotal", "Tax", "Discount", "Total", "Payment method", "Payment status"}}
	for _, s := range sales {
		if !period.Contains(s.SaleDate) {
			continue
		}
		rows = append(rows, []any{s.SaleDate.String(), s.InvoiceNumber, s.CustomerName, money(s.Subtotal), money(s.TaxAmount), money(s.Discount), money(s.TotalAmount), s.PaymentMethod, s.PaymentStatus})
	}
	return rows
}

func purchaseRows(purchases []domain.Purchase, period report.Range) [][]any {
	rows := [][]any{{"Date", "Supplier", "Bill", "Tax", "Total", "Payment status"}}
	for _, p := range purchases {
		if !period.Contains(p.PurchaseDate) {
			continue
		}
		rows = append(rows, []any{p.PurchaseDate.String(), p.SupplierName, p.BillNumber, money(p.TaxAmount), money(p.TotalAmount), p.PaymentStatus})
	}
	return rows
}

func expenseRows(expenses []domain.Expense, period report.Range) [][]any {
	rows := [][]any{{"Date", "Category", "Description", "Amount", "Payment method"}}
	for _, e := range expenses {
		if !period.Contains(e.ExpenseDate) {
			continue
		}
		rows = append(rows, []any{e.ExpenseDate.String(), e.Category, e.Description, money(e.Amount), e.PaymentMethod})
	}
	return rows
}
