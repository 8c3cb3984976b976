package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"hisabkitab/backend/internal/domain"
	"hisabkitab/backend/internal/report"
)

func dailyAt(clock string, lastRun *time.Time) domain.ScheduledExportConfig {
	return domain.ScheduledExportConfig{
		Email:        "owner@example.com",
		Frequency:    domain.FrequencyDaily,
		ScheduleTime: clock,
		IsActive:     true,
		LastRunAt:    lastRun,
	}
}

func intRef(v int) *int { return &v }

func TestIsDueDailyWithinWindow(t *testing.T) {
	now := time.Date(2024, 5, 10, 8, 15, 0, 0, time.UTC)
	lastRun := now.Add(-25 * time.Hour)
	cfg := dailyAt("08:00", &lastRun)

	if !IsDue(cfg, now) {
		t.Fatalf("expected daily 08:00 to be due at 08:15")
	}
	late := time.Date(2024, 5, 10, 9, 5, 0, 0, time.UTC)
	if IsDue(cfg, late) {
		t.Fatalf("expected 09:05 to be outside the window")
	}
}

func TestIsDueRespectsMinimumInterval(t *testing.T) {
	now := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	recent := now.Add(-22 * time.Hour)
	if IsDue(dailyAt("08:00", &recent), now) {
		t.Fatalf("run 22h ago must not be due again")
	}
	if !IsDue(dailyAt("08:00", nil), now) {
		t.Fatalf("never-run config must be due")
	}

	inactive := dailyAt("08:00", nil)
	inactive.IsActive = false
	if IsDue(inactive, now) {
		t.Fatalf("inactive config must never be due")
	}
	if IsDue(dailyAt("8am", nil), now) {
		t.Fatalf("malformed schedule time must never be due")
	}
}

func TestIsDueWindowCrossesMidnight(t *testing.T) {
	now := time.Date(2024, 5, 11, 0, 10, 0, 0, time.UTC)
	if !IsDue(dailyAt("23:50", nil), now) {
		t.Fatalf("expected 23:50 schedule to be due at 00:10")
	}
}

func TestIsDueWeekly(t *testing.T) {
	friday := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	cfg := dailyAt("08:00", nil)
	cfg.Frequency = domain.FrequencyWeekly
	cfg.DayOfWeek = intRef(int(time.Friday))

	if !IsDue(cfg, friday) {
		t.Fatalf("expected weekly config due on its weekday")
	}
	if IsDue(cfg, friday.AddDate(0, 0, 1)) {
		t.Fatalf("weekly config must not run on another weekday")
	}

	lastRun := friday.Add(-6*24*time.Hour - 22*time.Hour)
	cfg.LastRunAt = &lastRun
	if IsDue(cfg, friday) {
		t.Fatalf("weekly config ran less than 6d23h ago")
	}
}

func TestIsDueMonthlyClampsToLastDay(t *testing.T) {
	cfg := dailyAt("09:00", nil)
	cfg.Frequency = domain.FrequencyMonthly
	cfg.DayOfMonth = intRef(31)

	if !IsDue(cfg, time.Date(2024, 2, 29, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("day 31 should run on the last day of February")
	}
	if IsDue(cfg, time.Date(2024, 2, 28, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("must not run before the clamped day")
	}
}

func TestIsDueUsesConfigTimezone(t *testing.T) {
	cfg := dailyAt("08:00", nil)
	cfg.Timezone = "Asia/Kolkata"
	// 08:00 IST is 02:30 UTC.
	if !IsDue(cfg, time.Date(2024, 5, 10, 2, 30, 0, 0, time.UTC)) {
		t.Fatalf("expected due at 08:00 local time")
	}
	if IsDue(cfg, time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("08:00 UTC is 13:30 in Kolkata")
	}
}

func TestWindow(t *testing.T) {
	now := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
	cases := []struct {
		frequency string
		from      string
	}{
		{domain.FrequencyDaily, "2024-03-14"},
		{domain.FrequencyWeekly, "2024-03-08"},
		{domain.FrequencyMonthly, "2024-02-15"},
	}
	for _, c := range cases {
		cfg := dailyAt("08:00", nil)
		cfg.Frequency = c.frequency
		w := Window(cfg, now)
		if w.From.String() != c.from || w.To.String() != "2024-03-15" {
			t.Fatalf("%s: unexpected window %s..%s", c.frequency, w.From, w.To)
		}
	}
}

func TestBuildWorkbookWritesOneSheetPerType(t *testing.T) {
	period := report.Range{From: domain.NewDate(2024, 5, 1), To: domain.NewDate(2024, 5, 31)}
	data := Data{
		ReportTypes: []string{domain.ReportSales, domain.ReportExpenses},
		Sales: []domain.Sale{
			{InvoiceNumber: "INV-1", SaleDate: domain.NewDate(2024, 5, 2), TotalAmount: decimal.RequireFromString("118.50")},
			{InvoiceNumber: "INV-OLD", SaleDate: domain.NewDate(2024, 4, 2), TotalAmount: decimal.NewFromInt(5)},
		},
		Expenses: []domain.Expense{
			{Category: "rent", ExpenseDate: domain.NewDate(2024, 5, 3), Amount: decimal.NewFromInt(40)},
		},
	}

	raw, err := BuildWorkbook(data, period)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != "Sales" || sheets[1] != "Expenses" {
		t.Fatalf("unexpected sheets %v", sheets)
	}

	rows, err := f.GetRows("Sales")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 2 || rows[1][1] != "INV-1" || rows[1][6] != "118.5" {
		t.Fatalf("unexpected sales rows %v", rows)
	}

	if _, err := BuildWorkbook(Data{ReportTypes: []string{"payroll"}}, period); err == nil {
		t.Fatalf("expected unknown report type error")
	}
	if FileName(period) != "hisabkitab-report-2024-05-01_2024-05-31.xlsx" {
		t.Fatalf("unexpected file name %s", FileName(period))
	}
}
