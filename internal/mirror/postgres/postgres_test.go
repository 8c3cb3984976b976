package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"hisabkitab/backend/internal/mirror"
)

func TestBuildSelectWithFilters(t *testing.T) {
	company := int64(3)
	id := int64(9)
	query, args, err := buildSelect("expenses", mirror.Filter{CompanyID: &company, ID: &id, OrderBy: "expense_date", Desc: true})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := "SELECT to_jsonb(t) FROM expenses t WHERE t.company_id = $1 AND t.id = $2 ORDER BY t.expense_date DESC"
	if query != want {
		t.Fatalf("unexpected query:\n got %s\nwant %s", query, want)
	}
	if len(args) != 2 || args[0] != company || args[1] != id {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestBuildSelectRejectsInjection(t *testing.T) {
	if _, _, err := buildSelect("expenses", mirror.Filter{OrderBy: "id; drop table x"}); err == nil {
		t.Fatalf("expected invalid order column error")
	}
	if _, _, err := buildSelect("Expenses", mirror.Filter{}); err == nil {
		t.Fatalf("expected invalid table error")
	}
}

func TestBuildInsertSortsColumns(t *testing.T) {
	query, cols, err := buildInsert("notifications", map[string]any{"title": "x", "company_id": 1, "is_read": false})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if strings.Join(cols, ",") != "company_id,is_read,title" {
		t.Fatalf("unexpected columns %v", cols)
	}
	if !strings.Contains(query, "INSERT INTO notifications AS t (company_id, is_read, title)") {
		t.Fatalf("unexpected query %s", query)
	}
	if _, _, err := buildInsert("notifications", map[string]any{"bad-col": 1}); err == nil {
		t.Fatalf("expected invalid column error")
	}
}

func TestBuildUpdateNeverSetsID(t *testing.T) {
	_, cols, err := buildUpdate("expenses", map[string]any{"id": 5, "amount": "250"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(cols) != 1 || cols[0] != "amount" {
		t.Fatalf("expected only amount column, got %v", cols)
	}
	if _, _, err := buildUpdate("expenses", map[string]any{"id": 5}); err == nil {
		t.Fatalf("expected empty patch error")
	}
}

func TestMirrorRoundTripIntegration(t *testing.T) {
	databaseURL := os.Getenv("HISABKITAB_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set HISABKITAB_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	table := fmt.Sprintf("it_expenses_%d", time.Now().UnixNano())
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE %s (
			id bigserial PRIMARY KEY,
			company_id bigint,
			category text,
			amount numeric(14,2),
			expense_date date,
			created_at timestamptz DEFAULT now(),
			updated_at timestamptz DEFAULT now()
		)`, table)); err != nil {
		t.Fatalf("create table: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, table))
	})

	row, err := s.Insert(ctx, table, map[string]any{"company_id": 7, "category": "rent", "amount": "100.50", "expense_date": "2024-05-01"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	var inserted struct {
		ID     int64   `json:"id"`
		Amount float64 `json:"amount"`
	}
	if err := json.Unmarshal(row, &inserted); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if inserted.ID == 0 || inserted.Amount != 100.5 {
		t.Fatalf("unexpected inserted row %s", row)
	}

	if _, err := s.Update(ctx, table, inserted.ID, map[string]any{"amount": "250"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	company := int64(7)
	rows, err := s.Select(ctx, table, mirror.Filter{CompanyID: &company})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 1 || !strings.Contains(string(rows[0]), `"amount": 250`) {
		t.Fatalf("unexpected rows %s", rows)
	}

	if err := s.Delete(ctx, table, inserted.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	rows, err = s.Select(ctx, table, mirror.Filter{CompanyID: &company})
	if err != nil || len(rows) != 0 {
		t.Fatalf("expected empty table after delete, got %d rows (%v)", len(rows), err)
	}
}
