package billing

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestBreakdownWaivesGatewayCharges(t *testing.T) {
	b := Breakdown(decimal.NewFromInt(1000), decimal.NewFromInt(18))

	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"gst", b.GSTAmount, "180"},
		{"gross", b.GrossAmount, "1180"},
		{"charges", b.GatewayCharges, "27.85"},
		{"discount", b.Discount, "27.85"},
		{"total", b.TotalAmount, "1180"},
	}
	for _, c := range checks {
		if !c.got.Equal(decimal.RequireFromString(c.want)) {
			t.Fatalf("%s: expected %s, got %s", c.name, c.want, c.got)
		}
	}
}

func TestBreakdownTotalIsAmountPlusGST(t *testing.T) {
	for _, base := range []string{"0", "1", "299", "799.99", "2999"} {
		b := Breakdown(decimal.RequireFromString(base), DefaultGSTPercent)
		if !b.TotalAmount.Equal(b.Amount.Add(b.GSTAmount)) {
			t.Fatalf("base %s: total %s != amount + gst %s", base, b.TotalAmount, b.Amount.Add(b.GSTAmount))
		}
	}
}

func TestVerifySignature(t *testing.T) {
	sig := Sign("order_1", "pay_1", "secret")

	if !VerifySignature("order_1", "pay_1", sig, "secret") {
		t.Fatalf("expected valid signature")
	}
	if VerifySignature("order_1", "pay_2", sig, "secret") {
		t.Fatalf("signature for another payment must not verify")
	}
	if VerifySignature("order_1", "pay_1", sig, "other") {
		t.Fatalf("signature under another secret must not verify")
	}
	if VerifySignature("order_1", "pay_1", sig, "") {
		t.Fatalf("empty secret must never verify")
	}
}

func TestPlansAndPeriodEnd(t *testing.T) {
	plan, err := LookupPlan(" Quarterly ")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	start := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	if got := PeriodEnd(plan, start); !got.Equal(time.Date(2024, time.April, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected period end %s", got)
	}
	if _, err := LookupPlan("weekly"); !errors.Is(err, ErrUnknownPlan) {
		t.Fatalf("expected ErrUnknownPlan, got %v", err)
	}
}
