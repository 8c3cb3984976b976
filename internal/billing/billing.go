// Package billing prices subscription plans and verifies gateway callbacks.
package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidSignature = errors.New("invalid payment signature")
	ErrUnknownPlan      = errors.New("unknown subscription plan")
)

var (
	gatewayFeeRate    = decimal.RequireFromString("0.02")
	gatewayFeeGSTRate = decimal.RequireFromString("0.18")
	hundred           = decimal.NewFromInt(100)
)

// DefaultGSTPercent applies to every plan unless the caller overrides it.
var DefaultGSTPercent = decimal.NewFromInt(18)

type Plan struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
	Months int             `json:"months"`
}

var plans = map[string]Plan{
	"monthly":   {Code: "monthly", Name: "Monthly", Amount: decimal.NewFromInt(299), Months: 1},
	"quarterly": {Code: "quarterly", Name: "Quarterly", Amount: decimal.NewFromInt(799), Months: 3},
	"yearly":    {Code: "yearly", Name: "Yearly", Amount: decimal.NewFromInt(2999), Months: 12},
}

func LookupPlan(code string) (Plan, error) {
	plan, ok := plans[strings.ToLower(strings.TrimSpace(code))]
	if !ok {
		return Plan{}, fmt.Errorf("%w: %q", ErrUnknownPlan, code)
	}
	return plan, nil
}

// PeriodEnd is start advanced by the plan length in calendar months.
func PeriodEnd(plan Plan, start time.Time) time.Time {
	return start.AddDate(0, plan.Months, 0)
}

type PaymentBreakdown struct {
	Amount         decimal.Decimal `json:"amount"`
	GSTPercent     decimal.Decimal `json:"gst_percent"`
	GSTAmount      decimal.Decimal `json:"gst_amount"`
	GrossAmount    decimal.Decimal `json:"gross_amount"`
	GatewayFee     decimal.Decimal `json:"gateway_fee"`
	GatewayFeeGST  decimal.Decimal `json:"gateway_fee_gst"`
	GatewayCharges decimal.Decimal `json:"gateway_charges"`
	Discount       decimal.Decimal `json:"discount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
}

// Breakdown prices a payment of base at gstPercent. Gateway charges are
// shown to the customer and waived in full, so the total is base plus GST.
func Breakdown(base decimal.Decimal, gstPercent decimal.Decimal) PaymentBreakdown {
	gst := base.Mul(gstPercent).Div(hundred).Round(2)
	gross := base.Add(gst)
	fee := gross.Mul(gatewayFeeRate)
	feeGST := fee.Mul(gatewayFeeGSTRate)
	charges := fee.Add(feeGST).Round(2)
	discount := charges

	return PaymentBreakdown{
		Amount:         base,
		GSTPercent:     gstPercent,
		GSTAmount:      gst,
		GrossAmount:    gross,
		GatewayFee:     fee.Round(2),
		GatewayFeeGST:  feeGST.Round(2),
		GatewayCharges: charges,
		Discount:       discount,
		TotalAmount:    gross.Add(charges).Sub(discount),
	}
}

// Sign is the Razorpay checkout signature: hex HMAC-SHA256 of
// "orderID|paymentID" keyed by the account secret.
func Sign(orderID string, paymentID string, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func VerifySignature(orderID string, paymentID string, signature string, secret string) bool {
	if secret == "" || orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	expected := Sign(orderID, paymentID, secret)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}
