package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hisabkitab/backend/internal/billing"
	"hisabkitab/backend/internal/domain"
	"hisabkitab/backend/internal/report"
	"hisabkitab/backend/internal/store"
)

type SubscriptionQuote struct {
	Plan      billing.Plan             `json:"plan"`
	Breakdown billing.PaymentBreakdown `json:"breakdown"`
}

type RecordPaymentRequest struct {
	Plan           string `json:"plan" validate:"required,oneof=monthly quarterly yearly"`
	GatewayOrderID string `json:"gateway_order_id" validate:"required,max=80"`
}

type ConfirmPaymentRequest struct {
	PaymentID        int64  `json:"payment_id" validate:"required"`
	GatewayOrderID   string `json:"gateway_order_id"`
	GatewayPaymentID string `json:"gateway_payment_id" validate:"required"`
	Signature        string `json:"signature" validate:"required"`
}

func (s *Service) QuoteSubscription(plan string) (SubscriptionQuote, error) {
	p, err := billing.LookupPlan(plan)
	if err != nil {
		return SubscriptionQuote{}, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}
	return SubscriptionQuote{Plan: p, Breakdown: billing.Breakdown(p.Amount, billing.DefaultGSTPercent)}, nil
}

// RecordSubscriptionPayment stores a pending payment for a gateway order.
func (s *Service) RecordSubscriptionPayment(ctx context.Context, req RecordPaymentRequest) (domain.SubscriptionPayment, error) {
	companyID, err := requireCompany(ctx)
	if err != nil {
		return domain.SubscriptionPayment{}, err
	}
	quote, err := s.QuoteSubscription(req.Plan)
	if err != nil {
		return domain.SubscriptionPayment{}, err
	}

	b := quote.Breakdown
	return s.SubscriptionPayments.Create(ctx, domain.SubscriptionPayment{
		Meta:           domain.Meta{CompanyID: domain.CompanyRef(companyID)},
		Plan:           quote.Plan.Code,
		Amount:         b.Amount,
		GSTAmount:      b.GSTAmount,
		GatewayCharges: b.GatewayCharges,
		Discount:       b.Discount,
		TotalAmount:    b.TotalAmount,
		Currency:       "INR",
		Status:         domain.PaymentStatusPending,
		GatewayOrderID: strings.TrimSpace(req.GatewayOrderID),
	})
}

// ConfirmSubscriptionPayment checks the gateway signature of a pending
// payment. A bad signature marks the payment failed and returns
// billing.ErrInvalidSignature.
func (s *Service) ConfirmSubscriptionPayment(ctx context.Context, req ConfirmPaymentRequest) (domain.SubscriptionPayment, error) {
	companyID, err := requireCompany(ctx)
	if err != nil {
		return domain.SubscriptionPayment{}, err
	}
	scope := domain.CompanyRef(companyID)

	payment, err := s.SubscriptionPayments.GetByID(ctx, req.PaymentID, scope)
	if err != nil {
		return domain.SubscriptionPayment{}, err
	}
	if payment.Status != domain.PaymentStatusPending {
		return domain.SubscriptionPayment{}, fmt.Errorf("%w: payment %d is already %s", store.ErrInvalidInput, payment.ID, payment.Status)
	}
	orderID := payment.GatewayOrderID
	if orderID == "" {
		orderID = strings.TrimSpace(req.GatewayOrderID)
	}

	if !billing.VerifySignature(orderID, req.GatewayPaymentID, req.Signature, s.razorpaySecret) {
		if _, err := s.SubscriptionPayments.Update(ctx, payment.ID, map[string]any{
			"status":             domain.PaymentStatusFailed,
			"gateway_payment_id": req.GatewayPaymentID,
		}, scope); err != nil {
			s.logger.WithField("payment_id", payment.ID).WithError(err).Warn("failed to mark payment failed")
		}
		s.notifyPayment(ctx, companyID, "Subscription payment failed", "The payment could not be verified.")
		return domain.SubscriptionPayment{}, billing.ErrInvalidSignature
	}

	plan, err := billing.LookupPlan(payment.Plan)
	if err != nil {
		return domain.SubscriptionPayment{}, err
	}
	now := s.now().UTC()
	start := s.subscriptionStart(ctx, scope, now)
	end := billing.PeriodEnd(plan, start)

	updated, err := s.SubscriptionPayments.Update(ctx, payment.ID, map[string]any{
		"status":             domain.PaymentStatusSuccess,
		"gateway_order_id":   orderID,
		"gateway_payment_id": req.GatewayPaymentID,
		"paid_at":            now,
		"period_start":       start,
		"period_end":         end,
	}, scope)
	if err != nil {
		return domain.SubscriptionPayment{}, err
	}
	s.notifyPayment(ctx, companyID, "Subscription active", fmt.Sprintf("%s plan active until %s.", plan.Name, end.Format("2006-01-02")))
	return updated, nil
}

// subscriptionStart extends an active subscription instead of overlapping it.
func (s *Service) subscriptionStart(ctx context.Context, scope *int64, now time.Time) time.Time {
	payments, err := s.SubscriptionPayments.GetAll(ctx, scope)
	if err != nil {
		return now
	}
	start := now
	for _, p := range payments {
		if p.Status == domain.PaymentStatusSuccess && p.PeriodEnd != nil && p.PeriodEnd.After(start) {
			start = *p.PeriodEnd
		}
	}
	return start
}

func (s *Service) SubscriptionStats(ctx context.Context) (domain.PaymentStats, error) {
	companyID, err := requireCompany(ctx)
	if err != nil {
		return domain.PaymentStats{}, err
	}
	payments, err := s.SubscriptionPayments.GetAll(ctx, domain.CompanyRef(companyID))
	if err != nil {
		return domain.PaymentStats{}, err
	}
	return report.PaymentStats(payments), nil
}

func (s *Service) notifyPayment(ctx context.Context, companyID int64, title string, message string) {
	if err := s.Notify(ctx, companyID, domain.NotificationPayment, title, message); err != nil {
		s.logger.WithError(err).Warn("failed to raise payment notification")
	}
}
