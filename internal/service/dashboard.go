package service

import (
	"context"

	"hisabkitab/backend/internal/domain"
	"hisabkitab/backend/internal/report"
)

func (s *Service) Dashboard(ctx context.Context, r report.Range) (domain.Dashboard, error) {
	companyID, err := requireCompany(ctx)
	if err != nil {
		return domain.Dashboard{}, err
	}
	if r.From.IsZero() && r.To.IsZero() {
		r = report.LastDays(s.now(), 30)
	}

	scope := domain.CompanyRef(companyID)
	return s.reports.Dashboard(ctx, companyID, r, s.lowStockThreshold(ctx), func(ctx context.Context) (report.Sources, error) {
		var (
			src report.Sources
			err error
		)
		if src.Sales, err = s.Sales.GetAll(ctx, scope); err != nil {
			return src, err
		}
		if src.Purchases, err = s.Purchases.GetAll(ctx, scope); err != nil {
			return src, err
		}
		if src.Expenses, err = s.Expenses.GetAll(ctx, scope); err != nil {
			return src, err
		}
		if src.Products, err = s.Products.GetAll(ctx, scope); err != nil {
			return src, err
		}
		return src, nil
	})
}
