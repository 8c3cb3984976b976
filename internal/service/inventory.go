package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"hisabkitab/backend/internal/domain"
	"hisabkitab/backend/internal/store"
)

func (s *Service) applySaleToStock(ctx context.Context, sale *domain.Sale) {
	for _, item := range sale.Items {
		if item.ProductID == nil {
			continue
		}
		s.adjustStock(ctx, *item.ProductID, -item.Quantity)
	}
}

func (s *Service) applyPurchaseToStock(ctx context.Context, purchase *domain.Purchase) {
	for _, item := range purchase.Items {
		if item.ProductID == nil {
			continue
		}
		s.adjustStock(ctx, *item.ProductID, item.Quantity)
	}
}

// adjustStock moves a product's stock by delta. Stock is never the reason a
// sale or purchase fails, so problems are only logged.
func (s *Service) adjustStock(ctx context.Context, productID int64, delta int) {
	log := s.logger.WithFields(logrus.Fields{"product_id": productID, "delta": delta})

	product, err := s.Products.GetByID(ctx, productID, companyScope(ctx))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.WithError(err).Warn("failed to load product for stock adjustment")
		}
		return
	}

	updated, err := s.Products.Update(ctx, productID, map[string]any{"stock": product.Stock + delta}, companyScope(ctx))
	if err != nil {
		log.WithError(err).Warn("failed to adjust stock")
		return
	}
	if delta < 0 {
		s.checkProductStock(ctx, &updated)
	}
}

// checkProductStock raises a low-stock notification when the product is at
// or below its reorder level, or the company threshold when it has none.
func (s *Service) checkProductStock(ctx context.Context, p *domain.Product) {
	if p.CompanyID == nil {
		return
	}
	level := p.ReorderLevel
	if level == 0 {
		level = s.lowStockThreshold(ctx)
	}
	if p.Stock > level {
		return
	}

	title := "Low stock: " + p.Name
	message := fmt.Sprintf("%s has %d left (reorder level %d).", p.Name, p.Stock, level)
	if p.Stock <= 0 {
		title = "Out of stock: " + p.Name
		message = fmt.Sprintf("%s is out of stock.", p.Name)
	}
	if err := s.Notify(ctx, *p.CompanyID, domain.NotificationLowStock, title, message); err != nil {
		s.logger.WithField("product_id", p.ID).WithError(err).Warn("failed to raise low stock notification")
	}
}
