package service

import (
	"context"

	"github.com/shopspring/decimal"

	"hisabkitab/backend/internal/domain"
)

const defaultLowStockThreshold = 5

func defaultSettings(companyID int64) domain.BusinessSettings {
	return domain.BusinessSettings{
		Meta:              domain.Meta{CompanyID: domain.CompanyRef(companyID)},
		Currency:          "INR",
		DefaultGSTRate:    decimal.NewFromInt(18),
		LowStockThreshold: defaultLowStockThreshold,
		InvoicePrefix:     "INV-",
	}
}

// GetSettings reads through the settings cache. A company that never saved
// settings gets the defaults, which are not persisted.
func (s *Service) GetSettings(ctx context.Context) (domain.BusinessSettings, error) {
	companyID, err := requireCompany(ctx)
	if err != nil {
		return domain.BusinessSettings{}, err
	}

	if cached, ok, err := s.settingsCache.Get(ctx, companyID); err == nil && ok {
		return *cached, nil
	} else if err != nil {
		s.logger.WithError(err).Warn("settings cache read failed")
	}

	items, err := s.Settings.GetAll(ctx, domain.CompanyRef(companyID))
	if err != nil {
		return domain.BusinessSettings{}, err
	}
	settings := defaultSettings(companyID)
	if len(items) > 0 {
		settings = items[0]
	}

	if err := s.settingsCache.Set(ctx, companyID, &settings, s.settingsTTL); err != nil {
		s.logger.WithError(err).Warn("settings cache write failed")
	}
	return settings, nil
}

func (s *Service) SaveSettings(ctx context.Context, in domain.BusinessSettings) (domain.BusinessSettings, error) {
	companyID, err := requireCompany(ctx)
	if err != nil {
		return domain.BusinessSettings{}, err
	}
	if err := requireAdmin(ctx); err != nil {
		return domain.BusinessSettings{}, err
	}

	existing, err := s.Settings.GetAll(ctx, domain.CompanyRef(companyID))
	if err != nil {
		return domain.BusinessSettings{}, err
	}

	var saved domain.BusinessSettings
	if len(existing) == 0 {
		in.Meta = domain.Meta{CompanyID: domain.CompanyRef(companyID)}
		saved, err = s.Settings.Create(ctx, in)
	} else {
		patch, perr := toMap(in)
		if perr != nil {
			return domain.BusinessSettings{}, perr
		}
		// Optional fields are dropped by omitempty; send them so they can be cleared.
		patch["gstin"] = in.GSTIN
		patch["address"] = in.Address
		patch["phone"] = in.Phone
		patch["invoice_prefix"] = in.InvoicePrefix
		patch["receipt_footer"] = in.ReceiptFooter
		saved, err = s.Settings.Update(ctx, existing[0].ID, patch, domain.CompanyRef(companyID))
	}
	if err != nil {
		return domain.BusinessSettings{}, err
	}

	if err := s.settingsCache.Invalidate(ctx, companyID); err != nil {
		s.logger.WithError(err).Warn("settings cache invalidate failed")
	}
	return saved, nil
}

func (s *Service) lowStockThreshold(ctx context.Context) int {
	if companyScope(ctx) == nil {
		return defaultLowStockThreshold
	}
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return defaultLowStockThreshold
	}
	return settings.LowStockThreshold
}
