package service

import (
	"context"
	"encoding/json"
	"fmt"

	"hisabkitab/backend/internal/domain"
	"hisabkitab/backend/internal/store"
)

// Resource is the type-erased view of a collection used by the generic
// HTTP routes. Every call is scoped to the caller's company.
type Resource interface {
	Name() string
	List(ctx context.Context) (any, error)
	Get(ctx context.Context, id int64) (any, error)
	Create(ctx context.Context, body []byte, validate func(any) error) (any, error)
	Update(ctx context.Context, id int64, patch map[string]any, validate func(any) error) (any, error)
	Delete(ctx context.Context, id int64) error
	Reconcile(ctx context.Context) (domain.ReconcileResult, error)
	Pending(ctx context.Context) ([]domain.PendingRecord, error)
}

type resource[T any, P record[T]] struct {
	c           *Collection[T, P]
	afterCreate func(ctx context.Context, created *T)
	readOnly    bool
}

func (r resource[T, P]) Name() string { return r.c.Name() }

func (r resource[T, P]) List(ctx context.Context) (any, error) {
	return r.c.GetAll(ctx, companyScope(ctx))
}

func (r resource[T, P]) Get(ctx context.Context, id int64) (any, error) {
	return r.c.GetByID(ctx, id, companyScope(ctx))
}

func (r resource[T, P]) Create(ctx context.Context, body []byte, validate func(any) error) (any, error) {
	if r.readOnly {
		return nil, ErrReadOnly
	}
	var item T
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}
	if validate != nil {
		if err := validate(&item); err != nil {
			return nil, err
		}
	}

	meta := P(&item).Base()
	meta.ID = 0
	meta.SyncStatus = ""
	meta.CompanyID = companyScope(ctx)

	created, err := r.c.Create(ctx, item)
	if err != nil {
		return nil, err
	}
	if r.afterCreate != nil {
		r.afterCreate(ctx, &created)
	}
	return created, nil
}

func (r resource[T, P]) Update(ctx context.Context, id int64, patch map[string]any, validate func(any) error) (any, error) {
	if r.readOnly {
		return nil, ErrReadOnly
	}
	return r.c.UpdateChecked(ctx, id, patch, companyScope(ctx), validate)
}

func (r resource[T, P]) Delete(ctx context.Context, id int64) error {
	if r.readOnly {
		return ErrReadOnly
	}
	return r.c.Delete(ctx, id, companyScope(ctx))
}

func (r resource[T, P]) Reconcile(ctx context.Context) (domain.ReconcileResult, error) {
	return r.c.Reconcile(ctx, companyScope(ctx))
}

func (r resource[T, P]) Pending(ctx context.Context) ([]domain.PendingRecord, error) {
	items, err := r.c.Pending(ctx, companyScope(ctx))
	if err != nil {
		return nil, err
	}
	out := make([]domain.PendingRecord, 0, len(items))
	for i := range items {
		meta := P(&items[i]).Base()
		out = append(out, domain.PendingRecord{
			Store:      r.c.Name(),
			ID:         meta.ID,
			SyncStatus: meta.SyncStatus,
			UpdatedAt:  meta.UpdatedAt,
		})
	}
	return out, nil
}

func register[T any, P record[T]](s *Service, c *Collection[T, P], afterCreate func(context.Context, *T)) {
	s.resources[c.Name()] = resource[T, P]{c: c, afterCreate: afterCreate}
	s.order = append(s.order, c.Name())
}

// registerReadOnly exposes a collection whose writes go through dedicated
// service operations only.
func registerReadOnly[T any, P record[T]](s *Service, c *Collection[T, P]) {
	s.resources[c.Name()] = resource[T, P]{c: c, readOnly: true}
	s.order = append(s.order, c.Name())
}

func (s *Service) registerResources() {
	s.resources = map[string]Resource{}
	register(s, s.Expenses, nil)
	register(s, s.Sales, s.applySaleToStock)
	register(s, s.Purchases, s.applyPurchaseToStock)
	register(s, s.Products, s.checkProductStock)
	register(s, s.CustomerPayments, nil)
	register(s, s.Notifications, nil)
	registerReadOnly(s, s.SubscriptionPayments)
	register(s, s.ExportConfigs, nil)
	register(s, s.SalaryPayments, nil)
	register(s, s.EmployeeGoods, nil)
	register(s, s.Employees, nil)
	s.settingsResource = resource[domain.BusinessSettings, *domain.BusinessSettings]{c: s.Settings}
}

// Resource looks up a mirrored collection by its store name.
func (s *Service) Resource(name string) (Resource, bool) {
	r, ok := s.resources[name]
	return r, ok
}

func (s *Service) ResourceNames() []string {
	return append([]string(nil), s.order...)
}

// syncResources is every mirrored collection, settings included.
func (s *Service) syncResources() []Resource {
	out := make([]Resource, 0, len(s.order)+1)
	for _, name := range s.order {
		out = append(out, s.resources[name])
	}
	return append(out, s.settingsResource)
}
