package service

import (
	"context"
	"errors"
	"time"

	"hisabkitab/backend/internal/domain"
	"hisabkitab/backend/internal/mirror"
)

func (s *Service) SyncStatus() domain.SyncStatusResponse {
	return domain.SyncStatusResponse{
		CloudAvailable: s.backends.Cloud.Available(),
		Online:         s.backends.Connectivity.Online(),
		Mirror:         s.mirrorName,
		LocalStore:     s.localStoreName,
	}
}

func (s *Service) SetOnline(ctx context.Context, online bool) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if s.backends.Connectivity == nil {
		return errors.New("connectivity flag not configured")
	}
	s.backends.Connectivity.Set(online)
	s.logger.WithField("online", online).Info("connectivity set by admin")
	return nil
}

func (s *Service) Pending(ctx context.Context) ([]domain.PendingRecord, error) {
	out := []domain.PendingRecord{}
	for _, r := range s.syncResources() {
		items, err := r.Pending(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}

// Reconcile settles pending records of every collection with the cloud.
func (s *Service) Reconcile(ctx context.Context) ([]domain.ReconcileResult, error) {
	results := make([]domain.ReconcileResult, 0, len(s.order)+1)
	for _, r := range s.syncResources() {
		result, err := r.Reconcile(ctx)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

// RunReconcileLoop reconciles every interval while the mirror is reachable.
func (s *Service) RunReconcileLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.backends.Cloud.Available() || !s.backends.Connectivity.Online() {
				continue
			}
			results, err := s.Reconcile(ctx)
			if err != nil && !errors.Is(err, mirror.ErrUnavailable) {
				s.logger.WithError(err).Warn("periodic reconcile failed")
				continue
			}
			for _, r := range results {
				if r.Pushed+r.Pulled+r.Failed > 0 {
					s.logger.WithField("store", r.Store).WithField("pushed", r.Pushed).WithField("pulled", r.Pulled).WithField("failed", r.Failed).Info("reconciled")
				}
			}
		}
	}
}
