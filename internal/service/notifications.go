package service

import (
	"context"
	"strings"

	"hisabkitab/backend/internal/domain"
)

func (s *Service) Notify(ctx context.Context, companyID int64, kind string, title string, message string) error {
	_, err := s.Notifications.Create(ctx, domain.Notification{
		Meta:    domain.Meta{CompanyID: domain.CompanyRef(companyID)},
		Kind:    kind,
		Title:   strings.TrimSpace(title),
		Message: strings.TrimSpace(message),
	})
	return err
}

func (s *Service) MarkNotificationRead(ctx context.Context, id int64) (domain.Notification, error) {
	return s.Notifications.Update(ctx, id, map[string]any{"is_read": true}, companyScope(ctx))
}

// MarkAllNotificationsRead returns how many notifications changed.
func (s *Service) MarkAllNotificationsRead(ctx context.Context) (int, error) {
	companyID, err := requireCompany(ctx)
	if err != nil {
		return 0, err
	}
	items, err := s.Notifications.GetAll(ctx, domain.CompanyRef(companyID))
	if err != nil {
		return 0, err
	}

	marked := 0
	for _, n := range items {
		if n.IsRead {
			continue
		}
		if _, err := s.Notifications.Update(ctx, n.ID, map[string]any{"is_read": true}, domain.CompanyRef(companyID)); err != nil {
			return marked, err
		}
		marked++
	}
	return marked, nil
}

func (s *Service) UnreadCount(ctx context.Context) (int, error) {
	companyID, err := requireCompany(ctx)
	if err != nil {
		return 0, err
	}
	items, err := s.Notifications.GetAll(ctx, domain.CompanyRef(companyID))
	if err != nil {
		return 0, err
	}
	count := 0
	for _, n := range items {
		if !n.IsRead {
			count++
		}
	}
	return count, nil
}
