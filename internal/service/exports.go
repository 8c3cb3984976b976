package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"

	"hisabkitab/backend/internal/domain"
	"hisabkitab/backend/internal/export"
	"hisabkitab/backend/internal/logging"
	"hisabkitab/backend/internal/mailer"
)

const (
	exportLockKey = "cron:scheduled-exports"
	exportLockTTL = 10 * time.Minute
)

var ErrLockHeld = errors.New("another run in progress")

// RunLock keeps two scheduled export runs from overlapping.
type RunLock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}

type redisRunLock struct {
	client *redislock.Client
}

func NewRedisRunLock(client *redislock.Client) RunLock {
	return redisRunLock{client: client}
}

func (l redisRunLock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	lock, err := l.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLockHeld
	}
	if err != nil {
		return nil, err
	}
	return lock.Release, nil
}

// RunScheduledExports emails every due report. It runs as a system caller
// across all companies; a failing config is recorded and the rest continue.
func (s *Service) RunScheduledExports(ctx context.Context, now time.Time) domain.RunSummary {
	summary := domain.RunSummary{Errors: []string{}}

	if s.runLock != nil {
		release, err := s.runLock.Acquire(ctx, exportLockKey, exportLockTTL)
		if err != nil {
			if !errors.Is(err, ErrLockHeld) {
				logging.LogError(s.logger, "service", "RunScheduledExports", "obtain run lock", exportLockKey, err)
			}
			summary.Errors = append(summary.Errors, ErrLockHeld.Error())
			return summary
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.WithError(err).Warn("failed to release export lock")
			}
		}()
	}

	configs, err := s.ExportConfigs.GetAll(ctx, nil)
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("load configs: %v", err))
		return summary
	}

	for _, cfg := range configs {
		if !export.IsDue(cfg, now) {
			summary.Skipped++
			continue
		}
		if err := s.runExport(ctx, cfg, now); err != nil {
			logging.LogError(s.logger, "service", "RunScheduledExports", "export failed", cfg.ID, err)
			summary.Errors = append(summary.Errors, fmt.Sprintf("config %d: %v", cfg.ID, err))
			if cfg.CompanyID != nil {
				if nerr := s.Notify(ctx, *cfg.CompanyID, domain.NotificationExportFailed, "Scheduled export failed", err.Error()); nerr != nil {
					s.logger.WithField("config_id", cfg.ID).WithError(nerr).Warn("failed to raise export failure notification")
				}
			}
			continue
		}
		summary.Processed++
	}

	s.logger.WithFields(logrus.Fields{
		"processed": summary.Processed,
		"skipped":   summary.Skipped,
		"errors":    len(summary.Errors),
	}).Info("scheduled export run finished")
	return summary
}

func (s *Service) runExport(ctx context.Context, cfg domain.ScheduledExportConfig, now time.Time) error {
	if cfg.CompanyID == nil {
		return errors.New("config has no company")
	}
	scope := cfg.CompanyID
	period := export.Window(cfg, now)

	data := export.Data{ReportTypes: cfg.ReportTypes}
	var err error
	if data.Sales, err = s.Sales.GetAll(ctx, scope); err != nil {
		return err
	}
	if data.Purchases, err = s.Purchases.GetAll(ctx, scope); err != nil {
		return err
	}
	if data.Expenses, err = s.Expenses.GetAll(ctx, scope); err != nil {
		return err
	}

	workbook, err := export.BuildWorkbook(data, period)
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}

	subject := fmt.Sprintf("Your %s HisabKitab report (%s to %s)", cfg.Frequency, period.From, period.To)
	body := fmt.Sprintf("<p>Your scheduled report covering %s to %s is attached.</p><p>Reports: %s</p>",
		period.From, period.To, html.EscapeString(strings.Join(cfg.ReportTypes, ", ")))
	err = s.mailer.Send(ctx, mailer.Message{
		From:        s.mailFrom,
		To:          []string{cfg.Email},
		Subject:     subject,
		HTML:        body,
		Attachments: []mailer.Attachment{{Filename: export.FileName(period), Content: workbook}},
	})
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	if _, err := s.ExportConfigs.Update(ctx, cfg.ID, map[string]any{"last_run_at": now.UTC()}, scope); err != nil {
		return fmt.Errorf("stamp last run: %w", err)
	}
	return nil
}
