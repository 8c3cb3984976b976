package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"hisabkitab/backend/internal/cache"
	"hisabkitab/backend/internal/domain"
	"hisabkitab/backend/internal/mailer"
	"hisabkitab/backend/internal/mirror"
	"hisabkitab/backend/internal/report"
	"hisabkitab/backend/internal/store"
)

var (
	ErrForbidden = errors.New("admin role required")
	ErrNoCompany = errors.New("company scope required")
	ErrReadOnly  = errors.New("collection is read-only")
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// companyScope is the caller's company, or nil for system callers such as
// the cron job.
func companyScope(ctx context.Context) *int64 {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.CompanyID <= 0 {
		return nil
	}
	return domain.CompanyRef(actor.CompanyID)
}

func requireCompany(ctx context.Context) (int64, error) {
	scope := companyScope(ctx)
	if scope == nil {
		return 0, ErrNoCompany
	}
	return *scope, nil
}

func requireAdmin(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return ErrForbidden
	}
	return nil
}

type Options struct {
	Backends       Backends
	LocalStoreName string
	MirrorName     string
	SettingsCache  cache.SettingsCache
	SettingsTTL    time.Duration
	Reports        *report.Engine
	Mailer         mailer.Mailer
	MailFrom       string
	RunLock        RunLock
	RazorpaySecret string
}

type Service struct {
	Expenses             *Collection[domain.Expense, *domain.Expense]
	Sales                *Collection[domain.Sale, *domain.Sale]
	Purchases            *Collection[domain.Purchase, *domain.Purchase]
	Products             *Collection[domain.Product, *domain.Product]
	CustomerPayments     *Collection[domain.CustomerPayment, *domain.CustomerPayment]
	Notifications        *Collection[domain.Notification, *domain.Notification]
	SubscriptionPayments *Collection[domain.SubscriptionPayment, *domain.SubscriptionPayment]
	ExportConfigs        *Collection[domain.ScheduledExportConfig, *domain.ScheduledExportConfig]
	SalaryPayments       *Collection[domain.SalaryPayment, *domain.SalaryPayment]
	EmployeeGoods        *Collection[domain.EmployeeGoodsPurchase, *domain.EmployeeGoodsPurchase]
	Employees            *Collection[domain.Employee, *domain.Employee]
	Settings             *Collection[domain.BusinessSettings, *domain.BusinessSettings]

	backends       Backends
	localStoreName string
	mirrorName     string
	settingsCache  cache.SettingsCache
	settingsTTL    time.Duration
	reports        *report.Engine
	mailer         mailer.Mailer
	mailFrom       string
	runLock        RunLock
	razorpaySecret string
	logger         logrus.FieldLogger
	now            func() time.Time

	resources        map[string]Resource
	order            []string
	settingsResource Resource
}

func New(opts Options) *Service {
	b := opts.Backends
	if b.Logger == nil {
		b.Logger = logrus.StandardLogger()
	}
	if b.Cloud == nil {
		b.Cloud = mirror.Disabled{}
	}
	if b.Now == nil {
		b.Now = time.Now
	}
	if opts.SettingsCache == nil {
		opts.SettingsCache = cache.NewMemorySettingsCache()
	}
	if opts.SettingsTTL <= 0 {
		opts.SettingsTTL = 5 * time.Minute
	}
	if opts.Reports == nil {
		opts.Reports = report.NewEngine(cache.NoopReportCache{}, 0)
	}
	if opts.Mailer == nil {
		opts.Mailer = mailer.Noop{Logger: b.Logger}
	}
	if opts.MirrorName == "" {
		opts.MirrorName = "disabled"
	}

	s := &Service{
		Expenses:             NewCollection[domain.Expense](b, byDateDesc("expenses", "expense_date", func(e *domain.Expense) domain.Date { return e.ExpenseDate })),
		Sales:                NewCollection[domain.Sale](b, byDateDesc("sales", "sale_date", func(e *domain.Sale) domain.Date { return e.SaleDate })),
		Purchases:            NewCollection[domain.Purchase](b, byDateDesc("purchases", "purchase_date", func(e *domain.Purchase) domain.Date { return e.PurchaseDate })),
		Products:             NewCollection[domain.Product](b, byName("products", func(e *domain.Product) string { return e.Name })),
		CustomerPayments:     NewCollection[domain.CustomerPayment](b, byDateDesc("customer_payments", "payment_date", func(e *domain.CustomerPayment) domain.Date { return e.PaymentDate })),
		Notifications:        NewCollection[domain.Notification](b, byCreatedDesc[domain.Notification]("notifications")),
		SubscriptionPayments: NewCollection[domain.SubscriptionPayment](b, byCreatedDesc[domain.SubscriptionPayment]("subscription_payments")),
		ExportConfigs:        NewCollection[domain.ScheduledExportConfig](b, byCreatedDesc[domain.ScheduledExportConfig]("scheduled_export_configs")),
		SalaryPayments:       NewCollection[domain.SalaryPayment](b, byDateDesc("salary_payments", "pay_date", func(e *domain.SalaryPayment) domain.Date { return e.PayDate })),
		EmployeeGoods:        NewCollection[domain.EmployeeGoodsPurchase](b, byDateDesc("employee_goods_purchases", "purchase_date", func(e *domain.EmployeeGoodsPurchase) domain.Date { return e.PurchaseDate })),
		Employees:            NewCollection[domain.Employee](b, byName("employees", func(e *domain.Employee) string { return e.Name })),
		Settings:             NewCollection[domain.BusinessSettings](b, byCreatedDesc[domain.BusinessSettings]("business_settings")),

		backends:       b,
		localStoreName: opts.LocalStoreName,
		mirrorName:     opts.MirrorName,
		settingsCache:  opts.SettingsCache,
		settingsTTL:    opts.SettingsTTL,
		reports:        opts.Reports,
		mailer:         opts.Mailer,
		mailFrom:       opts.MailFrom,
		runLock:        opts.RunLock,
		razorpaySecret: opts.RazorpaySecret,
		logger:         b.Logger.WithField("module", "service"),
		now:            b.Now,
	}
	s.registerResources()
	return s
}

func byDateDesc[T any](name string, column string, date func(*T) domain.Date) CollectionOptions[T] {
	return CollectionOptions[T]{
		Name:    name,
		OrderBy: column,
		Desc:    true,
		Less: func(a, b *T) bool {
			return date(a).After(date(b).Time)
		},
	}
}

func byName[T any](name string, key func(*T) string) CollectionOptions[T] {
	return CollectionOptions[T]{
		Name:    name,
		OrderBy: "name",
		Less: func(a, b *T) bool {
			return key(a) < key(b)
		},
	}
}

func byCreatedDesc[T any, P record[T]](name string) CollectionOptions[T] {
	return CollectionOptions[T]{
		Name:    name,
		OrderBy: "created_at",
		Desc:    true,
		Less: func(a, b *T) bool {
			return P(a).Base().CreatedAt.After(P(b).Base().CreatedAt)
		},
	}
}

// LocalStore exposes the device store for local-only data such as users.
func (s *Service) LocalStore() store.LocalStore {
	return s.backends.Local
}
