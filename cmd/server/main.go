package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bsm/redislock"

	"hisabkitab/backend/internal/cache"
	"hisabkitab/backend/internal/config"
	"hisabkitab/backend/internal/httpapi"
	"hisabkitab/backend/internal/logging"
	"hisabkitab/backend/internal/mailer"
	"hisabkitab/backend/internal/mirror"
	pgmirror "hisabkitab/backend/internal/mirror/postgres"
	"hisabkitab/backend/internal/mirror/postgrest"
	"hisabkitab/backend/internal/report"
	"hisabkitab/backend/internal/service"
	"hisabkitab/backend/internal/store"
	"hisabkitab/backend/internal/store/bolt"
	"hisabkitab/backend/internal/store/memory"
	"hisabkitab/backend/internal/store/sqlite"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	if err := validateSecurityConfig(cfg); err != nil {
		logger.WithError(err).Fatal("invalid security configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	closers := make([]func() error, 0, 3)

	local, closeLocal, err := openLocalStore(ctx, cfg)
	if err != nil {
		logger.WithError(err).Fatal("local store unavailable")
	}
	if closeLocal != nil {
		closers = append(closers, closeLocal)
	}
	logger.WithField("kind", cfg.LocalStore).Info("local store ready")

	cloud, closeCloud, err := openMirror(ctx, cfg)
	if err != nil {
		// The app keeps working on the local store alone.
		logger.WithError(err).Warn("cloud mirror unavailable, running local-only")
		cloud = mirror.Disabled{}
	}
	if closeCloud != nil {
		closers = append(closers, closeCloud)
	}
	logger.WithField("kind", cfg.MirrorKind()).Info("cloud mirror configured")

	opts := service.Options{
		LocalStoreName: cfg.LocalStore,
		MirrorName:     cfg.MirrorKind(),
		SettingsTTL:    cfg.SettingsTTL,
		Reports:        report.NewEngine(cache.NoopReportCache{}, cfg.ReportCacheTTL),
		MailFrom:       cfg.MailFrom,
		RazorpaySecret: cfg.RazorpaySecret,
	}

	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			logger.WithError(err).Warn("redis unavailable, using in-process caches")
		} else {
			opts.Reports = report.NewEngine(redisCache.Reports(), cfg.ReportCacheTTL)
			opts.SettingsCache = redisCache.Settings()
			opts.RunLock = service.NewRedisRunLock(redislock.New(redisCache.Client()))
			closers = append(closers, redisCache.Close)
			logger.Info("cache: redis")
		}
	}

	if cfg.ResendAPIKey != "" {
		opts.Mailer = mailer.NewResend(&http.Client{Timeout: 30 * time.Second}, cfg.ResendAPIKey, cfg.MailFrom)
	} else {
		opts.Mailer = mailer.Noop{Logger: logger}
		logger.Info("mailer: noop (RESEND_API_KEY not set)")
	}

	connectivity := mirror.NewConnectivity(cfg.StartOnline)
	opts.Backends = service.Backends{
		Local:        local,
		Cloud:        cloud,
		Connectivity: connectivity,
		CloudTimeout: cfg.CloudTimeout,
		Logger:       logger,
	}
	svc := service.New(opts)

	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, service.NewLocalUsers(local))
	if err := auth.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword, cfg.AdminCompanyID); err != nil {
		logger.WithError(err).Fatal("failed to seed admin account")
	}
	api := httpapi.New(svc, auth, httpapi.Options{
		AllowedOrigin: cfg.AllowedOrigin,
		CronSecret:    cfg.CronSecret,
		Logger:        logger,
	})

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	go connectivity.Probe(bgCtx, cloud, cfg.ProbeInterval, cfg.CloudTimeout, logger)
	go svc.RunReconcileLoop(bgCtx, cfg.ReconcileInterval)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.WithField("addr", cfg.Address()).Info("HisabKitab backend listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	stopBackground()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("shutdown error")
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.WithError(err).Warn("close error")
		}
	}

	logger.Info("server stopped")
}

func openLocalStore(ctx context.Context, cfg config.Config) (store.LocalStore, func() error, error) {
	switch cfg.LocalStore {
	case "memory":
		return memory.New(), nil, nil
	case "bolt":
		s, err := bolt.Open(cfg.LocalStorePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "sqlite":
		s, err := sqlite.Open(ctx, cfg.LocalStorePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown LOCAL_STORE %q (want memory, bolt or sqlite)", cfg.LocalStore)
	}
}

func openMirror(ctx context.Context, cfg config.Config) (mirror.Mirror, func() error, error) {
	switch cfg.MirrorKind() {
	case "postgrest":
		return postgrest.NewClient(&http.Client{}, cfg.SupabaseURL, cfg.SupabaseKey), nil, nil
	case "postgres":
		pg, err := pgmirror.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	default:
		return mirror.Disabled{}, nil, nil
	}
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.CronSecret != "" && len(cfg.CronSecret) < 16 {
		return fmt.Errorf("CRON_SECRET must be at least 16 characters when set")
	}
	if cfg.AdminPassword != "" {
		if cfg.AdminCompanyID <= 0 {
			return fmt.Errorf("ADMIN_COMPANY_ID must be set when ADMIN_PASSWORD is set")
		}
		if err := validatePasswordStrength(cfg.AdminPassword); err != nil {
			return fmt.Errorf("ADMIN_PASSWORD is too weak: %w", err)
		}
	}
	return nil
}

// validatePasswordStrength rejects passwords that are too short or
// trivially guessable.
func validatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("at least 8 characters required")
	}
	known := map[string]bool{
		"password": true, "password1": true, "12345678": true, "123456789": true,
		"admin123": true, "admin1234": true, "qwerty123": true, "hisabkitab": true,
	}
	if known[strings.ToLower(password)] {
		return fmt.Errorf("common password not allowed")
	}

	allSame := true
	for i := 1; i < len(password); i++ {
		if password[i] != password[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return fmt.Errorf("repeated-character password not allowed")
	}
	return nil
}
