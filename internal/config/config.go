package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	AllowedOrigin string
	LogLevel      string

	LocalStore     string
	LocalStorePath string

	SupabaseURL string
	SupabaseKey string
	DatabaseURL string

	CloudTimeout      time.Duration
	ProbeInterval     time.Duration
	ReconcileInterval time.Duration
	StartOnline       bool

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	ReportCacheTTL time.Duration
	SettingsTTL    time.Duration

	CronSecret     string
	ResendAPIKey   string
	MailFrom       string
	RazorpaySecret string

	AuthSecret            string
	AccessTokenTTLMinutes int
	AdminUsername         string
	AdminPassword         string
	AdminCompanyID        int64
}

// Load reads the environment, after an optional .env file in the working
// directory.
func Load() Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	adminCompany, _ := strconv.ParseInt(getEnv("ADMIN_COMPANY_ID", "0"), 10, 64)

	return Config{
		Port:          getEnv("PORT", "8080"),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		LocalStore:     strings.ToLower(getEnv("LOCAL_STORE", "bolt")),
		LocalStorePath: getEnv("LOCAL_STORE_PATH", "hisabkitab.db"),

		SupabaseURL: strings.TrimRight(os.Getenv("SUPABASE_URL"), "/"),
		SupabaseKey: strings.TrimSpace(os.Getenv("SUPABASE_KEY")),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		CloudTimeout:      time.Duration(positiveInt("CLOUD_TIMEOUT_MS", 8000)) * time.Millisecond,
		ProbeInterval:     time.Duration(nonNegativeInt("CLOUD_PROBE_INTERVAL_SECONDS", 30)) * time.Second,
		ReconcileInterval: time.Duration(nonNegativeInt("RECONCILE_INTERVAL_SECONDS", 0)) * time.Second,
		StartOnline:       getEnv("START_ONLINE", "true") != "false",

		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        redisDB,
		ReportCacheTTL: time.Duration(positiveInt("REPORT_CACHE_TTL_SECONDS", 20)) * time.Second,
		SettingsTTL:    time.Duration(positiveInt("SETTINGS_CACHE_TTL_SECONDS", 300)) * time.Second,

		CronSecret:     strings.TrimSpace(os.Getenv("CRON_SECRET")),
		ResendAPIKey:   strings.TrimSpace(os.Getenv("RESEND_API_KEY")),
		MailFrom:       getEnv("MAIL_FROM", "HisabKitab <reports@hisabkitab.app>"),
		RazorpaySecret: strings.TrimSpace(os.Getenv("RAZORPAY_KEY_SECRET")),

		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: positiveInt("ACCESS_TOKEN_TTL_MINUTES", 480),
		AdminUsername:         getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:         os.Getenv("ADMIN_PASSWORD"),
		AdminCompanyID:        adminCompany,
	}
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

// MirrorKind names the cloud backend the settings select.
func (c Config) MirrorKind() string {
	switch {
	case c.SupabaseURL != "" && c.SupabaseKey != "":
		return "postgrest"
	case c.DatabaseURL != "":
		return "postgres"
	default:
		return "disabled"
	}
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func positiveInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func nonNegativeInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
