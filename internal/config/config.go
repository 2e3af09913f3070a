package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"evalreport-go/internal/notifier"
	"evalreport-go/internal/types"
)

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Port             string
	DBPath           string
	AdminSecret      string
	SuperAdminSecret string
	// PublicBaseURL prefixes the comment links sent in notifications.
	PublicBaseURL string
	Gateway       notifier.GatewayConfig
	// DefaultSettings seed the stored message header and footer on first start.
	DefaultSettings types.Settings
	Location        *time.Location
}

// Load reads .env (when present) and the process environment.
func Load() (*AppConfig, error) {
	_ = godotenv.Load() // loads .env
	return FromEnv()
}

// FromEnv builds the configuration from environment variables only.
func FromEnv() (*AppConfig, error) {
	timeoutSec, err := getEnvInt("NOTIFY_TIMEOUT_SEC", 12)
	if err != nil {
		return nil, err
	}
	retries, err := getEnvInt("NOTIFY_MAX_RETRIES", 0)
	if err != nil {
		return nil, err
	}
	tzName := envOr("TIMEZONE", "Asia/Jakarta")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE %q: %w", tzName, err)
	}

	cfg := &AppConfig{
		Port:             envOr("PORT", "8080"),
		DBPath:           envOr("DB_PATH", "data/evalreport.db"),
		AdminSecret:      os.Getenv("ADMIN_SECRET"),
		SuperAdminSecret: os.Getenv("SUPERADMIN_SECRET"),
		PublicBaseURL:    os.Getenv("PUBLIC_BASE_URL"),
		Gateway: notifier.GatewayConfig{
			URL:         os.Getenv("WA_GATEWAY_URL"),
			Key:         os.Getenv("WA_GATEWAY_KEY"),
			CountryCode: envOr("WA_COUNTRY_CODE", "62"),
			Timeout:     time.Duration(timeoutSec) * time.Second,
			MaxRetries:  retries,
		},
		DefaultSettings: types.Settings{
			MessageHeader: os.Getenv("WA_MESSAGE_HEADER"),
			MessageFooter: os.Getenv("WA_MESSAGE_FOOTER"),
		},
		Location: loc,
	}
	if cfg.AdminSecret != "" && cfg.AdminSecret == cfg.SuperAdminSecret {
		return nil, fmt.Errorf("ADMIN_SECRET and SUPERADMIN_SECRET must differ")
	}
	return cfg, nil
}

// NotifyEnabled reports whether a gateway is configured.
func (c *AppConfig) NotifyEnabled() bool { return c.Gateway.URL != "" }

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", k, v)
	}
	return n, nil
}
