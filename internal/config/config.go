package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds runtime configuration parsed from environment variables.
type Config struct {
	HTTPAddr        string
	DBConnString    string
	ShutdownTimeout time.Duration

	// Upstream order-management API (customers, orders, payments).
	BackendBaseURL string
	BackendAPIKey  string
	BackendTimeout time.Duration

	// Route-matrix service used for delivery ETAs.
	RouteBaseURL string
	// CEP resolution service (ViaCEP-compatible).
	CEPBaseURL string

	// Origin address the delivery distance is measured from.
	StoreOrigin string

	// Checkout sessions idle longer than this are evicted.
	SessionIdleTTL time.Duration

	PhoneDebounce   time.Duration
	AddressDebounce time.Duration

	CouponCode  string
	CouponCents int64
}

// FromEnv builds Config with defaults, overridden by environment variables.
func FromEnv() Config {
	return Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		DBConnString:    envOrDefault("DB_DSN", ""),
		ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT_SECONDS", 10*time.Second),
		BackendBaseURL:  envOrDefault("BACKEND_BASE_URL", "http://localhost:3000"),
		BackendAPIKey:   envOrDefault("BACKEND_API_KEY", ""),
		BackendTimeout:  envDuration("BACKEND_TIMEOUT_SECONDS", 15*time.Second),
		RouteBaseURL:    envOrDefault("ROUTE_BASE_URL", "http://localhost:3000"),
		CEPBaseURL:      envOrDefault("CEP_BASE_URL", "https://viacep.com.br"),
		StoreOrigin:     envOrDefault("STORE_ORIGIN", "Av. Paulista, 1000, São Paulo"),
		SessionIdleTTL:  envDuration("SESSION_IDLE_TTL_SECONDS", 2*time.Hour),
		PhoneDebounce:   envMillis("PHONE_DEBOUNCE_MS", 800*time.Millisecond),
		AddressDebounce: envMillis("ADDRESS_DEBOUNCE_MS", 500*time.Millisecond),
		CouponCode:      envOrDefault("COUPON_CODE", "primeira"),
		CouponCents:     envInt64("COUPON_CENTS", 500),
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		seconds, err := strconv.Atoi(v)
		if err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return def
}

func envMillis(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		millis, err := strconv.Atoi(v)
		if err == nil {
			return time.Duration(millis) * time.Millisecond
		}
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return n
		}
	}
	return def
}
