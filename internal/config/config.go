package config

import (
	"os"
	"strconv"
	"time"

	"cinetix/internal/cache"
	"cinetix/internal/database"
	"cinetix/internal/gateway"
	"cinetix/internal/messaging"
)

// Config is the whole application configuration. Components receive the
// piece they need at construction; nothing reads the environment after
// Load returns.
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	Database database.Config
	NATS     messaging.Config
	Redis    cache.Config
	Gateway  gateway.Config
	Booking  Booking
}

// Booking carries the time-window and currency policy of the engine.
type Booking struct {
	// HoldDuration is how long a seat lock stays valid.
	HoldDuration time.Duration
	// BookingClose rejects locks/reservations when the show starts
	// within this window.
	BookingClose time.Duration
	// ResaleClose rejects resale listings/purchases when the show
	// starts within this window.
	ResaleClose time.Duration
	// MinorUnitFactor converts major-unit prices to the gateway's
	// minor units (e.g. rupees -> paise).
	MinorUnitFactor int64
	// MinTopUp is the smallest accepted wallet top-up, in major units.
	MinTopUp int64
	Currency string
}

func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "release"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "cinetix"),
			Password:           getEnv("DB_PASSWORD", "cinetix"),
			DBName:             getEnv("DB_NAME", "cinetix"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "cinetix"),
			ClientID:  getEnv("NATS_CLIENT_ID", "cinetix-api"),
		},

		Redis: cache.Config{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			TTL:      time.Duration(getEnvInt("REDIS_CACHE_TTL_SEC", 60)) * time.Second,
		},

		Gateway: gateway.Config{
			BaseURL: getEnv("GATEWAY_URL", "https://api.razorpay.com/v1"),
			KeyID:   getEnv("GATEWAY_KEY_ID", ""),
			Secret:  getEnv("GATEWAY_KEY_SECRET", ""),
			Timeout: time.Duration(getEnvInt("GATEWAY_TIMEOUT_SEC", 30)) * time.Second,
		},

		Booking: Booking{
			HoldDuration:    time.Duration(getEnvInt("SEAT_HOLD_MINS", 5)) * time.Minute,
			BookingClose:    time.Duration(getEnvInt("BOOKING_CLOSE_MINS", 30)) * time.Minute,
			ResaleClose:     time.Duration(getEnvInt("RESALE_CLOSE_HOURS", 3)) * time.Hour,
			MinorUnitFactor: int64(getEnvInt("MINOR_UNIT_FACTOR", 100)),
			MinTopUp:        int64(getEnvInt("MIN_TOPUP", 10)),
			Currency:        getEnv("CURRENCY", "INR"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
