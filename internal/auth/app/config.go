package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer       string // Issuer name shown in authenticator apps
	DatabaseFile string // Path to the SQLite database file (default: ./authcore.db)
	PepperFile   string // Path to the password-hashing pepper file (default: ./pepper)

	Env       string // Environment (dev, staging, prod) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: json)
	Port      int    // HTTP server port (default: 8080)

	SessionTTL           time.Duration // Session lifetime (default: 12h)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Expired-record cleanup interval (default: 1h)

	// Initial administrator, seeded on boot while no admin account exists.
	// Leave unset once the system is bootstrapped.
	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

func LoadConfig() Config {
	return Config{
		Issuer:               getEnvOrDefault("AUTHCORE_ISSUER", "authcore"),
		DatabaseFile:         getEnvOrDefault("AUTHCORE_DATABASE_FILE", "authcore.db"),
		PepperFile:           getEnvOrDefault("AUTHCORE_PEPPER_FILE", "pepper"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		SessionTTL:           getEnvDurationOrDefault("AUTHCORE_SESSION_TTL", 12*time.Hour),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
		AdminUsername:        os.Getenv("AUTHCORE_ADMIN_USERNAME"),
		AdminEmail:           os.Getenv("AUTHCORE_ADMIN_EMAIL"),
		AdminPassword:        os.Getenv("AUTHCORE_ADMIN_PASSWORD"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Integer values are treated as minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
