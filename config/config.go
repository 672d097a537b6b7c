// Package config provides configuration management for the userdir service.
// It handles loading and validation of configuration values from environment
// variables, with default fallbacks for optional settings and collective
// error reporting: all problems found while loading are gathered and returned
// as one aggregated error, so a misconfigured deployment fails fast with a
// complete list instead of one complaint at a time.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig holds connection settings for the PostgreSQL store.
// Every knob has a default, so the service starts against a local database
// with no environment at all.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	PoolSize int
	// MigrationsPath points at the directory of migration files. Empty means
	// migrations are skipped and the schema is assumed to pre-exist.
	MigrationsPath string
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	JWTSecret            string        // secret key for signing JWTs
	AccessTokenDuration  time.Duration // lifetime of access tokens
	RefreshTokenDuration time.Duration // lifetime of refresh tokens
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string // port for the HTTP server
}

// UsersConfig holds settings for the user listing endpoint.
type UsersConfig struct {
	// RowLimit caps the number of rows any single listing may return,
	// bounding worst-case response size even for an unfiltered scan.
	RowLimit int
}

// AppConfig is the top-level configuration structure for the application.
type AppConfig struct {
	Database *DatabaseConfig
	Auth     *AuthConfig
	Server   *ServerConfig
	Users    *UsersConfig
}

// getRequiredEnv reads an environment variable that must be set.
// A missing variable is recorded in the errors slice; loading continues so
// every problem is reported at once.
func getRequiredEnv(key string, errors *[]string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		*errors = append(*errors, fmt.Sprintf("missing required environment variable: %s", key))
		return ""
	}
	return value
}

// getOptionalEnv reads an environment variable with a default string value.
func getOptionalEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getOptionalEnvInt reads an environment variable parsed as an int.
// Uses defaultValue if unset; records an error and falls back to the default
// if the value does not parse.
func getOptionalEnvInt(key string, defaultValue int, errors *[]string) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		*errors = append(*errors, fmt.Sprintf("invalid value for %s: expected integer, got '%s': %v", key, valueStr, err))
		return defaultValue
	}
	return valueInt
}

// getOptionalEnvDuration reads an environment variable parsed as a
// time.Duration ("15m", "168h", ...). Uses defaultValue if unset; records an
// error and falls back to the default if parsing fails.
func getOptionalEnvDuration(key string, defaultValue time.Duration, errors *[]string) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueDuration, err := time.ParseDuration(valueStr)
	if err != nil {
		*errors = append(*errors, fmt.Sprintf("invalid value for %s: expected duration string, got '%s': %v", key, valueStr, err))
		return defaultValue
	}
	return valueDuration
}

// clampInt bounds a configured integer to [min, max]. An out-of-range value
// is recorded as a configuration error, so loading fails with a message that
// names the variable and the bound it violated. Used for the pool size and
// the listing row cap.
func clampInt(value, min, max int, varName string, errors *[]string) int {
	if value < min {
		*errors = append(*errors, fmt.Sprintf("value for %s (%d) is less than minimum %d, clamping to %d", varName, value, min, min))
		return min
	}
	if value > max {
		*errors = append(*errors, fmt.Sprintf("value for %s (%d) is greater than maximum %d, clamping to %d", varName, value, max, max))
		return max
	}
	return value
}

// Bounds for clamped numeric settings.
const (
	minPoolSize = 2
	maxPoolSize = 100

	// DefaultRowLimit is the fallback cap on listing results.
	DefaultRowLimit = 500
	minRowLimit     = 1
	maxRowLimit     = 1000
)

// LoadConfig creates and returns an AppConfig by reading and validating
// environment variables. It collects all errors encountered during loading
// and returns a single aggregated error if any exist.
func LoadConfig() (*AppConfig, error) {
	var errors []string

	// Database configuration. Everything defaults, so the store location is
	// an environment-style setting with a local fallback.
	dbConfig := &DatabaseConfig{
		Host:           getOptionalEnv("DB_HOST", "localhost"),
		Port:           getOptionalEnvInt("DB_PORT", 5432, &errors),
		User:           getOptionalEnv("DB_USER", "postgres"),
		Password:       getOptionalEnv("DB_PASSWORD", ""),
		DBName:         getOptionalEnv("DB_NAME", "userdir"),
		MigrationsPath: getOptionalEnv("MIGRATIONS_PATH", ""),
	}
	poolSize := getOptionalEnvInt("DB_POOL_SIZE", 10, &errors)
	dbConfig.PoolSize = clampInt(poolSize, minPoolSize, maxPoolSize, "DB_POOL_SIZE", &errors)

	// Auth configuration. The signing secret has no sane default.
	authConfig := &AuthConfig{
		JWTSecret:            getRequiredEnv("JWT_SECRET", &errors),
		AccessTokenDuration:  getOptionalEnvDuration("JWT_ACCESS_TOKEN_DURATION", 15*time.Minute, &errors),
		RefreshTokenDuration: getOptionalEnvDuration("JWT_REFRESH_TOKEN_DURATION", 168*time.Hour, &errors), // 7 days
	}

	serverConfig := &ServerConfig{
		// The port stays a string because it is only ever joined into a
		// listen address like ":8080".
		Port: getOptionalEnv("PORT", "8080"),
	}

	rowLimit := getOptionalEnvInt("USERS_ROW_LIMIT", DefaultRowLimit, &errors)
	usersConfig := &UsersConfig{
		RowLimit: clampInt(rowLimit, minRowLimit, maxRowLimit, "USERS_ROW_LIMIT", &errors),
	}

	if len(errors) > 0 {
		return nil, fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return &AppConfig{
		Database: dbConfig,
		Auth:     authConfig,
		Server:   serverConfig,
		Users:    usersConfig,
	}, nil
}
