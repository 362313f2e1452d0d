package testutil

import (
	"fmt"
	"os"
)

// DatabaseConfig holds configuration for connecting to an external test
// database.
type DatabaseConfig struct {
	URL string
}

// GetDatabaseConfig reads database configuration from environment variables.
// If GEOJOIN_TEST_DATABASE_URL is set, tests use that server (it must have
// PostGIS available). Otherwise the config is empty, which signals to use
// testcontainers.
func GetDatabaseConfig() DatabaseConfig {
	if url := os.Getenv("GEOJOIN_TEST_DATABASE_URL"); url != "" {
		return DatabaseConfig{URL: url}
	}

	host := os.Getenv("GEOJOIN_TEST_DATABASE_HOST")
	if host == "" {
		return DatabaseConfig{}
	}
	return DatabaseConfig{
		URL: buildDatabaseURL(
			getEnv("GEOJOIN_TEST_DATABASE_USER", "postgres"),
			getEnv("GEOJOIN_TEST_DATABASE_PASSWORD", ""),
			host,
			getEnv("GEOJOIN_TEST_DATABASE_PORT", "5432"),
			getEnv("GEOJOIN_TEST_DATABASE_NAME", "postgres"),
			getEnv("GEOJOIN_TEST_DATABASE_SSLMODE", "disable"),
		),
	}
}

// buildDatabaseURL constructs a PostgreSQL connection string.
func buildDatabaseURL(user, password, host, port, dbname, sslmode string) string {
	if password != "" {
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			user, password, host, port, dbname, sslmode)
	}
	return fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s",
		user, host, port, dbname, sslmode)
}

// getEnv gets an environment variable with a fallback default value.
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
