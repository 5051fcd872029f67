package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all runtime settings for the service.
type Config struct {
	Port        string
	Environment string
	LogLevel    string

	// Storage backend: memory, sqlite, postgres, or postgrespool.
	DBDriver string
	DBDSN    string
	// AutoMigrate runs goose migrations on startup when true.
	AutoMigrate bool

	// Upstream endpoints.
	CountriesURL string
	RatesURL     string
	FetchTimeout time.Duration

	// CacheDir is where the summary image is written.
	CacheDir string

	// GDP estimation factor range (inclusive).
	GDPFactorMin int
	GDPFactorMax int
}

// FromEnv builds a Config from environment variables, with sane defaults.
func FromEnv() Config {
	cfg := Config{
		Port:         getenv("PORT", "8000"),
		Environment:  getenv("COUNTRYPULSE_ENV", "development"),
		LogLevel:     getenv("COUNTRYPULSE_LOG_LEVEL", "info"),
		DBDriver:     getenv("COUNTRYPULSE_DB_DRIVER", "sqlite"),
		DBDSN:        getenv("COUNTRYPULSE_DB_DSN", "countrypulse.db"),
		CountriesURL: getenv("COUNTRYPULSE_COUNTRIES_URL", "https://restcountries.com/v2/all?fields=name,capital,region,population,flag,currencies"),
		RatesURL:     getenv("COUNTRYPULSE_RATES_URL", "https://open.er-api.com/v6/latest/USD"),
		FetchTimeout: 5 * time.Second,
		CacheDir:     getenv("COUNTRYPULSE_CACHE_DIR", "cache"),
		GDPFactorMin: getenvInt("COUNTRYPULSE_GDP_FACTOR_MIN", 1000),
		GDPFactorMax: getenvInt("COUNTRYPULSE_GDP_FACTOR_MAX", 2000),
	}

	switch getenv("COUNTRYPULSE_AUTO_MIGRATE", "") {
	case "1", "true", "yes":
		cfg.AutoMigrate = true
	}

	if raw := os.Getenv("COUNTRYPULSE_FETCH_TIMEOUT_SECONDS"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			cfg.FetchTimeout = time.Duration(v) * time.Second
		}
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
