package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backend selection. The in-memory backend exists for local
// development and tests; production deployments run on PostgreSQL.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL    string
	Port           string
	IsProduction   bool
	StorageBackend string
	RateLimit      string // ulule/limiter format, e.g. "300-M"
	CORSOrigins    []string
}

// LoadConfig loads configuration from environment variables and a .env file
// if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("STORAGE_BACKEND", BackendPostgres)
	viper.SetDefault("RATE_LIMIT", "300-M")
	viper.SetDefault("CORS_ORIGINS", "*")

	viper.AutomaticEnv()

	cfg := &Config{
		DatabaseURL:    viper.GetString("PGSQL_URL"),
		Port:           viper.GetString("PORT"),
		IsProduction:   viper.GetBool("IS_PRODUCTION"),
		StorageBackend: viper.GetString("STORAGE_BACKEND"),
		RateLimit:      viper.GetString("RATE_LIMIT"),
		CORSOrigins:    viper.GetStringSlice("CORS_ORIGINS"),
	}

	switch cfg.StorageBackend {
	case BackendMemory, BackendPostgres:
	default:
		return nil, fmt.Errorf("invalid STORAGE_BACKEND %q: expected %q or %q", cfg.StorageBackend, BackendMemory, BackendPostgres)
	}

	if cfg.StorageBackend == BackendPostgres && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("PGSQL_URL is required when STORAGE_BACKEND is %q", BackendPostgres)
	}
	if cfg.StorageBackend == BackendMemory && cfg.IsProduction {
		log.Println("Warning: running the in-memory backend in production mode; all data is lost on restart.")
	}

	return cfg, nil
}
