package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	// Load environment variables from .env files when present.
	_ "github.com/joho/godotenv/autoload"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Observability ObservabilityConfig
	Log           LogConfig
	Data          DataConfig
	OCR           OCRConfig
	Cache         CacheConfig
	Search        SearchConfig
}

type ServerConfig struct {
	Host               string
	Port               int
	RateLimitPerSecond int
	RateLimitBurst     int
	AllowedOrigins     []string
	ShutdownTimeout    time.Duration
}

type ObservabilityConfig struct {
	MetricsEnabled bool
}

type LogConfig struct {
	Level  string
	Format string // "text" or "json"
}

// SourceConfig locates the documents a dataset is built from. Paths are
// relative to DataConfig.Dir unless absolute.
type SourceConfig struct {
	Markdown string
	Fallback string // legacy JSON with a single "text" field
	Seeds    []string
}

type DataConfig struct {
	Dir            string
	ConflictPolicy string
	Workers        int
	Sources        map[string]SourceConfig
}

type OCRConfig struct {
	Languages   string
	PageSegMode int
}

type CacheConfig struct {
	RefreshCron string // empty disables the scheduled refresh
	WarmOnStart bool
}

type SearchConfig struct {
	IndexPath string // empty keeps the index in memory
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:               getEnv("SERVER_HOST", "localhost"),
			Port:               getEnvAsInt("SERVER_PORT", 8080),
			RateLimitPerSecond: getEnvAsInt("SERVER_RATE_LIMIT_PER_SECOND", 100),
			RateLimitBurst:     getEnvAsInt("SERVER_RATE_LIMIT_BURST", 200),
			AllowedOrigins:     getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			ShutdownTimeout:    getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Data: DataConfig{
			Dir:            getEnv("DATA_DIR", "data"),
			ConflictPolicy: getEnv("CONFLICT_POLICY", "last_wins"),
			Workers:        getEnvAsInt("EXTRACT_WORKERS", 4),
			Sources: map[string]SourceConfig{
				"cable": {
					Markdown: getEnv("CABLE_MARKDOWN", "cable_data.md"),
					Fallback: getEnv("CABLE_FALLBACK", "onlycable.json"),
					Seeds:    getEnvAsList("CABLE_SEED", nil),
				},
				"concrete": {
					Markdown: getEnv("CONCRETE_MARKDOWN", "concre_table_ocr.md"),
					Fallback: getEnv("CONCRETE_FALLBACK", ""),
					Seeds:    getEnvAsList("CONCRETE_SEED", []string{"concrete_seed.md"}),
				},
				"engineering": {
					Markdown: getEnv("ENGINEERING_MARKDOWN", "engineering_salary_ocr.md"),
					Fallback: getEnv("ENGINEERING_FALLBACK", ""),
					Seeds:    getEnvAsList("ENGINEERING_SEED", nil),
				},
				"construction": {
					Markdown: getEnv("CONSTRUCTION_MARKDOWN", "construction_wage_ocr.md"),
					Fallback: getEnv("CONSTRUCTION_FALLBACK", ""),
					Seeds:    getEnvAsList("CONSTRUCTION_SEED", nil),
				},
			},
		},
		OCR: OCRConfig{
			Languages:   getEnv("OCR_LANGUAGE", "kor+eng"),
			PageSegMode: getEnvAsInt("OCR_PSM", 6),
		},
		Cache: CacheConfig{
			RefreshCron: getEnv("CACHE_REFRESH_CRON", ""),
			WarmOnStart: getEnvAsBool("CACHE_WARM_ON_START", true),
		},
		Search: SearchConfig{
			IndexPath: getEnv("SEARCH_INDEX_PATH", ""),
		},
	}

	if cfg.Data.Workers < 1 {
		return nil, fmt.Errorf("EXTRACT_WORKERS must be at least 1, got %d", cfg.Data.Workers)
	}
	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		return nil, fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.Log.Format)
	}

	return cfg, nil
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated value, dropping empty entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
