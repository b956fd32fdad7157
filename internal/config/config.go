package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DatabaseConfig database connection settings
type DatabaseConfig struct {
	URLOverride string
	User        string
	Password    string
	Host        string
	Port        string
	DBName      string
	SSLMode     string
}

// URL postgres connection URL (DATABASE_URL wins when set)
func (d *DatabaseConfig) URL() string {
	if d.URLOverride != "" {
		return d.URLOverride
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

// CatalogConfig catalog source and cache settings
type CatalogConfig struct {
	Fetcher     string // http | chromedp
	Headless    bool
	Timeout     time.Duration
	MaxListings int
	UserAgent   string
	CacheTTL    time.Duration
	DefaultCity string
	// AnalogsFile optional YAML cross-reference table replacing the built-in one
	AnalogsFile string
}

// OCRConfig text recognition settings
type OCRConfig struct {
	Languages      []string
	MinTokenLength int
	TempDir        string
}

// SessionConfig per-user session store settings
type SessionConfig struct {
	Store         string // memory | redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

// BotConfig chat transport settings
type BotConfig struct {
	Token         string
	CommandPrefix string
}

// ServerConfig liveness endpoint settings
type ServerConfig struct {
	Port string
}

// TelemetryConfig OpenTelemetry exporter settings
type TelemetryConfig struct {
	Endpoint    string
	Environment string
}

// Config application-wide settings
type Config struct {
	LogLevel  string
	DB        DatabaseConfig
	Catalog   CatalogConfig
	OCR       OCRConfig
	Session   SessionConfig
	Bot       BotConfig
	Server    ServerConfig
	Telemetry TelemetryConfig
}

// Load reads settings from the environment
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DB: DatabaseConfig{
			URLOverride: getEnv("DATABASE_URL", ""),
			User:        getEnv("POSTGRES_USER", "postgres"),
			Password:    getEnv("POSTGRES_PASSWORD", ""),
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnv("POSTGRES_PORT", "5432"),
			DBName:      getEnv("POSTGRES_DB", "partfinder"),
			SSLMode:     getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Catalog: CatalogConfig{
			Fetcher:     getEnv("CATALOG_FETCHER", "http"),
			Headless:    getEnvBool("HEADLESS", true),
			Timeout:     time.Duration(getEnvInt("CATALOG_TIMEOUT_SECONDS", 10)) * time.Second,
			MaxListings: getEnvInt("CATALOG_MAX_LISTINGS", 3),
			UserAgent:   getEnv("CATALOG_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"),
			CacheTTL:    time.Duration(getEnvInt("CACHE_TTL_MINUTES", 60)) * time.Minute,
			DefaultCity: getEnv("DEFAULT_CITY", "Новосибирск"),
			AnalogsFile: getEnv("ANALOGS_FILE", ""),
		},
		OCR: OCRConfig{
			Languages:      splitList(getEnv("OCR_LANGUAGES", "eng+rus")),
			MinTokenLength: getEnvInt("OCR_MIN_TOKEN_LENGTH", 5),
			TempDir:        getEnv("OCR_TEMP_DIR", os.TempDir()),
		},
		Session: SessionConfig{
			Store:         getEnv("SESSION_STORE", "memory"),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
			TTL:           time.Duration(getEnvInt("SESSION_TTL_HOURS", 720)) * time.Hour,
		},
		Bot: BotConfig{
			Token:         getEnv("DISCORD_BOT_TOKEN", ""),
			CommandPrefix: getEnv("BOT_COMMAND_PREFIX", "!"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Telemetry: TelemetryConfig{
			Endpoint:    getEnvWithFallback("SIGNOZ_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Environment: getEnv("ENVIRONMENT", "production"),
		},
	}

	if cfg.Catalog.MaxListings <= 0 {
		cfg.Catalog.MaxListings = 3
	}
	if cfg.OCR.MinTokenLength <= 0 {
		cfg.OCR.MinTokenLength = 5
	}

	return cfg, nil
}

// getEnv reads an environment variable with a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvWithFallback tries primary key first, then fallback key
func getEnvWithFallback(primary, fallback, defaultValue string) string {
	if value := os.Getenv(primary); value != "" {
		return value
	}
	return getEnv(fallback, defaultValue)
}

// getEnvBool reads an environment variable as bool
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt reads an environment variable as int
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intVal
}

// splitList splits "eng+rus" or "eng,rus" into its parts
func splitList(value string) []string {
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == '+' || r == ',' || r == ' '
	})
	return fields
}
