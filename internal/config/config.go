package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DatabaseConfig PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN builds the lib/pq connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// Config citizenly-registry (HTTP API) configuration.
type Config struct {
	HTTP struct {
		Addr         string
		MaxBodyBytes int64
	}
	DBEnabled bool
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       struct {
		Level  string
		Format string
	}
	Auth     AuthConfig
	PSGCSync PSGCSyncConfig
	Metrics  struct {
		Enabled bool
	}
}

// RedisConfig cache and audit stream connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AuthConfig session token settings.
type AuthConfig struct {
	SigningKey string        // HMAC key for access tokens
	Issuer     string        // token issuer claim
	TokenTTL   time.Duration // access token lifetime
}

// PSGCSyncConfig settings for pulling PSA geographic code publications.
type PSGCSyncConfig struct {
	BaseURL   string // PSA publication endpoint
	Timeout   time.Duration
	BatchSize int // rows per upsert batch
}

func Load() *Config {
	// Optional .env for local dev; real deployments set env directly.
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")
	cfg.HTTP.MaxBodyBytes = int64(parseInt(getEnv("HTTP_MAX_BODY_BYTES", "1048576"), 1<<20))

	// Default to true for local dev: if DB is unavailable, citizenly-registry
	// falls back to in-memory repositories so the UI is not empty on `go run`.
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "citizenly")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "25"), 25)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Auth.SigningKey = getEnv("AUTH_SIGNING_KEY", "dev-only-signing-key")
	cfg.Auth.Issuer = getEnv("AUTH_ISSUER", "citizenly-registry")
	cfg.Auth.TokenTTL = time.Duration(parseInt(getEnv("AUTH_TOKEN_TTL_MINUTES", "480"), 480)) * time.Minute

	cfg.PSGCSync.BaseURL = getEnv("PSGC_SYNC_BASE_URL", "https://psgc.cloud/api")
	cfg.PSGCSync.Timeout = time.Duration(parseInt(getEnv("PSGC_SYNC_TIMEOUT_SECONDS", "30"), 30)) * time.Second
	cfg.PSGCSync.BatchSize = parseInt(getEnv("PSGC_SYNC_BATCH_SIZE", "500"), 500)

	cfg.Metrics.Enabled = getEnv("METRICS_ENABLED", "true") == "true"

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
