package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultReserved are path segments a slug must never shadow.
var DefaultReserved = []string{"api", "auth", "open", "healthz", "swagger", "dashboard"}

type Config struct {
	Port               string
	DatabaseURL        string
	AppEnv             string
	BaseURL            string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	JWTSecret          string
	FrontendURL        string
	AllowedEmails      []string

	LogLevel  string
	LogFormat string
	Location  *time.Location

	ReservedSlugs []string

	RedisURL string
	CacheTTL time.Duration

	VisitTimeout     time.Duration
	VisitMaxInFlight int64
	VisitRetries     int

	ShutdownTimeout time.Duration
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func Load() (*Config, error) {
	_ = godotenv.Load() // Ignore error if .env not found (e.g. prod)

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        getEnv("DATABASE_URL", "file:db.sqlite"),
		AppEnv:             getEnv("APP_ENV", "local"),
		BaseURL:            strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/auth/google/callback"),
		JWTSecret:          getEnv("JWT_SECRET", "secret"),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:8080/dashboard"),
		AllowedEmails:      splitList(getEnv("ALLOWED_EMAILS", "")),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "console"),
		RedisURL:           getEnv("REDIS_URL", ""),
	}

	var err error
	if cfg.Location, err = time.LoadLocation(getEnv("TIMEZONE", "Local")); err != nil {
		return nil, fmt.Errorf("TIMEZONE: %w", err)
	}
	if cfg.CacheTTL, err = getDuration("CACHE_TTL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.VisitTimeout, err = getDuration("VISIT_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	maxInFlight, err := getInt("VISIT_MAX_IN_FLIGHT", 64)
	if err != nil {
		return nil, err
	}
	cfg.VisitMaxInFlight = int64(maxInFlight)
	if cfg.VisitRetries, err = getInt("VISIT_RETRIES", 1); err != nil {
		return nil, err
	}

	reserved := append([]string{}, DefaultReserved...)
	reserved = append(reserved, splitList(getEnv("RESERVED_SLUGS", ""))...)
	if path := getEnv("RESERVED_SLUGS_FILE", ""); path != "" {
		extra, err := loadReservedFile(path)
		if err != nil {
			return nil, err
		}
		reserved = append(reserved, extra...)
	}
	cfg.ReservedSlugs = reserved

	return cfg, nil
}

type reservedFile struct {
	Reserved []string `yaml:"reserved"`
}

func loadReservedFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reserved slugs: %w", err)
	}
	var f reservedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse reserved slugs %s: %w", path, err)
	}
	return f.Reserved, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
