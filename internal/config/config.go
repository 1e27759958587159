package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/joho/godotenv"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=motorent port=5432 sslmode=disable"

type Config struct {
	AppEnv         string
	HTTPPort       string
	DatabaseDSN    string
	JWTSecret      string
	CORSOrigins    string
	UploadDir      string // uploaded images are written here and served under /uploads
	PublicAssetURL string // prefix used when rendering image URLs (static server or bucket)
	Timezone       string

	MailProvider string // smtp | graph | log
	MailFrom     string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	GraphTenant  string
	GraphClient  string
	GraphSecret  string
	LogoPath     string

	RedisURL              string
	BookingRatePerMinute  int
	MaxUploadSizeMegabyte int
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found; using system environment")
	}

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		DatabaseDSN:    getEnv("DATABASE_DSN", defaultDSN),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		CORSOrigins:    getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"),
		UploadDir:      getEnv("UPLOAD_DIR", "./uploads"),
		PublicAssetURL: getEnv("PUBLIC_ASSET_URL", "/uploads"),
		Timezone:       getEnv("TIMEZONE", "Asia/Ho_Chi_Minh"),

		MailProvider: strings.ToLower(getEnv("MAIL_PROVIDER", "log")),
		MailFrom:     getEnv("MAIL_FROM", "no-reply@motorent.local"),
		SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		GraphTenant:  getEnv("GRAPH_TENANT_ID", ""),
		GraphClient:  getEnv("GRAPH_CLIENT_ID", ""),
		GraphSecret:  getEnv("GRAPH_CLIENT_SECRET", ""),
		LogoPath:     getEnv("LOGO_PATH", "./assets/logo.png"),

		RedisURL:              getEnv("REDIS_URL", ""),
		BookingRatePerMinute:  getEnvInt("BOOKING_RATE_PER_MINUTE", 5),
		MaxUploadSizeMegabyte: getEnvInt("MAX_UPLOAD_MB", 5),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.DatabaseDSN == defaultDSN {
		log.Warn("DATABASE_DSN is using the default local value; set it for production")
	}
	if cfg.MailProvider == "log" && cfg.IsProduction() {
		log.Warn("MAIL_PROVIDER=log: emails are only logged, never delivered")
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is not set")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	switch c.MailProvider {
	case "smtp", "graph", "log":
	default:
		return fmt.Errorf("MAIL_PROVIDER must be smtp, graph or log, got %q", c.MailProvider)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE %q is not a known location", c.Timezone)
	}
	return nil
}

func (c *Config) IsProduction() bool { return c.AppEnv == "production" }

// Location falls back to UTC; Validate has already rejected unknown zones.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// AllowedOrigins trims the comma separated CORS list.
func (c *Config) AllowedOrigins() string {
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ",")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warnf("%s is not a number (%q), using default %d", key, v, def)
		return def
	}
	return n
}
