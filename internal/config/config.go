package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port          string
	Env           string
	PublicBaseURL string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// JWT
	JWTSecret string

	// Gemini AI
	GeminiAPIKey         string
	GeminiModel          string
	GeminiConcurrentReqs int

	// Chat widget
	ChatTimeout       time.Duration
	ChatGalleryImages []string

	// Storage
	StorageType   string // "local" | "gcs"
	StoragePath   string
	StorageBucket string
	GCSBucket     string
	GCSCDNDomain  string

	// Gallery uploads
	UploadTimeout     time.Duration
	UploadConcurrency int
	ReconcileInterval time.Duration
	ReconcileGrace    time.Duration

	// SMTP
	SMTPHost            string
	SMTPPort            string
	SMTPUser            string
	SMTPPass            string
	SMTPFrom            string
	StudioInbox         string
	NotificationWorkers int

	// Accounts promoted to admin on registration and at startup.
	AdminEmails []string

	// Frontend
	FrontendURL string
}

var defaultChatGallery = []string{
	"/assets/gallery-1.jpg",
	"/assets/gallery-2.jpg",
	"/assets/gallery-3.jpg",
	"/assets/gallery-4.jpg",
	"/assets/gallery-5.jpg",
	"/assets/gallery-6.jpg",
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	port := getEnvOrDefault("PORT", "8080")

	cfg := &Config{
		Port:                 port,
		Env:                  getEnvOrDefault("ENV", "development"),
		PublicBaseURL:        getEnvOrDefault("PUBLIC_BASE_URL", "http://localhost:"+port),
		DatabaseURL:          mustGetEnv("DATABASE_URL"),
		RedisURL:             mustGetEnv("REDIS_URL"),
		JWTSecret:            mustGetEnv("JWT_SECRET"),
		GeminiAPIKey:         getEnvOrDefault("GEMINI_API_KEY", ""),
		GeminiModel:          getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		ChatTimeout:          getEnvAsDurationOrDefault("CHAT_TIMEOUT", 15*time.Second),
		ChatGalleryImages:    getEnvAsListOrDefault("CHAT_GALLERY_IMAGES", defaultChatGallery),
		StorageType:          getEnvOrDefault("STORAGE_TYPE", "local"),
		StoragePath:          getEnvOrDefault("STORAGE_PATH", "./uploads"),
		StorageBucket:        getEnvOrDefault("STORAGE_BUCKET", "gallery"),
		GCSBucket:            getEnvOrDefault("GCS_BUCKET", ""),
		GCSCDNDomain:         getEnvOrDefault("GCS_CDN_DOMAIN", ""),
		UploadTimeout:        getEnvAsDurationOrDefault("UPLOAD_TIMEOUT", 2*time.Minute),
		UploadConcurrency:    getEnvAsIntOrDefault("UPLOAD_CONCURRENCY", 4),
		ReconcileInterval:    getEnvAsDurationOrDefault("RECONCILE_INTERVAL", time.Hour),
		ReconcileGrace:       getEnvAsDurationOrDefault("RECONCILE_GRACE", time.Hour),
		SMTPHost:             getEnvOrDefault("SMTP_HOST", ""),
		SMTPPort:             getEnvOrDefault("SMTP_PORT", "587"),
		SMTPUser:             getEnvOrDefault("SMTP_USER", ""),
		SMTPPass:             getEnvOrDefault("SMTP_PASS", ""),
		SMTPFrom:             getEnvOrDefault("SMTP_FROM", "noreply@bloomweddings.com"),
		StudioInbox:          getEnvOrDefault("STUDIO_INBOX", "hello@bloomweddings.com"),
		NotificationWorkers:  getEnvAsIntOrDefault("NOTIFICATION_WORKERS", 2),
		AdminEmails:          getEnvAsListOrDefault("ADMIN_EMAILS", nil),
		FrontendURL:          getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	if cfg.GCSBucket == "" {
		cfg.GCSBucket = cfg.StorageBucket
	}

	return cfg
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production") || strings.EqualFold(c.Env, "prod")
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// getEnvAsListOrDefault splits a comma-separated value, dropping blank entries.
func getEnvAsListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
