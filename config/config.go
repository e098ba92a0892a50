package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// DefaultPageSize is the number of rows per page on list views
	DefaultPageSize = 10
	// DefaultMaxUploadMB is the attachment size limit in megabytes
	DefaultMaxUploadMB = 10
)

type Config struct {
	ServerPort  string
	DBPath      string
	Environment string
	UploadDir   string
	// Email (Resend) used by the interaction notification function
	ResendAPIKey  string
	EmailFrom     string
	EmailFromName string
	EmailTestMode bool // When true, notifications are logged to console instead of sent
	// Other
	AllowedOrigins   []string
	TursoDatabaseURL string
	TursoAuthToken   string
	// Cloudflare R2 Storage
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string
	// Realtime change feed (empty address = in-process broker)
	RedisAddr string
	RedisDB   int
	// Lists and uploads
	PageSize    int
	MaxUploadMB int
	// Attachment reconciliation sweep (cron expression, empty disables)
	SweepSchedule string
}

func Load() *Config {
	// Load .env file (ignore error if not present - use system env vars)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		DBPath:            getEnv("DB_PATH", "db/app.db"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		UploadDir:         getEnv("UPLOAD_DIR", "static/uploads"),
		ResendAPIKey:      getEnv("RESEND_API_KEY", ""),
		EmailFrom:         getEnv("EMAIL_FROM", "onboarding@resend.dev"),
		EmailFromName:     getEnv("EMAIL_FROM_NAME", "CRM System"),
		EmailTestMode:     getEnvBool("EMAIL_TEST_MODE", true), // Default true for safety
		AllowedOrigins:    strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		TursoDatabaseURL:  getEnv("TURSO_DATABASE_URL", ""),
		TursoAuthToken:    getEnv("TURSO_AUTH_TOKEN", ""),
		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:       getEnv("R2_PUBLIC_URL", ""),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		PageSize:          getEnvInt("PAGE_SIZE", DefaultPageSize),
		MaxUploadMB:       getEnvInt("MAX_UPLOAD_MB", DefaultMaxUploadMB),
		SweepSchedule:     getEnv("SWEEP_SCHEDULE", "0 3 * * *"),
	}
}

// MaxUploadBytes returns the attachment size limit in bytes
func (c *Config) MaxUploadBytes() int64 {
	mb := c.MaxUploadMB
	if mb <= 0 {
		mb = DefaultMaxUploadMB
	}
	return int64(mb) * 1024 * 1024
}

// IsProduction reports whether the app runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Printf("Using default value for %s: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept common boolean representations
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		log.Printf("[WARNING] Invalid integer for %s: %q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}
