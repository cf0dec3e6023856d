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
	ListenAddr string
	DBPath     string

	DocBackend    string
	DocDir        string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	S3Bucket      string
	S3Region      string
	S3Endpoint    string
	S3PathStyle   bool

	JWTSecret       string
	JWTTTL          time.Duration
	ResetTokenTTL   time.Duration
	FrontendBaseURL string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string

	CatalogPath string
	VATRate     float64

	LogLevel string
	LogFile  string
	TestMode bool
}

// Load reads the environment, after loading an optional .env file from the
// working directory. Variables already set win over the file.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
		DBPath:     getEnv("DB_PATH", "/data/measureiq.db"),

		DocBackend:    getEnv("DOC_BACKEND", "sqlite"),
		DocDir:        getEnv("DOC_DIR", "/data/documents"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		S3Bucket:      getEnv("S3_BUCKET", ""),
		S3Region:      getEnv("S3_REGION", "eu-west-2"),
		S3Endpoint:    getEnv("S3_ENDPOINT", ""),
		S3PathStyle:   getEnvBool("S3_PATH_STYLE", false),

		JWTSecret:       getEnv("JWT_SECRET", ""),
		JWTTTL:          getEnvDuration("JWT_TTL", 720*time.Hour),
		ResetTokenTTL:   getEnvDuration("RESET_TOKEN_TTL", 30*time.Minute),
		FrontendBaseURL: getEnv("FRONTEND_BASE_URL", "http://localhost:8080"),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		MailFrom:     getEnv("MAIL_FROM", "no-reply@measureiq.local"),

		CatalogPath: getEnv("CATALOG_PATH", ""),
		VATRate:     getEnvFloat("VAT_RATE", 0.20),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),
		TestMode: os.Getenv("MEASUREIQ_TEST_MODE") == "1",
	}
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" && !c.TestMode {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	switch c.DocBackend {
	case "sqlite", "file":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set for DOC_BACKEND=postgres")
		}
	case "redis":
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR must be set for DOC_BACKEND=redis")
		}
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET must be set for DOC_BACKEND=s3")
		}
	default:
		return fmt.Errorf("unknown DOC_BACKEND %q (want sqlite, postgres, redis, s3 or file)", c.DocBackend)
	}
	if c.VATRate < 0 {
		return fmt.Errorf("VAT_RATE must not be negative")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v, err := strconv.Atoi(strings.TrimSpace(getEnv(key, "")))
	if err != nil {
		return defaultVal
	}
	return v
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(getEnv(key, "")), 64)
	if err != nil {
		return defaultVal
	}
	return v
}

func getEnvBool(key string, defaultVal bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(getEnv(key, "")))
	if err != nil {
		return defaultVal
	}
	return v
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(getEnv(key, "")))
	if err != nil {
		return defaultVal
	}
	return v
}
