package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageLocal    = "local"
	StorageS3       = "s3"
	StorageSupabase = "supabase"

	minBcryptCost = 10
)

type Config struct {
	Port        string
	DBUrl       string
	DBMaxConns  int32
	JWTSecret   string
	TokenTTL    time.Duration
	BcryptCost  int
	AppEnv      string
	LogLevel    string
	EnableDocs  bool
	CORSOrigins string

	StorageDriver   string
	UploadDir       string
	UploadURLPrefix string

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string

	SupabaseURL        string
	SupabaseBucket     string
	SupabaseServiceKey string

	RedisURL string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	jwtSecret, exists := os.LookupEnv("JWT_SECRET")
	if !exists || jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	tokenTTL, err := getEnvDuration("TOKEN_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DBUrl:       getEnv("DB_URL", ""),
		DBMaxConns:  int32(getEnvInt("DB_MAX_CONNS", 10)),
		JWTSecret:   jwtSecret,
		TokenTTL:    tokenTTL,
		BcryptCost:  getEnvInt("BCRYPT_COST", minBcryptCost),
		AppEnv:      normalizeEnv(getEnv("APP_ENV", "production")),
		LogLevel:    strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", "info"))),
		EnableDocs:  getEnvBool("ENABLE_API_DOCS", false),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),

		StorageDriver:   normalizeStorageDriver(getEnv("STORAGE_DRIVER", StorageLocal)),
		UploadDir:       getEnv("UPLOAD_DIR", "./public/uploads"),
		UploadURLPrefix: "/" + strings.Trim(getEnv("UPLOAD_URL_PREFIX", "/uploads"), "/"),

		S3Bucket:    getEnv("S3_BUCKET", ""),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),
		S3PublicURL: getEnv("S3_PUBLIC_URL", ""),

		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseBucket:     getEnv("SUPABASE_BUCKET", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_KEY", ""),

		RedisURL: getEnv("REDIS_URL", ""),
	}

	if cfg.BcryptCost < minBcryptCost {
		cfg.BcryptCost = minBcryptCost
	}
	if cfg.DBMaxConns <= 0 {
		cfg.DBMaxConns = 10
	}

	if err := cfg.validateStorage(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validateStorage() error {
	switch c.StorageDriver {
	case StorageLocal:
		if strings.TrimSpace(c.UploadDir) == "" {
			return fmt.Errorf("UPLOAD_DIR is required for the local storage driver")
		}
	case StorageS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 storage driver")
		}
	case StorageSupabase:
		if c.SupabaseURL == "" || c.SupabaseBucket == "" || c.SupabaseServiceKey == "" {
			return fmt.Errorf("SUPABASE_URL, SUPABASE_BUCKET and SUPABASE_SERVICE_KEY are required for the supabase storage driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return parsed, nil
}

func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}

	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}

func normalizeStorageDriver(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "local", "disk", "fs":
		return StorageLocal
	case "s3", "minio":
		return StorageS3
	case "supabase":
		return StorageSupabase
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}

func (c *Config) DocsEnabled() bool {
	return c != nil && c.EnableDocs && c.AppEnv == "development"
}

func (c *Config) IsDevelopment() bool {
	return c != nil && c.AppEnv == "development"
}
