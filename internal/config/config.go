package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")
	ErrMissingJWTSecret   = errors.New("JWT_SECRET is required")
)

type Config struct {
	Env         string
	Port        int
	ServiceName string
	DBURL       string

	JWTSecret   string
	TokenTTL    time.Duration
	ProfileView string

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	ProfileCacheTTL time.Duration

	OTelEndpoint string

	CORSAllowedOrigins []string
	MaxUploadBytes     int64
	AuthRateLimit      int
	AuthRateWindow     time.Duration
	WebRoot            string

	StorageType     string
	StorageLocalDir string
	S3Bucket        string
	S3Region        string
	AWSAccessKey    string
	AWSSecretKey    string

	ExtractorCommand       string
	BillsExtractorScript   string
	SalaryExtractorScript  string
	ExtractorAliasesFile   string
	ExtractionConcurrency  int
	ExtractionTaskTimeout  time.Duration
	ExtractionQueueTimeout time.Duration

	ReportServiceURL   string
	AIReportServiceURL string
	ChatServiceURL     string
	UpstreamTimeout    time.Duration
}

// Load reads the process environment, after merging a .env file when one
// exists. A missing database URL or signing secret is a fatal misconfiguration.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:         getEnv("APP_ENV", "dev"),
		Port:        getEnvInt("PORT", 8080),
		ServiceName: getEnv("SERVICE_NAME", "taxdesk-api"),
		DBURL:       os.Getenv("DATABASE_URL"),

		JWTSecret:   os.Getenv("JWT_SECRET"),
		TokenTTL:    getEnvDuration("TOKEN_TTL", time.Hour),
		ProfileView: getEnv("PROFILE_VIEW", "minimal"),

		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		ProfileCacheTTL: getEnvDuration("PROFILE_CACHE_TTL", time.Minute),

		OTelEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		MaxUploadBytes:     int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),
		AuthRateLimit:      getEnvInt("AUTH_RATE_LIMIT", 20),
		AuthRateWindow:     getEnvDuration("AUTH_RATE_WINDOW", time.Minute),
		WebRoot:            os.Getenv("WEB_ROOT"),

		StorageType:     getEnv("STORAGE_TYPE", "local"),
		StorageLocalDir: getEnv("STORAGE_LOCAL_PATH", os.TempDir()+"/taxdesk-uploads"),
		S3Bucket:        os.Getenv("AWS_S3_BUCKET"),
		S3Region:        getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKey:    os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretKey:    os.Getenv("AWS_SECRET_ACCESS_KEY"),

		ExtractorCommand:       getEnv("EXTRACTOR_COMMAND", "python3"),
		BillsExtractorScript:   getEnv("BILLS_EXTRACTOR_SCRIPT", "./extractors/bill_and_expense.py"),
		SalaryExtractorScript:  getEnv("SALARY_EXTRACTOR_SCRIPT", "./extractors/salary_ocr.py"),
		ExtractorAliasesFile:   os.Getenv("EXTRACTOR_ALIASES_FILE"),
		ExtractionConcurrency:  getEnvInt("EXTRACTION_CONCURRENCY", 4),
		ExtractionTaskTimeout:  getEnvDuration("EXTRACTION_TASK_TIMEOUT", 2*time.Minute),
		ExtractionQueueTimeout: getEnvDuration("EXTRACTION_QUEUE_TIMEOUT", 10*time.Second),

		ReportServiceURL:   getEnv("REPORT_SERVICE_URL", "http://localhost:7000/generate-report"),
		AIReportServiceURL: getEnv("AI_REPORT_SERVICE_URL", "http://localhost:7000/generate-report"),
		ChatServiceURL:     getEnv("CHAT_SERVICE_URL", "http://localhost:5000/chat"),
		UpstreamTimeout:    getEnvDuration("UPSTREAM_TIMEOUT", 30*time.Second),
	}

	if cfg.DBURL == "" {
		return Config{}, ErrMissingDatabaseURL
	}

	if cfg.JWTSecret == "" {
		return Config{}, ErrMissingJWTSecret
	}

	if cfg.ProfileView != "minimal" && cfg.ProfileView != "extended" {
		return Config{}, fmt.Errorf("PROFILE_VIEW must be minimal or extended, got %q", cfg.ProfileView)
	}

	return cfg, nil
}

func (c Config) IsProd() bool {
	return c.Env == "prod"
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			return fallback
		}

		return num
	}
	return fallback
}

// durations accept Go syntax ("90s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	if d, err := time.ParseDuration(v); err == nil {
		return d
	}

	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}

	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	out := make([]string, 0)
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
