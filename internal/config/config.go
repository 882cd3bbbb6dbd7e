package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Config holds all configuration values from environment.
type Config struct {
	AppPort string

	// Model settings
	ModelPath       string
	LabelsPath      string
	ModelInputName  string
	ModelOutputName string
	ModelVersion    string
	TargetImageSize int

	// Upload and validation settings
	MaxContentLength int64

	// Prediction cache settings
	EnableModelCache bool
	ModelCacheSize   int

	// HTTP settings
	CORSOrigins            string
	RateLimitMax           int
	RateLimitWindowSeconds int
	BatchMaxWorkers        int

	// Optional audit trail (PostgreSQL)
	EnableAuditLog bool
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string

	// Optional upload archive (MinIO)
	EnableUploadArchive bool
	MinioEndpoint       string
	MinioAccessKey      string
	MinioSecretKey      string
	MinioBucket         string
	MinioSSL            bool
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	enableCache, err := envBool("ENABLE_MODEL_CACHE", true)
	if err != nil {
		return nil, err
	}
	cacheSize, err := envInt("MODEL_CACHE_SIZE", 128)
	if err != nil {
		return nil, err
	}
	targetSize, err := envInt("TARGET_IMAGE_SIZE", 224)
	if err != nil {
		return nil, err
	}
	maxContentLength, err := envInt64("MAX_CONTENT_LENGTH", 10*1024*1024)
	if err != nil {
		return nil, err
	}
	rateLimitMax, err := envInt("RATE_LIMIT_MAX", 60)
	if err != nil {
		return nil, err
	}
	rateLimitWindow, err := envInt("RATE_LIMIT_WINDOW_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	batchWorkers, err := envInt("BATCH_MAX_WORKERS", 4)
	if err != nil {
		return nil, err
	}
	enableAudit, err := envBool("ENABLE_AUDIT_LOG", false)
	if err != nil {
		return nil, err
	}
	enableArchive, err := envBool("ENABLE_UPLOAD_ARCHIVE", false)
	if err != nil {
		return nil, err
	}
	minioSSL, err := envBool("MINIO_USE_SSL", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AppPort: envString("APP_PORT", "8000"),

		ModelPath:       envString("MODEL_PATH", "models/model.onnx"),
		LabelsPath:      envString("LABELS_PATH", "models/labels.txt"),
		ModelInputName:  envString("MODEL_INPUT_NAME", "input"),
		ModelOutputName: envString("MODEL_OUTPUT_NAME", "output"),
		ModelVersion:    envString("MODEL_VERSION", "1.0.0"),
		TargetImageSize: targetSize,

		MaxContentLength: maxContentLength,

		EnableModelCache: enableCache,
		ModelCacheSize:   cacheSize,

		CORSOrigins:            envString("CORS_ORIGINS", "*"),
		RateLimitMax:           rateLimitMax,
		RateLimitWindowSeconds: rateLimitWindow,
		BatchMaxWorkers:        batchWorkers,

		EnableAuditLog: enableAudit,
		DBHost:         os.Getenv("DB_HOST"),
		DBPort:         envString("DB_PORT", "5432"),
		DBUser:         os.Getenv("DB_USER"),
		DBPassword:     os.Getenv("DB_PASSWORD"),
		DBName:         os.Getenv("DB_NAME"),

		EnableUploadArchive: enableArchive,
		MinioEndpoint:       os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey:      os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:      os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:         envString("MINIO_BUCKET_NAME", "predictions"),
		MinioSSL:            minioSSL,
	}

	// Basic validation for required fields
	if cfg.ModelCacheSize < 1 {
		return nil, fmt.Errorf("MODEL_CACHE_SIZE must be at least 1, got %d", cfg.ModelCacheSize)
	}
	if cfg.TargetImageSize < 1 {
		return nil, fmt.Errorf("TARGET_IMAGE_SIZE must be at least 1, got %d", cfg.TargetImageSize)
	}
	if cfg.MaxContentLength < 1024 {
		return nil, fmt.Errorf("MAX_CONTENT_LENGTH must be at least 1024 bytes, got %d", cfg.MaxContentLength)
	}
	if cfg.BatchMaxWorkers < 1 {
		return nil, fmt.Errorf("BATCH_MAX_WORKERS must be at least 1, got %d", cfg.BatchMaxWorkers)
	}
	if cfg.EnableAuditLog {
		if cfg.DBHost == "" || cfg.DBUser == "" || cfg.DBName == "" {
			return nil, fmt.Errorf("audit log is enabled but database configuration is incomplete")
		}
	}
	if cfg.EnableUploadArchive {
		if cfg.MinioEndpoint == "" || cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "" || cfg.MinioBucket == "" {
			return nil, fmt.Errorf("upload archive is enabled but minio configuration is incomplete")
		}
	}
	return cfg, nil
}

// CORSOriginList splits the configured origins for the CORS middleware.
func (c *Config) CORSOriginList() []string {
	parts := strings.Split(c.CORSOrigins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// ConnectDatabase initializes a GORM database connection to PostgreSQL.
func ConnectDatabase(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return db, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	val, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s value: %v", key, err)
	}
	return val, nil
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	val, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %v", key, err)
	}
	return val, nil
}

func envInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	val, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %v", key, err)
	}
	return val, nil
}
