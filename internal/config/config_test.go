package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.AppPort)
	assert.Equal(t, "models/model.onnx", cfg.ModelPath)
	assert.Equal(t, "models/labels.txt", cfg.LabelsPath)
	assert.Equal(t, 224, cfg.TargetImageSize)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxContentLength)
	assert.True(t, cfg.EnableModelCache)
	assert.Equal(t, 128, cfg.ModelCacheSize)
	assert.False(t, cfg.EnableAuditLog)
	assert.False(t, cfg.EnableUploadArchive)
	assert.Equal(t, 4, cfg.BatchMaxWorkers)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9001")
	t.Setenv("ENABLE_MODEL_CACHE", "false")
	t.Setenv("MODEL_CACHE_SIZE", "16")
	t.Setenv("MAX_CONTENT_LENGTH", "2048")
	t.Setenv("TARGET_IMAGE_SIZE", "299")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9001", cfg.AppPort)
	assert.False(t, cfg.EnableModelCache)
	assert.Equal(t, 16, cfg.ModelCacheSize)
	assert.Equal(t, int64(2048), cfg.MaxContentLength)
	assert.Equal(t, 299, cfg.TargetImageSize)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"malformed cache flag", "ENABLE_MODEL_CACHE", "not-a-bool"},
		{"malformed cache size", "MODEL_CACHE_SIZE", "twelve"},
		{"zero cache size", "MODEL_CACHE_SIZE", "0"},
		{"tiny byte ceiling", "MAX_CONTENT_LENGTH", "100"},
		{"zero image size", "TARGET_IMAGE_SIZE", "0"},
		{"zero batch workers", "BATCH_MAX_WORKERS", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigRequiresDatabaseWhenAuditEnabled(t *testing.T) {
	t.Setenv("ENABLE_AUDIT_LOG", "true")
	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database configuration is incomplete")

	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_USER", "classifier")
	t.Setenv("DB_NAME", "classifier")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "5432", cfg.DBPort)
}

func TestLoadConfigRequiresMinioWhenArchiveEnabled(t *testing.T) {
	t.Setenv("ENABLE_UPLOAD_ARCHIVE", "true")
	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "minio configuration is incomplete")

	t.Setenv("MINIO_ENDPOINT", "localhost:9000")
	t.Setenv("MINIO_ACCESS_KEY", "minioadmin")
	t.Setenv("MINIO_SECRET_KEY", "minioadmin")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "predictions", cfg.MinioBucket)
}

func TestCORSOriginList(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "http://localhost:3000, https://app.example.com")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"http://localhost:3000", "https://app.example.com"}, cfg.CORSOriginList())
}
