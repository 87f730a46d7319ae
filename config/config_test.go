package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MONGO_URL", "")
	t.Setenv("MONGO_LOCAL_URL", "mongodb://localhost:27017")

	cfg := Load()

	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoLocalURL)
	assert.Equal(t, "musicstream", cfg.DBName)
	assert.Equal(t, 15*time.Second, cfg.MongoTimeout)
	assert.Equal(t, 5*time.Second, cfg.FallbackTimeout)
	assert.Equal(t, 24*time.Hour, cfg.TokenExpiry)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MONGO_URL", "mongodb+srv://cluster.example.net")
	t.Setenv("MONGO_TIMEOUT_SECONDS", "30")
	t.Setenv("MONGO_FALLBACK_TIMEOUT_SECONDS", "2")
	t.Setenv("DB_NAME", "catalog")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("REDIS_DB", "3")

	cfg := Load()

	assert.Equal(t, "mongodb+srv://cluster.example.net", cfg.MongoURL)
	assert.Equal(t, 30*time.Second, cfg.MongoTimeout)
	assert.Equal(t, 2*time.Second, cfg.FallbackTimeout)
	assert.Equal(t, "catalog", cfg.DBName)
	assert.Equal(t, "9090", cfg.ServerPort)
	assert.True(t, cfg.MinioUseSSL)
	assert.Equal(t, 3, cfg.RedisDB)
}

func TestEnvHelpersIgnoreMalformed(t *testing.T) {
	t.Setenv("MONGO_TIMEOUT_SECONDS", "not-a-number")
	t.Setenv("MINIO_USE_SSL", "maybe")
	t.Setenv("REDIS_DB", "3.5")

	cfg := Load()

	assert.Equal(t, 15*time.Second, cfg.MongoTimeout)
	assert.False(t, cfg.MinioUseSSL)
	assert.Equal(t, 0, cfg.RedisDB)
}
