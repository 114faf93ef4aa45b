package config

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GO_ENV", "production") // skip .env lookup
	t.Setenv("REDIS_URL", "")
	t.Setenv("SESSION_DB_PATH", "")
	t.Setenv("EMAIL_PROVIDER", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, "session.db", cfg.SessionDBPath)
	assert.Equal(t, "noop", cfg.EmailProvider)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	t.Setenv("REDIS_URL", "redis://cache:6379/2")
	t.Setenv("SESSION_DB_PATH", "/tmp/cache.db")
	t.Setenv("AUTH_TOKEN_SECRET", "s3cret")
	t.Setenv("EMAIL_PROVIDER", "ses")
	t.Setenv("SES_REGION", "us-east-1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "redis://cache:6379/2", cfg.RedisURL)
	assert.Equal(t, "/tmp/cache.db", cfg.SessionDBPath)
	assert.Equal(t, "s3cret", cfg.AuthTokenSecret)
	assert.Equal(t, "ses", cfg.EmailProvider)
	assert.Equal(t, "us-east-1", cfg.SESRegion)
}

func TestNewLoggerTo_ProductionUsesJSON(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	t.Setenv("LOG_LEVEL", "info")

	var buf bytes.Buffer
	log := NewLoggerTo(&buf)
	log.Info("hello", "key", "value")

	assert.Contains(t, buf.String(), `"msg":"hello"`)
	assert.Contains(t, buf.String(), `"key":"value"`)
}

func TestNewLoggerTo_LevelFilter(t *testing.T) {
	t.Setenv("GO_ENV", "development")
	t.Setenv("LOG_LEVEL", "warn")

	var buf bytes.Buffer
	log := NewLoggerTo(&buf)
	log.Info("dropped")
	log.Warn("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}
