package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsAndOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ACCESS_TOKEN_TTL", "5m")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("DEBUG", "false")
	t.Setenv("REFRESH_TOKEN_TTL", "not-a-duration")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.False(t, cfg.Debug)
	assert.Equal(t, "release", cfg.GinMode())
}

func TestValidate(t *testing.T) {
	cfg := &Config{Debug: false, MediaBackend: "local"}
	require.Error(t, cfg.Validate())

	cfg = &Config{Debug: true, MediaBackend: "local"}
	require.NoError(t, cfg.Validate())
	assert.NotEmpty(t, cfg.JWTSecret)

	cfg = &Config{JWTSecret: "x", MediaBackend: "s3"}
	assert.Error(t, cfg.Validate())

	cfg = &Config{JWTSecret: "x", MediaBackend: "ftp"}
	assert.Error(t, cfg.Validate())
}
