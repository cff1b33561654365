package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"POSTGRES_URL", "API_SERVICE_PORT", "JWT_SECRET_KEY", "JWT_TTL", "RATE_LIMIT", "CORS_ORIGINS", "FRONTEND_URL"} {
		t.Setenv(k, "")
	}

	c := Load()
	assert.Equal(t, "3000", c.Port)
	assert.Equal(t, time.Hour, c.JWTTTL)
	assert.Equal(t, 100, c.RateLimit)
	assert.Equal(t, []string{"http://localhost:5173"}, c.CORSOrigins)
	assert.Equal(t, "http://localhost:5173", c.Mail.FrontendURL)
	require.Error(t, c.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("POSTGRES_URL", "postgres://u:p@db:5432/cards")
	t.Setenv("JWT_SECRET_KEY", "s3cret")
	t.Setenv("JWT_TTL", "15m")
	t.Setenv("CORS_ORIGINS", "https://a.example/, https://b.example")
	t.Setenv("SMTP_PORT", "2525")

	c := Load()
	require.NoError(t, c.Validate())
	assert.Equal(t, 15*time.Minute, c.JWTTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.CORSOrigins)
	assert.Equal(t, "2525", c.Mail.Port)
}
