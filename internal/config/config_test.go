package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("JWT_SECRET", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, 7*24*time.Hour, cfg.InvitationTTL)
	assert.Equal(t, 25*time.Second, cfg.SSEHeartbeat)
	assert.NotEmpty(t, cfg.JWTSecret)
}

func TestLoadConfigRequiresSecretInProduction(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestGetEnvParsers(t *testing.T) {
	t.Setenv("SOME_INT", "12")
	t.Setenv("BAD_INT", "twelve")
	t.Setenv("SOME_DURATION", "90s")

	assert.Equal(t, 12, GetEnvInt("SOME_INT", 1))
	assert.Equal(t, 1, GetEnvInt("BAD_INT", 1))
	assert.Equal(t, 90*time.Second, GetEnvDuration("SOME_DURATION", time.Second))
	assert.Equal(t, time.Second, GetEnvDuration("MISSING_DURATION", time.Second))
}
