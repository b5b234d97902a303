package config_test

import (
	"testing"

	"school-service/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndEnvOverrides(t *testing.T) {
	t.Setenv("ENV", "unittest")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_USER", "school")
	t.Setenv("NATS_URL", "nats://broker:4222")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "unittest", cfg.Env)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, "school", cfg.Database.User)
	assert.Equal(t, "nats://broker:4222", cfg.NATS.URL)
	assert.Equal(t, "nats", cfg.Notifications.Backend)
	assert.Equal(t, int64(5<<20), cfg.Enrollment.MaxPhotoBytes)
}

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("ENV", "unittest")
	t.Setenv("JWT_SECRET", "")

	_, err := config.Load()
	assert.Error(t, err)
}
