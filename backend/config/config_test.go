package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DB_NAME", "lms_test")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("REDIS_DB", "not-a-number")
	t.Setenv("STORAGE_USE_SSL", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "lms_test", cfg.DBName)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.True(t, cfg.StorageUseSSL)
	assert.Equal(t, 15*time.Minute, cfg.PresignTTL)
	assert.Equal(t, "us-east-1", cfg.StorageRegion)
}
