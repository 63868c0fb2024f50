package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "secret")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoadConfigRequiresJWTSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/docvault")
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/docvault")
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8752", cfg.BindAddr)
	assert.Equal(t, "../data/documents", cfg.StorageRoot)
	assert.Equal(t, "admin", cfg.DefaultAdminUsername)
	assert.Equal(t, 24, cfg.DownloadApprovalTTLHours)
}

func TestValidateRejectsShortSecretInProduction(t *testing.T) {
	cfg := &Config{
		DatabaseURL: "postgres://localhost/docvault",
		JWTSecret:   "short",
		Env:         "production",
	}
	require.Error(t, cfg.Validate())
}

func TestApprovalTTLClampedToOneHour(t *testing.T) {
	for _, hours := range []int{-5, 0} {
		cfg := &Config{DownloadApprovalTTLHours: hours}
		assert.Equal(t, time.Hour, cfg.ApprovalTTL())
	}

	cfg := &Config{DownloadApprovalTTLHours: 48}
	assert.Equal(t, 48*time.Hour, cfg.ApprovalTTL())
}
