package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/stitchdesk")
	t.Setenv("APP_PORT", "")
	t.Setenv("TRIAL_DAYS", "")
	t.Setenv("GRACE_DAYS", "")
	t.Setenv("EXPIRY_CHECK_INTERVAL", "")
	t.Setenv("PUBLIC_BASE_URL", "https://app.example.com/")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, 14, c.TrialDays)
	assert.Equal(t, 30*24*time.Hour, c.Grace())
	assert.Equal(t, time.Hour, c.ExpiryInterval)
	assert.Equal(t, "https://app.example.com", c.PublicBaseURL)
}

func TestLoadRequiresDSN(t *testing.T) {
	t.Setenv("DB_DSN", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadInt(t *testing.T) {
	t.Setenv("DB_DSN", "x")
	t.Setenv("TRIAL_DAYS", "two weeks")
	_, err := Load()
	assert.EqualError(t, err, "TRIAL_DAYS: must be an integer")
}
