package config

import (
	"testing"
	"time"

	"github.com/spacesedan/photobot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://backend.local/")
	t.Setenv("UNSPLASH_ACCESS_KEY", "key")

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://backend.local", s.BackendURL)
	assert.Equal(t, 60*time.Minute, s.BotInterval)
	assert.Equal(t, 2, s.QuietStartHour)
	assert.Equal(t, 6, s.QuietEndHour)
	assert.Equal(t, 20, s.PoolCapacity)
	assert.Equal(t, "least_recent", s.PersonaTieBreak)
	assert.Equal(t, 0.65, s.PexelsWeight)
	assert.Equal(t, time.UTC, s.Timezone)
	assert.True(t, s.BotEnabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://backend.local")
	t.Setenv("PEXELS_API_KEY", "key")
	t.Setenv("BOT_INTERVAL_MINUTES", "15")
	t.Setenv("BOT_QUIET_START", "23")
	t.Setenv("BOT_QUIET_END", "5")
	t.Setenv("BOT_ENABLED", "false")
	t.Setenv("BOT_TIMEZONE", "America/New_York")
	t.Setenv("HTTP_TIMEOUT", "3s")

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, s.BotInterval)
	assert.Equal(t, 23, s.QuietStartHour)
	assert.False(t, s.BotEnabled)
	assert.Equal(t, "America/New_York", s.Timezone.String())
	assert.Equal(t, 3*time.Second, s.HTTPTimeout)
}

func TestLoadCollectsProblems(t *testing.T) {
	t.Setenv("BACKEND_URL", "")
	t.Setenv("UNSPLASH_ACCESS_KEY", "")
	t.Setenv("PEXELS_API_KEY", "")
	t.Setenv("BOT_INTERVAL_MINUTES", "soon")
	t.Setenv("BOT_QUIET_END", "25")

	_, err := Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrConfiguration)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.GreaterOrEqual(t, len(cfgErr.Problems), 4)
	assert.Contains(t, err.Error(), "BACKEND_URL")
}
