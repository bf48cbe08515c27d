package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("WEATHER_API_KEY", "k")
	t.Setenv("CITIES", `["paris","london","washington"]`)
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"paris", "london", "washington"}, cfg.Cities)
	assert.Equal(t, "https://api.openweathermap.org/data/2.5/weather", cfg.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 10*time.Second, cfg.RetryBackoff)
	assert.Equal(t, 20, cfg.RecentWindow)
	assert.Equal(t, 20, cfg.Retention)
	assert.Equal(t, 3, cfg.Folds)
	assert.Equal(t, 100, cfg.ForestSize)
	assert.Equal(t, time.Minute, cfg.ScheduleInterval)
	assert.Equal(t, 30*time.Second, cfg.SensorPoke)
	assert.Equal(t, 2*time.Minute, cfg.SensorTimeout)
}

func TestLoadMissingAPIKey(t *testing.T) {
	t.Setenv("WEATHER_API_KEY", "")
	t.Setenv("CITIES", `["paris"]`)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WEATHER_API_KEY")
}

func TestLoadMissingCities(t *testing.T) {
	t.Setenv("WEATHER_API_KEY", "k")
	t.Setenv("CITIES", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CITIES")
}

func TestLoadInvalidCitiesJSON(t *testing.T) {
	t.Setenv("WEATHER_API_KEY", "k")
	t.Setenv("CITIES", "paris,london")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CITIES")
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("HTTP_TIMEOUT", "3s")
	t.Setenv("RECENT_WINDOW", "5")
	t.Setenv("RETENTION", "7")
	t.Setenv("SCHEDULE_INTERVAL", "15m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 5, cfg.RecentWindow)
	assert.Equal(t, 7, cfg.Retention)
	assert.Equal(t, 15*time.Minute, cfg.ScheduleInterval)
}

func TestLoadBadDuration(t *testing.T) {
	setRequired(t)
	t.Setenv("HTTP_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP_TIMEOUT")
}
