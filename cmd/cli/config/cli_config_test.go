package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/tsforecast/pkg/models"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig(writeFile(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "json", config.DefaultFormat)
	assert.Equal(t, models.DefaultHorizonDays, config.DefaultDays)
	assert.Equal(t, "decomposition", config.DefaultEngine)
	assert.Equal(t, models.SeasonalityAdditive, config.Model.SeasonalityMode)
	assert.Equal(t, "file", config.Storage.Backend)
	assert.Equal(t, 4, config.Preferences.Precision)
}

func TestLoadConfigFile(t *testing.T) {
	config, err := LoadConfig(writeFile(t, `
default_format: csv
default_days: 14
model:
  seasonality_mode: multiplicative
  weekly_seasonality: false
  holidays:
    - name: launch
      date: "2024-03-01"
      upper_window: 1
storage:
  source: timescaledb
  timescaledb:
    host: db.internal
    database: metrics
    query_timeout: 5s
`))
	require.NoError(t, err)

	assert.Equal(t, "csv", config.DefaultFormat)
	assert.Equal(t, 14, config.DefaultDays)
	assert.Equal(t, models.SeasonalityMultiplicative, config.Model.SeasonalityMode)
	assert.Equal(t, models.GrowthLinear, config.Model.Growth)
	require.NotNil(t, config.Model.WeeklySeasonality)
	assert.False(t, *config.Model.WeeklySeasonality)
	assert.Nil(t, config.Model.DailySeasonality)

	require.Len(t, config.Model.Holidays, 1)
	assert.Equal(t, "launch", config.Model.Holidays[0].Name)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), config.Model.Holidays[0].Date)
	assert.Equal(t, 1, config.Model.Holidays[0].UpperWindow)

	assert.Equal(t, "timescaledb", config.Storage.Source)
	assert.Equal(t, "db.internal", config.Storage.TimescaleDB.Host)
	assert.Equal(t, 5*time.Second, config.Storage.TimescaleDB.QueryTimeout)
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("TSFORECAST_DEFAULT_DAYS", "9")
	t.Setenv("TSFORECAST_STORAGE_INFLUXDB_URL", "http://influx:8086")

	config, err := LoadConfig(writeFile(t, ""))
	require.NoError(t, err)
	assert.Equal(t, 9, config.DefaultDays)
	assert.Equal(t, "http://influx:8086", config.Storage.InfluxDB.URL)
}

func TestLoadConfigInvalidModel(t *testing.T) {
	_, err := LoadConfig(writeFile(t, "model:\n  growth: logistic\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "growth")
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
