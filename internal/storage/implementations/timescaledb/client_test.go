package timescaledb

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/tsforecast/pkg/models"
)

func newTestStorage(t *testing.T) *TimescaleDBStorage {
	t.Helper()
	storage, err := NewTimescaleDBStorage(&TimescaleDBConfig{
		Host:     "localhost",
		Database: "metrics",
		Username: "forecast",
		Password: "secret",
	}, logrus.New())
	require.NoError(t, err)
	return storage
}

func TestNewTimescaleDBStorageInvalidConfig(t *testing.T) {
	_, err := NewTimescaleDBStorage(nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config cannot be nil")

	_, err = NewTimescaleDBStorage(&TimescaleDBConfig{Database: "metrics"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host is required")

	_, err = NewTimescaleDBStorage(&TimescaleDBConfig{Host: "localhost"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is required")
}

func TestDefaults(t *testing.T) {
	storage := newTestStorage(t)

	assert.Equal(t, 5432, storage.config.Port)
	assert.Equal(t, "disable", storage.config.SSLMode)
	assert.Equal(t, "series_points", storage.config.Table)
	assert.Equal(t, "timescaledb", storage.Backend())
	assert.Equal(t,
		"host=localhost port=5432 user=forecast password=secret dbname=metrics sslmode=disable connect_timeout=10",
		storage.connectionString())
}

func TestBuildQuery(t *testing.T) {
	storage := newTestStorage(t)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		query    *models.SeriesQuery
		expected string
		args     []interface{}
	}{
		{
			name:     "series only",
			query:    &models.SeriesQuery{SeriesID: "store-7"},
			expected: `SELECT "ts", "value" FROM "series_points" WHERE "series_id" = $1 ORDER BY "ts"`,
			args:     []interface{}{"store-7"},
		},
		{
			name:     "range and limit",
			query:    &models.SeriesQuery{SeriesID: "store-7", StartTime: start, EndTime: end, Limit: 100},
			expected: `SELECT "ts", "value" FROM "series_points" WHERE "series_id" = $1 AND "ts" >= $2 AND "ts" < $3 ORDER BY "ts" LIMIT $4`,
			args:     []interface{}{"store-7", start, end, 100},
		},
		{
			name:     "schema qualified table and field",
			query:    &models.SeriesQuery{Measurement: "sales.daily", Field: "revenue"},
			expected: `SELECT "ts", "revenue" FROM "sales"."daily" ORDER BY "ts"`,
		},
		{
			name:     "identifiers are quoted",
			query:    &models.SeriesQuery{Measurement: `x"; DROP TABLE y; --`},
			expected: `SELECT "ts", "value" FROM "x""; DROP TABLE y; --" ORDER BY "ts"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := storage.buildQuery(tt.query)
			assert.Equal(t, tt.expected, query)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestNotConnected(t *testing.T) {
	storage := newTestStorage(t)

	_, err := storage.Fetch(context.Background(), &models.SeriesQuery{SeriesID: "a"})
	assert.Error(t, err)
	assert.Error(t, storage.Ping(context.Background()))
	assert.NoError(t, storage.Close())
}
