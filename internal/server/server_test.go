package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, 8000, config.Port)
	assert.Equal(t, "0.0.0.0:8000", config.Addr())
	assert.Equal(t, "decomposition", config.DefaultEngine)
	assert.Equal(t, "file", config.Storage.Backend)
	assert.NoError(t, config.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero port", func(c *Config) { c.Port = 0 }},
		{"port out of range", func(c *Config) { c.Port = 70000 }},
		{"metrics port collides", func(c *Config) { c.Metrics.Port = c.Port }},
		{"cert without key", func(c *Config) { c.TLSCertFile = "cert.pem" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(config)
			assert.Error(t, config.Validate())
		})
	}
}

func TestNewServerRoutes(t *testing.T) {
	config := DefaultConfig()
	config.Storage.File.BasePath = t.TempDir()

	srv, err := NewServer(config, quietLogger())
	require.NoError(t, err)
	require.NoError(t, srv.uploads.Connect(context.Background()))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"upload_store"`)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewServerStandaloneMetrics(t *testing.T) {
	config := DefaultConfig()
	config.Storage.File.BasePath = t.TempDir()
	config.Metrics.Port = 9191

	srv, err := NewServer(config, quietLogger())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewServerInvalidStorage(t *testing.T) {
	config := DefaultConfig()
	config.Storage.Backend = "ftp"

	_, err := NewServer(config, quietLogger())
	assert.Error(t, err)
}

func TestHealthDegradedWhenStoreDisconnected(t *testing.T) {
	config := DefaultConfig()
	config.Storage.File.BasePath = t.TempDir()

	srv, err := NewServer(config, quietLogger())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
}
