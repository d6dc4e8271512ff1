package server

import (
	"fmt"
	"time"

	"github.com/inferloop/tsforecast/internal/forecast"
	"github.com/inferloop/tsforecast/internal/observability/metrics"
	"github.com/inferloop/tsforecast/internal/storage"
)

// Default server settings
const (
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 8000
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxUploadBytes  = 32 << 20
	DefaultSampleFile      = "data/sample_data.txt"
)

// Config contains server configuration
type Config struct {
	Host            string        `json:"host" yaml:"host" mapstructure:"host"`
	Port            int           `json:"port" yaml:"port" mapstructure:"port"`
	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout" yaml:"idle_timeout" mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	MaxUploadBytes  int64         `json:"max_upload_bytes" yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
	EnableCORS      bool          `json:"enable_cors" yaml:"enable_cors" mapstructure:"enable_cors"`
	AllowedOrigins  []string      `json:"allowed_origins" yaml:"allowed_origins" mapstructure:"allowed_origins"`
	TLSCertFile     string        `json:"tls_cert_file,omitempty" yaml:"tls_cert_file,omitempty" mapstructure:"tls_cert_file"`
	TLSKeyFile      string        `json:"tls_key_file,omitempty" yaml:"tls_key_file,omitempty" mapstructure:"tls_key_file"`

	// SampleFile backs the legacy GET /forecast route
	SampleFile    string `json:"sample_file" yaml:"sample_file" mapstructure:"sample_file"`
	DefaultEngine string `json:"default_engine" yaml:"default_engine" mapstructure:"default_engine"`
	Version       string `json:"version" yaml:"version" mapstructure:"version"`

	Storage storage.Config           `json:"storage" yaml:"storage" mapstructure:"storage"`
	Metrics metrics.PrometheusConfig `json:"metrics" yaml:"metrics" mapstructure:"metrics"`
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		Host:            DefaultHost,
		Port:            DefaultPort,
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		MaxUploadBytes:  DefaultMaxUploadBytes,
		EnableCORS:      true,
		AllowedOrigins:  []string{"*"},
		SampleFile:      DefaultSampleFile,
		DefaultEngine:   forecast.DefaultEngine,
		Version:         "dev",
		Storage:         storage.DefaultConfig(),
		Metrics:         *metrics.DefaultPrometheusConfig(),
	}
}

// Validate checks the settings the server cannot start without
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("invalid metrics port %d", c.Metrics.Port)
	}
	if c.Metrics.Port != 0 && c.Metrics.Port == c.Port {
		return fmt.Errorf("metrics port %d collides with the server port", c.Metrics.Port)
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return fmt.Errorf("tls_cert_file and tls_key_file must be set together")
	}
	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
