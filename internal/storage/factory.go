package storage

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/tsforecast/internal/storage/implementations/file"
	"github.com/inferloop/tsforecast/internal/storage/implementations/influxdb"
	"github.com/inferloop/tsforecast/internal/storage/implementations/redis"
	"github.com/inferloop/tsforecast/internal/storage/implementations/s3"
	"github.com/inferloop/tsforecast/internal/storage/implementations/timescaledb"
	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/interfaces"
)

// Backend names
const (
	BackendFile        = "file"
	BackendS3          = "s3"
	BackendRedis       = "redis"
	BackendInfluxDB    = "influxdb"
	BackendTimescaleDB = "timescaledb"
)

// Config selects and configures the storage backends
type Config struct {
	Backend     string                        `json:"backend" yaml:"backend" mapstructure:"backend"`
	Source      string                        `json:"source" yaml:"source" mapstructure:"source"`
	File        file.FileStorageConfig        `json:"file" yaml:"file" mapstructure:"file"`
	S3          s3.S3Config                   `json:"s3" yaml:"s3" mapstructure:"s3"`
	Redis       redis.RedisConfig             `json:"redis" yaml:"redis" mapstructure:"redis"`
	InfluxDB    influxdb.InfluxDBConfig       `json:"influxdb" yaml:"influxdb" mapstructure:"influxdb"`
	TimescaleDB timescaledb.TimescaleDBConfig `json:"timescaledb" yaml:"timescaledb" mapstructure:"timescaledb"`
}

// DefaultConfig keeps uploads on the local filesystem
func DefaultConfig() Config {
	return Config{
		Backend: BackendFile,
		File: file.FileStorageConfig{
			BasePath:   "./data",
			CreateDirs: true,
		},
	}
}

// UploadStoreCreateFunc builds an upload store from the shared config
type UploadStoreCreateFunc func(cfg *Config, logger *logrus.Logger) (interfaces.UploadStore, error)

// SeriesSourceCreateFunc builds a series source from the shared config
type SeriesSourceCreateFunc func(cfg *Config, logger *logrus.Logger) (interfaces.SeriesSource, error)

// Factory maps backend names to constructors
type Factory struct {
	uploads map[string]UploadStoreCreateFunc
	sources map[string]SeriesSourceCreateFunc
	mu      sync.RWMutex
	logger  *logrus.Logger
}

// NewFactory creates a new storage factory with the built in backends
func NewFactory(logger *logrus.Logger) *Factory {
	if logger == nil {
		logger = logrus.New()
	}

	factory := &Factory{
		uploads: make(map[string]UploadStoreCreateFunc),
		sources: make(map[string]SeriesSourceCreateFunc),
		logger:  logger,
	}

	factory.registerDefaults()

	return factory
}

// NewUploadStore creates the upload store named by cfg.Backend
func NewUploadStore(cfg *Config, logger *logrus.Logger) (interfaces.UploadStore, error) {
	return NewFactory(logger).CreateUploadStore(cfg)
}

// NewSeriesSource creates the series source named by cfg.Source
func NewSeriesSource(cfg *Config, logger *logrus.Logger) (interfaces.SeriesSource, error) {
	return NewFactory(logger).CreateSeriesSource(cfg)
}

// CreateUploadStore creates the upload store named by cfg.Backend
func (f *Factory) CreateUploadStore(cfg *Config) (interfaces.UploadStore, error) {
	if cfg == nil {
		return nil, errors.NewStorageConfigError("storage", "config cannot be nil")
	}

	backend := strings.ToLower(cfg.Backend)
	if backend == "" {
		backend = BackendFile
	}

	f.mu.RLock()
	createFunc, exists := f.uploads[backend]
	f.mu.RUnlock()

	if !exists {
		return nil, errors.NewStorageError("UNSUPPORTED_TYPE", fmt.Sprintf("upload backend '%s' is not supported", backend))
	}

	store, err := createFunc(cfg, f.logger)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, "CREATION_FAILED", fmt.Sprintf("failed to create %s upload store", backend))
	}

	f.logger.WithFields(logrus.Fields{
		"backend": backend,
	}).Info("Created upload store")

	return store, nil
}

// CreateSeriesSource creates the series source named by cfg.Source
func (f *Factory) CreateSeriesSource(cfg *Config) (interfaces.SeriesSource, error) {
	if cfg == nil {
		return nil, errors.NewStorageConfigError("storage", "config cannot be nil")
	}

	source := strings.ToLower(cfg.Source)

	f.mu.RLock()
	createFunc, exists := f.sources[source]
	f.mu.RUnlock()

	if !exists {
		return nil, errors.NewStorageError("UNSUPPORTED_TYPE", fmt.Sprintf("series source '%s' is not supported", source))
	}

	src, err := createFunc(cfg, f.logger)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, "CREATION_FAILED", fmt.Sprintf("failed to create %s series source", source))
	}

	f.logger.WithFields(logrus.Fields{
		"source": source,
	}).Info("Created series source")

	return src, nil
}

// RegisterUploadStore registers an upload backend
func (f *Factory) RegisterUploadStore(name string, createFunc UploadStoreCreateFunc) error {
	if name == "" {
		return errors.NewValidationError("INVALID_TYPE", "storage type cannot be empty")
	}
	if createFunc == nil {
		return errors.NewValidationError("INVALID_CREATOR", "storage create function cannot be nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads[strings.ToLower(name)] = createFunc
	return nil
}

// RegisterSeriesSource registers a series source backend
func (f *Factory) RegisterSeriesSource(name string, createFunc SeriesSourceCreateFunc) error {
	if name == "" {
		return errors.NewValidationError("INVALID_TYPE", "storage type cannot be empty")
	}
	if createFunc == nil {
		return errors.NewValidationError("INVALID_CREATOR", "storage create function cannot be nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.sources[strings.ToLower(name)] = createFunc
	return nil
}

// UploadBackends returns the registered upload backends in order
func (f *Factory) UploadBackends() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.uploads))
	for name := range f.uploads {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SeriesSources returns the registered series sources in order
func (f *Factory) SeriesSources() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.sources))
	for name := range f.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (f *Factory) registerDefaults() {
	f.uploads[BackendFile] = func(cfg *Config, logger *logrus.Logger) (interfaces.UploadStore, error) {
		config := cfg.File
		return file.NewFileStorage(&config, logger)
	}
	f.uploads[BackendS3] = func(cfg *Config, logger *logrus.Logger) (interfaces.UploadStore, error) {
		config := cfg.S3
		return s3.NewS3Storage(&config, logger)
	}
	f.uploads[BackendRedis] = func(cfg *Config, logger *logrus.Logger) (interfaces.UploadStore, error) {
		config := cfg.Redis
		return redis.NewRedisStorage(&config, logger)
	}

	f.sources[BackendInfluxDB] = func(cfg *Config, logger *logrus.Logger) (interfaces.SeriesSource, error) {
		config := cfg.InfluxDB
		return influxdb.NewInfluxDBStorage(&config, logger)
	}
	f.sources[BackendTimescaleDB] = func(cfg *Config, logger *logrus.Logger) (interfaces.SeriesSource, error) {
		config := cfg.TimescaleDB
		return timescaledb.NewTimescaleDBStorage(&config, logger)
	}
}
