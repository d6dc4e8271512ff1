package storage

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/tsforecast/internal/storage/implementations/redis"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestNewUploadStoreFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.File.BasePath = t.TempDir()

	store, err := NewUploadStore(&cfg, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, BackendFile, store.Backend())

	ctx := context.Background()
	require.NoError(t, store.Connect(ctx))
	defer store.Close()

	key, err := store.Save(ctx, "sales.csv", strings.NewReader("ds,y\n2024-01-01,1\n"))
	require.NoError(t, err)
	assert.Equal(t, "cleaned_sales.csv", key)

	reader, err := store.Load(ctx, key)
	require.NoError(t, err)
	defer reader.Close()

	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "ds,y\n2024-01-01,1\n", string(content))
}

func TestNewUploadStoreRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := Config{Backend: "Redis", Redis: redis.RedisConfig{Addr: mr.Addr()}}
	store, err := NewUploadStore(&cfg, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, BackendRedis, store.Backend())

	require.NoError(t, store.Connect(context.Background()))
	assert.NoError(t, store.Ping(context.Background()))
	assert.NoError(t, store.Close())
}

func TestNewUploadStoreDefaultsToFile(t *testing.T) {
	cfg := Config{}
	cfg.File.BasePath = t.TempDir()

	store, err := NewUploadStore(&cfg, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, BackendFile, store.Backend())
}

func TestNewUploadStoreErrors(t *testing.T) {
	_, err := NewUploadStore(nil, quietLogger())
	assert.Error(t, err)

	_, err = NewUploadStore(&Config{Backend: "ftp"}, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported")

	_, err = NewUploadStore(&Config{Backend: BackendS3}, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create s3 upload store")
}

func TestNewSeriesSource(t *testing.T) {
	cfg := Config{Source: BackendInfluxDB}
	cfg.InfluxDB.URL = "http://localhost:8086"
	cfg.InfluxDB.Bucket = "metrics"

	source, err := NewSeriesSource(&cfg, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, BackendInfluxDB, source.Backend())

	cfg = Config{Source: BackendTimescaleDB}
	cfg.TimescaleDB.Host = "localhost"
	cfg.TimescaleDB.Database = "metrics"

	source, err = NewSeriesSource(&cfg, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, BackendTimescaleDB, source.Backend())

	_, err = NewSeriesSource(&Config{}, quietLogger())
	assert.Error(t, err)
}

func TestFactoryRegistry(t *testing.T) {
	factory := NewFactory(quietLogger())

	assert.Equal(t, []string{"file", "redis", "s3"}, factory.UploadBackends())
	assert.Equal(t, []string{"influxdb", "timescaledb"}, factory.SeriesSources())

	assert.Error(t, factory.RegisterUploadStore("", nil))
	assert.Error(t, factory.RegisterSeriesSource("memory", nil))
}

type operation struct {
	backend, name, status string
}

type operationLog struct {
	ops []operation
}

func (l *operationLog) RecordStorageOperation(backend, name, status string, _ time.Duration) {
	l.ops = append(l.ops, operation{backend, name, status})
}

func TestInstrumentedUploadStore(t *testing.T) {
	cfg := DefaultConfig()
	cfg.File.BasePath = t.TempDir()

	inner, err := NewUploadStore(&cfg, quietLogger())
	require.NoError(t, err)

	log := &operationLog{}
	store := NewInstrumentedUploadStore(inner, log)
	ctx := context.Background()
	require.NoError(t, store.Connect(ctx))

	key, err := store.Save(ctx, "a.csv", strings.NewReader("x"))
	require.NoError(t, err)

	_, err = store.Load(ctx, "cleaned_missing.csv")
	assert.Error(t, err)

	reader, err := store.Load(ctx, key)
	require.NoError(t, err)
	reader.Close()

	assert.Equal(t, []operation{
		{"file", "save", "success"},
		{"file", "load", "error"},
		{"file", "load", "success"},
	}, log.ops)
}
