package redis

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/tsforecast/internal/storage/naming"
	"github.com/inferloop/tsforecast/pkg/errors"
)

const backendName = "redis"

// DefaultMaxUploadBytes caps a single stored upload
const DefaultMaxUploadBytes = 32 << 20

// RedisConfig holds configuration for Redis upload storage
type RedisConfig struct {
	Addr           string        `json:"addr" mapstructure:"addr"`
	Password       string        `json:"password" mapstructure:"password"`
	DB             int           `json:"db" mapstructure:"db"`
	DialTimeout    time.Duration `json:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout    time.Duration `json:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `json:"write_timeout" mapstructure:"write_timeout"`
	PoolSize       int           `json:"pool_size" mapstructure:"pool_size"`
	MinIdleConns   int           `json:"min_idle_conns" mapstructure:"min_idle_conns"`
	MaxRetries     int           `json:"max_retries" mapstructure:"max_retries"`
	TTL            time.Duration `json:"ttl" mapstructure:"ttl"`
	KeyPrefix      string        `json:"key_prefix" mapstructure:"key_prefix"`
	MaxUploadBytes int64         `json:"max_upload_bytes" mapstructure:"max_upload_bytes"`
	UseClustering  bool          `json:"use_clustering" mapstructure:"use_clustering"`
	ClusterAddrs   []string      `json:"cluster_addrs" mapstructure:"cluster_addrs"`
}

// RedisStorage keeps uploads as string values with an optional TTL
type RedisStorage struct {
	config *RedisConfig
	client redis.UniversalClient
	logger *logrus.Logger
	mu     sync.RWMutex
}

// NewRedisStorage creates a new Redis storage instance
func NewRedisStorage(config *RedisConfig, logger *logrus.Logger) (*RedisStorage, error) {
	if config == nil {
		return nil, errors.NewStorageConfigError(backendName, "config cannot be nil")
	}

	if config.Addr == "" && len(config.ClusterAddrs) == 0 {
		return nil, errors.NewStorageConfigError(backendName, "address or cluster addresses are required")
	}

	if config.MaxUploadBytes == 0 {
		config.MaxUploadBytes = DefaultMaxUploadBytes
	}

	if logger == nil {
		logger = logrus.New()
	}

	return &RedisStorage{
		config: config,
		logger: logger,
	}, nil
}

// Backend returns the backend name
func (r *RedisStorage) Backend() string {
	return backendName
}

// Connect establishes connection to Redis
func (r *RedisStorage) Connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client != nil {
		return nil // Already connected
	}

	var client redis.UniversalClient

	if r.config.UseClustering && len(r.config.ClusterAddrs) > 0 {
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        r.config.ClusterAddrs,
			Password:     r.config.Password,
			DialTimeout:  r.config.DialTimeout,
			ReadTimeout:  r.config.ReadTimeout,
			WriteTimeout: r.config.WriteTimeout,
			PoolSize:     r.config.PoolSize,
			MinIdleConns: r.config.MinIdleConns,
			MaxRetries:   r.config.MaxRetries,
		})
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:         r.config.Addr,
			Password:     r.config.Password,
			DB:           r.config.DB,
			DialTimeout:  r.config.DialTimeout,
			ReadTimeout:  r.config.ReadTimeout,
			WriteTimeout: r.config.WriteTimeout,
			PoolSize:     r.config.PoolSize,
			MinIdleConns: r.config.MinIdleConns,
			MaxRetries:   r.config.MaxRetries,
		})
	}

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return errors.WrapStorageError(err, backendName, "CONNECT")
	}

	r.client = client

	r.logger.WithFields(logrus.Fields{
		"addr":       r.config.Addr,
		"db":         r.config.DB,
		"clustering": r.config.UseClustering,
	}).Info("Connected to Redis")

	return nil
}

// Close closes the Redis connection
func (r *RedisStorage) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client == nil {
		return nil
	}

	err := r.client.Close()
	r.client = nil
	if err != nil {
		return errors.WrapStorageError(err, backendName, "CONNECT")
	}

	r.logger.Info("Redis connection closed")
	return nil
}

// Ping tests the Redis connection
func (r *RedisStorage) Ping(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.client == nil {
		return errors.ErrStorageNotConnected
	}

	if _, err := r.client.Ping(ctx).Result(); err != nil {
		return errors.WrapStorageError(err, backendName, "READ")
	}

	return nil
}

// Save stores data under the cleaned key of name, replacing any earlier
// value and resetting its TTL
func (r *RedisStorage) Save(ctx context.Context, name string, data io.Reader) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.client == nil {
		return "", errors.ErrStorageNotConnected
	}

	content, err := io.ReadAll(io.LimitReader(data, r.config.MaxUploadBytes+1))
	if err != nil {
		return "", errors.WrapStorageError(err, backendName, "WRITE")
	}
	if int64(len(content)) > r.config.MaxUploadBytes {
		return "", errors.NewStorageError(errors.CodeUploadFailed,
			fmt.Sprintf("upload exceeds %d bytes", r.config.MaxUploadBytes))
	}

	key := naming.CleanFileName(name)
	if err := r.client.Set(ctx, r.generateKey(key), content, r.config.TTL).Err(); err != nil {
		return "", errors.WrapStorageError(err, backendName, "WRITE").WithContext("key", key)
	}

	r.logger.WithFields(logrus.Fields{
		"key":   key,
		"bytes": len(content),
		"ttl":   r.config.TTL,
	}).Debug("Saved upload")

	return key, nil
}

// Load returns the value stored under key
func (r *RedisStorage) Load(ctx context.Context, key string) (io.ReadCloser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.client == nil {
		return nil, errors.ErrStorageNotConnected
	}

	content, err := r.client.Get(ctx, r.generateKey(key)).Bytes()
	if err == redis.Nil {
		return nil, errors.WrapError(errors.ErrUploadNotFound, errors.ErrorTypeStorage, errors.CodeUploadFailed,
			errors.ErrUploadNotFound.Error()).WithContext("key", key)
	}
	if err != nil {
		return nil, errors.WrapStorageError(err, backendName, "READ").WithContext("key", key)
	}

	return io.NopCloser(bytes.NewReader(content)), nil
}

// generateKey namespaces an upload key
func (r *RedisStorage) generateKey(key string) string {
	if r.config.KeyPrefix == "" {
		return "upload:" + key
	}
	return fmt.Sprintf("%s:upload:%s", r.config.KeyPrefix, key)
}
