package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/tsforecast/internal/storage/naming"
	"github.com/inferloop/tsforecast/pkg/errors"
)

const backendName = "file"

// FileStorageConfig contains configuration for file-based upload storage
type FileStorageConfig struct {
	BasePath   string      `json:"base_path" yaml:"base_path" mapstructure:"base_path"`
	CreateDirs bool        `json:"create_dirs" yaml:"create_dirs" mapstructure:"create_dirs"`
	FileMode   os.FileMode `json:"file_mode" yaml:"file_mode" mapstructure:"file_mode"`
}

// FileStorage keeps uploads as flat files under one directory
type FileStorage struct {
	config    *FileStorageConfig
	logger    *logrus.Logger
	mu        sync.RWMutex
	connected bool
}

// NewFileStorage creates a new file storage instance
func NewFileStorage(config *FileStorageConfig, logger *logrus.Logger) (*FileStorage, error) {
	if config == nil {
		return nil, errors.NewStorageConfigError(backendName, "config cannot be nil")
	}

	if config.BasePath == "" {
		return nil, errors.NewStorageConfigError(backendName, "base path is required")
	}

	if config.FileMode == 0 {
		config.FileMode = 0o644
	}

	if logger == nil {
		logger = logrus.New()
	}

	return &FileStorage{
		config: config,
		logger: logger,
	}, nil
}

// Backend returns the backend name
func (fs *FileStorage) Backend() string {
	return backendName
}

// Connect checks the base directory, creating it when configured to
func (fs *FileStorage) Connect(ctx context.Context) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.connected {
		return nil
	}

	if fs.config.CreateDirs {
		if err := os.MkdirAll(fs.config.BasePath, 0o755); err != nil {
			return errors.WrapStorageError(err, backendName, "CONNECT")
		}
	}

	info, err := os.Stat(fs.config.BasePath)
	if err != nil {
		return errors.WrapStorageError(err, backendName, "CONNECT")
	}
	if !info.IsDir() {
		return errors.NewStorageConfigError(backendName, fmt.Sprintf("%s is not a directory", fs.config.BasePath))
	}

	fs.connected = true

	fs.logger.WithFields(logrus.Fields{
		"base_path": fs.config.BasePath,
	}).Info("Connected to file storage")

	return nil
}

// Close releases the storage
func (fs *FileStorage) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.connected = false
	return nil
}

// Ping tests that the base directory is still reachable
func (fs *FileStorage) Ping(ctx context.Context) error {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if !fs.connected {
		return errors.ErrStorageNotConnected
	}

	if _, err := os.Stat(fs.config.BasePath); err != nil {
		return errors.WrapStorageError(err, backendName, "READ")
	}

	return nil
}

// Save writes data under the cleaned key of name. The file is written to a
// temporary name first so readers never see a partial file.
func (fs *FileStorage) Save(ctx context.Context, name string, data io.Reader) (string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if !fs.connected {
		return "", errors.ErrStorageNotConnected
	}

	key := naming.CleanFileName(name)
	target := filepath.Join(fs.config.BasePath, key)

	tmp, err := os.CreateTemp(fs.config.BasePath, "."+key+".*")
	if err != nil {
		return "", errors.WrapStorageError(err, backendName, "WRITE")
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, data)
	if err != nil {
		tmp.Close()
		return "", errors.WrapStorageError(err, backendName, "WRITE")
	}
	if err := tmp.Close(); err != nil {
		return "", errors.WrapStorageError(err, backendName, "WRITE")
	}
	if err := os.Chmod(tmp.Name(), fs.config.FileMode); err != nil {
		return "", errors.WrapStorageError(err, backendName, "WRITE")
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", errors.WrapStorageError(err, backendName, "WRITE")
	}

	fs.logger.WithFields(logrus.Fields{
		"key":   key,
		"bytes": written,
	}).Debug("Saved upload")

	return key, nil
}

// Load opens the file stored under key
func (fs *FileStorage) Load(ctx context.Context, key string) (io.ReadCloser, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if !fs.connected {
		return nil, errors.ErrStorageNotConnected
	}

	if !naming.ValidKey(key) {
		return nil, errors.NewValidationError(errors.CodeUploadFailed, fmt.Sprintf("invalid upload key %q", key))
	}

	f, err := os.Open(filepath.Join(fs.config.BasePath, key))
	if os.IsNotExist(err) {
		return nil, errors.WrapError(errors.ErrUploadNotFound, errors.ErrorTypeStorage, errors.CodeUploadFailed,
			errors.ErrUploadNotFound.Error()).WithContext("key", key)
	}
	if err != nil {
		return nil, errors.WrapStorageError(err, backendName, "READ")
	}

	return f, nil
}
