package s3

import (
	"context"
	"fmt"
	"io"
	"path"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/tsforecast/internal/storage/naming"
	"github.com/inferloop/tsforecast/pkg/errors"
)

const backendName = "s3"

// S3Config holds configuration for S3 upload storage
type S3Config struct {
	Region          string        `json:"region" mapstructure:"region"`
	Bucket          string        `json:"bucket" mapstructure:"bucket"`
	AccessKeyID     string        `json:"access_key_id" mapstructure:"access_key_id"`
	SecretAccessKey string        `json:"secret_access_key" mapstructure:"secret_access_key"`
	SessionToken    string        `json:"session_token,omitempty" mapstructure:"session_token"`
	Endpoint        string        `json:"endpoint,omitempty" mapstructure:"endpoint"`
	ForcePathStyle  bool          `json:"force_path_style" mapstructure:"force_path_style"`
	DisableSSL      bool          `json:"disable_ssl" mapstructure:"disable_ssl"`
	Prefix          string        `json:"prefix" mapstructure:"prefix"`
	Timeout         time.Duration `json:"timeout" mapstructure:"timeout"`
	MaxRetries      int           `json:"max_retries" mapstructure:"max_retries"`
	PartSize        int64         `json:"part_size" mapstructure:"part_size"`
	StorageClass    string        `json:"storage_class" mapstructure:"storage_class"`
}

// S3Storage keeps uploads as objects in one bucket
type S3Storage struct {
	config   *S3Config
	s3Client *s3.S3
	uploader *s3manager.Uploader
	logger   *logrus.Logger
	mu       sync.RWMutex
}

// NewS3Storage creates a new S3 storage instance
func NewS3Storage(config *S3Config, logger *logrus.Logger) (*S3Storage, error) {
	if config == nil {
		return nil, errors.NewStorageConfigError(backendName, "config cannot be nil")
	}

	if config.Bucket == "" {
		return nil, errors.NewStorageConfigError(backendName, "bucket is required")
	}

	if config.Region == "" {
		config.Region = "us-east-1"
	}

	if logger == nil {
		logger = logrus.New()
	}

	return &S3Storage{
		config: config,
		logger: logger,
	}, nil
}

// Backend returns the backend name
func (s *S3Storage) Backend() string {
	return backendName
}

// Connect creates the session and checks that the bucket is reachable
func (s *S3Storage) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.s3Client != nil {
		return nil // Already connected
	}

	awsConfig := &aws.Config{
		Region:     aws.String(s.config.Region),
		MaxRetries: aws.Int(s.config.MaxRetries),
	}

	if s.config.AccessKeyID != "" && s.config.SecretAccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(
			s.config.AccessKeyID,
			s.config.SecretAccessKey,
			s.config.SessionToken,
		)
	}

	// S3-compatible services
	if s.config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(s.config.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(s.config.ForcePathStyle)
	}

	if s.config.DisableSSL {
		awsConfig.DisableSSL = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return errors.WrapStorageError(err, backendName, "CONNECT")
	}

	client := s3.New(sess)
	uploader := s3manager.NewUploaderWithClient(client)
	if s.config.PartSize > 0 {
		uploader.PartSize = s.config.PartSize
	}

	if _, err := client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.config.Bucket),
	}); err != nil {
		return errors.WrapStorageError(err, backendName, "CONNECT").
			WithContext("bucket", s.config.Bucket)
	}

	s.s3Client = client
	s.uploader = uploader

	s.logger.WithFields(logrus.Fields{
		"region": s.config.Region,
		"bucket": s.config.Bucket,
	}).Info("Connected to S3")

	return nil
}

// Close drops the client
func (s *S3Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.s3Client = nil
	s.uploader = nil

	return nil
}

// Ping tests the S3 connection
func (s *S3Storage) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.s3Client == nil {
		return errors.ErrStorageNotConnected
	}

	_, err := s.s3Client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.config.Bucket),
	})
	if err != nil {
		return errors.WrapStorageError(err, backendName, "READ")
	}

	return nil
}

// Save uploads data under the cleaned key of name
func (s *S3Storage) Save(ctx context.Context, name string, data io.Reader) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.uploader == nil {
		return "", errors.ErrStorageNotConnected
	}

	key := naming.CleanFileName(name)
	input := &s3manager.UploadInput{
		Bucket:      aws.String(s.config.Bucket),
		Key:         aws.String(s.objectKey(key)),
		Body:        data,
		ContentType: aws.String("text/csv"),
	}
	if s.config.StorageClass != "" {
		input.StorageClass = aws.String(s.config.StorageClass)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.uploader.UploadWithContext(ctx, input); err != nil {
		return "", errors.WrapStorageError(err, backendName, "WRITE").WithContext("key", key)
	}

	s.logger.WithFields(logrus.Fields{
		"bucket": s.config.Bucket,
		"key":    key,
	}).Debug("Saved upload")

	return key, nil
}

// Load streams the object stored under key. The caller closes the body.
func (s *S3Storage) Load(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.s3Client == nil {
		return nil, errors.ErrStorageNotConnected
	}

	if !naming.ValidKey(key) {
		return nil, errors.NewValidationError(errors.CodeUploadFailed, fmt.Sprintf("invalid upload key %q", key))
	}

	out, err := s.s3Client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && (aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound") {
			return nil, errors.WrapError(errors.ErrUploadNotFound, errors.ErrorTypeStorage, errors.CodeUploadFailed,
				errors.ErrUploadNotFound.Error()).WithContext("key", key)
		}
		return nil, errors.WrapStorageError(err, backendName, "READ").WithContext("key", key)
	}

	return out.Body, nil
}

// objectKey places key under the configured prefix
func (s *S3Storage) objectKey(key string) string {
	if s.config.Prefix == "" {
		return key
	}
	return path.Join(s.config.Prefix, key)
}

func (s *S3Storage) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.config.Timeout)
}
