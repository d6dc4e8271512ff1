package influxdb

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/tsforecast/internal/normalize"
	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/models"
)

const backendName = "influxdb"

// DefaultLookback is the range used when a query sets no start time
const DefaultLookback = 365 * 24 * time.Hour

// InfluxDBConfig contains configuration for the InfluxDB series source
type InfluxDBConfig struct {
	URL          string        `json:"url" yaml:"url" mapstructure:"url"`
	Token        string        `json:"token" yaml:"token" mapstructure:"token"`
	Organization string        `json:"organization" yaml:"organization" mapstructure:"organization"`
	Bucket       string        `json:"bucket" yaml:"bucket" mapstructure:"bucket"`
	Measurement  string        `json:"measurement" yaml:"measurement" mapstructure:"measurement"`
	Field        string        `json:"field" yaml:"field" mapstructure:"field"`
	SeriesTag    string        `json:"series_tag" yaml:"series_tag" mapstructure:"series_tag"`
	Timeout      time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	UseGZip      bool          `json:"use_gzip" yaml:"use_gzip" mapstructure:"use_gzip"`
}

// InfluxDBStorage reads canonical series with Flux queries
type InfluxDBStorage struct {
	config   *InfluxDBConfig
	client   influxdb2.Client
	queryAPI api.QueryAPI
	logger   *logrus.Logger
	mu       sync.RWMutex
}

// NewInfluxDBStorage creates a new InfluxDB storage instance
func NewInfluxDBStorage(config *InfluxDBConfig, logger *logrus.Logger) (*InfluxDBStorage, error) {
	if config == nil {
		return nil, errors.NewStorageConfigError(backendName, "config cannot be nil")
	}

	if config.URL == "" {
		return nil, errors.NewStorageConfigError(backendName, "url is required")
	}

	if config.Bucket == "" {
		return nil, errors.NewStorageConfigError(backendName, "bucket is required")
	}

	if logger == nil {
		logger = logrus.New()
	}

	// Set defaults
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Field == "" {
		config.Field = models.ColumnValue
	}
	if config.SeriesTag == "" {
		config.SeriesTag = "series_id"
	}

	return &InfluxDBStorage{
		config: config,
		logger: logger,
	}, nil
}

// Backend returns the backend name
func (s *InfluxDBStorage) Backend() string {
	return backendName
}

// Connect establishes connection to InfluxDB
func (s *InfluxDBStorage) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return nil
	}

	options := influxdb2.DefaultOptions()
	options.SetUseGZip(s.config.UseGZip)
	options.SetHTTPRequestTimeout(uint(s.config.Timeout.Seconds()))

	client := influxdb2.NewClientWithOptions(s.config.URL, s.config.Token, options)

	ok, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return errors.WrapStorageError(err, backendName, "CONNECT")
	}
	if !ok {
		client.Close()
		return errors.NewStorageError("STORAGE_CONNECT_FAILED", "influxdb ping failed")
	}

	s.client = client
	s.queryAPI = client.QueryAPI(s.config.Organization)

	s.logger.WithFields(logrus.Fields{
		"url":          s.config.URL,
		"organization": s.config.Organization,
		"bucket":       s.config.Bucket,
	}).Info("Connected to InfluxDB")

	return nil
}

// Close closes the connection to InfluxDB
func (s *InfluxDBStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}

	s.client.Close()
	s.client = nil
	s.queryAPI = nil

	s.logger.Info("Disconnected from InfluxDB")
	return nil
}

// Ping tests the connection
func (s *InfluxDBStorage) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.client == nil {
		return errors.ErrStorageNotConnected
	}

	ok, err := s.client.Ping(ctx)
	if err != nil {
		return errors.WrapStorageError(err, backendName, "READ")
	}
	if !ok {
		return errors.NewStorageError("STORAGE_READ_FAILED", "influxdb ping failed")
	}
	return nil
}

// Fetch runs a range query and returns the points ordered by time
func (s *InfluxDBStorage) Fetch(ctx context.Context, query *models.SeriesQuery) (*models.Series, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.queryAPI == nil {
		return nil, errors.ErrStorageNotConnected
	}

	if query == nil {
		return nil, errors.NewValidationError(errors.CodeSourceFailed, "query cannot be nil")
	}

	fluxQuery := s.buildFluxQuery(query, time.Now().UTC())

	s.logger.WithFields(logrus.Fields{
		"query": fluxQuery,
	}).Debug("Executing InfluxDB query")

	result, err := s.queryAPI.Query(ctx, fluxQuery)
	if err != nil {
		return nil, errors.WrapStorageError(err, backendName, "QUERY")
	}
	defer result.Close()

	points := make([]models.Point, 0)
	for result.Next() {
		record := result.Record()
		value, ok := toFloat(record.Value())
		if !ok {
			continue
		}
		points = append(points, models.Point{Timestamp: normalize.StripZone(record.Time()), Value: value})
	}
	if err := result.Err(); err != nil {
		return nil, errors.WrapStorageError(err, backendName, "QUERY")
	}

	s.logger.WithFields(logrus.Fields{
		"series_id": query.SeriesID,
		"points":    len(points),
	}).Debug("Fetched series from InfluxDB")

	return models.NewSeries(points), nil
}

// buildFluxQuery builds a Flux query from a SeriesQuery
func (s *InfluxDBStorage) buildFluxQuery(query *models.SeriesQuery, now time.Time) string {
	measurement := query.Measurement
	if measurement == "" {
		measurement = s.config.Measurement
	}
	field := query.Field
	if field == "" {
		field = s.config.Field
	}

	start := query.StartTime
	if start.IsZero() {
		start = now.Add(-DefaultLookback)
	}
	stop := query.EndTime
	if stop.IsZero() {
		stop = now
	}

	var b strings.Builder
	fmt.Fprintf(&b, `from(bucket: %q)`, s.config.Bucket)
	fmt.Fprintf(&b, "\n  |> range(start: %s, stop: %s)", start.Format(time.RFC3339), stop.Format(time.RFC3339))
	if measurement != "" {
		fmt.Fprintf(&b, "\n  |> filter(fn: (r) => r._measurement == %q)", measurement)
	}
	fmt.Fprintf(&b, "\n  |> filter(fn: (r) => r._field == %q)", field)
	if query.SeriesID != "" {
		fmt.Fprintf(&b, "\n  |> filter(fn: (r) => r.%s == %q)", s.config.SeriesTag, query.SeriesID)
	}
	b.WriteString("\n  |> sort(columns: [\"_time\"])")
	if query.Limit > 0 {
		fmt.Fprintf(&b, "\n  |> limit(n: %d)", query.Limit)
	}

	return b.String()
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
