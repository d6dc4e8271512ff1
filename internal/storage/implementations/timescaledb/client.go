package timescaledb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/tsforecast/internal/normalize"
	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/models"
)

const backendName = "timescaledb"

// TimescaleDBConfig holds configuration for TimescaleDB
type TimescaleDBConfig struct {
	Host            string        `json:"host" yaml:"host" mapstructure:"host"`
	Port            int           `json:"port" yaml:"port" mapstructure:"port"`
	Database        string        `json:"database" yaml:"database" mapstructure:"database"`
	Username        string        `json:"username" yaml:"username" mapstructure:"username"`
	Password        string        `json:"password" yaml:"password" mapstructure:"password"`
	SSLMode         string        `json:"ssl_mode" yaml:"ssl_mode" mapstructure:"ssl_mode"`
	Table           string        `json:"table" yaml:"table" mapstructure:"table"`
	TimeColumn      string        `json:"time_column" yaml:"time_column" mapstructure:"time_column"`
	ValueColumn     string        `json:"value_column" yaml:"value_column" mapstructure:"value_column"`
	SeriesColumn    string        `json:"series_column" yaml:"series_column" mapstructure:"series_column"`
	ConnectTimeout  time.Duration `json:"connect_timeout" yaml:"connect_timeout" mapstructure:"connect_timeout"`
	QueryTimeout    time.Duration `json:"query_timeout" yaml:"query_timeout" mapstructure:"query_timeout"`
	MaxConnections  int           `json:"max_connections" yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// TimescaleDBStorage reads canonical series from a hypertable
type TimescaleDBStorage struct {
	config *TimescaleDBConfig
	db     *sql.DB
	logger *logrus.Logger
	mu     sync.RWMutex
}

// NewTimescaleDBStorage creates a new TimescaleDB storage instance
func NewTimescaleDBStorage(config *TimescaleDBConfig, logger *logrus.Logger) (*TimescaleDBStorage, error) {
	if config == nil {
		return nil, errors.NewStorageConfigError(backendName, "config cannot be nil")
	}

	if config.Host == "" {
		return nil, errors.NewStorageConfigError(backendName, "host is required")
	}

	if config.Database == "" {
		return nil, errors.NewStorageConfigError(backendName, "database is required")
	}

	if logger == nil {
		logger = logrus.New()
	}

	if config.Port == 0 {
		config.Port = 5432
	}
	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}
	if config.Table == "" {
		config.Table = "series_points"
	}
	if config.TimeColumn == "" {
		config.TimeColumn = "ts"
	}
	if config.ValueColumn == "" {
		config.ValueColumn = models.ColumnValue
	}
	if config.SeriesColumn == "" {
		config.SeriesColumn = "series_id"
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 10 * time.Second
	}
	if config.QueryTimeout == 0 {
		config.QueryTimeout = 30 * time.Second
	}

	return &TimescaleDBStorage{
		config: config,
		logger: logger,
	}, nil
}

// Backend returns the backend name
func (ts *TimescaleDBStorage) Backend() string {
	return backendName
}

func (ts *TimescaleDBStorage) connectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
		ts.config.Host,
		ts.config.Port,
		ts.config.Username,
		ts.config.Password,
		ts.config.Database,
		ts.config.SSLMode,
		int(ts.config.ConnectTimeout.Seconds()),
	)
}

// Connect establishes connection to TimescaleDB
func (ts *TimescaleDBStorage) Connect(ctx context.Context) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.db != nil {
		return nil
	}

	db, err := sql.Open("postgres", ts.connectionString())
	if err != nil {
		return errors.WrapStorageError(err, backendName, "CONNECT")
	}

	// Configure connection pool
	if ts.config.MaxConnections > 0 {
		db.SetMaxOpenConns(ts.config.MaxConnections)
	}
	if ts.config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(ts.config.MaxIdleConns)
	}
	if ts.config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(ts.config.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, ts.config.ConnectTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return errors.WrapStorageError(err, backendName, "CONNECT")
	}

	ts.db = db

	ts.logger.WithFields(logrus.Fields{
		"host":     ts.config.Host,
		"port":     ts.config.Port,
		"database": ts.config.Database,
		"table":    ts.config.Table,
	}).Info("Connected to TimescaleDB")

	return nil
}

// Close closes the connection pool
func (ts *TimescaleDBStorage) Close() error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.db == nil {
		return nil
	}

	err := ts.db.Close()
	ts.db = nil
	if err != nil {
		return errors.WrapStorageError(err, backendName, "CLOSE")
	}

	ts.logger.Info("Disconnected from TimescaleDB")
	return nil
}

// Ping tests the connection
func (ts *TimescaleDBStorage) Ping(ctx context.Context) error {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	if ts.db == nil {
		return errors.ErrStorageNotConnected
	}

	if err := ts.db.PingContext(ctx); err != nil {
		return errors.WrapStorageError(err, backendName, "READ")
	}
	return nil
}

// Fetch selects the rows of one series ordered by time
func (ts *TimescaleDBStorage) Fetch(ctx context.Context, query *models.SeriesQuery) (*models.Series, error) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	if ts.db == nil {
		return nil, errors.ErrStorageNotConnected
	}

	if query == nil {
		return nil, errors.NewValidationError(errors.CodeSourceFailed, "query cannot be nil")
	}

	sqlQuery, args := ts.buildQuery(query)

	queryCtx, cancel := context.WithTimeout(ctx, ts.config.QueryTimeout)
	defer cancel()

	ts.logger.WithFields(logrus.Fields{
		"query": sqlQuery,
		"args":  len(args),
	}).Debug("Executing TimescaleDB query")

	rows, err := ts.db.QueryContext(queryCtx, sqlQuery, args...)
	if err != nil {
		return nil, errors.WrapStorageError(err, backendName, "QUERY")
	}
	defer rows.Close()

	points := make([]models.Point, 0)
	for rows.Next() {
		var (
			timestamp time.Time
			value     sql.NullFloat64
		)
		if err := rows.Scan(&timestamp, &value); err != nil {
			return nil, errors.WrapStorageError(err, backendName, "READ")
		}
		if !value.Valid {
			continue
		}
		points = append(points, models.Point{Timestamp: normalize.StripZone(timestamp), Value: value.Float64})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapStorageError(err, backendName, "READ")
	}

	ts.logger.WithFields(logrus.Fields{
		"series_id": query.SeriesID,
		"points":    len(points),
	}).Debug("Fetched series from TimescaleDB")

	return models.NewSeries(points), nil
}

// buildQuery returns a parameterized SELECT for query
func (ts *TimescaleDBStorage) buildQuery(query *models.SeriesQuery) (string, []interface{}) {
	table := ts.config.Table
	if query.Measurement != "" {
		table = query.Measurement
	}
	valueColumn := ts.config.ValueColumn
	if query.Field != "" {
		valueColumn = query.Field
	}
	timeColumn := pq.QuoteIdentifier(ts.config.TimeColumn)

	var (
		conditions []string
		args       []interface{}
	)
	if query.SeriesID != "" {
		args = append(args, query.SeriesID)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(ts.config.SeriesColumn), len(args)))
	}
	if !query.StartTime.IsZero() {
		args = append(args, query.StartTime)
		conditions = append(conditions, fmt.Sprintf("%s >= $%d", timeColumn, len(args)))
	}
	if !query.EndTime.IsZero() {
		args = append(args, query.EndTime)
		conditions = append(conditions, fmt.Sprintf("%s < $%d", timeColumn, len(args)))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s, %s FROM %s", timeColumn, pq.QuoteIdentifier(valueColumn), quoteTable(table))
	if len(conditions) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conditions, " AND "))
	}
	fmt.Fprintf(&b, " ORDER BY %s", timeColumn)
	if query.Limit > 0 {
		args = append(args, query.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}

	return b.String(), args
}

// quoteTable quotes an optionally schema qualified table name
func quoteTable(name string) string {
	parts := strings.Split(name, ".")
	for i, part := range parts {
		parts[i] = pq.QuoteIdentifier(part)
	}
	return strings.Join(parts, ".")
}
