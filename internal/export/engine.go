package export

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/models"
)

// ExportFormat names an output format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
	FormatText ExportFormat = "text"
)

// Options controls what an exporter writes
type Options struct {
	// TailOnly restricts data rows to the last Horizon rows
	TailOnly bool `json:"tail_only"`

	// IncludeDetection adds the detected columns to JSON output
	IncludeDetection bool `json:"include_detection"`

	Pretty    bool `json:"pretty"`
	Precision int  `json:"precision"`
}

// Exporter writes a result in one format
type Exporter interface {
	Format() ExportFormat
	ContentType() string
	Export(ctx context.Context, writer io.Writer, result *models.Result, options Options) error
}

// ExportEngine dispatches results to the registered exporters
type ExportEngine struct {
	logger    *logrus.Logger
	mu        sync.RWMutex
	exporters map[ExportFormat]Exporter
}

// NewExportEngine creates an engine with the csv, json and text exporters
func NewExportEngine(logger *logrus.Logger) *ExportEngine {
	if logger == nil {
		logger = logrus.New()
	}

	engine := &ExportEngine{
		logger:    logger,
		exporters: make(map[ExportFormat]Exporter),
	}

	engine.RegisterExporter(&CSVExporter{})
	engine.RegisterExporter(&JSONExporter{})
	engine.RegisterExporter(&TextExporter{})

	return engine
}

// RegisterExporter adds or replaces the exporter for its format
func (ee *ExportEngine) RegisterExporter(exporter Exporter) {
	ee.mu.Lock()
	defer ee.mu.Unlock()

	ee.exporters[exporter.Format()] = exporter
}

// Exporter returns the exporter registered for format
func (ee *ExportEngine) Exporter(format ExportFormat) (Exporter, error) {
	ee.mu.RLock()
	defer ee.mu.RUnlock()

	exporter, ok := ee.exporters[format]
	if !ok {
		return nil, errors.NewValidationError(errors.CodeInvalidConfig,
			fmt.Sprintf("unsupported export format %q", format))
	}
	return exporter, nil
}

// Export writes result to writer in format
func (ee *ExportEngine) Export(ctx context.Context, format ExportFormat, writer io.Writer, result *models.Result, options Options) error {
	if result == nil {
		return errors.NewValidationError(errors.CodeInvalidConfig, "result cannot be nil")
	}

	exporter, err := ee.Exporter(format)
	if err != nil {
		return err
	}

	if err := exporter.Export(ctx, writer, result, options); err != nil {
		ee.logger.WithError(err).WithFields(logrus.Fields{
			"format": format,
			"run_id": result.RunID,
		}).Error("Export failed")
		return errors.WrapError(err, errors.ErrorTypeInternal, errors.CodeInternalError,
			fmt.Sprintf("failed to export %s", format))
	}

	ee.logger.WithFields(logrus.Fields{
		"format": format,
		"run_id": result.RunID,
		"rows":   result.Forecast.Len(),
	}).Debug("Exported result")

	return nil
}

// GetSupportedFormats returns the registered formats in order
func (ee *ExportEngine) GetSupportedFormats() []ExportFormat {
	ee.mu.RLock()
	defer ee.mu.RUnlock()

	formats := make([]ExportFormat, 0, len(ee.exporters))
	for format := range ee.exporters {
		formats = append(formats, format)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}

// ParseFormat maps a user supplied name to a format
func ParseFormat(name string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(name))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON, "":
		return FormatJSON, nil
	case FormatText, "table":
		return FormatText, nil
	default:
		return "", errors.NewValidationError(errors.CodeInvalidConfig,
			fmt.Sprintf("unsupported export format %q", name))
	}
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
