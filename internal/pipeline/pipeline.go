package pipeline

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/tsforecast/internal/analytics"
	"github.com/inferloop/tsforecast/internal/forecast"
	"github.com/inferloop/tsforecast/internal/normalize"
	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/interfaces"
	"github.com/inferloop/tsforecast/pkg/models"
)

// Recorder receives per run metrics
type Recorder interface {
	RecordPipelineRun(status string, duration time.Duration)
	RecordAnomalies(count int)
	RecordSchemaFallback()
}

type noopRecorder struct{}

func (noopRecorder) RecordPipelineRun(string, time.Duration) {}
func (noopRecorder) RecordAnomalies(int)                     {}
func (noopRecorder) RecordSchemaFallback()                   {}

// Request is one forecast run. Exactly one of Table or Series is set: a
// table is normalized first, a series is taken as already canonical.
type Request struct {
	Table   *models.Table
	Series  *models.Series
	Horizon int
	Config  models.ModelConfig
	// Engine selects a registered engine, empty means the default
	Engine string
}

// Pipeline runs normalize, fit, anomaly detection, metrics and insights
// for one dataset. It keeps no state between runs.
type Pipeline struct {
	registry   *forecast.Registry
	normalizer *normalize.Normalizer
	insights   analytics.InsightConfig
	recorder   Recorder
	logger     *logrus.Logger
}

// Option customizes a Pipeline
type Option func(*Pipeline)

// WithRegistry sets the engines a request can choose from
func WithRegistry(registry *forecast.Registry) Option {
	return func(p *Pipeline) { p.registry = registry }
}

// WithNormalizer replaces the default normalizer
func WithNormalizer(normalizer *normalize.Normalizer) Option {
	return func(p *Pipeline) { p.normalizer = normalizer }
}

// WithInsightConfig replaces the insight thresholds
func WithInsightConfig(config analytics.InsightConfig) Option {
	return func(p *Pipeline) { p.insights = config }
}

// WithRecorder wires a metrics recorder
func WithRecorder(recorder Recorder) Option {
	return func(p *Pipeline) {
		if recorder != nil {
			p.recorder = recorder
		}
	}
}

// New creates a pipeline with the built-in engines
func New(logger *logrus.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = logrus.New()
	}
	p := &Pipeline{
		registry: forecast.NewRegistry(),
		insights: analytics.DefaultInsightConfig(),
		recorder: noopRecorder{},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.normalizer == nil {
		p.normalizer = normalize.NewNormalizer(logger)
	}
	return p
}

// Run executes one request. Any stage failure aborts the run and is
// returned unchanged; no partial result is produced.
func (p *Pipeline) Run(ctx context.Context, req *Request) (*models.Result, error) {
	started := time.Now()
	runID := uuid.New().String()
	logger := p.logger.WithFields(logrus.Fields{
		"run_id":       runID,
		"horizon_days": req.Horizon,
	})

	result, err := p.run(ctx, req, logger)
	duration := time.Since(started)
	if err != nil {
		err = classify(err)
		p.recorder.RecordPipelineRun(statusLabel(err), duration)
		logger.WithError(err).WithField("error_type", errors.TypeOf(err)).Warn("Forecast run failed")
		return nil, err
	}

	result.RunID = runID
	result.Duration = duration
	p.recorder.RecordPipelineRun("success", duration)
	p.recorder.RecordAnomalies(len(result.Anomalies))

	logger.WithFields(logrus.Fields{
		"rows":        result.RowCount,
		"engine":      result.Forecast.Engine,
		"anomalies":   len(result.Anomalies),
		"duration_ms": duration.Milliseconds(),
	}).Info("Forecast run completed")

	return result, nil
}

func (p *Pipeline) run(ctx context.Context, req *Request, logger *logrus.Entry) (*models.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	series, detection, err := p.canonical(req)
	if err != nil {
		return nil, err
	}
	if detection != nil && detection.LowConfidence() {
		p.recorder.RecordSchemaFallback()
	}

	engine, err := p.engine(req.Engine)
	if err != nil {
		return nil, err
	}
	adapter := forecast.NewAdapter(engine, p.logger)

	history := series.Sorted()
	config := req.Config.WithDefaults()
	fc, err := adapter.FitPredict(ctx, history, req.Horizon, config)
	if err != nil {
		return nil, err
	}

	cutoff := history.MaxTimestamp()
	historical, _ := fc.Split(cutoff)
	fitted := &models.Forecast{Engine: fc.Engine, Frequency: fc.Frequency, Points: historical}

	anomalies := analytics.DetectAnomalies(fitted, history)
	actual, predicted := analytics.Align(fitted, history)
	metrics := analytics.ComputeMetrics(actual, predicted)
	insights := p.insights.Generate(fc, anomalies, history)

	logger.WithFields(logrus.Fields{
		"points":    fc.Len(),
		"anomalies": len(anomalies),
	}).Debug("Forecast analyzed")

	return &models.Result{
		RowCount:   series.Len(),
		Horizon:    req.Horizon,
		Parameters: config,
		Forecast:   fc,
		Anomalies:  anomalies,
		Metrics:    metrics,
		Insights:   insights,
		Cutoff:     cutoff,
		Detection:  detection,
		Series:     series,
	}, nil
}

// canonical returns the series for a request, normalizing a raw table
func (p *Pipeline) canonical(req *Request) (*models.Series, *models.Detection, error) {
	if req.Table != nil {
		return p.normalizer.Normalize(req.Table)
	}
	if req.Series == nil {
		return nil, nil, errors.NewValidationError(errors.CodeInvalidConfig, "request carries neither a table nor a series")
	}
	series, err := normalize.NormalizeSeries(req.Series)
	if err != nil {
		return nil, nil, err
	}
	return series, nil, nil
}

func (p *Pipeline) engine(name string) (interfaces.ForecastEngine, error) {
	if name == "" {
		name = forecast.DefaultEngine
	}
	engine, ok := p.registry.Get(name)
	if !ok {
		return nil, errors.WrapError(errors.ErrEngineNotFound, errors.ErrorTypeValidation, errors.CodeInvalidConfig,
			errors.ErrEngineNotFound.Error()).WithContext("engine", name)
	}
	return engine, nil
}

// classify keeps AppErrors and reports anything else as internal
func classify(err error) error {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return err
	}
	return errors.WrapError(err, errors.ErrorTypeInternal, errors.CodeInternalError, "forecast run failed").
		WithDetails(err.Error())
}

func statusLabel(err error) string {
	return string(errors.TypeOf(err)) + "_error"
}
