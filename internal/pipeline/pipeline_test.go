package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/tsforecast/internal/forecast"
	"github.com/inferloop/tsforecast/internal/normalize"
	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/models"
)

// spyEngine counts calls and delegates to a linear fit
type spyEngine struct {
	calls int
	inner *forecast.LinearEngine
}

func (s *spyEngine) Name() string { return "spy" }

func (s *spyEngine) FitPredict(ctx context.Context, series *models.Series, horizon int, config models.ModelConfig) (*models.Forecast, error) {
	s.calls++
	return s.inner.FitPredict(ctx, series, horizon, config)
}

type countingRecorder struct {
	runs      map[string]int
	anomalies int
	fallbacks int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{runs: make(map[string]int)}
}

func (r *countingRecorder) RecordPipelineRun(status string, duration time.Duration) { r.runs[status]++ }
func (r *countingRecorder) RecordAnomalies(count int)                             { r.anomalies += count }
func (r *countingRecorder) RecordSchemaFallback()                                 { r.fallbacks++ }

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func newTestPipeline(t *testing.T, opts ...Option) (*Pipeline, *spyEngine) {
	t.Helper()
	spy := &spyEngine{inner: forecast.NewLinearEngine(0)}
	registry := forecast.NewRegistry()
	registry.Register(spy)
	opts = append([]Option{WithRegistry(registry)}, opts...)
	return New(quietLogger(), opts...), spy
}

func readTable(t *testing.T, csv string) *models.Table {
	t.Helper()
	table, err := normalize.ReadCSV(strings.NewReader(csv))
	require.NoError(t, err)
	return table
}

func dailyCSV(header string, n int, value func(i int) float64) string {
	var b strings.Builder
	b.WriteString(header + "\n")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%s,%g\n", start.AddDate(0, 0, i).Format("2006-01-02"), value(i))
	}
	return b.String()
}

func TestRunIncreasingRevenue(t *testing.T) {
	p, _ := newTestPipeline(t)
	table := readTable(t, dailyCSV("Date,Revenue", 100, func(i int) float64 { return 10 + 2*float64(i) }))

	result, err := p.Run(context.Background(), &Request{Table: table, Horizon: 10})
	require.NoError(t, err)

	assert.Equal(t, 110, result.Forecast.Len())
	assert.Len(t, result.Future(), 10)
	assert.Len(t, result.History(), 100)
	assert.Equal(t, 100, result.RowCount)
	require.NotEmpty(t, result.Insights)
	assert.True(t, strings.HasPrefix(result.Insights[0], "**Growth Trend**"), result.Insights[0])

	require.NotNil(t, result.Detection)
	assert.Equal(t, "Date", result.Detection.DateColumn)
	assert.Equal(t, "Revenue", result.Detection.ValueColumn)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, forecast.DefaultEngine, result.Forecast.Engine)
}

func TestRunSchemaErrorSkipsEngine(t *testing.T) {
	recorder := newCountingRecorder()
	p, spy := newTestPipeline(t, WithRecorder(recorder))
	table := readTable(t, "unknown_col\n1\n2\n3\n")

	result, err := p.Run(context.Background(), &Request{Table: table, Horizon: 5, Engine: "spy"})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.IsSchemaError(err))
	assert.Equal(t, "no date column detected", err.Error())
	assert.Equal(t, 0, spy.calls)
	assert.Equal(t, 1, recorder.runs["schema_error"])
}

func TestRunFlagsSpike(t *testing.T) {
	recorder := newCountingRecorder()
	p, _ := newTestPipeline(t, WithRecorder(recorder))
	spikeAt := 50
	table := readTable(t, dailyCSV("ds,y", 100, func(i int) float64 {
		if i == spikeAt {
			return 1000
		}
		return 100 + float64(i%5)
	}))

	result, err := p.Run(context.Background(), &Request{Table: table, Horizon: 7})
	require.NoError(t, err)

	spikeTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, spikeAt)
	var found *models.Anomaly
	for i := range result.Anomalies {
		if result.Anomalies[i].Timestamp.Equal(spikeTime) {
			found = &result.Anomalies[i]
		}
	}
	require.NotNil(t, found, "spike should be flagged")
	assert.Greater(t, found.Severity, 0.0)
	assert.Equal(t, 1000.0, found.Actual)

	var volatility bool
	for _, insight := range result.Insights {
		if strings.HasPrefix(insight, "**Volatility Detected**") {
			volatility = true
		}
	}
	assert.True(t, volatility)
	assert.Equal(t, len(result.Anomalies), recorder.anomalies)
	assert.Equal(t, 1, recorder.runs["success"])
}

func TestRunZeroHorizon(t *testing.T) {
	p, _ := newTestPipeline(t)
	table := readTable(t, dailyCSV("ds,y", 40, func(i int) float64 { return float64(i*i%17) + 1 }))

	result, err := p.Run(context.Background(), &Request{Table: table, Horizon: 0})
	require.NoError(t, err)

	assert.Equal(t, 40, result.Forecast.Len())
	assert.Empty(t, result.Future())
}

func TestRunBandOrdering(t *testing.T) {
	p, _ := newTestPipeline(t)
	table := readTable(t, dailyCSV("ds,y", 60, func(i int) float64 { return float64(i%7) * 3 }))

	for _, mode := range []models.SeasonalityMode{models.SeasonalityAdditive, models.SeasonalityMultiplicative} {
		config := models.ModelConfig{SeasonalityMode: mode}
		result, err := p.Run(context.Background(), &Request{Table: table, Horizon: 14, Config: config})
		require.NoError(t, err, mode)
		for _, point := range result.Forecast.Points {
			assert.LessOrEqual(t, point.Lower, point.Value)
			assert.LessOrEqual(t, point.Value, point.Upper)
		}
	}
}

func TestRunCanonicalSeries(t *testing.T) {
	p, spy := newTestPipeline(t)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	points := make([]models.Point, 20)
	for i := range points {
		// reversed input order
		points[i] = models.Point{Timestamp: start.AddDate(0, 0, 19-i), Value: float64(19 - i)}
	}
	series := models.NewSeries(points)

	result, err := p.Run(context.Background(), &Request{Series: series, Horizon: 3, Engine: "spy"})
	require.NoError(t, err)

	assert.Equal(t, 1, spy.calls)
	assert.Nil(t, result.Detection)
	assert.Equal(t, 23, result.Forecast.Len())
	assert.Equal(t, start.AddDate(0, 0, 19), result.Cutoff)
	assert.Equal(t, start.AddDate(0, 0, 19), series.Points[0].Timestamp, "input must not be reordered")
	assert.InDelta(t, 0, result.Metrics.MAE, 1e-4)
}

func TestRunErrors(t *testing.T) {
	p, _ := newTestPipeline(t)
	constant := readTable(t, dailyCSV("ds,y", 10, func(int) float64 { return 5 }))
	single := readTable(t, "ds,y\n2024-01-01,3\n")

	tests := []struct {
		name    string
		request *Request
		errType errors.ErrorType
		code    string
	}{
		{name: "constant values", request: &Request{Table: constant, Horizon: 5}, errType: errors.ErrorTypeFit, code: errors.CodeDegenerateSeries},
		{name: "single row", request: &Request{Table: single, Horizon: 5}, errType: errors.ErrorTypeFit, code: errors.CodeInsufficientData},
		{name: "negative horizon", request: &Request{Table: constant, Horizon: -1}, errType: errors.ErrorTypeValidation, code: errors.CodeInvalidHorizon},
		{name: "unknown engine", request: &Request{Table: constant, Horizon: 1, Engine: "prophet"}, errType: errors.ErrorTypeValidation, code: errors.CodeInvalidConfig},
		{name: "bad growth", request: &Request{Table: constant, Horizon: 1, Config: models.ModelConfig{Growth: "logistic"}}, errType: errors.ErrorTypeValidation, code: errors.CodeInvalidConfig},
		{name: "no input", request: &Request{Horizon: 1}, errType: errors.ErrorTypeValidation, code: errors.CodeInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := p.Run(context.Background(), tt.request)
			require.Error(t, err)
			assert.Nil(t, result)

			var appErr *errors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.errType, appErr.Type)
			assert.Equal(t, tt.code, appErr.Code)
		})
	}
}

func TestRunCancelledContext(t *testing.T) {
	p, spy := newTestPipeline(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	table := readTable(t, dailyCSV("ds,y", 10, func(i int) float64 { return float64(i) }))
	_, err := p.Run(ctx, &Request{Table: table, Horizon: 1, Engine: "spy"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeInternal, errors.TypeOf(err))
	assert.Equal(t, 0, spy.calls)
}

func TestRunFallbackRecorded(t *testing.T) {
	recorder := newCountingRecorder()
	p, _ := newTestPipeline(t, WithRecorder(recorder))
	table := readTable(t, dailyCSV("date,units_sold", 30, func(i int) float64 { return float64(i) }))

	result, err := p.Run(context.Background(), &Request{Table: table, Horizon: 2})
	require.NoError(t, err)

	assert.Equal(t, models.ConfidenceLow, result.Detection.ValueConfidence)
	assert.Equal(t, 1, recorder.fallbacks)
}
