package forecast

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/models"
)

// LinearEngine extrapolates a least squares line. With a positive band
// width every row gets value +/- width; otherwise the band comes from the
// residual spread. It is cheap and deterministic.
type LinearEngine struct {
	bandWidth float64
}

// NewLinearEngine creates a linear engine with a fixed half band width,
// or a residual based band when width <= 0
func NewLinearEngine(width float64) *LinearEngine {
	return &LinearEngine{bandWidth: width}
}

// Name returns the engine name
func (e *LinearEngine) Name() string {
	return "linear"
}

// FitPredict fits a line through the series and extends it
func (e *LinearEngine) FitPredict(ctx context.Context, series *models.Series, horizon int, config models.ModelConfig) (*models.Forecast, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	history := uniqueTimestamps(series)
	if len(history) < 2 {
		return nil, errors.ErrInsufficientData
	}
	y := series.Values()
	if floats.Max(y) == floats.Min(y) {
		return nil, errors.ErrDegenerateSeries
	}

	start := history[0]
	x := make([]float64, series.Len())
	for i, p := range series.Points {
		x[i] = p.Timestamp.Sub(start).Hours() / 24
	}

	var alpha, beta float64
	if config.Growth == models.GrowthFlat {
		alpha = stat.Mean(y, nil)
	} else {
		alpha, beta = stat.LinearRegression(x, y, nil, false)
	}

	width := e.bandWidth
	if width <= 0 {
		residuals := make([]float64, len(y))
		for i := range y {
			residuals[i] = y[i] - (alpha + beta*x[i])
		}
		scale := math.Max(math.Abs(floats.Max(y)), math.Abs(floats.Min(y)))
		width = zScore(config.IntervalWidth) * math.Max(stat.StdDev(residuals, nil), sigmaFloor*scale)
	}

	s := inferStep(history)
	timestamps := timeline(history, s, horizon)
	points := make([]models.ForecastPoint, len(timestamps))
	for i, ts := range timestamps {
		yhat := alpha + beta*ts.Sub(start).Hours()/24
		points[i] = models.ForecastPoint{
			Timestamp: ts,
			Value:     yhat,
			Lower:     yhat - width,
			Upper:     yhat + width,
		}
	}

	return &models.Forecast{
		Engine:    e.Name(),
		Frequency: s.approx(),
		Points:    points,
	}, nil
}
