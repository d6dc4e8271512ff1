package forecast

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/interfaces"
	"github.com/inferloop/tsforecast/pkg/models"
)

// Adapter runs one fit+predict on an engine and normalizes its failures.
// It holds no model between calls.
type Adapter struct {
	engine interfaces.ForecastEngine
	logger *logrus.Logger
}

// NewAdapter wraps engine
func NewAdapter(engine interfaces.ForecastEngine, logger *logrus.Logger) *Adapter {
	if logger == nil {
		logger = logrus.New()
	}
	if engine == nil {
		engine = NewDecompositionEngine()
	}
	return &Adapter{engine: engine, logger: logger}
}

// Engine returns the wrapped engine
func (a *Adapter) Engine() interfaces.ForecastEngine {
	return a.engine
}

// FitPredict validates the request, delegates to the engine and returns a
// forecast covering every historical timestamp plus horizon future steps
func (a *Adapter) FitPredict(ctx context.Context, series *models.Series, horizon int, config models.ModelConfig) (*models.Forecast, error) {
	if horizon < 0 {
		return nil, errors.NewValidationError(errors.CodeInvalidHorizon, errors.ErrInvalidHorizon.Error()).
			WithContext("horizon", horizon)
	}
	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return nil, errors.NewValidationError(errors.CodeInvalidConfig, err.Error())
	}
	if len(uniqueTimestamps(series)) < 2 {
		return nil, errors.NewFitError(errors.CodeInsufficientData, errors.ErrInsufficientData).
			WithContext("rows", series.Len())
	}

	logger := a.logger.WithFields(logrus.Fields{
		"engine":       a.engine.Name(),
		"rows":         series.Len(),
		"horizon_days": horizon,
	})
	logger.Debug("Fitting forecast model")

	started := time.Now()
	forecast, err := a.engine.FitPredict(ctx, series, horizon, config)
	if err != nil {
		logger.WithError(err).Error("Forecast model fit failed")
		return nil, wrapEngineError(err)
	}

	if clamped := enforceBands(forecast); clamped > 0 {
		logger.WithField("rows", clamped).Warn("Engine returned bounds out of order, clamped")
	}

	logger.WithFields(logrus.Fields{
		"points":      forecast.Len(),
		"duration_ms": time.Since(started).Milliseconds(),
	}).Debug("Forecast model fitted")

	return forecast, nil
}

func wrapEngineError(err error) error {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return err
	}
	switch {
	case stderrors.Is(err, errors.ErrInsufficientData):
		return errors.NewFitError(errors.CodeInsufficientData, err)
	case stderrors.Is(err, errors.ErrDegenerateSeries):
		return errors.NewFitError(errors.CodeDegenerateSeries, err)
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return errors.WrapError(err, errors.ErrorTypeInternal, errors.CodeInternalError, "forecast cancelled").
			WithDetails(err.Error())
	default:
		return errors.NewFitError(errors.CodeFitFailed, err)
	}
}

// enforceBands restores lower <= point <= upper and returns how many rows
// needed fixing
func enforceBands(forecast *models.Forecast) int {
	clamped := 0
	for i := range forecast.Points {
		p := &forecast.Points[i]
		fixed := false
		if p.Lower > p.Upper {
			p.Lower, p.Upper = p.Upper, p.Lower
			fixed = true
		}
		if p.Value < p.Lower {
			p.Lower = p.Value
			fixed = true
		}
		if p.Value > p.Upper {
			p.Upper = p.Value
			fixed = true
		}
		if fixed {
			clamped++
		}
	}
	return clamped
}
