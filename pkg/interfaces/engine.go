package interfaces

import (
	"context"

	"github.com/inferloop/tsforecast/pkg/models"
)

// ForecastEngine is an external forecasting capability. It fits on the
// historical series and predicts every historical timestamp plus horizon
// future steps at the series frequency.
type ForecastEngine interface {
	// Name returns the engine name used for registry lookup
	Name() string

	// FitPredict fits a fresh model and returns point estimates with a two
	// sided interval. The model is discarded when the call returns.
	FitPredict(ctx context.Context, series *models.Series, horizon int, config models.ModelConfig) (*models.Forecast, error)
}
