package analytics

import (
	"math"
	"time"

	"github.com/inferloop/tsforecast/pkg/models"
)

// pair is one actual observation joined to the forecast row with the same
// timestamp
type pair struct {
	timestamp time.Time
	actual    float64
	predicted models.ForecastPoint
}

// join inner-joins actuals to forecast rows on exact timestamp. Actuals
// without a forecast row are dropped. Order follows actuals sorted by time.
func join(forecast *models.Forecast, actuals *models.Series) []pair {
	if forecast.Len() == 0 || actuals.Len() == 0 {
		return nil
	}
	rows := make(map[int64]models.ForecastPoint, forecast.Len())
	for _, p := range forecast.Points {
		rows[p.Timestamp.UnixNano()] = p
	}

	joined := make([]pair, 0, actuals.Len())
	for _, a := range actuals.Sorted().Points {
		row, ok := rows[a.Timestamp.UnixNano()]
		if !ok {
			continue
		}
		joined = append(joined, pair{timestamp: a.Timestamp, actual: a.Value, predicted: row})
	}
	return joined
}

// DetectAnomalies flags every actual value outside its forecast band.
// Severity is the absolute distance from the point estimate. Adjacent
// violations are all reported.
func DetectAnomalies(forecast *models.Forecast, actuals *models.Series) []models.Anomaly {
	anomalies := []models.Anomaly{}
	for _, p := range join(forecast, actuals) {
		if p.actual >= p.predicted.Lower && p.actual <= p.predicted.Upper {
			continue
		}
		anomalies = append(anomalies, models.Anomaly{
			Timestamp: p.timestamp,
			Actual:    p.actual,
			Predicted: p.predicted.Value,
			Lower:     p.predicted.Lower,
			Upper:     p.predicted.Upper,
			Severity:  math.Abs(p.actual - p.predicted.Value),
		})
	}
	return anomalies
}

// Align returns the actual and fitted values paired by timestamp, ready
// for ComputeMetrics
func Align(forecast *models.Forecast, actuals *models.Series) (actual, predicted []float64) {
	joined := join(forecast, actuals)
	actual = make([]float64, len(joined))
	predicted = make([]float64, len(joined))
	for i, p := range joined {
		actual[i] = p.actual
		predicted[i] = p.predicted.Value
	}
	return actual, predicted
}
