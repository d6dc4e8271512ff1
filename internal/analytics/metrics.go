package analytics

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/inferloop/tsforecast/pkg/models"
)

// Presentation precision of the accuracy metrics
const (
	errorPlaces      = 4
	percentagePlaces = 2
)

// ComputeMetrics returns MAE, RMSE and MAPE of predicted against actual,
// paired by position. Pairs with a non-finite side are skipped and no pairs
// at all yields zeros. A MAPE term with a zero actual contributes 0.
func ComputeMetrics(actual, predicted []float64) models.Metrics {
	n := len(actual)
	if len(predicted) < n {
		n = len(predicted)
	}

	var absSum, sqSum, pctSum float64
	count := 0
	for i := 0; i < n; i++ {
		a, p := actual[i], predicted[i]
		if !finite(a) || !finite(p) {
			continue
		}
		diff := math.Abs(a - p)
		absSum += diff
		sqSum += diff * diff
		if a != 0 {
			if term := diff / math.Abs(a); finite(term) {
				pctSum += term
			}
		}
		count++
	}
	if count == 0 {
		return models.Metrics{}
	}

	total := float64(count)
	return models.Metrics{
		MAE:  round(absSum/total, errorPlaces),
		RMSE: round(math.Sqrt(sqSum/total), errorPlaces),
		MAPE: round(pctSum/total*100, percentagePlaces),
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
