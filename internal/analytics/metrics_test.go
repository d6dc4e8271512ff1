package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inferloop/tsforecast/pkg/models"
)

func TestComputeMetrics(t *testing.T) {
	actual := []float64{100, 200, 300, 400}
	predicted := []float64{110, 190, 330, 400}

	metrics := ComputeMetrics(actual, predicted)

	// errors 10, 10, 30, 0
	assert.Equal(t, 12.5, metrics.MAE)
	assert.InDelta(t, math.Sqrt(275), metrics.RMSE, 1e-4)
	// 10% + 5% + 10% + 0% over 4
	assert.Equal(t, 6.25, metrics.MAPE)
}

func TestComputeMetricsNegativeActual(t *testing.T) {
	// the percentage term uses |actual| so MAPE stays non-negative
	metrics := ComputeMetrics([]float64{-100, 100}, []float64{-110, 90})

	assert.Equal(t, 10.0, metrics.MAE)
	assert.Equal(t, 10.0, metrics.MAPE)
}

func TestComputeMetricsRounding(t *testing.T) {
	metrics := ComputeMetrics([]float64{3}, []float64{3 + 1.0/3})

	assert.Equal(t, 0.3333, metrics.MAE)
	assert.Equal(t, 0.3333, metrics.RMSE)
	assert.Equal(t, 11.11, metrics.MAPE)
}

func TestComputeMetricsNoPairs(t *testing.T) {
	tests := []struct {
		name      string
		actual    []float64
		predicted []float64
	}{
		{name: "empty", actual: nil, predicted: nil},
		{name: "all non-finite", actual: []float64{math.NaN(), 1}, predicted: []float64{1, math.Inf(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, models.Metrics{}, ComputeMetrics(tt.actual, tt.predicted))
		})
	}
}

func TestComputeMetricsZeroActual(t *testing.T) {
	metrics := ComputeMetrics([]float64{0, 10}, []float64{5, 11})

	assert.Equal(t, 3.0, metrics.MAE)
	// the zero term contributes 0: (0 + 10%) / 2
	assert.Equal(t, 5.0, metrics.MAPE)
	assert.False(t, math.IsNaN(metrics.MAPE))
	assert.False(t, math.IsInf(metrics.MAPE, 0))
}

func TestComputeMetricsSkipsNonFinitePairs(t *testing.T) {
	metrics := ComputeMetrics([]float64{10, math.NaN(), 20}, []float64{12, 5, 20})

	assert.Equal(t, 1.0, metrics.MAE)
}

func TestComputeMetricsSymmetricMagnitude(t *testing.T) {
	a := []float64{1.5, 7, 12, 40}
	b := []float64{2, 4, 15, 38.25}

	forward := ComputeMetrics(a, b)
	backward := ComputeMetrics(b, a)

	assert.Equal(t, forward.MAE, backward.MAE)
	assert.Equal(t, forward.RMSE, backward.RMSE)
}

func TestComputeMetricsDeterministic(t *testing.T) {
	a := []float64{3.14, 2.71, 1.41}
	b := []float64{3, 2.5, 1.5}

	assert.Equal(t, ComputeMetrics(a, b), ComputeMetrics(a, b))
}
