package models

import "time"

// ForecastPoint is one row of a forecast. Lower <= Value <= Upper holds for
// every row an engine returns.
type ForecastPoint struct {
	Timestamp time.Time `json:"ds"`
	Value     float64   `json:"yhat"`
	Lower     float64   `json:"yhat_lower"`
	Upper     float64   `json:"yhat_upper"`
}

// Forecast covers the historical timestamps followed by the future horizon
type Forecast struct {
	Engine    string          `json:"engine"`
	Frequency time.Duration   `json:"frequency"`
	Points    []ForecastPoint `json:"points"`
}

// Len returns the number of forecast rows
func (f *Forecast) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Points)
}

// Split divides the forecast at cutoff: rows at or before it are the
// historical overlap, later rows are the future.
func (f *Forecast) Split(cutoff time.Time) (history, future []ForecastPoint) {
	for _, p := range f.Points {
		if p.Timestamp.After(cutoff) {
			future = append(future, p)
		} else {
			history = append(history, p)
		}
	}
	return history, future
}

// Tail returns the last n rows
func (f *Forecast) Tail(n int) []ForecastPoint {
	if n <= 0 {
		return []ForecastPoint{}
	}
	if n >= len(f.Points) {
		return f.Points
	}
	return f.Points[len(f.Points)-n:]
}

// Anomaly is a historical point outside the predicted band
type Anomaly struct {
	Timestamp time.Time `json:"ds"`
	Actual    float64   `json:"y"`
	Predicted float64   `json:"yhat"`
	Lower     float64   `json:"yhat_lower"`
	Upper     float64   `json:"yhat_upper"`
	Severity  float64   `json:"severity"`
}

// Metrics holds in-sample accuracy of the fitted values
type Metrics struct {
	MAE  float64 `json:"MAE"`
	RMSE float64 `json:"RMSE"`
	MAPE float64 `json:"MAPE"`
}

// Result is the bundle returned by one pipeline run
type Result struct {
	RunID      string        `json:"run_id"`
	RowCount   int           `json:"row_count"`
	Horizon    int           `json:"horizon_days"`
	Parameters ModelConfig   `json:"parameters"`
	Forecast   *Forecast     `json:"forecast"`
	Anomalies  []Anomaly     `json:"anomalies"`
	Metrics    Metrics       `json:"metrics"`
	Insights   []string      `json:"insights"`
	Cutoff     time.Time     `json:"cutoff"`
	Detection  *Detection    `json:"detection,omitempty"`
	Duration   time.Duration `json:"duration"`

	// Series is the cleaned input in row order
	Series *Series `json:"-"`
}

// History returns the forecast rows overlapping the historical range
func (r *Result) History() []ForecastPoint {
	history, _ := r.Forecast.Split(r.Cutoff)
	return history
}

// Future returns the forecast rows after the last historical timestamp
func (r *Result) Future() []ForecastPoint {
	_, future := r.Forecast.Split(r.Cutoff)
	return future
}
