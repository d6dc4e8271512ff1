package analytics

import (
	"fmt"
	"time"

	"github.com/inferloop/tsforecast/pkg/models"
)

// InsightConfig tunes the insight rules
type InsightConfig struct {
	TrendThresholdPct float64       `json:"trend_threshold_pct" yaml:"trend_threshold_pct" mapstructure:"trend_threshold_pct"`
	RecentWindow      time.Duration `json:"recent_window" yaml:"recent_window" mapstructure:"recent_window"`
}

// DefaultInsightConfig returns the 5% trend band and the 30 day recency window
func DefaultInsightConfig() InsightConfig {
	return InsightConfig{
		TrendThresholdPct: 5,
		RecentWindow:      30 * 24 * time.Hour,
	}
}

// GenerateInsights summarizes a run with the default rules
func GenerateInsights(forecast *models.Forecast, anomalies []models.Anomaly, history *models.Series) []string {
	return DefaultInsightConfig().Generate(forecast, anomalies, history)
}

// Generate applies the trend rule then the anomaly rules, in that order.
// It is deterministic for identical inputs.
func (c InsightConfig) Generate(forecast *models.Forecast, anomalies []models.Anomaly, history *models.Series) []string {
	insights := []string{}

	if trend, ok := c.trendInsight(forecast, history); ok {
		insights = append(insights, trend)
	}

	if len(anomalies) > 0 {
		insights = append(insights, fmt.Sprintf("**Volatility Detected**: %d anomalies found outside the expected range.", len(anomalies)))
		if c.hasRecent(anomalies, history) {
			insights = append(insights, fmt.Sprintf("**Recent Anomaly**: unusual activity detected within the last %d days.", c.recentDays()))
		}
	}

	return insights
}

func (c InsightConfig) trendInsight(forecast *models.Forecast, history *models.Series) (string, bool) {
	last, ok := history.Last()
	if !ok || forecast.Len() == 0 {
		return "", false
	}

	// with no future rows the final row is the last fitted point
	_, future := forecast.Split(last.Timestamp)
	days := len(future)
	final := forecast.Points[forecast.Len()-1].Value

	if last.Value == 0 {
		return fmt.Sprintf("**Trend**: forecast moves by %.2f in absolute terms from a zero baseline over the next %d days.", final, days), true
	}

	pct := (final - last.Value) / last.Value * 100
	switch {
	case pct > c.TrendThresholdPct:
		return fmt.Sprintf("**Growth Trend**: forecast is expected to rise by %.1f%% over the next %d days.", pct, days), true
	case pct < -c.TrendThresholdPct:
		return fmt.Sprintf("**Decline Alert**: forecast is expected to fall by %.1f%% over the next %d days.", -pct, days), true
	default:
		return fmt.Sprintf("**Stable Outlook**: forecast is expected to stay within %g%% of the latest value over the next %d days.", c.TrendThresholdPct, days), true
	}
}

func (c InsightConfig) hasRecent(anomalies []models.Anomaly, history *models.Series) bool {
	if history.Len() == 0 {
		return false
	}
	threshold := history.MaxTimestamp().Add(-c.RecentWindow)
	for _, a := range anomalies {
		if a.Timestamp.After(threshold) {
			return true
		}
	}
	return false
}

// recentDays is the recency window in whole days, at least 1
func (c InsightConfig) recentDays() int {
	days := int(c.RecentWindow / (24 * time.Hour))
	if days < 1 {
		return 1
	}
	return days
}
