package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SeasonalityMode controls how seasonal terms combine with the trend
type SeasonalityMode string

const (
	SeasonalityAdditive       SeasonalityMode = "additive"
	SeasonalityMultiplicative SeasonalityMode = "multiplicative"
)

// Growth selects the trend shape
type Growth string

const (
	GrowthLinear Growth = "linear"
	GrowthFlat   Growth = "flat"
)

// DefaultHorizonDays is the forecast horizon used when the caller sets none
const DefaultHorizonDays = 30

// DefaultIntervalWidth is the engine default uncertainty interval width
const DefaultIntervalWidth = 0.80

// Holiday marks a calendar event that shifts the series. Days in
// [Date+LowerWindow, Date+UpperWindow] are treated as the event.
type Holiday struct {
	Name        string    `json:"name" yaml:"name" mapstructure:"name"`
	Date        time.Time `json:"date" yaml:"date" mapstructure:"date"`
	LowerWindow int       `json:"lower_window" yaml:"lower_window" mapstructure:"lower_window"`
	UpperWindow int       `json:"upper_window" yaml:"upper_window" mapstructure:"upper_window"`
}

// Covers reports whether ts falls inside the holiday window
func (h Holiday) Covers(ts time.Time) bool {
	day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
	base := time.Date(h.Date.Year(), h.Date.Month(), h.Date.Day(), 0, 0, 0, 0, time.UTC)
	start := base.AddDate(0, 0, h.LowerWindow)
	end := base.AddDate(0, 0, h.UpperWindow)
	return !day.Before(start) && !day.After(end)
}

// ModelConfig is the per run engine configuration. Nil seasonality toggles
// let the engine decide from the data.
type ModelConfig struct {
	SeasonalityMode   SeasonalityMode `json:"seasonality_mode" yaml:"seasonality_mode" mapstructure:"seasonality_mode"`
	Growth            Growth          `json:"growth" yaml:"growth" mapstructure:"growth"`
	DailySeasonality  *bool           `json:"daily_seasonality" yaml:"daily_seasonality" mapstructure:"daily_seasonality"`
	WeeklySeasonality *bool           `json:"weekly_seasonality" yaml:"weekly_seasonality" mapstructure:"weekly_seasonality"`
	YearlySeasonality *bool           `json:"yearly_seasonality" yaml:"yearly_seasonality" mapstructure:"yearly_seasonality"`
	Holidays          []Holiday       `json:"holidays,omitempty" yaml:"holidays" mapstructure:"holidays"`
	IntervalWidth     float64         `json:"interval_width" yaml:"interval_width" mapstructure:"interval_width"`
}

// DefaultModelConfig returns the configuration used when the caller sets nothing
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		SeasonalityMode: SeasonalityAdditive,
		Growth:          GrowthLinear,
		IntervalWidth:   DefaultIntervalWidth,
	}
}

// WithDefaults fills unset fields
func (c ModelConfig) WithDefaults() ModelConfig {
	if c.SeasonalityMode == "" {
		c.SeasonalityMode = SeasonalityAdditive
	}
	if c.Growth == "" {
		c.Growth = GrowthLinear
	}
	if c.IntervalWidth == 0 {
		c.IntervalWidth = DefaultIntervalWidth
	}
	return c
}

// Validate checks enum membership and ranges
func (c ModelConfig) Validate() error {
	switch c.SeasonalityMode {
	case SeasonalityAdditive, SeasonalityMultiplicative:
	default:
		return fmt.Errorf("invalid seasonality_mode %q: must be additive or multiplicative", c.SeasonalityMode)
	}
	switch c.Growth {
	case GrowthLinear, GrowthFlat:
	default:
		return fmt.Errorf("invalid growth %q: must be linear or flat", c.Growth)
	}
	if c.IntervalWidth <= 0 || c.IntervalWidth >= 1 {
		return fmt.Errorf("invalid interval_width %v: must be between 0 and 1", c.IntervalWidth)
	}
	return nil
}

// Bool returns a pointer to b, for the seasonality toggles
func Bool(b bool) *bool {
	return &b
}

// ParseToggle reads a seasonality toggle. Empty or "auto" yields nil so
// the engine decides.
func ParseToggle(raw string) (*bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "auto") {
		return nil, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("expected a boolean or auto, got %q", raw)
	}
	return &value, nil
}
