package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/models"
)

type forecastParams struct {
	Days   int
	Config models.ModelConfig
	Engine string
	Tail   bool
}

// parseForecastParams reads the forecast query parameters. Seasonality
// toggles accept a boolean or "auto"; absent means auto.
func parseForecastParams(query url.Values) (*forecastParams, error) {
	params := &forecastParams{
		Days:   models.DefaultHorizonDays,
		Config: models.DefaultModelConfig(),
		Engine: strings.TrimSpace(query.Get("engine")),
	}

	if raw := query.Get("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			return nil, errors.NewValidationError(errors.CodeInvalidHorizon, fmt.Sprintf("days must be an integer, got %q", raw))
		}
		if days < 0 {
			return nil, errors.NewValidationError(errors.CodeInvalidHorizon, errors.ErrInvalidHorizon.Error())
		}
		params.Days = days
	}

	if raw := query.Get("seasonality_mode"); raw != "" {
		params.Config.SeasonalityMode = models.SeasonalityMode(strings.ToLower(raw))
	}
	if raw := query.Get("growth"); raw != "" {
		params.Config.Growth = models.Growth(strings.ToLower(raw))
	}

	toggles := []struct {
		name   string
		target **bool
	}{
		{"daily_seasonality", &params.Config.DailySeasonality},
		{"weekly_seasonality", &params.Config.WeeklySeasonality},
		{"yearly_seasonality", &params.Config.YearlySeasonality},
	}
	for _, toggle := range toggles {
		value, err := models.ParseToggle(query.Get(toggle.name))
		if err != nil {
			return nil, errors.NewValidationError(errors.CodeInvalidConfig, fmt.Sprintf("%s: %v", toggle.name, err))
		}
		*toggle.target = value
	}

	if raw := query.Get("tail"); raw != "" {
		tail, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, errors.NewValidationError(errors.CodeInvalidConfig, fmt.Sprintf("tail must be a boolean, got %q", raw))
		}
		params.Tail = tail
	}

	if err := params.Config.Validate(); err != nil {
		return nil, errors.NewValidationError(errors.CodeInvalidConfig, err.Error())
	}

	return params, nil
}
