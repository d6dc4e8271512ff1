package models

import "time"

// SeriesQuery selects a stored series for a pipeline run
type SeriesQuery struct {
	SeriesID    string    `json:"series_id"`
	Measurement string    `json:"measurement,omitempty"`
	Field       string    `json:"field,omitempty"`
	StartTime   time.Time `json:"start_time,omitempty"`
	EndTime     time.Time `json:"end_time,omitempty"`
	Limit       int       `json:"limit,omitempty"`
}
