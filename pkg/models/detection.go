package models

// Confidence grades how a column was detected
type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)

// Detection records which source columns became timestamp and value
type Detection struct {
	DateColumn      string     `json:"date_column"`
	ValueColumn     string     `json:"value_column"`
	DateRule        string     `json:"date_rule"`
	ValueRule       string     `json:"value_rule"`
	DateConfidence  Confidence `json:"date_confidence"`
	ValueConfidence Confidence `json:"value_confidence"`
	InputRows       int        `json:"input_rows"`
	DroppedRows     int        `json:"dropped_rows"`
}

// LowConfidence reports whether any column came from a fallback rule
func (d *Detection) LowConfidence() bool {
	return d.DateConfidence == ConfidenceLow || d.ValueConfidence == ConfidenceLow
}
