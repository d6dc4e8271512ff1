package export

import (
	"fmt"

	"github.com/inferloop/tsforecast/pkg/models"
)

// TimestampLayout is the ds format of exported rows
const TimestampLayout = "2006-01-02T15:04:05"

// Row is one exported forecast row
type Row struct {
	DS        string  `json:"ds"`
	YHat      float64 `json:"yhat"`
	YHatLower float64 `json:"yhat_lower"`
	YHatUpper float64 `json:"yhat_upper"`
}

// AnomalyRow is one exported anomaly
type AnomalyRow struct {
	DS        string  `json:"ds"`
	Y         float64 `json:"y"`
	YHat      float64 `json:"yhat"`
	YHatLower float64 `json:"yhat_lower"`
	YHatUpper float64 `json:"yhat_upper"`
	Severity  float64 `json:"severity"`
}

// Document is the serialized result bundle returned to callers
type Document struct {
	Message    string             `json:"message"`
	RunID      string             `json:"run_id,omitempty"`
	RowCount   int                `json:"row_count"`
	Parameters models.ModelConfig `json:"parameters"`
	Metrics    models.Metrics     `json:"metrics"`
	Anomalies  []AnomalyRow       `json:"anomalies"`
	Insights   []string           `json:"insights"`
	Data       []Row              `json:"data"`
	Detection  *models.Detection  `json:"detection,omitempty"`
}

// NewDocument builds the response document for result. With TailOnly set
// data holds only the last Horizon rows.
func NewDocument(result *models.Result, options Options) *Document {
	doc := &Document{
		Message:    fmt.Sprintf("Forecast generated for next %d days", result.Horizon),
		RunID:      result.RunID,
		RowCount:   result.RowCount,
		Parameters: result.Parameters,
		Metrics:    result.Metrics,
		Anomalies:  make([]AnomalyRow, 0, len(result.Anomalies)),
		Insights:   result.Insights,
		Data:       toRows(selectRows(result, options)),
	}
	if doc.Insights == nil {
		doc.Insights = []string{}
	}
	if options.IncludeDetection {
		doc.Detection = result.Detection
	}

	for _, a := range result.Anomalies {
		doc.Anomalies = append(doc.Anomalies, AnomalyRow{
			DS:        a.Timestamp.Format(TimestampLayout),
			Y:         a.Actual,
			YHat:      a.Predicted,
			YHatLower: a.Lower,
			YHatUpper: a.Upper,
			Severity:  a.Severity,
		})
	}

	return doc
}

func selectRows(result *models.Result, options Options) []models.ForecastPoint {
	if result.Forecast == nil {
		return nil
	}
	if options.TailOnly {
		return result.Forecast.Tail(result.Horizon)
	}
	return result.Forecast.Points
}

func toRows(points []models.ForecastPoint) []Row {
	rows := make([]Row, 0, len(points))
	for _, p := range points {
		rows = append(rows, Row{
			DS:        p.Timestamp.Format(TimestampLayout),
			YHat:      p.Value,
			YHatLower: p.Lower,
			YHatUpper: p.Upper,
		})
	}
	return rows
}
