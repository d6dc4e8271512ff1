package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/tsforecast/pkg/models"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// createTestResult has three historical rows and two future ones
func createTestResult() *models.Result {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]models.ForecastPoint, 5)
	for i := range points {
		v := 10 + float64(i)
		points[i] = models.ForecastPoint{
			Timestamp: start.AddDate(0, 0, i),
			Value:     v,
			Lower:     v - 1,
			Upper:     v + 1.5,
		}
	}

	return &models.Result{
		RunID:      "run-1",
		RowCount:   3,
		Horizon:    2,
		Parameters: models.DefaultModelConfig(),
		Forecast:   &models.Forecast{Engine: "linear", Frequency: 24 * time.Hour, Points: points},
		Anomalies: []models.Anomaly{{
			Timestamp: start.AddDate(0, 0, 1),
			Actual:    20,
			Predicted: 11,
			Lower:     10,
			Upper:     12.5,
			Severity:  9,
		}},
		Metrics:  models.Metrics{MAE: 3, RMSE: 5.1962, MAPE: 15.12},
		Insights: []string{"**Growth Trend**: forecast is expected to rise by 16.7% over the next 2 days."},
		Cutoff:   start.AddDate(0, 0, 2),
		Detection: &models.Detection{
			DateColumn:  "Date",
			ValueColumn: "Revenue",
		},
	}
}

func TestNewDocument(t *testing.T) {
	doc := NewDocument(createTestResult(), Options{})

	assert.Equal(t, "Forecast generated for next 2 days", doc.Message)
	assert.Equal(t, 3, doc.RowCount)
	assert.Len(t, doc.Data, 5)
	assert.Equal(t, "2024-01-01T00:00:00", doc.Data[0].DS)
	assert.Equal(t, Row{DS: "2024-01-05T00:00:00", YHat: 14, YHatLower: 13, YHatUpper: 15.5}, doc.Data[4])
	require.Len(t, doc.Anomalies, 1)
	assert.Equal(t, "2024-01-02T00:00:00", doc.Anomalies[0].DS)
	assert.Equal(t, 9.0, doc.Anomalies[0].Severity)
	assert.Nil(t, doc.Detection)
}

func TestNewDocumentTailOnly(t *testing.T) {
	doc := NewDocument(createTestResult(), Options{TailOnly: true, IncludeDetection: true})

	require.Len(t, doc.Data, 2)
	assert.Equal(t, "2024-01-04T00:00:00", doc.Data[0].DS)
	require.NotNil(t, doc.Detection)
	assert.Equal(t, "Revenue", doc.Detection.ValueColumn)
}

func TestNewDocumentEmptyCollections(t *testing.T) {
	result := createTestResult()
	result.Anomalies = nil
	result.Insights = nil

	var buf bytes.Buffer
	require.NoError(t, (&JSONExporter{}).Export(context.Background(), &buf, result, Options{}))

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	assert.Equal(t, "[]", string(raw["anomalies"]))
	assert.Equal(t, "[]", string(raw["insights"]))
}

func TestJSONExporter(t *testing.T) {
	var buf bytes.Buffer
	err := (&JSONExporter{}).Export(context.Background(), &buf, createTestResult(), Options{Pretty: true})
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))

	for _, key := range []string{"message", "row_count", "parameters", "metrics", "anomalies", "insights", "data"} {
		assert.Contains(t, raw, key)
	}

	parameters := raw["parameters"].(map[string]interface{})
	assert.Equal(t, "additive", parameters["seasonality_mode"])
	assert.Equal(t, "linear", parameters["growth"])

	metrics := raw["metrics"].(map[string]interface{})
	assert.Equal(t, 15.12, metrics["MAPE"])

	data := raw["data"].([]interface{})
	first := data[0].(map[string]interface{})
	assert.Equal(t, "2024-01-01T00:00:00", first["ds"])
	assert.NotContains(t, first, "timestamp")
	assert.Contains(t, buf.String(), "\n  \"message\"")
}

func TestCSVExporter(t *testing.T) {
	var buf bytes.Buffer
	err := (&CSVExporter{}).Export(context.Background(), &buf, createTestResult(), Options{})
	require.NoError(t, err)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 6)

	assert.Equal(t, []string{"ds", "yhat", "yhat_lower", "yhat_upper"}, records[0])
	assert.Equal(t, []string{"2024-01-01T00:00:00", "10", "9", "11.5"}, records[1])
}

func TestCSVExporterPrecisionAndTail(t *testing.T) {
	var buf bytes.Buffer
	err := (&CSVExporter{}).Export(context.Background(), &buf, createTestResult(), Options{TailOnly: true, Precision: 2})
	require.NoError(t, err)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"2024-01-04T00:00:00", "13.00", "12.00", "14.50"}, records[1])
}

func TestCSVExporterCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := (&CSVExporter{}).Export(ctx, io.Discard, createTestResult(), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTextExporter(t *testing.T) {
	var buf bytes.Buffer
	err := (&TextExporter{}).Export(context.Background(), &buf, createTestResult(), Options{})
	require.NoError(t, err)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Forecast generated for next 2 days\n"))
	assert.Contains(t, out, "Anomalies: 1")
	assert.Contains(t, out, "**Growth Trend**")
	assert.Contains(t, out, "2024-01-04T00:00:00")
	assert.Contains(t, out, "13.00")
	assert.NotContains(t, out, "2024-01-03T00:00:00")
}

func TestExportEngine(t *testing.T) {
	engine := NewExportEngine(quietLogger())

	assert.Equal(t, []ExportFormat{FormatCSV, FormatJSON, FormatText}, engine.GetSupportedFormats())

	var buf bytes.Buffer
	require.NoError(t, engine.Export(context.Background(), FormatCSV, &buf, createTestResult(), Options{}))
	assert.True(t, strings.HasPrefix(buf.String(), "ds,yhat,yhat_lower,yhat_upper\n"))

	err := engine.Export(context.Background(), ExportFormat("parquet"), &buf, createTestResult(), Options{})
	assert.Error(t, err)

	err = engine.Export(context.Background(), FormatJSON, &buf, nil, Options{})
	assert.Error(t, err)

	exporter, err := engine.Exporter(FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "application/json", exporter.ContentType())
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected ExportFormat
		wantErr  bool
	}{
		{"csv", FormatCSV, false},
		{" JSON ", FormatJSON, false},
		{"", FormatJSON, false},
		{"text", FormatText, false},
		{"table", FormatText, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			format, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, format)
		})
	}
}
