package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetricsRecording(t *testing.T) {
	pm, err := NewPrometheusMetrics(nil, nil)
	require.NoError(t, err)

	pm.RecordPipelineRun("success", 120*time.Millisecond)
	pm.RecordPipelineRun("schema_error", time.Millisecond)
	pm.RecordPipelineRun("success", 80*time.Millisecond)
	pm.RecordAnomalies(3)
	pm.RecordSchemaFallback()

	assert.Equal(t, 2.0, testutil.ToFloat64(pm.pipelineRunsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.pipelineRunsTotal.WithLabelValues("schema_error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(pm.anomaliesDetected))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.schemaFallbackTotal))
}

func TestPrometheusMetricsHandler(t *testing.T) {
	pm, err := NewPrometheusMetrics(nil, nil)
	require.NoError(t, err)

	pm.RecordHTTPRequest("POST", "/api/v1/forecast", "200", 10*time.Millisecond)

	rec := httptest.NewRecorder()
	pm.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "tsforecast_http_requests_total"))
	assert.True(t, strings.Contains(body, "tsforecast_pipeline_duration_seconds"))
}

func TestPrometheusMetricsIsolatedRegistries(t *testing.T) {
	_, err := NewPrometheusMetrics(nil, nil)
	require.NoError(t, err)
	_, err = NewPrometheusMetrics(nil, nil)
	assert.NoError(t, err)
}
