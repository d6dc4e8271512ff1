package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/tsforecast/internal/export"
	"github.com/inferloop/tsforecast/internal/normalize"
	"github.com/inferloop/tsforecast/internal/observability/health"
	"github.com/inferloop/tsforecast/internal/pipeline"
	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/interfaces"
	"github.com/inferloop/tsforecast/pkg/models"
)

// DefaultMaxUploadBytes caps a multipart forecast request
const DefaultMaxUploadBytes = 32 << 20

// HandlerConfig contains the collaborators of the HTTP handlers
type HandlerConfig struct {
	Pipeline *pipeline.Pipeline

	// Uploads keeps the cleaned copy of each upload, optional
	Uploads interfaces.UploadStore

	// Health aggregates dependency checks, optional
	Health *health.HealthMonitor

	// SampleFile backs the legacy GET /forecast route
	SampleFile string

	DefaultEngine  string
	MaxUploadBytes int64
	Logger         *logrus.Logger
}

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	pipeline       *pipeline.Pipeline
	uploads        interfaces.UploadStore
	health         *health.HealthMonitor
	sampleFile     string
	defaultEngine  string
	maxUploadBytes int64
	logger         *logrus.Logger
}

// NewHandlers creates the handlers from config
func NewHandlers(config *HandlerConfig) *Handlers {
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	if config.Pipeline == nil {
		config.Pipeline = pipeline.New(config.Logger)
	}
	if config.Health == nil {
		config.Health = health.NewHealthMonitor("", config.Logger)
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = DefaultMaxUploadBytes
	}

	return &Handlers{
		pipeline:       config.Pipeline,
		uploads:        config.Uploads,
		health:         config.Health,
		sampleFile:     config.SampleFile,
		defaultEngine:  config.DefaultEngine,
		maxUploadBytes: config.MaxUploadBytes,
		logger:         config.Logger,
	}
}

// Root reports that the service is up
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(h.logger, w, http.StatusOK, map[string]string{"status": "Backend is running"})
}

// Health runs the registered dependency checks
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	status := h.health.GetStatus(r.Context())

	code := http.StatusOK
	if status.OverallStatus == health.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(h.logger, w, code, status)
}

// Forecast normalizes an uploaded CSV, forecasts it and returns the bundle
func (h *Handlers) Forecast(w http.ResponseWriter, r *http.Request) {
	params, err := parseForecastParams(r.URL.Query())
	if err != nil {
		h.writeError(w, r, http.StatusUnprocessableEntity, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, r, http.StatusUnprocessableEntity,
			errors.NewValidationError(errors.CodeUploadFailed, "file is required"))
		return
	}
	defer file.Close()

	table, err := normalize.ReadCSV(file)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.pipeline.Run(r.Context(), h.request(table, params))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.saveUpload(r.Context(), header.Filename, result.Series)

	writeJSON(h.logger, w, http.StatusOK, export.NewDocument(result, export.Options{TailOnly: params.Tail}))
}

// LegacyForecast forecasts the configured sample file and returns only the
// last days rows
func (h *Handlers) LegacyForecast(w http.ResponseWriter, r *http.Request) {
	params, err := parseForecastParams(r.URL.Query())
	if err != nil {
		h.writeError(w, r, http.StatusUnprocessableEntity, err)
		return
	}

	file, err := os.Open(h.sampleFile)
	if h.sampleFile == "" || err != nil {
		h.writeError(w, r, http.StatusNotFound,
			errors.NewValidationError(errors.CodeSourceFailed, "Data file not found. Please ensure the sample data file exists."))
		return
	}
	defer file.Close()

	table, err := normalize.ReadCSV(file)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.pipeline.Run(r.Context(), h.request(table, params))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(h.logger, w, http.StatusOK, export.NewDocument(result, export.Options{TailOnly: true}))
}

func (h *Handlers) request(table *models.Table, params *forecastParams) *pipeline.Request {
	engine := params.Engine
	if engine == "" {
		engine = h.defaultEngine
	}
	return &pipeline.Request{
		Table:   table,
		Horizon: params.Days,
		Config:  params.Config,
		Engine:  engine,
	}
}

// saveUpload stores the cleaned series. A failure is logged and does not
// affect the response.
func (h *Handlers) saveUpload(ctx context.Context, filename string, series *models.Series) {
	if h.uploads == nil || series == nil {
		return
	}

	var buf bytes.Buffer
	if err := normalize.WriteCSV(&buf, normalize.ToTable(series)); err != nil {
		h.logger.WithError(err).Warn("Failed to encode cleaned upload")
		return
	}

	started := time.Now()
	key, err := h.uploads.Save(ctx, filename, &buf)
	if err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"filename": filename,
			"backend":  h.uploads.Backend(),
		}).Warn("Failed to save cleaned upload")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"key":         key,
		"backend":     h.uploads.Backend(),
		"duration_ms": time.Since(started).Milliseconds(),
	}).Debug("Saved cleaned upload")
}

// fail maps a pipeline error to its response status
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"path":       r.URL.Path,
			"request_id": RequestIDFromContext(r.Context()),
		}).Error("Forecast request failed")
	}
	h.writeError(w, r, status, err)
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	writeJSON(h.logger, w, status, errors.NewErrorResponse(err, RequestIDFromContext(r.Context())))
}

func writeJSON(logger *logrus.Logger, w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.WithError(err).WithField("status", status).Warn("Failed to encode response")
	}
}
