package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// APIPrefix is the version prefix of the JSON API
const APIPrefix = "/api/v1"

// RouterConfig wires the handlers into a router
type RouterConfig struct {
	Handlers       *Handlers
	Middleware     *MiddlewareConfig
	MetricsHandler http.Handler
	Logger         *logrus.Logger
}

// NewRouter builds the HTTP routes
func NewRouter(config *RouterConfig) *mux.Router {
	logger := config.Logger
	if logger == nil {
		logger = logrus.New()
	}
	middleware := config.Middleware
	if middleware == nil {
		middleware = DefaultMiddlewareConfig()
	}
	h := config.Handlers

	r := mux.NewRouter()
	r = ApplyMiddleware(r, middleware, logger)

	r.HandleFunc("/", h.Root).Methods(http.MethodGet)

	if config.MetricsHandler != nil {
		r.Handle("/metrics", config.MetricsHandler).Methods(http.MethodGet)
	}

	api := r.PathPrefix(APIPrefix).Subrouter()
	api.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	api.HandleFunc("/forecast", h.Forecast).Methods(http.MethodPost)
	api.HandleFunc("/forecast", preflight).Methods(http.MethodOptions)

	r.HandleFunc("/forecast", h.Forecast).Methods(http.MethodPost)
	r.HandleFunc("/forecast", h.LegacyForecast).Methods(http.MethodGet)
	r.HandleFunc("/forecast", preflight).Methods(http.MethodOptions)

	return r
}

// preflight answers OPTIONS when CORS is disabled; the CORS middleware
// replies before it otherwise
func preflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
