package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/sectorfolio/internal/api/handlers"
	"github.com/wonny/sectorfolio/pkg/logger"
	"github.com/wonny/sectorfolio/pkg/metrics"
)

// Handlers groups the endpoint handlers; nil handlers leave their routes unregistered
type Handlers struct {
	Portfolio *handlers.PortfolioHandler
	Analytics *handlers.AnalyticsHandler
	Universe  *handlers.UniverseHandler
	Data      *handlers.DataHandler
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: routing is configured in this function only
func NewRouter(h Handlers, rec *metrics.Recorder, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// Metrics
	if rec != nil {
		r.Handle("/metrics", rec.Handler()).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()

	// Portfolio endpoints
	if h.Portfolio != nil {
		api.HandleFunc("/generate-portfolio", h.Portfolio.Generate).Methods("POST")
		api.HandleFunc("/plans/{run_id}", h.Portfolio.GetPlan).Methods("GET")
	}

	// Analytics endpoints
	if h.Analytics != nil {
		api.HandleFunc("/yfinance/compare", h.Analytics.Compare).Methods("GET")
	}

	if h.Universe != nil {
		api.HandleFunc("/sectors", h.Universe.GetSectors).Methods("GET")
	}

	// Data endpoints
	if h.Data != nil {
		api.HandleFunc("/data/collect", h.Data.Collect).Methods("POST")
		api.HandleFunc("/data/refresh", h.Data.Refresh).Methods("POST")
	}

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "sectorfolio-api",
	})
}

// statusRecorder captures the response status for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			// Call next handler
			next.ServeHTTP(rec, r)

			// Log request
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"status":  "error",
						"message": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
