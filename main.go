package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Tutortoise/threat-detection-service/detections"
	"github.com/Tutortoise/threat-detection-service/logger"
	"github.com/Tutortoise/threat-detection-service/models"

	"github.com/gorilla/mux"
)

type AppState struct {
	Config   *Config
	Log      *logger.Logger
	Provider *detections.Provider
	Analyzer *detections.Analyzer
	Metrics  *Metrics
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func NewAppState(cfg *Config, lg *logger.Logger) (*AppState, error) {
	factory, err := detections.NewFactory(cfg.BackendConfig())
	if err != nil {
		return nil, err
	}

	provider := detections.NewProvider(factory)
	return &AppState{
		Config:   cfg,
		Log:      lg,
		Provider: provider,
		Analyzer: detections.NewAnalyzer(provider, lg),
		Metrics:  NewMetrics(),
	}, nil
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := LoadConfig()

	lg, err := logger.NewWithDir(cfg.LogDir, cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer lg.Close()

	state, err := NewAppState(cfg, lg)
	if err != nil {
		log.Fatalf("Failed to configure model backend: %v", err)
	}

	srv := &http.Server{
		Handler:      newRouter(state),
		Addr:         cfg.Addr(),
		WriteTimeout: cfg.WriteTimeout,
		ReadTimeout:  cfg.ReadTimeout,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		lg.Info("Starting server on %s (backend: %s)", srv.Addr, cfg.ModelBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to serve HTTP: %v", err)
		}
	}()

	<-done
	lg.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		lg.Error("Error shutting down HTTP server: %v", err)
	}
	if err := state.Provider.Close(); err != nil {
		lg.Error("Error releasing model backend: %v", err)
	}
	lg.Info("Server stopped")
}

func newRouter(state *AppState) http.Handler {
	r := mux.NewRouter()
	r.Use(loggingMiddleware(state.Log))

	r.HandleFunc("/detect", handleDetect(state)).Methods(http.MethodPost)
	r.HandleFunc("/health", handleHealth).Methods(http.MethodGet)
	state.addMonitoringRoutes(r)

	return corsMiddleware(r)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	sendJSON(w, http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Timestamp: models.EpochSeconds(time.Now()),
	})
}

func (s *AppState) addMonitoringRoutes(r *mux.Router) {
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
}

func (s *AppState) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	response := s.Metrics.Snapshot()
	response["backend"] = s.Config.ModelBackend
	response["model_key"] = detections.ModelKey

	// Peek so a metrics scrape never triggers a cold start.
	backend := s.Provider.Peek()
	response["model_loaded"] = backend != nil
	if reporter, ok := backend.(detections.StatsReporter); ok {
		response["backend_stats"] = reporter.Stats()
	}

	sendJSON(w, http.StatusOK, response)
}

func sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func sendErrorResponse(w http.ResponseWriter, code, message, details string, status int) {
	sendJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	})
}

func msToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
