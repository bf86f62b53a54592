package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/docutag/visitor"
	"github.com/docutag/visitor/metrics"
	"github.com/docutag/visitor/models"
	"github.com/docutag/visitor/storage"
	"github.com/docutag/visitor/tools"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

// Server represents the API server
type Server struct {
	tools       *tools.Toolbox
	storage     *storage.Storage
	metrics     *metrics.VisitorMetrics
	logger      *slog.Logger
	addr        string
	server      *http.Server
	mux         *http.ServeMux
	corsEnabled bool
}

// Config contains server configuration
type Config struct {
	Addr          string
	VisitorConfig visitor.Config
	StoragePath   string
	CORSEnabled   bool
	Mirror        visitor.Mirror          // Optional copy of every acquired image
	Metrics       *metrics.VisitorMetrics // Optional; /metrics serves the default registry when nil
	Logger        *slog.Logger
}

// DefaultConfig returns default server configuration
func DefaultConfig() Config {
	return Config{
		Addr:          ":8080",
		VisitorConfig: visitor.DefaultConfig(),
		StoragePath:   storage.DefaultConfig().BasePath,
		CORSEnabled:   true,
	}
}

// NewServer creates a new API server
func NewServer(config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Initialize the working directory
	storageInstance, err := storage.New(storage.Config{BasePath: config.StoragePath})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	opts := []visitor.Option{visitor.WithLogger(logger), visitor.WithMetrics(config.Metrics)}
	if config.Mirror != nil {
		opts = append(opts, visitor.WithMirror(config.Mirror))
	}
	visitorInstance := visitor.New(config.VisitorConfig, storageInstance, opts...)

	s := &Server{
		tools:       tools.New(visitorInstance, tools.WithMetrics(config.Metrics), tools.WithLogger(logger)),
		storage:     storageInstance,
		metrics:     config.Metrics,
		logger:      logger,
		addr:        config.Addr,
		mux:         http.NewServeMux(),
		corsEnabled: config.CORSEnabled,
	}

	// Register routes
	s.registerRoutes()

	// Create HTTP server
	s.server = &http.Server{
		Addr:         config.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // Allow time for large image batches
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// registerRoutes sets up all API routes
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/visit", s.handleVisit)
	s.mux.HandleFunc("/api/view-images", s.handleViewImages)
	s.mux.HandleFunc("/api/images/", s.handleImage) // Handles /api/images/{file}
	s.mux.Handle("/metrics", s.metrics.Handler())
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.middleware(s.mux), "visitor-api")
}

// Start starts the API server
func (s *Server) Start() error {
	s.logger.Info("starting API server", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.server.Shutdown(ctx)
}

// Storage returns the working directory the server writes images into
func (s *Server) Storage() *storage.Storage {
	return s.storage
}

type requestIDKey struct{}

// middleware applies common middleware to all routes
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// CORS headers
		if s.corsEnabled {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
		}

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, requestID)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, requestID))

		// Logging (skip health checks and scrapes to reduce noise)
		start := time.Now()
		next.ServeHTTP(w, r)

		if r.URL.Path != "/health" && r.URL.Path != "/metrics" {
			s.logger.Info("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", requestID,
				"duration", time.Since(start),
			)
		}
	})
}

// requestLogger returns the server log tagged with the request id
func (s *Server) requestLogger(r *http.Request) *slog.Logger {
	if id, ok := r.Context().Value(requestIDKey{}).(string); ok {
		return s.logger.With("request_id", id)
	}
	return s.logger
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "healthy",
		"working_directory": s.storage.BasePath(),
		"time":              time.Now(),
	})
}

// VisitResponse is a visit result plus the warnings raised while producing it
type VisitResponse struct {
	*models.VisitResult
	Warnings []string `json:"warnings,omitempty"`
}

// ViewImagesResponse lists one markdown reference or error line per image
type ViewImagesResponse struct {
	Images   []string `json:"images"`
	Warnings []string `json:"warnings,omitempty"`
}

// ErrorResponse carries the tool-boundary message of a failed call
type ErrorResponse struct {
	Error    string   `json:"error"`
	Warnings []string `json:"warnings,omitempty"`
}

// handleVisit handles website visits
func (s *Server) handleVisit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	var args tools.VisitArgs
	if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	recorder := &visitor.Recorder{Next: visitor.LogNotifier{Logger: s.requestLogger(r)}}
	reply := s.tools.VisitWebsite(r.Context(), args, recorder)
	if !reply.OK() {
		respondError(w, statusFor(reply.Kind), reply.Message, recorder.Warnings())
		return
	}

	result, _ := reply.Value.(*models.VisitResult)
	respondJSON(w, http.StatusOK, VisitResponse{
		VisitResult: result,
		Warnings:    recorder.Warnings(),
	})
}

// handleViewImages handles image downloads for viewing
func (s *Server) handleViewImages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	var args tools.ViewImagesArgs
	if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	recorder := &visitor.Recorder{Next: visitor.LogNotifier{Logger: s.requestLogger(r)}}
	reply := s.tools.ViewImages(r.Context(), args, recorder)
	if !reply.OK() {
		respondError(w, statusFor(reply.Kind), reply.Message, recorder.Warnings())
		return
	}

	images, _ := reply.Value.([]string)
	respondJSON(w, http.StatusOK, ViewImagesResponse{
		Images:   images,
		Warnings: recorder.Warnings(),
	})
}

// handleImage serves an acquired image file from the working directory
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	// Extract file name from URL
	name := strings.TrimPrefix(r.URL.Path, "/api/images/")
	if name == "" {
		respondError(w, http.StatusBadRequest, "file name is required", nil)
		return
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		respondError(w, http.StatusBadRequest, "invalid file name", nil)
		return
	}

	// Read image from storage
	imageData, err := s.storage.ReadImage(name)
	if err != nil {
		s.requestLogger(r).Debug("image not readable", "file", name, "error", err)
		respondError(w, http.StatusNotFound, "image not found", nil)
		return
	}

	// Set content type header
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = http.DetectContentType(imageData)
	}
	w.Header().Set("Content-Type", contentType)

	// Set content length header
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(imageData)))

	// Set cache control headers (cache for 1 year since file names are never reused)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")

	// Write image data
	w.WriteHeader(http.StatusOK)
	w.Write(imageData)
}

// statusFor maps a tool reply kind to an HTTP status
func statusFor(kind tools.Kind) int {
	switch kind {
	case tools.KindInvalid:
		return http.StatusBadRequest
	case tools.KindAborted:
		return http.StatusRequestTimeout
	default:
		return http.StatusBadGateway
	}
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string, warnings []string) {
	respondJSON(w, status, ErrorResponse{
		Error:    message,
		Warnings: warnings,
	})
}
