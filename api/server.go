package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/koharu/importer"
	"github.com/koharu/importer/db"
	"github.com/koharu/importer/models"
)

// maxBodyBytes bounds the size of a normalization request
const maxBodyBytes = 4 << 20

// Server represents the API server
type Server struct {
	db          *db.DB
	options     importer.Options
	addr        string
	server      *http.Server
	mux         *http.ServeMux
	corsEnabled bool
	logger      *slog.Logger

	// saveMu serializes read-merge-write cycles against the store
	saveMu sync.Mutex
}

// Config contains server configuration
type Config struct {
	Addr        string
	DBConfig    db.Config
	Options     importer.Options // defaults for requests that carry no options
	CORSEnabled bool
	Logger      *slog.Logger
}

// DefaultConfig returns default server configuration
func DefaultConfig() Config {
	return Config{
		Addr:        ":8080",
		DBConfig:    db.DefaultConfig(),
		CORSEnabled: true,
	}
}

// NewServer creates a new API server
func NewServer(config Config) (*Server, error) {
	database, err := db.New(config.DBConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		db:          database,
		options:     config.Options,
		addr:        config.Addr,
		mux:         http.NewServeMux(),
		corsEnabled: config.CORSEnabled,
		logger:      logger,
	}

	s.registerRoutes()

	s.server = &http.Server{
		Addr:         config.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// registerRoutes sets up all API routes
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/api/normalize", s.handleNormalize)
	s.mux.HandleFunc("/api/detect", s.handleDetect)
	s.mux.HandleFunc("/api/archives/", s.handleArchive) // Handles /api/archives/{id}
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.middleware(s.mux), "importer-api")
}

// DB returns the archive store
func (s *Server) DB() *db.DB {
	return s.db
}

// Start starts the API server
func (s *Server) Start() error {
	s.logger.Info("starting API server", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	return s.db.Close()
}

// middleware applies common middleware to all routes
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.corsEnabled {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
		}

		// skip health checks and metrics scrapes to reduce noise
		quiet := r.URL.Path == "/health" || r.URL.Path == "/metrics"
		start := time.Now()

		next.ServeHTTP(w, r)

		if !quiet {
			s.logger.Info("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"duration", time.Since(start),
			)
		}
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	count, err := s.db.Count(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get count")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"count":  count,
		"time":   time.Now(),
	})
}

// NormalizeRequest represents a normalization request. The record to merge
// onto is either given inline as Archive or loaded by ArchiveID.
type NormalizeRequest struct {
	Format    string            `json:"format,omitempty"` // detected when empty
	Content   string            `json:"content"`
	Archive   *models.Archive   `json:"archive,omitempty"`
	ArchiveID int64             `json:"archive_id,omitempty"`
	Options   *importer.Options `json:"options,omitempty"`
	Save      bool              `json:"save,omitempty"` // only with ArchiveID
}

// NormalizeResponse represents a normalization result
type NormalizeResponse struct {
	Format  importer.Format `json:"format"`
	Archive models.Archive  `json:"archive"`
	Saved   bool            `json:"saved"`
}

// ErrorResponse is returned for rejected sidecars
type ErrorResponse struct {
	Error      string               `json:"error"`
	Violations []importer.Violation `json:"violations,omitempty"`
}

// handleNormalize runs one sidecar through its adapter
func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req NormalizeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Content) == "" {
		respondError(w, http.StatusBadRequest, "content is required")
		return
	}
	if req.Archive != nil && req.ArchiveID != 0 {
		respondError(w, http.StatusBadRequest, "archive and archive_id are mutually exclusive")
		return
	}
	if req.Save && req.ArchiveID == 0 {
		respondError(w, http.StatusBadRequest, "save requires archive_id")
		return
	}

	format, err := s.resolveFormat(req.Format, []byte(req.Content))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := s.options
	if req.Options != nil {
		opts = *req.Options
	}

	if req.Save {
		s.saveMu.Lock()
		defer s.saveMu.Unlock()
	}

	var archive models.Archive
	switch {
	case req.ArchiveID != 0:
		existing, err := s.db.GetArchive(r.Context(), req.ArchiveID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "database error")
			return
		}
		if existing == nil {
			respondError(w, http.StatusNotFound, "archive not found")
			return
		}
		archive = *existing
	case req.Archive != nil:
		archive = *req.Archive
	}

	result, err := importer.Normalize(format, []byte(req.Content), opts, archive)
	if err != nil {
		respondNormalizeError(w, err)
		return
	}

	saved := false
	if req.Save {
		if err := s.db.SaveMetadata(r.Context(), result); err != nil {
			s.logger.Error("failed to save metadata", "archive_id", result.ID, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to save metadata")
			return
		}
		saved = true
	}

	respondJSON(w, http.StatusOK, NormalizeResponse{Format: format, Archive: result, Saved: saved})
}

// DetectResponse represents a format detection result
type DetectResponse struct {
	Format   importer.Format `json:"format"`
	Detected bool            `json:"detected"`
}

// handleDetect guesses the format of a posted sidecar
func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req NormalizeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	format, ok := importer.DetectFormat([]byte(req.Content))
	respondJSON(w, http.StatusOK, DetectResponse{Format: format, Detected: ok})
}

// handleArchive returns a stored archive by ID
func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/api/archives/"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid archive id")
		return
	}

	archive, err := s.db.GetArchive(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}
	if archive == nil {
		respondError(w, http.StatusNotFound, "archive not found")
		return
	}

	respondJSON(w, http.StatusOK, archive)
}

func (s *Server) resolveFormat(name string, content []byte) (importer.Format, error) {
	if name != "" {
		return importer.ParseFormat(name)
	}
	format, ok := importer.DetectFormat(content)
	if !ok {
		return "", importer.ErrUndetectedFormat
	}
	return format, nil
}

// respondNormalizeError maps adapter errors to status codes
func respondNormalizeError(w http.ResponseWriter, err error) {
	var validationErr *importer.ValidationError
	var parseErr *importer.ParseError

	switch {
	case errors.As(err, &validationErr):
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:      err.Error(),
			Violations: validationErr.Violations,
		})
	case errors.As(err, &parseErr):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
