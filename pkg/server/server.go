// Package server exposes assembled volumes over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"dicomvolume/internal/models"
	"dicomvolume/pkg/discovery"
	"dicomvolume/pkg/reconstruction"
	"dicomvolume/pkg/transfer"
)

// RequestIDHeader echoes the id assigned to each request
const RequestIDHeader = "X-Request-Id"

// VolumeLoader assembles a volume from slice files
type VolumeLoader interface {
	Load(ctx context.Context, files []string) (*models.ImageVolume, error)
}

// Server serves volumes by study id
type Server struct {
	resolver discovery.Resolver
	loader   VolumeLoader
	logger   *log.Logger
}

// New creates a server. A nil logger uses the standard logger.
func New(resolver discovery.Resolver, loader VolumeLoader, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{resolver: resolver, loader: loader, logger: logger}
}

// Handler returns the routes wrapped in request logging
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/image/{imageId}", s.handleImage)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return s.logRequests(mux)
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("imageId")

	files, err := s.resolver.Resolve(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	vol, err := s.loader.Load(r.Context(), files)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if err := transfer.WriteResponse(w, vol); err != nil {
		// headers may already be gone; the client sees a short body
		s.logger.Printf("writing volume %s: %v", id, err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// fail translates a resolver or reconstruction error into a response
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Printf("request %s %s failed: %v", w.Header().Get(RequestIDHeader), r.URL.Path, err)

	switch {
	case errors.Is(err, discovery.ErrInvalidStudyID), errors.Is(err, discovery.ErrStudyNotFound):
		respondError(w, "Not found", http.StatusNotFound)
	case isReconstructionError(err):
		respondError(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		respondError(w, "Internal error", http.StatusInternalServerError)
	}
}

// isReconstructionError reports whether err means the study's files do not
// form a valid volume, as opposed to a storage or server failure
func isReconstructionError(err error) bool {
	var (
		sliceErr     *reconstruction.SliceError
		inconsistent *reconstruction.InconsistentValueError
		geometry     *reconstruction.GeometryMismatchError
		size         *reconstruction.SizeMismatchError
	)
	return errors.As(err, &sliceErr) ||
		errors.As(err, &inconsistent) ||
		errors.As(err, &geometry) ||
		errors.As(err, &size) ||
		errors.Is(err, reconstruction.ErrTooFewSlices) ||
		errors.Is(err, reconstruction.ErrCoincidentSlices)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := uuid.NewString()
		w.Header().Set(RequestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Printf("%s %s %d %s id=%s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Microsecond), id)
	})
}

func respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, map[string]string{"message": message}, status)
}
