// Package api serves the reference document and application service that the
// portal's facade client talks to.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dharsanguruparan/loandrop/internal/config"
	"github.com/dharsanguruparan/loandrop/internal/storage"
)

// ObjectStore issues presigned URLs for document bytes.
type ObjectStore interface {
	PresignPut(ctx context.Context, key string, ttl time.Duration) (string, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Dispatcher starts processing for a document without waiting for it.
type Dispatcher interface {
	Dispatch(ctx context.Context, documentID string) error
}

// routeMounter is implemented by object stores that serve their own URLs.
type routeMounter interface {
	Routes(r chi.Router)
}

// Server exposes HTTP endpoints for document metadata and upload URLs.
type Server struct {
	cfg        config.BackendConfig
	store      storage.Store
	blobs      ObjectStore
	dispatcher Dispatcher
	logger     *slog.Logger
	newID      func() string
}

// New constructs a Server.
func New(cfg config.BackendConfig, store storage.Store, blobs ObjectStore, dispatcher Dispatcher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:        cfg,
		store:      store,
		blobs:      blobs,
		dispatcher: dispatcher,
		logger:     logger,
		newID:      newID,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)

	r.Get("/healthz", s.handleHealth)
	if m, ok := s.blobs.(routeMounter); ok {
		m.Routes(r)
	}
	r.Route("/v1", func(r chi.Router) {
		r.Post("/applications", s.handleCreateApplication)
		r.Get("/applications/{applicationID}", s.handleGetApplication)
		r.Get("/applications/{applicationID}/documents", s.handleListDocuments)

		r.Post("/documents", s.handleCreateDocument)
		r.Get("/documents/{documentID}", s.handleGetDocument)
		r.Post("/documents/{documentID}/upload", s.handleRegisterUpload)
		r.Post("/documents/{documentID}/process", s.handleProcess)
		r.Get("/documents/{documentID}/download-url", s.handleDownloadURL)

		r.Post("/uploads/presign", s.handlePresign)
	})
	return r
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	s.logger.Info("document service listening", "address", s.cfg.Address)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// respondError writes the {"error": ...} body the facade client decodes.
func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// respondStoreError maps persistence errors; anything unexpected is logged and
// hidden behind a 500.
func (s *Server) respondStoreError(w http.ResponseWriter, r *http.Request, what string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		respondError(w, http.StatusNotFound, what+" not found")
	case errors.Is(err, storage.ErrConflict):
		respondError(w, http.StatusConflict, what+" already exists")
	default:
		s.logger.Error("storage error", "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
