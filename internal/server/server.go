// Package server exposes the borrower portal API. Handlers stay thin: they
// decode the request, call the pipeline component that owns the behavior and
// map its errors onto HTTP statuses.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/dharsanguruparan/loandrop/internal/cache"
	"github.com/dharsanguruparan/loandrop/internal/config"
	"github.com/dharsanguruparan/loandrop/internal/facade"
	"github.com/dharsanguruparan/loandrop/internal/identity"
	"github.com/dharsanguruparan/loandrop/internal/poller"
	"github.com/dharsanguruparan/loandrop/internal/reviewform"
	"github.com/dharsanguruparan/loandrop/internal/upload"
)

// Check is a named readiness probe.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Deps are the collaborators the portal talks to.
type Deps struct {
	Documents    facade.DocumentService
	Applications facade.ApplicationService
	Cache        *cache.Cache
	// Transferer overrides the HTTP PUT used by uploads; nil uses the default.
	Transferer upload.Transferer
	Checks     []Check
	Logger     *slog.Logger
}

type Server struct {
	cfg       *config.Config
	docs      facade.DocumentService
	apps      facade.ApplicationService
	cache     *cache.Cache
	uploader  *upload.Orchestrator
	poller    *poller.Poller
	validator *reviewform.Validator
	auth      *identity.JWTMiddleware
	checks    []Check
	logger    *slog.Logger
	uploadDir string
}

func New(cfg *config.Config, deps Deps) (*Server, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dir := filepath.Join(os.TempDir(), "loandrop")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}

	cached := &readThrough{DocumentService: deps.Documents, cache: deps.Cache, ttl: cfg.Cache.TTL, downloadTTL: cfg.Cache.DownloadTTL}
	opts := []upload.Option{
		upload.WithStrictTransfer(cfg.Portal.StrictTransfer),
		upload.WithLogger(logger),
	}
	if deps.Transferer != nil {
		opts = append(opts, upload.WithTransferer(deps.Transferer))
	}

	return &Server{
		cfg:       cfg,
		docs:      cached,
		apps:      deps.Applications,
		cache:     deps.Cache,
		uploader:  upload.NewOrchestrator(deps.Documents, deps.Cache, opts...),
		poller:    poller.New(deps.Documents, deps.Cache, cfg.Portal.PollInterval, logger),
		validator: reviewform.NewValidator(),
		auth:      identity.NewJWTMiddleware(cfg.Portal.JWTSecret),
		checks:    deps.Checks,
		logger:    logger,
		uploadDir: dir,
	}, nil
}

// Serve runs the HTTP server until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:        s.cfg.Portal.Address,
		Handler:     s.Routes(),
		ReadTimeout: 5 * time.Minute,
		IdleTimeout: 2 * time.Minute,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()
	s.logger.Info("portal listening", "addr", s.cfg.Portal.Address)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(chimiddleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.auth.Authenticate)

		r.Route("/applications/{applicationId}", func(r chi.Router) {
			r.Get("/", s.handleApplication)
			r.Get("/checklist", s.handleChecklist)
			r.Post("/documents", s.handleUpload)
		})
		r.Route("/documents/{documentId}", func(r chi.Router) {
			r.Get("/", s.handleDocument)
			r.Get("/download-url", s.handleDownloadURL)
			r.Get("/events", s.handleDocumentEvents)
		})
		r.Get("/events", s.handleInvalidations)

		r.Route("/review", func(r chi.Router) {
			r.Post("/financial-statement", s.handleFinancialStatement)
			r.Post("/business-info", s.handleBusinessInfo)
			r.Post("/personal-info", s.handlePersonalInfo)
		})
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	status := http.StatusOK
	for _, c := range s.checks {
		if err := c.Ping(ctx); err != nil {
			checks[c.Name] = "unhealthy: " + err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[c.Name] = "ok"
	}
	state := "ok"
	if status != http.StatusOK {
		state = "unhealthy"
	}
	respondJSON(w, status, map[string]any{"status": state, "checks": checks})
}
