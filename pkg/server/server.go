// Package server is a reference host for diagram documents.
//
// It serves the endpoints the persistence client talks to:
//
//	GET  /projects/{id}/diagram/            page with an SVG preview, sets the CSRF cookie
//	GET  /projects/{id}/diagram/data/       current document as JSON
//	GET  /projects/{id}/diagram/preview.svg SVG preview of the current document
//	GET  /projects/{id}/diagram/versions/   saved versions
//	POST /projects/{id}/diagram/save/       save a document (CSRF protected)
//	GET  /metrics                           Prometheus metrics, when enabled
//	GET  /healthz                           liveness probe
//
// Saves require the CSRF cookie and header to carry the same non-empty
// token (double-submit cookie).
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/checklistapp/diagram/pkg/cache"
	"github.com/checklistapp/diagram/pkg/persist"
	"github.com/checklistapp/diagram/pkg/store"
)

// Server hosts diagram documents backed by a store.
type Server struct {
	router     chi.Router
	client     *persist.StoreClient
	logger     *log.Logger
	csrfCookie string
	csrfHeader string
	demo       bool
	gatherer   prometheus.Gatherer
	previews   cache.Cache
	keyer      cache.Keyer
	previewTTL time.Duration
}

// Option configures a [Server].
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option { return func(s *Server) { s.logger = l } }

// WithCSRF overrides the CSRF cookie and header names. Empty names keep
// the defaults.
func WithCSRF(cookie, header string) Option {
	return func(s *Server) {
		if cookie != "" {
			s.csrfCookie = cookie
		}
		if header != "" {
			s.csrfHeader = header
		}
	}
}

// WithDemoFallback serves the demo document for projects that have never
// been saved instead of a 404.
func WithDemoFallback() Option { return func(s *Server) { s.demo = true } }

// WithPreviewCache caches rendered SVG previews in c for ttl (zero keeps
// them until evicted by the backend).
func WithPreviewCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Server) { s.previews, s.previewTTL = c, ttl }
}

// WithKeyer overrides how preview cache keys are built.
func WithKeyer(k cache.Keyer) Option { return func(s *Server) { s.keyer = k } }

// WithMetrics exposes g at /metrics.
func WithMetrics(g prometheus.Gatherer) Option { return func(s *Server) { s.gatherer = g } }

// New creates a server backed by st.
func New(st store.Store, opts ...Option) *Server {
	s := &Server{
		logger:     log.Default(),
		csrfCookie: persist.DefaultCSRFCookie,
		csrfHeader: persist.DefaultCSRFHeader,
		previews:   cache.NewNullCache(),
		keyer:      cache.NewDefaultKeyer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.client = persist.NewStoreClient(st, s.logger)
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/projects/{projectID}/diagram", func(r chi.Router) {
		r.Use(s.ensureCSRFCookie)
		r.Get("/", s.handlePage)
		r.Get("/data/", s.handleLoad)
		r.Get("/preview.svg", s.handlePreview)
		r.Get("/versions/", s.handleVersions)
		r.With(s.requireCSRF).Post("/save/", s.handleSave)
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
