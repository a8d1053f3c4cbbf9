// Package ui provides the web interface: a JSON API over the catalog and
// lineage services plus a minimal HTML index.
package ui

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/dsphere-labs/dsptool/internal/api"
	"github.com/dsphere-labs/dsptool/internal/cache"
	"github.com/dsphere-labs/dsptool/internal/lineage"
)

// Service is the tenant access the UI needs. *api.Client satisfies it.
type Service interface {
	Spaces(ctx context.Context) ([]api.Space, error)
	SpaceObjects(ctx context.Context, spaceID string) ([]api.Object, error)
	FindObjectID(ctx context.Context, technicalName, spaceID string) (string, bool, error)
	Lineage(ctx context.Context, objectID string, opts api.LineageOptions) (*lineage.Tree, error)
}

// Server is the web UI server.
type Server struct {
	service      Service
	catalog      *cache.Catalog
	sessionStore *sessions.CookieStore
	port         int
	logger       *slog.Logger
}

// Config holds configuration for the UI server.
type Config struct {
	Service       Service
	Catalog       *cache.Catalog
	Port          int
	SessionSecret string
	Logger        *slog.Logger
}

// NewServer creates a new UI server instance.
func NewServer(cfg Config) *Server {
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(86400 * 7) // 7 days
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		service:      cfg.Service,
		catalog:      cfg.Catalog,
		sessionStore: sessionStore,
		port:         cfg.Port,
		logger:       logger,
	}
}

// Router builds the HTTP handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	r.Get("/", s.IndexPage)
	r.Get("/healthz", s.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/spaces", s.ListSpaces)
		r.Get("/spaces/{spaceID}/objects", s.ListObjects)
		r.Get("/session/space", s.SelectedSpace)
		r.Put("/session/space", s.SelectSpace)
		r.Route("/lineage/{objectID}", func(r chi.Router) {
			r.Get("/", s.LineageTree)
			r.Get("/transactional", s.TransactionalTree)
			r.Get("/table", s.LineageTable)
			r.Get("/flow", s.LineageFlow)
		})
	})

	return r
}

// Serve starts the UI server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting UI server", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.Router(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down UI server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
