package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"comicadmin/internal/admin"
	"comicadmin/internal/catalog"
	"comicadmin/internal/logging"
	"comicadmin/internal/reconcile"
	"comicadmin/internal/settings"
	"comicadmin/internal/urlcache"
)

// Service is the admin surface the server exposes.
type Service interface {
	Status(ctx context.Context) (admin.StatusReport, error)
	View(ctx context.Context) (reconcile.View, error)
	Entry(ctx context.Context, id string) (reconcile.Entry, error)
	PlanSave(ctx context.Context, sub admin.Submission) (admin.Plan, error)
	SaveData(ctx context.Context, sub admin.Submission) (admin.SaveReport, error)
	ResolveURL(ctx context.Context, id, key string) (urlcache.Result, error)
	CachedURLs(id string) (urlcache.Entry, error)
	UpdateExternalURLCache(ctx context.Context, id, url, key string) (string, error)
	Characters() (catalog.CharacterCatalog, error)
	Settings(userID string) (settings.Settings, error)
	PutSettings(userID string, value settings.Settings) error
}

// maxBodyBytes bounds a submitted catalog.
const maxBodyBytes = 32 << 20

// Server is the admin HTTP server.
type Server struct {
	bind   string
	svc    Service
	logger *slog.Logger
	router chi.Router

	listener net.Listener
	server   *http.Server
}

// NewServer builds the router for svc. bind is only used by Start.
func NewServer(bind string, svc Service, logger *slog.Logger) *Server {
	s := &Server{
		bind:   strings.TrimSpace(bind),
		svc:    svc,
		logger: logging.NewComponentLogger(logger, "api-server"),
	}

	r := chi.NewRouter()
	r.Use(requestContext)
	r.Use(accessLog(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.CleanPath)

	r.Route("/api", func(api chi.Router) {
		api.Get("/status", s.handleStatus)
		api.Route("/comics", func(c chi.Router) {
			c.Get("/", s.handleListComics)
			c.Put("/", s.handleSave)
			c.Post("/diff", s.handleDiff)
			c.Get("/{id}", s.handleGetComic)
			c.Post("/{id}/resolve", s.handleResolve)
		})
		api.Get("/url-cache/{id}", s.handleGetURLCache)
		api.Post("/url-cache", s.handleUpdateURLCache)
		api.Get("/characters", s.handleCharacters)
		api.Get("/settings/{user}", s.handleGetSettings)
		api.Put("/settings/{user}", s.handlePutSettings)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	s.router = r
	s.server = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the bind address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("api bind address is empty")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the listening address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}
