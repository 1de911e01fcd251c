// Package server provides the HTTP dashboard for Mudra.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/server/api"
	"github.com/ayusman/mudra/internal/store"
)

// DefaultBroadcastInterval is how often /ws/status pushes a snapshot.
const DefaultBroadcastInterval = 200 * time.Millisecond

// Plugins resolves and lists plugins.
type Plugins interface {
	api.PluginResolver
	api.PluginLister
}

// Config holds the server configuration. Every collaborator is optional;
// routes whose collaborator is missing are not mounted.
type Config struct {
	Controller api.Controller
	Frames     FrameSource
	Store      *store.Store
	Plugins    Plugins
	Dispatches api.DispatchLog

	StaticDir         string
	BroadcastInterval time.Duration
	Logger            *zap.Logger
}

// Server is the HTTP server for the dashboard and its API.
type Server struct {
	config Config
	router *chi.Mux
	hub    *Hub
	logger *zap.Logger
	start  time.Time
}

// New creates a Server with its routes mounted.
func New(config Config) *Server {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.BroadcastInterval <= 0 {
		config.BroadcastInterval = DefaultBroadcastInterval
	}

	s := &Server{
		config: config,
		router: chi.NewRouter(),
		logger: config.Logger,
		start:  time.Now(),
	}
	if config.Controller != nil {
		s.hub = NewHub(config.Controller, config.BroadcastInterval, config.Logger)
	}

	s.router.Use(chiMiddleware.RequestID)
	s.router.Use(chiMiddleware.Recoverer)
	s.router.Use(requestLogger(s.logger))
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router
	r.Get("/api/health", s.handleHealth)

	if s.config.Controller != nil {
		var lister api.PluginLister
		if s.config.Plugins != nil {
			lister = s.config.Plugins
		}
		control := api.NewControlHandler(s.config.Controller, lister)
		r.Get("/api/status", control.Status)
		r.Post("/api/enable", control.Enable)
		r.Post("/api/disable", control.Disable)
		r.Post("/api/channels/{channel}/reset", control.ResetChannel)
		r.Get("/api/plugins", control.Plugins)
		r.Get("/ws/status", s.hub.ServeHTTP)
	}

	if st := s.config.Store; st != nil {
		var resolver api.PluginResolver
		if s.config.Plugins != nil {
			resolver = s.config.Plugins
		}
		bindings := api.NewBindingHandler(st.Bindings(), resolver)
		r.Route("/api/bindings", func(r chi.Router) {
			r.Get("/", bindings.List)
			r.Post("/", bindings.Create)
			r.Get("/{id}", bindings.Get)
			r.Put("/{id}", bindings.Update)
			r.Delete("/{id}", bindings.Delete)
		})

		history := api.NewHistoryHandler(st.History(), st.Results())
		r.Get("/api/history", history.Recent)
		r.Get("/api/history/stats", history.Stats)
		r.Get("/api/results", history.Results)
	}

	if s.config.Dispatches != nil {
		r.Get("/api/dispatches", api.Dispatches(s.config.Dispatches))
	}

	if s.config.Frames != nil {
		r.Get("/api/stream", NewStreamHandler(s.config.Frames).ServeHTTP)
	}

	if s.config.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Router returns the chi router.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).Round(time.Second).String(),
	})
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. The status broadcaster runs for the same lifetime.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if s.hub != nil {
		go s.hub.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	s.logger.Info("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}
