// Package controller contains the controller-specific logic for the HTTP API.
package controller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/owid/owid-grapher-sub039/internal/controller/handlers"
	"github.com/owid/owid-grapher-sub039/internal/controller/middleware"
)

// Options configures the controller routes.
type Options struct {
	// AdminTokenHash guards the editor endpoints (see auth.HashKey).
	AdminTokenHash string
	// InternalToken guards the scheduler hooks.
	InternalToken string
	// PublishRateLimit is the publish rate per explorer, per second. Zero disables it.
	PublishRateLimit float64
	PublishRateBurst int
	// Metrics is served at /metrics when set.
	Metrics http.Handler
}

// Server is the HTTP server for the controller API.
type Server struct {
	httpServer *http.Server
}

// New creates a new controller server.
func New(addr string, h *handlers.Handlers, opts Options, log *slog.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      Routes(h, opts, log),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
}

// Routes builds the controller's route table.
func Routes(h *handlers.Handlers, opts Options, log *slog.Logger) http.Handler {
	adminMW := middleware.RequireAdminToken(opts.AdminTokenHash)
	internalMW := middleware.RequireInternalAuth(opts.InternalToken)
	publishLimit := middleware.NewRateLimiter(opts.PublishRateLimit, opts.PublishRateBurst).
		Middleware(middleware.PathValue("slug"))

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}

	// Editor apis
	mux.Handle("POST /explorers/{slug}/publish", adminMW(publishLimit(http.HandlerFunc(h.Publish))))
	mux.Handle("POST /explorers/{slug}/commands", adminMW(http.HandlerFunc(h.ListCommands)))
	mux.Handle("POST /explorers/{slug}/commands/{id}", adminMW(http.HandlerFunc(h.RunCommand)))

	// Read apis
	mux.HandleFunc("GET /explorers", h.ListExplorers)
	mux.HandleFunc("GET /explorers/{slug}", h.GetExplorer)
	mux.HandleFunc("GET /explorers/{slug}/views", h.ListViews)
	mux.HandleFunc("GET /explorers/{slug}/views/{viewId}/config", h.GetViewConfig)
	mux.Handle("GET /jobs", adminMW(http.HandlerFunc(h.ListJobs)))
	mux.Handle("GET /jobs/{id}", adminMW(http.HandlerFunc(h.GetJob)))

	// Internal endpoints
	// These are called by a scheduler.
	// these should run on a separate port or strict network rules.
	mux.Handle("POST /internal/jobs/{type}/process", internalMW(http.HandlerFunc(h.InternalProcessJob)))

	return middleware.RequestID(log)(mux)
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.Shutdown(shutDownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
