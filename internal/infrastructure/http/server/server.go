package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"3tcapital/ms_ewaybill_core/internal/infrastructure/config"
	"3tcapital/ms_ewaybill_core/internal/infrastructure/http/middleware"
)

// EwaybillHandler serves the e-way bill resource.
type EwaybillHandler interface {
	Get(w http.ResponseWriter, r *http.Request)
	Content(w http.ResponseWriter, r *http.Request)
	Generate(w http.ResponseWriter, r *http.Request)
	ProviderCalls(w http.ResponseWriter, r *http.Request)
}

// Server wraps the HTTP listener and its router.
type Server struct {
	log        *slog.Logger
	cfg        config.HTTPSettings
	httpServer *http.Server
	auth       *middleware.JWTAuthenticator
}

// Options configures New. Authenticator is optional; without it every route is public.
type Options struct {
	Config          config.AppConfig
	Logger          *slog.Logger
	HealthHandler   http.Handler
	EwaybillHandler EwaybillHandler
	Authenticator   *middleware.JWTAuthenticator
}

// New builds the router and the underlying http.Server.
func New(opts Options) (*Server, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.HealthHandler == nil {
		return nil, errors.New("health handler is required")
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(opts.Logger))
	r.Use(chimw.Recoverer)
	if opts.Authenticator != nil {
		r.Use(opts.Authenticator.Middleware)
	}

	r.Method(http.MethodGet, "/health", opts.HealthHandler)

	if opts.EwaybillHandler != nil {
		h := opts.EwaybillHandler
		timeout := middleware.RequestTimeout(opts.Config.HTTP.RequestTimeout)
		r.Route("/api/v1/ewaybills", func(r chi.Router) {
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.Get)
				r.Get("/content", h.Content)
				r.Get("/provider-calls", h.ProviderCalls)
				r.With(timeout).Post("/generate", h.Generate)
			})
		})
	}

	srv := &http.Server{
		Addr:         opts.Config.HTTP.Address(),
		Handler:      r,
		ReadTimeout:  opts.Config.HTTP.ReadTimeout,
		WriteTimeout: opts.Config.HTTP.WriteTimeout,
		IdleTimeout:  opts.Config.HTTP.IdleTimeout,
	}

	return &Server{
		log:        opts.Logger,
		cfg:        opts.Config.HTTP,
		httpServer: srv,
		auth:       opts.Authenticator,
	}, nil
}

// Run serves until ctx is cancelled, then drains in-flight requests for up
// to the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server started", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx := context.Background()
		if s.cfg.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(shutdownCtx, s.cfg.ShutdownTimeout)
			defer cancel()
		}
		s.log.Info("HTTP server shutting down")
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// Close releases resources held by middleware.
func (s *Server) Close() {
	if s.auth != nil {
		s.auth.Close()
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
