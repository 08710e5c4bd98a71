// Package server runs the gateway over HTTP with health endpoints and
// graceful shutdown.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/gatecache/pkg/health"
)

// Server serves a gateway handler next to the health endpoints.
type Server struct {
	router chi.Router
	opts   *options
}

// New returns a server routing every path outside the health endpoints
// to gw.
func New(gw http.Handler, opts ...Option) *Server {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	if o.health != nil {
		r.Get(LivenessPath, health.LivenessHandler())
		r.Get(ReadinessPath, o.health.ReadinessHandler())
		r.Get(StatsPath, o.health.StatsHandler())
	}
	r.Handle("/*", gw)

	return &Server{router: r, opts: o}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run runs the startup hooks, serves until ctx is done or the process
// receives SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	log := s.opts.logger

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	for _, hook := range s.opts.startupHooks {
		if err := hook(ctx); err != nil {
			return errors.Join(ErrStartup, err)
		}
	}

	srv := &http.Server{
		Addr:              s.opts.address,
		Handler:           s.router,
		ReadTimeout:       defaultReadTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		MaxHeaderBytes:    defaultMaxHeaderBytes,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return s.shutdown(errors.Join(ErrListen, err))
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", slog.String("address", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return s.shutdown(err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.opts.shutdownTimeout)
	defer shutdownCancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, s.runHooks(shutdownCtx)...)

	if len(errs) > 0 {
		log.Error("shutdown completed with errors")
		return errors.Join(errs...)
	}

	log.Info("shutdown completed")
	return nil
}

// shutdown releases hook resources after the server failed to run.
func (s *Server) shutdown(cause error) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.shutdownTimeout)
	defer cancel()
	return errors.Join(append([]error{cause}, s.runHooks(ctx)...)...)
}

func (s *Server) runHooks(ctx context.Context) []error {
	var errs []error
	for _, hook := range s.opts.shutdownHooks {
		if err := hook(ctx); err != nil {
			errs = append(errs, err)
			s.opts.logger.Error("shutdown hook failed", slog.Any("error", err))
		}
	}
	return errs
}
