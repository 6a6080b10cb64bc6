package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/artpar/lnstack/internal/shell/api"
)

// =============================================================================
// Server
// =============================================================================

// Server serves the HTTP control API.
type Server struct {
	config     *Config
	app        *App
	httpServer *http.Server
}

// NewServer creates a server for the wired application.
func NewServer(cfg *Config, app *App) *Server {
	handler := api.NewHandler(app.networks, app.executor, cfg.Server.Token, app.logger).Routes()
	return &Server{
		config: cfg,
		app:    app,
		httpServer: &http.Server{
			Addr:         cfg.Server.Address(),
			Handler:      handler,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	logger := s.app.logger
	if s.config.Server.Token == "" && s.config.Server.Host != "127.0.0.1" && s.config.Server.Host != "localhost" {
		logger.Warn("serving without an API token on a non-loopback address", "address", s.config.Server.Address())
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "address", s.config.Server.Address())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return &AppError{Op: "Start", Err: err, ExitCode: ExitHTTPServerError}
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	}

	return s.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.app.logger.Info("initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.app.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}
	s.app.logger.Info("shutdown complete")
	return nil
}
