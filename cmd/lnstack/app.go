package main

import (
	"context"
	"log/slog"

	"github.com/artpar/lnstack/internal/core/compose"
	"github.com/artpar/lnstack/internal/shell/docker"
	"github.com/artpar/lnstack/internal/shell/lifecycle"
	"github.com/artpar/lnstack/internal/shell/networks"
	"github.com/artpar/lnstack/internal/shell/persistence"
	"github.com/artpar/lnstack/internal/shell/platform"
	"github.com/artpar/lnstack/internal/shell/store"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess         = 0
	ExitConfigError     = 1
	ExitStoreError      = 2
	ExitDockerError     = 3
	ExitHTTPServerError = 4
	ExitCommandError    = 5
)

// AppError carries the process exit code for a failure.
type AppError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *AppError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// =============================================================================
// Application Wiring
// =============================================================================

// App holds the wired services used by every command.
type App struct {
	cfg       *Config
	logger    *slog.Logger
	docker    *docker.DockerClient
	executor  *lifecycle.Executor
	persist   *persistence.Engine
	networks  *networks.Service
	closeBlob func() error
}

// NewApp opens the blob store and the Docker client and wires the services.
func NewApp(cfg *Config, logger *slog.Logger) (*App, error) {
	blobs, closeBlob, err := store.Open(cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, &AppError{Op: "NewApp", Err: err, ExitCode: ExitStoreError}
	}

	dc, err := docker.NewDockerClient(cfg.Docker.Host)
	if err != nil {
		closeBlob()
		return nil, &AppError{Op: "NewApp", Err: err, ExitCode: ExitDockerError}
	}

	opts := compose.Options{Prefix: cfg.App.Prefix, ImageRepo: cfg.App.ImageRepo}
	persist, err := persistence.NewEngine(blobs, persistence.Paths{
		NetworksRoot: cfg.Data.NetworksRoot(),
		LegacyRoot:   cfg.Data.LegacyNetworksRoot(),
	}, opts, logger)
	if err != nil {
		closeBlob()
		dc.Close()
		return nil, &AppError{Op: "NewApp", Err: err, ExitCode: ExitConfigError}
	}

	cli := docker.NewComposeCLI(cfg.Compose.Binary, docker.ExecRunner{}, logger)
	executor := lifecycle.NewExecutor(dc, cli, platform.NewHostBuilder(), store.NewFileStore(), logger)

	return &App{
		cfg:       cfg,
		logger:    logger,
		docker:    dc,
		executor:  executor,
		persist:   persist,
		networks:  networks.NewService(persist, executor, logger),
		closeBlob: closeBlob,
	}, nil
}

// commandContext bounds a compose command by the configured timeout.
func (a *App) commandContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.Compose.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.cfg.Compose.Timeout)
}

// Close releases the Docker client and the blob store.
func (a *App) Close() {
	if err := a.docker.Close(); err != nil {
		a.logger.Error("Docker client close error", "error", err)
	}
	if err := a.closeBlob(); err != nil {
		a.logger.Error("store close error", "error", err)
	}
}
