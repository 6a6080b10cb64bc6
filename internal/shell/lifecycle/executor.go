// Package lifecycle runs network lifecycle commands through the compose CLI
// and answers version and image queries against the container engine.
package lifecycle

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/artpar/lnstack/internal/core/domain"
	"github.com/artpar/lnstack/internal/shell/docker"
	"github.com/artpar/lnstack/internal/shell/store"
)

// =============================================================================
// Collaborators
// =============================================================================

// Engine is the container engine query surface.
type Engine interface {
	Version(ctx context.Context) (docker.EngineVersion, error)
	ListImages(ctx context.Context) ([]docker.ImageSummary, error)
}

// Compose runs compose verbs in a manifest directory.
type Compose interface {
	Version(ctx context.Context, opts docker.ComposeOptions) (string, error)
	UpAll(ctx context.Context, opts docker.ComposeOptions) (docker.ComposeResult, error)
	Down(ctx context.Context, opts docker.ComposeOptions) (docker.ComposeResult, error)
	UpOne(ctx context.Context, service string, opts docker.ComposeOptions) (docker.ComposeResult, error)
	StopOne(ctx context.Context, service string, opts docker.ComposeOptions) (docker.ComposeResult, error)
	Rm(ctx context.Context, opts docker.ComposeOptions, services ...string) (docker.ComposeResult, error)
}

// EnvBuilder produces the environment compose commands run with.
type EnvBuilder interface {
	Build() map[string]string
}

// =============================================================================
// Executor
// =============================================================================

// Executor runs lifecycle commands for networks. Callers serialize calls
// against the same network.
type Executor struct {
	engine  Engine
	compose Compose
	env     EnvBuilder
	dirs    store.DirEnsurer
	logger  *slog.Logger
}

// NewExecutor creates a lifecycle executor.
func NewExecutor(engine Engine, compose Compose, env EnvBuilder, dirs store.DirEnsurer, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		engine:  engine,
		compose: compose,
		env:     env,
		dirs:    dirs,
		logger:  logger,
	}
}

// Start creates every node's volume directory and brings all services up.
func (e *Executor) Start(ctx context.Context, n domain.Network) error {
	for _, node := range n.AllNodes() {
		dir := filepath.Join(n.Path, filepath.FromSlash(domain.VolumePath(node.Implementation, node.Name)))
		if err := e.dirs.EnsureDir(ctx, dir); err != nil {
			return e.fail("start", n.ID, "", err)
		}
	}

	opts := docker.ComposeOptions{Cwd: n.Path, Env: e.env.Build()}
	if _, err := e.compose.UpAll(ctx, opts); err != nil {
		return e.fail("start", n.ID, "", err)
	}
	e.logger.Info("network started", "network_id", n.ID, "path", n.Path)
	return nil
}

// Stop brings every service down.
func (e *Executor) Stop(ctx context.Context, n domain.Network) error {
	opts := docker.ComposeOptions{Cwd: n.Path, Env: e.env.Build()}
	if _, err := e.compose.Down(ctx, opts); err != nil {
		return e.fail("stop", n.ID, "", err)
	}
	e.logger.Info("network stopped", "network_id", n.ID)
	return nil
}

// StartNode brings a single node's service up.
func (e *Executor) StartNode(ctx context.Context, n domain.Network, node domain.CommonNode) error {
	if _, err := e.compose.UpOne(ctx, node.Name, docker.ComposeOptions{Cwd: n.Path}); err != nil {
		return e.fail("startNode", n.ID, node.Name, err)
	}
	e.logger.Info("node started", "network_id", n.ID, "node", node.Name)
	return nil
}

// StopNode stops a single node's service.
func (e *Executor) StopNode(ctx context.Context, n domain.Network, node domain.CommonNode) error {
	if _, err := e.compose.StopOne(ctx, node.Name, docker.ComposeOptions{Cwd: n.Path}); err != nil {
		return e.fail("stopNode", n.ID, node.Name, err)
	}
	e.logger.Info("node stopped", "network_id", n.ID, "node", node.Name)
	return nil
}

// RemoveNode stops a node's service and then removes its container.
func (e *Executor) RemoveNode(ctx context.Context, n domain.Network, node domain.CommonNode) error {
	opts := docker.ComposeOptions{Cwd: n.Path}
	if _, err := e.compose.StopOne(ctx, node.Name, opts); err != nil {
		return e.fail("removeNode", n.ID, node.Name, err)
	}
	if _, err := e.compose.Rm(ctx, opts, node.Name); err != nil {
		return e.fail("removeNode", n.ID, node.Name, err)
	}
	e.logger.Info("node removed", "network_id", n.ID, "node", node.Name)
	return nil
}

func (e *Executor) fail(op string, networkID int, node string, err error) error {
	cerr := NormalizeError(op, networkID, node, err).(*CommandError)
	e.logger.Error("lifecycle command failed", "op", op, "network_id", networkID, "node", node, "error", cerr.Message)
	return cerr
}
