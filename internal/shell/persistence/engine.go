// Package persistence loads, migrates and saves the network collection and
// writes compose manifests through a blob store.
package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/artpar/lnstack/internal/core/compose"
	"github.com/artpar/lnstack/internal/core/domain"
	"github.com/artpar/lnstack/internal/core/migration"
	"github.com/artpar/lnstack/internal/shell/store"
	json "github.com/goccy/go-json"
)

// File names inside the storage roots.
const (
	CollectionFile = "networks.json"
	ManifestFile   = "docker-compose.yml"
)

// Paths locates the stored collection.
type Paths struct {
	// NetworksRoot holds networks.json and one directory per network.
	NetworksRoot string
	// LegacyRoot is where older releases kept networks.json. Empty disables
	// legacy relocation.
	LegacyRoot string
}

// CollectionPath returns the current collection file path.
func (p Paths) CollectionPath() string {
	return filepath.Join(p.NetworksRoot, CollectionFile)
}

// LegacyCollectionPath returns the legacy collection file path, or "" when
// no legacy root is configured.
func (p Paths) LegacyCollectionPath() string {
	if p.LegacyRoot == "" {
		return ""
	}
	return filepath.Join(p.LegacyRoot, CollectionFile)
}

// LoadState describes where a collection was found.
type LoadState string

const (
	StateAbsent        LoadState = "absent"
	StateLegacyOnly    LoadState = "legacy"
	StateCurrentExists LoadState = "current"
)

// LoadResult is a loaded collection with a description of how it was obtained.
type LoadResult struct {
	Collection migration.Collection
	State      LoadState
	Report     migration.Report
	// Saved is set when the loaded collection was written back.
	Saved bool
}

// =============================================================================
// Engine
// =============================================================================

// Engine reads and writes networks through a blob store.
type Engine struct {
	blobs    store.BlobStore
	paths    Paths
	migrator *migration.Migrator
	compose  compose.Options
	logger   *slog.Logger
}

// NewEngine creates a persistence engine migrating to migration.CurrentVersion.
func NewEngine(blobs store.BlobStore, paths Paths, opts compose.Options, logger *slog.Logger) (*Engine, error) {
	m, err := migration.New(migration.CurrentVersion, paths.NetworksRoot)
	if err != nil {
		return nil, err
	}
	return NewEngineWithMigrator(blobs, paths, m, opts, logger), nil
}

// NewEngineWithMigrator creates a persistence engine with a custom migrator.
func NewEngineWithMigrator(blobs store.BlobStore, paths Paths, m *migration.Migrator, opts compose.Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		blobs:    blobs,
		paths:    paths,
		migrator: m,
		compose:  opts,
		logger:   logger,
	}
}

// Paths returns the storage locations.
func (e *Engine) Paths() Paths {
	return e.paths
}

// Load reads the collection, relocating it from the legacy root if needed and
// upgrading it to the current version. Relocated or upgraded collections are
// written back to the current location. When nothing is stored an empty
// collection is returned and nothing is written.
func (e *Engine) Load(ctx context.Context) (LoadResult, error) {
	current := e.paths.CollectionPath()

	state, source, err := e.locate(ctx)
	if err != nil {
		return LoadResult{}, err
	}
	if state == StateAbsent {
		e.logger.Debug("no stored networks found", "path", current)
		return LoadResult{Collection: migration.NewCollection(), State: StateAbsent}, nil
	}

	raw, err := e.blobs.Read(ctx, source)
	if err != nil {
		return LoadResult{}, newError("Load", source, err)
	}
	var stored migration.Collection
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return LoadResult{}, &PersistenceError{Op: "Load", Path: source, Message: err.Error(), Err: ErrCorruptCollection}
	}

	migrated, report, err := e.migrator.Migrate(stored)
	if err != nil {
		return LoadResult{}, &PersistenceError{Op: "Load", Path: source, Message: err.Error(), Err: fmt.Errorf("%w: %w", ErrMigration, err)}
	}
	if report.Newer {
		e.logger.Warn("stored networks were written by a newer version; loading without changes",
			"stored_version", report.From, "app_version", e.migrator.Current())
	}

	result := LoadResult{Collection: migrated, State: state, Report: report}
	if state == StateLegacyOnly || report.Upgraded {
		if err := e.SaveNetworks(ctx, migrated); err != nil {
			return LoadResult{}, err
		}
		result.Saved = true
	}

	e.logger.Info("loaded networks",
		"state", string(state),
		"networks", len(migrated.Networks),
		"from_version", report.From,
		"to_version", report.To,
		"applied", report.Applied,
	)
	return result, nil
}

func (e *Engine) locate(ctx context.Context) (LoadState, string, error) {
	current := e.paths.CollectionPath()
	ok, err := e.blobs.Exists(ctx, current)
	if err != nil {
		return "", "", newError("Load", current, err)
	}
	if ok {
		return StateCurrentExists, current, nil
	}

	legacy := e.paths.LegacyCollectionPath()
	if legacy == "" || legacy == current {
		return StateAbsent, "", nil
	}
	ok, err = e.blobs.Exists(ctx, legacy)
	if err != nil {
		return "", "", newError("Load", legacy, err)
	}
	if ok {
		e.logger.Info("relocating networks from legacy location", "from", legacy, "to", current)
		return StateLegacyOnly, legacy, nil
	}
	return StateAbsent, "", nil
}

// SaveNetworks writes the whole collection to the current location.
func (e *Engine) SaveNetworks(ctx context.Context, c migration.Collection) error {
	path := e.paths.CollectionPath()
	if c.Networks == nil {
		c.Networks = []domain.Network{}
	}
	if c.Charts == nil {
		c.Charts = map[int]domain.Chart{}
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return newError("SaveNetworks", path, err)
	}
	if err := e.blobs.Write(ctx, path, string(data)); err != nil {
		return newError("SaveNetworks", path, err)
	}
	e.logger.Debug("saved networks", "path", path, "networks", len(c.Networks))
	return nil
}

// SaveManifest regenerates the network's compose manifest and writes it to
// the network directory.
func (e *Engine) SaveManifest(ctx context.Context, n domain.Network) error {
	path := filepath.Join(n.Path, ManifestFile)
	text, err := compose.Generate(n, e.compose)
	if err != nil {
		return newError("SaveManifest", path, err)
	}
	if err := e.blobs.Write(ctx, path, text); err != nil {
		return newError("SaveManifest", path, err)
	}
	e.logger.Debug("saved compose manifest", "network_id", n.ID, "path", path)
	return nil
}

// ReadManifest returns the stored compose manifest for a network.
func (e *Engine) ReadManifest(ctx context.Context, n domain.Network) (string, error) {
	path := filepath.Join(n.Path, ManifestFile)
	text, err := e.blobs.Read(ctx, path)
	if err != nil {
		return "", newError("ReadManifest", path, err)
	}
	return text, nil
}

// Save writes the network's manifest and then the whole collection.
func (e *Engine) Save(ctx context.Context, c migration.Collection, n domain.Network) error {
	if err := e.SaveManifest(ctx, n); err != nil {
		return err
	}
	return e.SaveNetworks(ctx, c)
}

// Manifest renders the network's compose manifest without writing it.
func (e *Engine) Manifest(n domain.Network) (string, error) {
	return compose.Generate(n, e.compose)
}
