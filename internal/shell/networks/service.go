// Package networks coordinates persistence and lifecycle commands for the
// stored network collection. It is the layer the CLI and HTTP API call.
package networks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/artpar/lnstack/internal/core/domain"
	"github.com/artpar/lnstack/internal/core/migration"
	"github.com/artpar/lnstack/internal/shell/persistence"
)

// =============================================================================
// Collaborators
// =============================================================================

// Store loads and saves the network collection.
type Store interface {
	Load(ctx context.Context) (persistence.LoadResult, error)
	Save(ctx context.Context, c migration.Collection, n domain.Network) error
	SaveNetworks(ctx context.Context, c migration.Collection) error
	Manifest(n domain.Network) (string, error)
	Paths() persistence.Paths
}

// Lifecycle runs compose commands for a network.
type Lifecycle interface {
	Start(ctx context.Context, n domain.Network) error
	Stop(ctx context.Context, n domain.Network) error
	StartNode(ctx context.Context, n domain.Network, node domain.CommonNode) error
	StopNode(ctx context.Context, n domain.Network, node domain.CommonNode) error
	RemoveNode(ctx context.Context, n domain.Network, node domain.CommonNode) error
}

// =============================================================================
// Service
// =============================================================================

// Service owns the in-memory collection. All methods are serialized, so two
// lifecycle commands never run against the same network at once.
type Service struct {
	mu        sync.Mutex
	store     Store
	lifecycle Lifecycle
	logger    *slog.Logger

	loaded     bool
	collection migration.Collection
}

// NewService creates a network service. The collection is loaded on first use.
func NewService(store Store, lifecycle Lifecycle, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, lifecycle: lifecycle, logger: logger}
}

func (s *Service) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	res, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	s.collection = res.Collection
	s.loaded = true
	return nil
}

func (s *Service) network(ctx context.Context, id int) (domain.Network, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return domain.Network{}, err
	}
	n, ok := s.collection.Network(id)
	if !ok {
		return domain.Network{}, fmt.Errorf("%w: %d", domain.ErrNetworkNotFound, id)
	}
	return n, nil
}

func (s *Service) node(ctx context.Context, id int, name string) (domain.Network, domain.CommonNode, error) {
	n, err := s.network(ctx, id)
	if err != nil {
		return domain.Network{}, domain.CommonNode{}, err
	}
	node, ok := n.FindNode(name)
	if !ok {
		return domain.Network{}, domain.CommonNode{}, fmt.Errorf("%w: %s in network %d", domain.ErrNodeNotFound, name, id)
	}
	return n, node, nil
}

// update replaces a network in the cached collection and persists it.
func (s *Service) update(ctx context.Context, n domain.Network, chart domain.Chart) error {
	next := s.collection.WithNetwork(n, chart)
	if err := s.store.SaveNetworks(ctx, next); err != nil {
		return err
	}
	s.collection = next
	return nil
}

func (s *Service) chart(n domain.Network) domain.Chart {
	if c, ok := s.collection.Charts[n.ID]; ok {
		return c
	}
	return domain.NewChart(n)
}

// =============================================================================
// Queries
// =============================================================================

// List returns every stored network.
func (s *Service) List(ctx context.Context) ([]domain.Network, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	out := make([]domain.Network, 0, len(s.collection.Networks))
	for _, n := range s.collection.Networks {
		out = append(out, n.Clone())
	}
	return out, nil
}

// Get returns one network.
func (s *Service) Get(ctx context.Context, id int) (domain.Network, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.network(ctx, id)
	if err != nil {
		return domain.Network{}, err
	}
	return n.Clone(), nil
}

// Chart returns the chart of one network.
func (s *Service) Chart(ctx context.Context, id int) (domain.Chart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.network(ctx, id)
	if err != nil {
		return domain.Chart{}, err
	}
	return s.chart(n).Clone(), nil
}

// Manifest renders a network's compose manifest.
func (s *Service) Manifest(ctx context.Context, id int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.network(ctx, id)
	if err != nil {
		return "", err
	}
	return s.store.Manifest(n)
}

// =============================================================================
// Commands
// =============================================================================

// Create builds a new network, writes its manifest and saves the collection.
func (s *Service) Create(ctx context.Context, name string, spec domain.NetworkSpec) (domain.Network, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return domain.Network{}, err
	}

	id := s.collection.NextID()
	n, err := domain.NewNetwork(id, name, s.store.Paths().NetworksRoot, spec)
	if err != nil {
		return domain.Network{}, err
	}
	chart := domain.NewChart(n)
	next := s.collection.WithNetwork(n, chart)
	if err := s.store.Save(ctx, next, n); err != nil {
		return domain.Network{}, err
	}
	s.collection = next

	s.logger.Info("network created", "network_id", n.ID, "name", n.Name, "nodes", len(n.AllNodes()))
	return n.Clone(), nil
}

// Start writes the current manifest and starts every node.
func (s *Service) Start(ctx context.Context, id int) (domain.Network, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.network(ctx, id)
	if err != nil {
		return domain.Network{}, err
	}
	chart := s.chart(n)

	open, err := n.WithOpenPorts(s.collection.ActivePorts(n.ID))
	if err != nil {
		return domain.Network{}, err
	}
	starting := open.WithStatus(domain.StatusStarting)
	next := s.collection.WithNetwork(starting, chart)
	if err := s.store.Save(ctx, next, starting); err != nil {
		return domain.Network{}, err
	}
	s.collection = next

	return s.finish(ctx, starting, chart, s.lifecycle.Start(ctx, starting), domain.StatusStarted)
}

// Stop stops every node.
func (s *Service) Stop(ctx context.Context, id int) (domain.Network, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.network(ctx, id)
	if err != nil {
		return domain.Network{}, err
	}
	chart := s.chart(n)

	stopping := n.WithStatus(domain.StatusStopping)
	if err := s.update(ctx, stopping, chart); err != nil {
		return domain.Network{}, err
	}

	return s.finish(ctx, stopping, chart, s.lifecycle.Stop(ctx, stopping), domain.StatusStopped)
}

// finish records the outcome of a whole-network command.
func (s *Service) finish(ctx context.Context, n domain.Network, chart domain.Chart, cmdErr error, success domain.Status) (domain.Network, error) {
	status := success
	if cmdErr != nil {
		status = domain.StatusError
	}
	out := n.WithStatus(status)
	if err := s.update(ctx, out, chart); err != nil {
		if cmdErr != nil {
			return domain.Network{}, cmdErr
		}
		return domain.Network{}, err
	}
	if cmdErr != nil {
		return out.Clone(), cmdErr
	}
	return out.Clone(), nil
}

// StartNode starts a single node.
func (s *Service) StartNode(ctx context.Context, id int, name string) (domain.Network, error) {
	return s.nodeCommand(ctx, id, name, s.lifecycle.StartNode, domain.StatusStarted)
}

// StopNode stops a single node.
func (s *Service) StopNode(ctx context.Context, id int, name string) (domain.Network, error) {
	return s.nodeCommand(ctx, id, name, s.lifecycle.StopNode, domain.StatusStopped)
}

func (s *Service) nodeCommand(
	ctx context.Context,
	id int,
	name string,
	run func(context.Context, domain.Network, domain.CommonNode) error,
	success domain.Status,
) (domain.Network, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, node, err := s.node(ctx, id, name)
	if err != nil {
		return domain.Network{}, err
	}

	status := success
	cmdErr := run(ctx, n, node)
	if cmdErr != nil {
		status = domain.StatusError
	}
	out := n.WithNodeStatus(name, status)
	if err := s.update(ctx, out, s.chart(n)); err != nil && cmdErr == nil {
		return domain.Network{}, err
	}
	if cmdErr != nil {
		return out.Clone(), cmdErr
	}
	return out.Clone(), nil
}

// RemoveNode stops and removes a node's container, then drops the node from
// the network and chart, rewrites the manifest and saves the collection.
func (s *Service) RemoveNode(ctx context.Context, id int, name string) (domain.Network, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, node, err := s.node(ctx, id, name)
	if err != nil {
		return domain.Network{}, err
	}
	if err := n.CheckRemovable(name); err != nil {
		return domain.Network{}, err
	}

	if err := s.lifecycle.RemoveNode(ctx, n, node); err != nil {
		return domain.Network{}, err
	}

	out := n.WithoutNode(name)
	chart := s.chart(n).WithoutNode(name)
	next := s.collection.WithNetwork(out, chart)
	if err := s.store.Save(ctx, next, out); err != nil {
		return domain.Network{}, err
	}
	s.collection = next

	s.logger.Info("node removed from network", "network_id", id, "node", name)
	return out.Clone(), nil
}
