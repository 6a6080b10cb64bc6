package networks

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/artpar/lnstack/internal/core/compose"
	"github.com/artpar/lnstack/internal/core/domain"
	"github.com/artpar/lnstack/internal/core/migration"
	"github.com/artpar/lnstack/internal/shell/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

var testRoot = filepath.Join("data", "networks")

type stubStore struct {
	loads     int
	loadErr   error
	saveErr   error
	initial   migration.Collection
	saved     []migration.Collection
	manifests []domain.Network
}

func (s *stubStore) Load(context.Context) (persistence.LoadResult, error) {
	s.loads++
	if s.loadErr != nil {
		return persistence.LoadResult{}, s.loadErr
	}
	return persistence.LoadResult{Collection: s.initial, State: persistence.StateCurrentExists}, nil
}

func (s *stubStore) Save(ctx context.Context, c migration.Collection, n domain.Network) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.manifests = append(s.manifests, n)
	return s.SaveNetworks(ctx, c)
}

func (s *stubStore) SaveNetworks(_ context.Context, c migration.Collection) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, c)
	return nil
}

func (s *stubStore) Manifest(n domain.Network) (string, error) {
	return compose.Generate(n, compose.DefaultOptions())
}

func (s *stubStore) Paths() persistence.Paths {
	return persistence.Paths{NetworksRoot: testRoot}
}

func (s *stubStore) last() migration.Collection {
	return s.saved[len(s.saved)-1]
}

type stubLifecycle struct {
	calls []string
	err   error
}

func (l *stubLifecycle) Start(_ context.Context, n domain.Network) error {
	l.calls = append(l.calls, "start")
	return l.err
}

func (l *stubLifecycle) Stop(_ context.Context, n domain.Network) error {
	l.calls = append(l.calls, "stop")
	return l.err
}

func (l *stubLifecycle) StartNode(_ context.Context, _ domain.Network, node domain.CommonNode) error {
	l.calls = append(l.calls, "startNode:"+node.Name)
	return l.err
}

func (l *stubLifecycle) StopNode(_ context.Context, _ domain.Network, node domain.CommonNode) error {
	l.calls = append(l.calls, "stopNode:"+node.Name)
	return l.err
}

func (l *stubLifecycle) RemoveNode(_ context.Context, _ domain.Network, node domain.CommonNode) error {
	l.calls = append(l.calls, "removeNode:"+node.Name)
	return l.err
}

func newTestService(t *testing.T) (*Service, *stubStore, *stubLifecycle) {
	t.Helper()
	st := &stubStore{initial: migration.NewCollection()}
	lc := &stubLifecycle{}
	return NewService(st, lc, nil), st, lc
}

func createNetwork(t *testing.T, svc *Service, spec domain.NetworkSpec) domain.Network {
	t.Helper()
	n, err := svc.Create(context.Background(), "test", spec)
	require.NoError(t, err)
	return n
}

// =============================================================================
// Query Tests
// =============================================================================

func TestService_LoadsOnce(t *testing.T) {
	svc, st, _ := newTestService(t)

	_, err := svc.List(context.Background())
	require.NoError(t, err)
	_, err = svc.List(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, st.loads)
}

func TestService_LoadError(t *testing.T) {
	svc, st, _ := newTestService(t)
	st.loadErr = errors.New("corrupt")

	_, err := svc.List(context.Background())
	assert.EqualError(t, err, "corrupt")
}

func TestService_GetUnknown(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Get(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrNetworkNotFound)
}

func TestService_Manifest(t *testing.T) {
	svc, _, _ := newTestService(t)
	n := createNetwork(t, svc, domain.NetworkSpec{Bitcoind: 1, LND: 1})

	text, err := svc.Manifest(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Contains(t, text, "container_name: polar-n1-alice")
}

// =============================================================================
// Create Tests
// =============================================================================

func TestService_Create(t *testing.T) {
	svc, st, _ := newTestService(t)

	first := createNetwork(t, svc, domain.NetworkSpec{Bitcoind: 1, LND: 1})
	second := createNetwork(t, svc, domain.NetworkSpec{Bitcoind: 1})

	assert.Equal(t, 1, first.ID)
	assert.Equal(t, 2, second.ID)
	assert.Equal(t, filepath.Join(testRoot, "2"), second.Path)

	require.Len(t, st.manifests, 2)
	c := st.last()
	assert.Len(t, c.Networks, 2)
	assert.Contains(t, c.Charts, 1)
	assert.Contains(t, c.Charts, 2)

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestService_CreateInvalidSpec(t *testing.T) {
	svc, st, _ := newTestService(t)

	_, err := svc.Create(context.Background(), "bad", domain.NetworkSpec{})
	assert.ErrorIs(t, err, domain.ErrInvalidNetworkSpec)
	assert.Empty(t, st.saved)
}

func TestService_CreateSaveFailureLeavesCacheUnchanged(t *testing.T) {
	svc, st, _ := newTestService(t)
	st.saveErr = errors.New("disk full")

	_, err := svc.Create(context.Background(), "x", domain.NetworkSpec{Bitcoind: 1})
	require.Error(t, err)

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

// =============================================================================
// Lifecycle Tests
// =============================================================================

func TestService_StartAndStop(t *testing.T) {
	svc, st, lc := newTestService(t)
	n := createNetwork(t, svc, domain.NetworkSpec{Bitcoind: 1, LND: 1})

	started, err := svc.Start(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusStarted, started.Status)
	assert.Equal(t, domain.StatusStarted, st.last().Networks[0].Status)

	stopped, err := svc.Stop(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusStopped, stopped.Status)

	assert.Equal(t, []string{"start", "stop"}, lc.calls)
}

func TestService_StartFailureMarksError(t *testing.T) {
	svc, st, lc := newTestService(t)
	n := createNetwork(t, svc, domain.NetworkSpec{Bitcoind: 1})
	lc.err = errors.New("port is already allocated")

	out, err := svc.Start(context.Background(), n.ID)
	require.Error(t, err)
	assert.Equal(t, "port is already allocated", err.Error())
	assert.Equal(t, domain.StatusError, out.Status)
	assert.Equal(t, domain.StatusError, st.last().Networks[0].Status)
}

func TestService_StartMovesPortsHeldByRunningNetwork(t *testing.T) {
	svc, _, _ := newTestService(t)
	first := createNetwork(t, svc, domain.NetworkSpec{Bitcoind: 1, LND: 1})
	second := createNetwork(t, svc, domain.NetworkSpec{Bitcoind: 1, LND: 1})

	_, err := svc.Start(context.Background(), first.ID)
	require.NoError(t, err)
	out, err := svc.Start(context.Background(), second.ID)
	require.NoError(t, err)

	assert.NotEqual(t, domain.BaseRPCPort, out.Nodes.Bitcoin[0].Ports.RPC)
	assert.NotEqual(t, domain.BaseRESTPort, out.Nodes.Lightning[0].Ports.REST)

	stored, err := svc.Get(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, out.Nodes, stored.Nodes)
}

func TestService_StartKeepsPortsOfStoppedNetworks(t *testing.T) {
	svc, _, _ := newTestService(t)
	createNetwork(t, svc, domain.NetworkSpec{Bitcoind: 1})
	second := createNetwork(t, svc, domain.NetworkSpec{Bitcoind: 1})

	out, err := svc.Start(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BaseRPCPort, out.Nodes.Bitcoin[0].Ports.RPC)
}

func TestService_StartUnknownNetwork(t *testing.T) {
	svc, _, lc := newTestService(t)

	_, err := svc.Start(context.Background(), 9)
	assert.ErrorIs(t, err, domain.ErrNetworkNotFound)
	assert.Empty(t, lc.calls)
}

func TestService_NodeCommands(t *testing.T) {
	svc, _, lc := newTestService(t)
	n := createNetwork(t, svc, domain.NetworkSpec{Bitcoind: 1, LND: 2})

	out, err := svc.StartNode(context.Background(), n.ID, "bob")
	require.NoError(t, err)
	bob, _ := out.FindNode("bob")
	assert.Equal(t, domain.StatusStarted, bob.Status)

	out, err = svc.StopNode(context.Background(), n.ID, "bob")
	require.NoError(t, err)
	bob, _ = out.FindNode("bob")
	assert.Equal(t, domain.StatusStopped, bob.Status)

	assert.Equal(t, []string{"startNode:bob", "stopNode:bob"}, lc.calls)
}

func TestService_NodeCommandUnknownNode(t *testing.T) {
	svc, _, lc := newTestService(t)
	n := createNetwork(t, svc, domain.NetworkSpec{Bitcoind: 1})

	_, err := svc.StartNode(context.Background(), n.ID, "carol")
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)
	assert.Empty(t, lc.calls)
}

func TestService_RemoveNode(t *testing.T) {
	svc, st, lc := newTestService(t)
	n := createNetwork(t, svc, domain.NetworkSpec{Bitcoind: 1, LND: 2})

	out, err := svc.RemoveNode(context.Background(), n.ID, "bob")
	require.NoError(t, err)

	_, ok := out.FindNode("bob")
	assert.False(t, ok)
	assert.Equal(t, []string{"removeNode:bob"}, lc.calls)

	saved := st.last()
	assert.NotContains(t, saved.Charts[n.ID].Nodes, "bob")
	for _, l := range saved.Charts[n.ID].Links {
		assert.NotEqual(t, "bob", l.From.NodeID)
	}
	last := st.manifests[len(st.manifests)-1]
	_, ok = last.FindNode("bob")
	assert.False(t, ok, "manifest is regenerated without the node")
}

func TestService_RemoveNodeRefusesBackendInUse(t *testing.T) {
	svc, _, lc := newTestService(t)
	n := createNetwork(t, svc, domain.NetworkSpec{Bitcoind: 1, LND: 1})

	_, err := svc.RemoveNode(context.Background(), n.ID, "backend1")
	assert.ErrorIs(t, err, domain.ErrLastChainNode)
	assert.Empty(t, lc.calls)
}

func TestService_RemoveNodeCommandFailureKeepsNode(t *testing.T) {
	svc, _, lc := newTestService(t)
	n := createNetwork(t, svc, domain.NetworkSpec{Bitcoind: 1, LND: 1})
	lc.err = errors.New("no such service: alice")

	_, err := svc.RemoveNode(context.Background(), n.ID, "alice")
	require.Error(t, err)

	got, err := svc.Get(context.Background(), n.ID)
	require.NoError(t, err)
	_, ok := got.FindNode("alice")
	assert.True(t, ok)
}
