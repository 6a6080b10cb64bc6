package lifecycle

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/artpar/lnstack/internal/core/domain"
	"github.com/artpar/lnstack/internal/shell/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

type composeCall struct {
	verb     string
	services []string
	opts     docker.ComposeOptions
}

type fakeCompose struct {
	mu      sync.Mutex
	calls   []composeCall
	version string
	errs    map[string]error
}

func (f *fakeCompose) record(verb string, opts docker.ComposeOptions, services ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, composeCall{verb: verb, services: services, opts: opts})
	return f.errs[verb]
}

func (f *fakeCompose) Version(_ context.Context, opts docker.ComposeOptions) (string, error) {
	if err := f.record("version", opts); err != nil {
		return "", err
	}
	return f.version, nil
}

func (f *fakeCompose) UpAll(_ context.Context, opts docker.ComposeOptions) (docker.ComposeResult, error) {
	return docker.ComposeResult{}, f.record("upAll", opts)
}

func (f *fakeCompose) Down(_ context.Context, opts docker.ComposeOptions) (docker.ComposeResult, error) {
	return docker.ComposeResult{}, f.record("down", opts)
}

func (f *fakeCompose) UpOne(_ context.Context, svc string, opts docker.ComposeOptions) (docker.ComposeResult, error) {
	return docker.ComposeResult{}, f.record("upOne", opts, svc)
}

func (f *fakeCompose) StopOne(_ context.Context, svc string, opts docker.ComposeOptions) (docker.ComposeResult, error) {
	return docker.ComposeResult{}, f.record("stopOne", opts, svc)
}

func (f *fakeCompose) Rm(_ context.Context, opts docker.ComposeOptions, services ...string) (docker.ComposeResult, error) {
	return docker.ComposeResult{}, f.record("rm", opts, services...)
}

type fakeEngine struct {
	version    string
	images     []docker.ImageSummary
	versionErr error
	imagesErr  error
}

func (f *fakeEngine) Version(context.Context) (docker.EngineVersion, error) {
	if f.versionErr != nil {
		return docker.EngineVersion{}, f.versionErr
	}
	return docker.EngineVersion{Version: f.version}, nil
}

func (f *fakeEngine) ListImages(context.Context) ([]docker.ImageSummary, error) {
	if f.imagesErr != nil {
		return nil, f.imagesErr
	}
	return f.images, nil
}

type fixedEnv map[string]string

func (e fixedEnv) Build() map[string]string { return e }

type fakeDirs struct {
	paths []string
	err   error
}

func (d *fakeDirs) EnsureDir(_ context.Context, path string) error {
	d.paths = append(d.paths, path)
	return d.err
}

type fixture struct {
	exec    *Executor
	compose *fakeCompose
	engine  *fakeEngine
	dirs    *fakeDirs
}

func newFixture() *fixture {
	f := &fixture{
		compose: &fakeCompose{errs: map[string]error{}},
		engine:  &fakeEngine{},
		dirs:    &fakeDirs{},
	}
	f.exec = NewExecutor(f.engine, f.compose, fixedEnv{"USERID": "1000", "GROUPID": "1000"}, f.dirs, nil)
	return f
}

func testNetwork(t *testing.T) domain.Network {
	t.Helper()
	n, err := domain.NewNetwork(1, "test", "/data/networks", domain.NetworkSpec{Bitcoind: 1, LND: 1, CLightning: 1})
	require.NoError(t, err)
	return n
}

// =============================================================================
// Start / Stop Tests
// =============================================================================

func TestStart_EnsuresVolumesThenUpAll(t *testing.T) {
	f := newFixture()
	n := testNetwork(t)

	require.NoError(t, f.exec.Start(context.Background(), n))

	assert.Equal(t, []string{
		filepath.Join("/data/networks/1", "volumes", "bitcoind", "backend1"),
		filepath.Join("/data/networks/1", "volumes", "lnd", "alice"),
		filepath.Join("/data/networks/1", "volumes", "c-lightning", "bob"),
	}, f.dirs.paths)

	require.Len(t, f.compose.calls, 1)
	call := f.compose.calls[0]
	assert.Equal(t, "upAll", call.verb)
	assert.Equal(t, n.Path, call.opts.Cwd)
	assert.Equal(t, "1000", call.opts.Env["USERID"])
}

func TestStart_DirFailureSkipsCompose(t *testing.T) {
	f := newFixture()
	f.dirs.err = errors.New("permission denied")

	err := f.exec.Start(context.Background(), testNetwork(t))
	require.Error(t, err)
	assert.Equal(t, "permission denied", err.Error())
	assert.Empty(t, f.compose.calls)
}

func TestStop_UsesDownWithEnv(t *testing.T) {
	f := newFixture()
	n := testNetwork(t)

	require.NoError(t, f.exec.Stop(context.Background(), n))

	require.Len(t, f.compose.calls, 1)
	assert.Equal(t, "down", f.compose.calls[0].verb)
	assert.Equal(t, n.Path, f.compose.calls[0].opts.Cwd)
	assert.NotNil(t, f.compose.calls[0].opts.Env)
}

// =============================================================================
// Node Command Tests
// =============================================================================

func TestStartNode_ScopedToService(t *testing.T) {
	f := newFixture()
	n := testNetwork(t)
	alice, _ := n.FindNode("alice")

	require.NoError(t, f.exec.StartNode(context.Background(), n, alice))

	require.Len(t, f.compose.calls, 1)
	call := f.compose.calls[0]
	assert.Equal(t, "upOne", call.verb)
	assert.Equal(t, []string{"alice"}, call.services)
	assert.Equal(t, n.Path, call.opts.Cwd)
	assert.Nil(t, call.opts.Env)
}

func TestStopNode_ScopedToService(t *testing.T) {
	f := newFixture()
	n := testNetwork(t)
	alice, _ := n.FindNode("alice")

	require.NoError(t, f.exec.StopNode(context.Background(), n, alice))

	require.Len(t, f.compose.calls, 1)
	assert.Equal(t, "stopOne", f.compose.calls[0].verb)
	assert.Equal(t, []string{"alice"}, f.compose.calls[0].services)
}

func TestRemoveNode_StopsBeforeRemoving(t *testing.T) {
	f := newFixture()
	n := testNetwork(t)
	bob, _ := n.FindNode("bob")

	require.NoError(t, f.exec.RemoveNode(context.Background(), n, bob))

	require.Len(t, f.compose.calls, 2)
	assert.Equal(t, "stopOne", f.compose.calls[0].verb)
	assert.Equal(t, "rm", f.compose.calls[1].verb)
	for _, c := range f.compose.calls {
		assert.Equal(t, n.Path, c.opts.Cwd)
		assert.Equal(t, []string{"bob"}, c.services)
	}
}

func TestRemoveNode_StopFailureSkipsRm(t *testing.T) {
	f := newFixture()
	f.compose.errs["stopOne"] = &docker.ComposeError{Op: "stopOne", ExitCode: 1, Err: "no such service"}
	n := testNetwork(t)
	bob, _ := n.FindNode("bob")

	err := f.exec.RemoveNode(context.Background(), n, bob)
	require.Error(t, err)
	assert.Equal(t, "no such service", err.Error())
	assert.Len(t, f.compose.calls, 1)
}

// =============================================================================
// Error Normalization Tests
// =============================================================================

func TestLifecycle_ErrorsNormalized(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"err field", &docker.ComposeError{Op: "x", ExitCode: 1, Err: "X"}, "X"},
		{"errno field", &docker.ExecError{Op: "x", Errno: "Y", Cause: errors.New("Y")}, "Y"},
		{"native message", errors.New("boom"), "boom"},
		{"empty err field falls through", &docker.ComposeError{Op: "upAll", ExitCode: 3}, "upAll: exited with code 3"},
	}

	n := testNetwork(t)
	alice, _ := n.FindNode("alice")
	ops := map[string]func(f *fixture) error{
		"start":      func(f *fixture) error { return f.exec.Start(context.Background(), n) },
		"stop":       func(f *fixture) error { return f.exec.Stop(context.Background(), n) },
		"startNode":  func(f *fixture) error { return f.exec.StartNode(context.Background(), n, alice) },
		"stopNode":   func(f *fixture) error { return f.exec.StopNode(context.Background(), n, alice) },
		"removeNode": func(f *fixture) error { return f.exec.RemoveNode(context.Background(), n, alice) },
	}

	for _, tt := range tests {
		for opName, op := range ops {
			t.Run(tt.name+"/"+opName, func(t *testing.T) {
				f := newFixture()
				for _, verb := range []string{"upAll", "down", "upOne", "stopOne", "rm"} {
					f.compose.errs[verb] = tt.err
				}

				err := op(f)
				require.Error(t, err)
				assert.Equal(t, tt.wantMsg, err.Error())
				assert.ErrorIs(t, err, ErrCommandFailed)

				var cerr *CommandError
				require.True(t, errors.As(err, &cerr))
				assert.Equal(t, opName, cerr.Op)
			})
		}
	}
}
