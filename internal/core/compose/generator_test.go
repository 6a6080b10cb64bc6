package compose

import (
	"strings"
	"testing"

	"github.com/artpar/lnstack/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Test Fixtures
// =============================================================================

func testNetwork(t *testing.T, spec domain.NetworkSpec) domain.Network {
	t.Helper()
	n, err := domain.NewNetwork(1, "my network", "/tmp/networks", spec)
	require.NoError(t, err)
	return n
}

func decode(t *testing.T, text string) Manifest {
	t.Helper()
	var m Manifest
	require.NoError(t, yaml.Unmarshal([]byte(text), &m))
	return m
}

// =============================================================================
// Generate Tests
// =============================================================================

func TestGenerate_TextAnchors(t *testing.T) {
	n := testNetwork(t, domain.NetworkSpec{Bitcoind: 1, LND: 1})

	out, err := Generate(n, DefaultOptions())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "version:"), "manifest must start with version")
	assert.Contains(t, out, "services:")
	assert.Contains(t, out, "container_name: polar-n1-backend1")
	assert.Contains(t, out, "container_name: polar-n1-alice")
}

func TestGenerate_Deterministic(t *testing.T) {
	n := testNetwork(t, domain.NetworkSpec{Bitcoind: 2, LND: 2, CLightning: 2})

	first, err := Generate(n, DefaultOptions())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Generate(n, DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestGenerate_BitcoindService(t *testing.T) {
	n := testNetwork(t, domain.NetworkSpec{Bitcoind: 2})

	out, err := Generate(n, DefaultOptions())
	require.NoError(t, err)
	m := decode(t, out)

	require.Len(t, m.Services, 2)
	svc := m.Services["backend1"]
	assert.Equal(t, "polarlightning/bitcoind:"+domain.DefaultBitcoindVersion, svc.Image)
	assert.Equal(t, "polar-n1-backend1", svc.ContainerName)
	assert.Equal(t, []string{"./volumes/bitcoind/backend1:/home/bitcoin/.bitcoin"}, svc.Volumes)
	assert.Contains(t, svc.Ports, "18443:18443")
	assert.Contains(t, svc.Ports, "19444:18444")
	assert.Contains(t, svc.Command, "-addnode=backend2:18444")
	assert.Empty(t, svc.DependsOn)

	second := m.Services["backend2"]
	assert.Contains(t, second.Ports, "18444:18443")
	assert.Contains(t, second.Command, "-addnode=backend1:18444")
}

func TestGenerate_LNDDependsOnBackend(t *testing.T) {
	n := testNetwork(t, domain.NetworkSpec{Bitcoind: 1, LND: 1})

	out, err := Generate(n, DefaultOptions())
	require.NoError(t, err)
	m := decode(t, out)

	svc := m.Services["alice"]
	assert.Equal(t, "polarlightning/lnd:"+domain.DefaultLNDVersion, svc.Image)
	assert.Equal(t, []string{"backend1"}, svc.DependsOn)
	assert.Equal(t, "${USERID:-1000}", svc.Environment["USERID"])
	assert.Equal(t, "${GROUPID:-1000}", svc.Environment["GROUPID"])
	assert.Contains(t, svc.Command, "--bitcoind.rpchost=backend1")
	assert.Contains(t, svc.Command, "--tlsextradomain=polar-n1-alice")
	assert.Equal(t, []string{"8081:8080", "10001:10009", "9735:9735"}, svc.Ports)
}

func TestGenerate_CLightningService(t *testing.T) {
	n := testNetwork(t, domain.NetworkSpec{Bitcoind: 1, CLightning: 1})

	out, err := Generate(n, DefaultOptions())
	require.NoError(t, err)
	m := decode(t, out)

	svc := m.Services["alice"]
	assert.Equal(t, "polarlightning/clightning:"+domain.DefaultCLightningVersion, svc.Image)
	assert.Equal(t, []string{"backend1"}, svc.DependsOn)
	assert.Equal(t, []string{
		"./volumes/c-lightning/alice/lightningd:/home/clightning/.lightning",
		"./volumes/c-lightning/alice/rest-api:/opt/c-lightning-rest/certs",
	}, svc.Volumes)
}

func TestGenerate_ExplicitBackend(t *testing.T) {
	n := testNetwork(t, domain.NetworkSpec{Bitcoind: 2, LND: 1})
	n.Nodes.Lightning[0].BackendName = "backend2"

	out, err := Generate(n, DefaultOptions())
	require.NoError(t, err)
	m := decode(t, out)

	assert.Equal(t, []string{"backend2"}, m.Services["alice"].DependsOn)
}

func TestGenerate_UnknownBackendFallsBackToFirstChainNode(t *testing.T) {
	n := testNetwork(t, domain.NetworkSpec{Bitcoind: 2, LND: 1})
	n.Nodes.Lightning[0].BackendName = "invalid"

	out, err := Generate(n, DefaultOptions())
	require.NoError(t, err)
	m := decode(t, out)

	assert.Equal(t, []string{"backend1"}, m.Services["alice"].DependsOn)
	assert.Contains(t, m.Services["alice"].Command, "--bitcoind.rpchost=backend1")
}

func TestGenerate_BackendNamingChannelNodeFallsBack(t *testing.T) {
	n := testNetwork(t, domain.NetworkSpec{Bitcoind: 1, LND: 2})
	n.Nodes.Lightning[1].BackendName = "alice"

	out, err := Generate(n, DefaultOptions())
	require.NoError(t, err)
	m := decode(t, out)

	assert.Equal(t, []string{"backend1"}, m.Services["bob"].DependsOn)
}

func TestGenerate_UnsupportedImplementationSkipped(t *testing.T) {
	n := testNetwork(t, domain.NetworkSpec{Bitcoind: 1, LND: 1, Eclair: 1})
	require.Equal(t, domain.ImplEclair, n.Nodes.Lightning[1].Implementation)

	out, err := Generate(n, DefaultOptions())
	require.NoError(t, err)
	m := decode(t, out)

	assert.Len(t, m.Services, 2)
	assert.Contains(t, m.Services, "backend1")
	assert.Contains(t, m.Services, "alice")
	assert.NotContains(t, m.Services, "bob")
	assert.NotContains(t, out, "eclair")
}

func TestGenerate_NoChannelNodes(t *testing.T) {
	n := testNetwork(t, domain.NetworkSpec{Bitcoind: 1})

	out, err := Generate(n, DefaultOptions())
	require.NoError(t, err)
	m := decode(t, out)

	assert.Len(t, m.Services, 1)
}

func TestGenerate_NoChainNodes(t *testing.T) {
	n := testNetwork(t, domain.NetworkSpec{Bitcoind: 1, LND: 1})
	n.Nodes.Bitcoin = nil

	out, err := Generate(n, DefaultOptions())
	require.NoError(t, err)
	m := decode(t, out)

	require.Len(t, m.Services, 1)
	assert.Empty(t, m.Services["alice"].DependsOn)
}

func TestGenerate_EmptyNetwork(t *testing.T) {
	out, err := Generate(domain.Network{ID: 7}, DefaultOptions())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "version:"))
	assert.Contains(t, out, "services:")
}

func TestGenerate_CustomOptions(t *testing.T) {
	n := testNetwork(t, domain.NetworkSpec{Bitcoind: 1})

	out, err := Generate(n, Options{Prefix: "sim", ImageRepo: "example"})
	require.NoError(t, err)

	assert.Contains(t, out, "container_name: sim-n1-backend1")
	assert.Contains(t, out, "image: example/bitcoind:")
}

// =============================================================================
// Round Trip Through the Parser
// =============================================================================

func TestGenerate_ParsesAsValidCompose(t *testing.T) {
	n := testNetwork(t, domain.NetworkSpec{Bitcoind: 2, LND: 1, CLightning: 1, Eclair: 1})

	out, err := Generate(n, DefaultOptions())
	require.NoError(t, err)

	parsed, err := ParseManifest(out)
	require.NoError(t, err)
	require.Len(t, parsed.Services, 4)

	bob, ok := parsed.Service("bob")
	require.True(t, ok)
	assert.Equal(t, "polar-n1-bob", bob.ContainerName)
	assert.Equal(t, []string{"backend1"}, bob.DependsOn)
}
