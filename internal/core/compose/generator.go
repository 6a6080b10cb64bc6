// Package compose generates and parses Docker Compose manifests for networks.
// This is part of the Functional Core - all functions are pure with no I/O.
package compose

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/artpar/lnstack/internal/core/domain"
	"gopkg.in/yaml.v3"
)

// Ports the node daemons listen on inside their containers.
const (
	bitcoindRPCPort      = 18443
	bitcoindP2PPort      = 18444
	bitcoindZMQBlockPort = 28334
	bitcoindZMQTxPort    = 28335
	lightningRESTPort    = 8080
	lndGRPCPort          = 10009
	lightningP2PPort     = 9735
)

// Regtest RPC credentials shared by every chain node and its clients.
const (
	rpcUser = "polaruser"
	rpcPass = "polarpass"
)

// userEnv passes the host user into images that drop root privileges.
// The values are interpolated by compose from the command environment.
var userEnv = map[string]string{
	"USERID":  "${USERID:-1000}",
	"GROUPID": "${GROUPID:-1000}",
}

// =============================================================================
// Manifest Generation
// =============================================================================

// Generate builds the compose manifest for a network and renders it as YAML.
// The same network and options always produce byte-identical output.
// Channel nodes whose implementation has no compose support are skipped.
func Generate(n domain.Network, opts Options) (string, error) {
	m := BuildManifest(n, opts)
	out, err := yaml.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to render manifest for network %d: %w", n.ID, err)
	}
	return string(out), nil
}

// BuildManifest maps a network to its compose manifest structure.
func BuildManifest(n domain.Network, opts Options) Manifest {
	m := Manifest{
		Version:  ManifestVersion,
		Services: make(map[string]Service),
	}

	for _, b := range n.Nodes.Bitcoin {
		m.Services[b.Name] = bitcoindService(n, b, opts)
	}

	for _, ln := range n.Nodes.Lightning {
		if !ln.Implementation.ComposeSupported() {
			continue
		}
		backend, ok := n.ResolveBackend(ln)
		var svc Service
		switch ln.Implementation {
		case domain.ImplLND:
			svc = lndService(n, ln, backend, opts)
		case domain.ImplCLightning:
			svc = clightningService(n, ln, backend, opts)
		default:
			continue
		}
		if ok {
			svc.DependsOn = []string{backend.Name}
		}
		m.Services[ln.Name] = svc
	}

	return m
}

func bitcoindService(n domain.Network, b domain.BitcoinNode, opts Options) Service {
	args := []string{
		"bitcoind",
		"-server=1",
		"-regtest=1",
		"-rpcuser=" + rpcUser,
		"-rpcpassword=" + rpcPass,
		"-debug=1",
		fmt.Sprintf("-zmqpubrawblock=tcp://0.0.0.0:%d", bitcoindZMQBlockPort),
		fmt.Sprintf("-zmqpubrawtx=tcp://0.0.0.0:%d", bitcoindZMQTxPort),
		"-txindex=1",
		"-dnsseed=0",
		"-upnp=0",
		"-rpcbind=0.0.0.0",
		"-rpcallowip=0.0.0.0/0",
		fmt.Sprintf("-rpcport=%d", bitcoindRPCPort),
		"-listen=1",
		"-listenonion=0",
		"-fallbackfee=0.0002",
	}
	for _, peer := range b.Peers {
		args = append(args, fmt.Sprintf("-addnode=%s:%d", peer, bitcoindP2PPort))
	}

	return Service{
		Image:         domain.ImageName(opts.ImageRepo, b.Implementation, b.Version),
		ContainerName: domain.ContainerName(opts.Prefix, n.ID, b.Name),
		Hostname:      b.Name,
		Command:       strings.Join(args, " "),
		Volumes: []string{
			volume(b.Implementation, b.Name, "", "/home/bitcoin/.bitcoin"),
		},
		Expose: exposed(bitcoindRPCPort, bitcoindP2PPort, bitcoindZMQBlockPort, bitcoindZMQTxPort),
		Ports: []string{
			mapping(b.Ports.RPC, bitcoindRPCPort),
			mapping(b.Ports.P2P, bitcoindP2PPort),
			mapping(b.Ports.ZMQBlock, bitcoindZMQBlockPort),
			mapping(b.Ports.ZMQTx, bitcoindZMQTxPort),
		},
	}
}

func lndService(n domain.Network, ln domain.LightningNode, backend domain.BitcoinNode, opts Options) Service {
	container := domain.ContainerName(opts.Prefix, n.ID, ln.Name)
	args := []string{
		"lnd",
		"--noseedbackup",
		"--trickledelay=5000",
		"--alias=" + ln.Name,
		"--externalip=" + ln.Name,
		"--tlsextradomain=" + ln.Name,
		"--tlsextradomain=" + container,
		fmt.Sprintf("--listen=0.0.0.0:%d", lightningP2PPort),
		fmt.Sprintf("--rpclisten=0.0.0.0:%d", lndGRPCPort),
		fmt.Sprintf("--restlisten=0.0.0.0:%d", lightningRESTPort),
		"--bitcoin.active",
		"--bitcoin.regtest",
		"--bitcoin.node=bitcoind",
		"--bitcoind.rpchost=" + backend.Name,
		"--bitcoind.rpcuser=" + rpcUser,
		"--bitcoind.rpcpass=" + rpcPass,
		fmt.Sprintf("--bitcoind.zmqpubrawblock=tcp://%s:%d", backend.Name, bitcoindZMQBlockPort),
		fmt.Sprintf("--bitcoind.zmqpubrawtx=tcp://%s:%d", backend.Name, bitcoindZMQTxPort),
	}

	return Service{
		Image:         domain.ImageName(opts.ImageRepo, ln.Implementation, ln.Version),
		ContainerName: container,
		Environment:   userEnv,
		Hostname:      ln.Name,
		Command:       strings.Join(args, " "),
		Restart:       "always",
		Volumes: []string{
			volume(ln.Implementation, ln.Name, "", "/home/lnd/.lnd"),
		},
		Expose: exposed(lightningRESTPort, lndGRPCPort, lightningP2PPort),
		Ports: []string{
			mapping(ln.Ports.REST, lightningRESTPort),
			mapping(ln.Ports.GRPC, lndGRPCPort),
			mapping(ln.Ports.P2P, lightningP2PPort),
		},
	}
}

func clightningService(n domain.Network, ln domain.LightningNode, backend domain.BitcoinNode, opts Options) Service {
	args := []string{
		"lightningd",
		"--alias=" + ln.Name,
		"--addr=" + ln.Name,
		fmt.Sprintf("--addr=0.0.0.0:%d", lightningP2PPort),
		"--network=regtest",
		"--bitcoin-rpcuser=" + rpcUser,
		"--bitcoin-rpcpassword=" + rpcPass,
		"--bitcoin-rpcconnect=" + backend.Name,
		fmt.Sprintf("--bitcoin-rpcport=%d", bitcoindRPCPort),
		"--log-level=debug",
		"--dev-bitcoind-poll=2",
		"--dev-fast-gossip",
		"--plugin=/opt/c-lightning-rest/plugin.js",
		fmt.Sprintf("--rest-port=%d", lightningRESTPort),
		"--rest-protocol=http",
	}

	return Service{
		Image:         domain.ImageName(opts.ImageRepo, ln.Implementation, ln.Version),
		ContainerName: domain.ContainerName(opts.Prefix, n.ID, ln.Name),
		Environment:   userEnv,
		Hostname:      ln.Name,
		Command:       strings.Join(args, " "),
		Restart:       "always",
		Volumes: []string{
			volume(ln.Implementation, ln.Name, "lightningd", "/home/clightning/.lightning"),
			volume(ln.Implementation, ln.Name, "rest-api", "/opt/c-lightning-rest/certs"),
		},
		Expose: exposed(lightningRESTPort, lightningP2PPort),
		Ports: []string{
			mapping(ln.Ports.REST, lightningRESTPort),
			mapping(ln.Ports.P2P, lightningP2PPort),
		},
	}
}

// volume binds a per-node directory under the network path into a container.
func volume(impl domain.Implementation, name, sub, target string) string {
	src := "./" + domain.VolumePath(impl, name)
	if sub != "" {
		src += "/" + sub
	}
	return src + ":" + target
}

// mapping publishes a container port on a host port. A zero host port lets
// the engine pick one.
func mapping(host, container int) string {
	if host == 0 {
		return strconv.Itoa(container)
	}
	return fmt.Sprintf("%d:%d", host, container)
}

func exposed(ports ...int) []string {
	out := make([]string, len(ports))
	for i, p := range ports {
		out[i] = strconv.Itoa(p)
	}
	return out
}
