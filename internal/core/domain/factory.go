package domain

import (
	"errors"
	"fmt"
)

// =============================================================================
// Network Creation
// =============================================================================

var ErrInvalidNetworkSpec = errors.New("invalid network spec")

// Default image versions used by NewNetwork.
const (
	DefaultBitcoindVersion   = "0.20.0"
	DefaultLNDVersion        = "0.10.0-beta"
	DefaultCLightningVersion = "0.8.2"
	DefaultEclairVersion     = "0.4"
)

// Base host ports. Each node adds its index within its kind.
const (
	BaseRPCPort      = 18443
	BaseP2PPort      = 19444
	BaseZMQBlockPort = 28334
	BaseZMQTxPort    = 29335
	BaseRESTPort     = 8081
	BaseGRPCPort     = 10001
	BaseLightningP2P = 9735
)

var lightningNames = []string{
	"alice", "bob", "carol", "dave", "erin", "frank", "grace", "heidi",
	"ivan", "judy", "mike", "niaj", "oscar", "peggy", "rupert", "sybil",
	"trent", "victor", "walter",
}

// NetworkSpec describes how many nodes of each implementation to create.
type NetworkSpec struct {
	Bitcoind   int
	LND        int
	CLightning int
	Eclair     int
}

// Validate checks the requested node counts describe a usable network.
func (s NetworkSpec) Validate() error {
	if s.Bitcoind < 1 {
		return fmt.Errorf("%w: at least one bitcoind node is required", ErrInvalidNetworkSpec)
	}
	if s.LND < 0 || s.CLightning < 0 || s.Eclair < 0 {
		return fmt.Errorf("%w: node counts must not be negative", ErrInvalidNetworkSpec)
	}
	if s.LND+s.CLightning+s.Eclair > len(lightningNames) {
		return fmt.Errorf("%w: at most %d lightning nodes are supported", ErrInvalidNetworkSpec, len(lightningNames))
	}
	return nil
}

// NewNetwork builds a network with deterministic node names and ports.
// Every channel node uses the first chain node as its backend, and each
// chain node peers with its neighbours.
func NewNetwork(id int, name, root string, spec NetworkSpec) (Network, error) {
	if err := spec.Validate(); err != nil {
		return Network{}, err
	}

	n := Network{
		ID:     id,
		Name:   name,
		Status: StatusStopped,
		Path:   NetworkPath(root, id),
		Nodes: Nodes{
			Bitcoin:   make([]BitcoinNode, 0, spec.Bitcoind),
			Lightning: make([]LightningNode, 0, spec.LND+spec.CLightning+spec.Eclair),
		},
	}

	for i := 0; i < spec.Bitcoind; i++ {
		peers := []string{}
		if i > 0 {
			peers = append(peers, backendName(i-1))
		}
		if i < spec.Bitcoind-1 {
			peers = append(peers, backendName(i+1))
		}
		n.Nodes.Bitcoin = append(n.Nodes.Bitcoin, BitcoinNode{
			CommonNode: CommonNode{
				ID:             i,
				NetworkID:      id,
				Name:           backendName(i),
				Type:           NodeKindBitcoin,
				Implementation: ImplBitcoind,
				Version:        DefaultBitcoindVersion,
				Status:         StatusStopped,
			},
			Ports: BitcoinPorts{
				RPC:      BaseRPCPort + i,
				P2P:      BaseP2PPort + i,
				ZMQBlock: BaseZMQBlockPort + i,
				ZMQTx:    BaseZMQTxPort + i,
			},
			Peers: peers,
		})
	}

	backend := n.Nodes.Bitcoin[0].Name
	add := func(impl Implementation, version string, count int) {
		for j := 0; j < count; j++ {
			i := len(n.Nodes.Lightning)
			ports := LightningPorts{REST: BaseRESTPort + i, P2P: BaseLightningP2P + i}
			if impl == ImplLND {
				ports.GRPC = BaseGRPCPort + i
			}
			n.Nodes.Lightning = append(n.Nodes.Lightning, LightningNode{
				CommonNode: CommonNode{
					ID:             spec.Bitcoind + i,
					NetworkID:      id,
					Name:           lightningNames[i],
					Type:           NodeKindLightning,
					Implementation: impl,
					Version:        version,
					Status:         StatusStopped,
				},
				Ports:       ports,
				BackendName: backend,
			})
		}
	}
	add(ImplLND, DefaultLNDVersion, spec.LND)
	add(ImplCLightning, DefaultCLightningVersion, spec.CLightning)
	add(ImplEclair, DefaultEclairVersion, spec.Eclair)

	return n, nil
}

func backendName(i int) string {
	return fmt.Sprintf("backend%d", i+1)
}
