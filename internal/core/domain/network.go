// Package domain contains the core domain types for simulated networks.
// This is part of the Functional Core - all functions are pure with no I/O.
package domain

import (
	"errors"
	"fmt"
)

// =============================================================================
// Network Errors
// =============================================================================

var (
	ErrNetworkNotFound = errors.New("network not found")
	ErrNodeNotFound    = errors.New("node not found")
	ErrLastChainNode   = errors.New("cannot remove the only chain node")
	ErrBackendInUse    = errors.New("chain node is the backend of a channel node")
)

// =============================================================================
// Status
// =============================================================================

// Status is the lifecycle status shared by networks and nodes.
type Status string

const (
	StatusStarting Status = "Starting"
	StatusStarted  Status = "Started"
	StatusStopping Status = "Stopping"
	StatusStopped  Status = "Stopped"
	StatusError    Status = "Error"
)

// =============================================================================
// Node Kinds and Implementations
// =============================================================================

// NodeKind identifies which list of a network a node lives in.
type NodeKind string

const (
	NodeKindBitcoin   NodeKind = "bitcoin"
	NodeKindLightning NodeKind = "lightning"
)

// Implementation is the concrete software a node runs.
type Implementation string

const (
	ImplBitcoind   Implementation = "bitcoind"
	ImplLND        Implementation = "LND"
	ImplCLightning Implementation = "c-lightning"
	ImplEclair     Implementation = "eclair"
)

// IsValid reports whether the implementation is one of the known variants.
func (i Implementation) IsValid() bool {
	switch i {
	case ImplBitcoind, ImplLND, ImplCLightning, ImplEclair:
		return true
	default:
		return false
	}
}

// Kind returns the node kind the implementation belongs to.
func (i Implementation) Kind() NodeKind {
	if i == ImplBitcoind {
		return NodeKindBitcoin
	}
	return NodeKindLightning
}

// ComposeSupported reports whether a compose service can be generated for
// the implementation. Unsupported lightning implementations are valid data
// but are left out of the manifest.
func (i Implementation) ComposeSupported() bool {
	switch i {
	case ImplBitcoind, ImplLND, ImplCLightning:
		return true
	default:
		return false
	}
}

// =============================================================================
// Nodes
// =============================================================================

// CommonNode holds the fields every node kind carries.
type CommonNode struct {
	ID             int            `json:"id"`
	NetworkID      int            `json:"networkId"`
	Name           string         `json:"name"`
	Type           NodeKind       `json:"type"`
	Implementation Implementation `json:"implementation"`
	Version        string         `json:"version"`
	Status         Status         `json:"status"`
}

// BitcoinPorts are the host ports published for a chain node.
type BitcoinPorts struct {
	RPC      int `json:"rpc"`
	P2P      int `json:"p2p"`
	ZMQBlock int `json:"zmqBlock"`
	ZMQTx    int `json:"zmqTx"`
}

// BitcoinNode is a chain node.
type BitcoinNode struct {
	CommonNode
	Ports BitcoinPorts `json:"ports"`

	// Peers lists the names of other chain nodes this node connects to.
	// Records written by older versions may have no peers list at all.
	Peers []string `json:"peers"`
}

// LightningPorts are the host ports published for a channel node.
type LightningPorts struct {
	REST int `json:"rest"`
	GRPC int `json:"grpc,omitempty"`
	P2P  int `json:"p2p"`
}

// LightningNode is a payment-channel node backed by a chain node.
type LightningNode struct {
	CommonNode
	Ports       LightningPorts `json:"ports"`
	BackendName string         `json:"backendName,omitempty"`
}

// Nodes groups a network's nodes by kind, each list in declaration order.
type Nodes struct {
	Bitcoin   []BitcoinNode   `json:"bitcoin"`
	Lightning []LightningNode `json:"lightning"`
}

// =============================================================================
// Network
// =============================================================================

// Network is a simulated topology sharing one working directory.
type Network struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Status Status `json:"status"`
	Path   string `json:"path"`
	Nodes  Nodes  `json:"nodes"`
}

// AllNodes returns the common part of every node, chain nodes first.
func (n Network) AllNodes() []CommonNode {
	out := make([]CommonNode, 0, len(n.Nodes.Bitcoin)+len(n.Nodes.Lightning))
	for _, b := range n.Nodes.Bitcoin {
		out = append(out, b.CommonNode)
	}
	for _, l := range n.Nodes.Lightning {
		out = append(out, l.CommonNode)
	}
	return out
}

// FindNode looks a node up by name across both kinds.
func (n Network) FindNode(name string) (CommonNode, bool) {
	for _, c := range n.AllNodes() {
		if c.Name == name {
			return c, true
		}
	}
	return CommonNode{}, false
}

// FindBitcoin returns the chain node with the given name.
func (n Network) FindBitcoin(name string) (BitcoinNode, bool) {
	for _, b := range n.Nodes.Bitcoin {
		if b.Name == name {
			return b, true
		}
	}
	return BitcoinNode{}, false
}

// ResolveBackend returns the chain node a channel node runs against.
// A backend name that does not match a chain node, including one that
// names a channel node, falls back to the first chain node. The second
// return value is false only when the network has no chain node.
func (n Network) ResolveBackend(ln LightningNode) (BitcoinNode, bool) {
	if ln.BackendName != "" {
		if b, ok := n.FindBitcoin(ln.BackendName); ok {
			return b, true
		}
	}
	if len(n.Nodes.Bitcoin) == 0 {
		return BitcoinNode{}, false
	}
	return n.Nodes.Bitcoin[0], true
}

// WithoutNode returns a copy of the network with the named node removed.
// Chain node peer lists drop references to the removed node.
func (n Network) WithoutNode(name string) Network {
	out := n.Clone()
	bitcoin := make([]BitcoinNode, 0, len(out.Nodes.Bitcoin))
	for _, b := range out.Nodes.Bitcoin {
		if b.Name == name {
			continue
		}
		if b.Peers != nil {
			peers := make([]string, 0, len(b.Peers))
			for _, p := range b.Peers {
				if p != name {
					peers = append(peers, p)
				}
			}
			b.Peers = peers
		}
		bitcoin = append(bitcoin, b)
	}
	lightning := make([]LightningNode, 0, len(out.Nodes.Lightning))
	for _, l := range out.Nodes.Lightning {
		if l.Name != name {
			lightning = append(lightning, l)
		}
	}
	out.Nodes.Bitcoin = bitcoin
	out.Nodes.Lightning = lightning
	return out
}

// CheckRemovable reports whether the named node can be dropped from the
// network without leaving a channel node without its backend.
func (n Network) CheckRemovable(name string) error {
	node, ok := n.FindNode(name)
	if !ok {
		return ErrNodeNotFound
	}
	if node.Type != NodeKindBitcoin {
		return nil
	}
	if len(n.Nodes.Bitcoin) == 1 {
		return ErrLastChainNode
	}
	for _, l := range n.Nodes.Lightning {
		if l.BackendName == name {
			return fmt.Errorf("%w: %s", ErrBackendInUse, l.Name)
		}
	}
	return nil
}

// WithStatus returns a copy of the network with it and every node set to
// status.
func (n Network) WithStatus(status Status) Network {
	out := n.Clone()
	out.Status = status
	for i := range out.Nodes.Bitcoin {
		out.Nodes.Bitcoin[i].Status = status
	}
	for i := range out.Nodes.Lightning {
		out.Nodes.Lightning[i].Status = status
	}
	return out
}

// WithNodeStatus returns a copy of the network with the named node set to
// status.
func (n Network) WithNodeStatus(name string, status Status) Network {
	out := n.Clone()
	for i := range out.Nodes.Bitcoin {
		if out.Nodes.Bitcoin[i].Name == name {
			out.Nodes.Bitcoin[i].Status = status
		}
	}
	for i := range out.Nodes.Lightning {
		if out.Nodes.Lightning[i].Name == name {
			out.Nodes.Lightning[i].Status = status
		}
	}
	return out
}

// Clone returns a deep copy of the network.
func (n Network) Clone() Network {
	out := n
	if n.Nodes.Bitcoin != nil {
		out.Nodes.Bitcoin = make([]BitcoinNode, len(n.Nodes.Bitcoin))
		for i, b := range n.Nodes.Bitcoin {
			if b.Peers != nil {
				b.Peers = append([]string{}, b.Peers...)
			}
			out.Nodes.Bitcoin[i] = b
		}
	}
	if n.Nodes.Lightning != nil {
		out.Nodes.Lightning = append([]LightningNode{}, n.Nodes.Lightning...)
	}
	return out
}
