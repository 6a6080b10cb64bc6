package domain

import "errors"

// ErrNoFreePort is returned when every port in the allocation range is taken.
var ErrNoFreePort = errors.New("no available ports in range")

// PortRange bounds host port allocation. Both ends are inclusive.
type PortRange struct {
	Start int
	End   int
}

// DefaultPortRange returns the unprivileged host port range.
func DefaultPortRange() PortRange {
	return PortRange{Start: 1024, End: 65535}
}

// AllocatePort finds the first port at or after from that is not in used.
// Pure function - takes used ports as input, returns allocated port.
func AllocatePort(used map[int]bool, from int, r PortRange) (int, error) {
	if from < r.Start {
		from = r.Start
	}
	for port := from; port <= r.End; port++ {
		if !used[port] {
			return port, nil
		}
	}
	return 0, ErrNoFreePort
}

// HostPorts returns every host port published by the network's nodes.
// Unset ports are skipped.
func (n Network) HostPorts() []int {
	var out []int
	add := func(ports ...int) {
		for _, p := range ports {
			if p > 0 {
				out = append(out, p)
			}
		}
	}
	for _, b := range n.Nodes.Bitcoin {
		add(b.Ports.RPC, b.Ports.P2P, b.Ports.ZMQBlock, b.Ports.ZMQTx)
	}
	for _, ln := range n.Nodes.Lightning {
		add(ln.Ports.REST, ln.Ports.GRPC, ln.Ports.P2P)
	}
	return out
}

// WithOpenPorts returns a copy of the network whose host ports avoid used.
// A conflicting port moves to the next free port above it; ports that do
// not conflict are kept. Ports inside the network are also kept distinct.
func (n Network) WithOpenPorts(used map[int]bool) (Network, error) {
	out := n.Clone()
	claimed := make(map[int]bool, len(used))
	for p, ok := range used {
		if ok {
			claimed[p] = true
		}
	}

	var err error
	claim := func(p *int) {
		if err != nil || *p <= 0 {
			return
		}
		if claimed[*p] {
			var next int
			next, err = AllocatePort(claimed, *p+1, DefaultPortRange())
			if err != nil {
				return
			}
			*p = next
		}
		claimed[*p] = true
	}

	for i := range out.Nodes.Bitcoin {
		ports := &out.Nodes.Bitcoin[i].Ports
		claim(&ports.RPC)
		claim(&ports.P2P)
		claim(&ports.ZMQBlock)
		claim(&ports.ZMQTx)
	}
	for i := range out.Nodes.Lightning {
		ports := &out.Nodes.Lightning[i].Ports
		claim(&ports.REST)
		claim(&ports.GRPC)
		claim(&ports.P2P)
	}
	if err != nil {
		return Network{}, err
	}
	return out, nil
}
