package domain

import "encoding/json"

// =============================================================================
// Chart Types
// =============================================================================

// Chart port identifiers.
const (
	PortPeerLeft   = "peer-left"
	PortPeerRight  = "peer-right"
	PortEmptyLeft  = "empty-left"
	PortEmptyRight = "empty-right"
	PortBackend    = "backend"
)

// Position is a point on the chart canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ChartPort is a connection anchor rendered on a chart node.
type ChartPort struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
}

// ChartNode is the visual state of one network node.
type ChartNode struct {
	ID         string               `json:"id"`
	Type       string               `json:"type"`
	Position   Position             `json:"position"`
	Ports      map[string]ChartPort `json:"ports"`
	Properties map[string]any       `json:"properties,omitempty"`
	Size       json.RawMessage      `json:"size,omitempty"`
}

// LinkEnd is one side of a chart link.
type LinkEnd struct {
	NodeID string `json:"nodeId"`
	PortID string `json:"portId"`
}

// ChartLink connects two chart ports.
type ChartLink struct {
	ID         string         `json:"id"`
	From       LinkEnd        `json:"from"`
	To         LinkEnd        `json:"to"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Chart is the visual layout companion of a network. Only nodes and their
// ports are interpreted; selection and hover state pass through untouched.
type Chart struct {
	Offset   Position              `json:"offset"`
	Scale    float64               `json:"scale"`
	Nodes    map[string]*ChartNode `json:"nodes"`
	Links    map[string]*ChartLink `json:"links"`
	Selected json.RawMessage       `json:"selected,omitempty"`
	Hovered  json.RawMessage       `json:"hovered,omitempty"`
}

// Clone returns a copy of the chart whose nodes, ports and links can be
// modified without affecting the original. Properties maps are shared.
func (c Chart) Clone() Chart {
	out := c
	if c.Nodes != nil {
		out.Nodes = make(map[string]*ChartNode, len(c.Nodes))
		for id, n := range c.Nodes {
			if n == nil {
				out.Nodes[id] = nil
				continue
			}
			cp := *n
			if n.Ports != nil {
				cp.Ports = make(map[string]ChartPort, len(n.Ports))
				for pid, p := range n.Ports {
					cp.Ports[pid] = p
				}
			}
			out.Nodes[id] = &cp
		}
	}
	if c.Links != nil {
		out.Links = make(map[string]*ChartLink, len(c.Links))
		for id, l := range c.Links {
			if l == nil {
				out.Links[id] = nil
				continue
			}
			cp := *l
			out.Links[id] = &cp
		}
	}
	return out
}

// =============================================================================
// Chart Generation
// =============================================================================

// ChartPorts returns the ports a freshly generated chart gives a node of the
// given kind. Migrations use it to backfill ports missing from older charts.
func ChartPorts(kind NodeKind) map[string]ChartPort {
	if kind == NodeKindBitcoin {
		return map[string]ChartPort{
			PortPeerLeft:  {ID: PortPeerLeft, Type: "left"},
			PortPeerRight: {ID: PortPeerRight, Type: "right"},
			PortBackend:   {ID: PortBackend, Type: "top"},
		}
	}
	return map[string]ChartPort{
		PortEmptyLeft:  {ID: PortEmptyLeft, Type: "left"},
		PortEmptyRight: {ID: PortEmptyRight, Type: "right"},
		PortBackend:    {ID: PortBackend, Type: "bottom"},
	}
}

// NewChartNode creates the chart node for a network node at a position.
func NewChartNode(c CommonNode, pos Position) *ChartNode {
	return &ChartNode{
		ID:       c.Name,
		Type:     "node",
		Position: pos,
		Ports:    ChartPorts(c.Type),
		Properties: map[string]any{
			"status":         string(c.Status),
			"implementation": string(c.Implementation),
			"version":        c.Version,
		},
	}
}

// NewChart generates the initial chart for a network: one chart node per
// network node, a backend link per channel node and a peer link between
// neighbouring chain nodes.
func NewChart(n Network) Chart {
	chart := Chart{
		Scale: 1,
		Nodes: make(map[string]*ChartNode),
		Links: make(map[string]*ChartLink),
	}

	for i, ln := range n.Nodes.Lightning {
		chart.Nodes[ln.Name] = NewChartNode(ln.CommonNode, Position{X: 50 + float64(i)*250, Y: 20})
		backend, ok := n.ResolveBackend(ln)
		if !ok {
			continue
		}
		id := ln.Name + "-" + backend.Name
		chart.Links[id] = &ChartLink{
			ID:         id,
			From:       LinkEnd{NodeID: ln.Name, PortID: PortBackend},
			To:         LinkEnd{NodeID: backend.Name, PortID: PortBackend},
			Properties: map[string]any{"type": "backend"},
		}
	}

	for i, b := range n.Nodes.Bitcoin {
		chart.Nodes[b.Name] = NewChartNode(b.CommonNode, Position{X: 50 + float64(i)*300, Y: 400})
		if i == 0 {
			continue
		}
		prev := n.Nodes.Bitcoin[i-1]
		id := prev.Name + "-" + b.Name
		chart.Links[id] = &ChartLink{
			ID:         id,
			From:       LinkEnd{NodeID: prev.Name, PortID: PortPeerRight},
			To:         LinkEnd{NodeID: b.Name, PortID: PortPeerLeft},
			Properties: map[string]any{"type": "btcpeer"},
		}
	}

	return chart
}

// WithoutNode returns a copy of the chart with the named node and every link
// touching it removed.
func (c Chart) WithoutNode(name string) Chart {
	out := c.Clone()
	delete(out.Nodes, name)
	for id, l := range out.Links {
		if l != nil && (l.From.NodeID == name || l.To.NodeID == name) {
			delete(out.Links, id)
		}
	}
	return out
}
