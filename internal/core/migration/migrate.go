package migration

import (
	"errors"
	"fmt"
	"sort"

	"github.com/artpar/lnstack/internal/core/domain"
	"github.com/hashicorp/go-version"
)

// =============================================================================
// Errors
// =============================================================================

var ErrInvalidVersion = errors.New("invalid collection version")

// =============================================================================
// Steps
// =============================================================================

// Step is one schema change. Collections stored with a version older than
// Version have Apply run on them. Apply may modify its argument; Migrate
// always hands it a private copy.
type Step struct {
	Version string
	Name    string
	Apply   func(c Collection) Collection
}

// Steps returns the built-in schema changes in application order. The
// repairs that fill in fields current records require are tagged with
// CurrentVersion, so every older collection gets them.
func Steps() []Step {
	return []Step{
		{Version: CurrentVersion, Name: "chain-node-peers", Apply: ensurePeers},
		{Version: CurrentVersion, Name: "chart-peer-ports", Apply: ensurePeerPorts},
	}
}

// ensurePeers gives every chain node without a peers list an empty one.
func ensurePeers(c Collection) Collection {
	for i := range c.Networks {
		for j := range c.Networks[i].Nodes.Bitcoin {
			if c.Networks[i].Nodes.Bitcoin[j].Peers == nil {
				c.Networks[i].Nodes.Bitcoin[j].Peers = []string{}
			}
		}
	}
	return c
}

// ensurePeerPorts adds the peer-left and peer-right ports to the chart node
// of every chain node. Networks without a chart get a freshly generated one.
func ensurePeerPorts(c Collection) Collection {
	if c.Charts == nil {
		c.Charts = map[int]domain.Chart{}
	}
	fresh := domain.ChartPorts(domain.NodeKindBitcoin)

	for _, n := range c.Networks {
		chart, ok := c.Charts[n.ID]
		if !ok {
			c.Charts[n.ID] = domain.NewChart(n)
			continue
		}
		if chart.Nodes == nil {
			chart.Nodes = map[string]*domain.ChartNode{}
		}
		for i, b := range n.Nodes.Bitcoin {
			cn := chart.Nodes[b.Name]
			if cn == nil {
				chart.Nodes[b.Name] = domain.NewChartNode(b.CommonNode, domain.Position{X: 50 + float64(i)*300, Y: 400})
				continue
			}
			if cn.Ports == nil {
				cn.Ports = map[string]domain.ChartPort{}
			}
			for _, id := range []string{domain.PortPeerLeft, domain.PortPeerRight} {
				if _, ok := cn.Ports[id]; !ok {
					cn.Ports[id] = fresh[id]
				}
			}
		}
		c.Charts[n.ID] = chart
	}
	return c
}

// =============================================================================
// Migrator
// =============================================================================

// Report describes what a migration did.
type Report struct {
	From     string
	To       string
	Applied  []string
	Upgraded bool
	// Newer is set when the stored version is ahead of the application.
	// Such collections are loaded without any schema change.
	Newer bool
}

// Migrator upgrades collections to a target version.
type Migrator struct {
	current *version.Version
	root    string
	steps   []Step
}

// New creates a migrator for the given current version whose networks live
// under root.
func New(current, root string) (*Migrator, error) {
	return NewWithSteps(current, root, Steps())
}

// NewWithSteps creates a migrator with a custom step list.
func NewWithSteps(current, root string, steps []Step) (*Migrator, error) {
	cur, err := version.NewVersion(current)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidVersion, current, err)
	}
	for _, s := range steps {
		if _, err := version.NewVersion(s.Version); err != nil {
			return nil, fmt.Errorf("%w %q in step %s: %v", ErrInvalidVersion, s.Version, s.Name, err)
		}
	}
	sorted := append([]Step{}, steps...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return version.Must(version.NewVersion(sorted[i].Version)).LessThan(version.Must(version.NewVersion(sorted[j].Version)))
	})
	return &Migrator{current: cur, root: root, steps: sorted}, nil
}

// Current returns the version collections are migrated to.
func (m *Migrator) Current() string {
	return m.current.Original()
}

// Migrate returns an upgraded copy of the collection. Paths are always
// re-derived from network IDs; schema steps run only for older collections.
func (m *Migrator) Migrate(c Collection) (Collection, Report, error) {
	raw := c.Version
	if raw == "" {
		raw = LegacyVersion
	}
	stored, err := version.NewVersion(raw)
	if err != nil {
		return Collection{}, Report{}, fmt.Errorf("%w %q: %v", ErrInvalidVersion, c.Version, err)
	}

	out := c.Clone()
	if out.Networks == nil {
		out.Networks = []domain.Network{}
	}
	if out.Charts == nil {
		out.Charts = map[int]domain.Chart{}
	}
	report := Report{From: raw, To: raw}

	switch {
	case stored.LessThan(m.current):
		for _, s := range m.steps {
			if stored.LessThan(version.Must(version.NewVersion(s.Version))) {
				out = s.Apply(out)
				report.Applied = append(report.Applied, s.Name)
			}
		}
		out.Version = m.current.Original()
		report.To = out.Version
		report.Upgraded = true
	case stored.GreaterThan(m.current):
		report.Newer = true
	}

	for i := range out.Networks {
		out.Networks[i].Path = domain.NetworkPath(m.root, out.Networks[i].ID)
	}

	return out, report, nil
}
