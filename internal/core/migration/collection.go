package migration

import (
	"github.com/artpar/lnstack/internal/core/domain"
)

// CurrentVersion is the schema version written by this application.
const CurrentVersion = "1.0.0"

// LegacyVersion is assumed for collections stored without a version tag.
const LegacyVersion = "0.0.0"

// Collection is the stored set of networks with their charts keyed by
// network ID.
type Collection struct {
	Version  string               `json:"version"`
	Networks []domain.Network     `json:"networks"`
	Charts   map[int]domain.Chart `json:"charts"`
}

// NewCollection returns an empty collection at the current version.
func NewCollection() Collection {
	return Collection{
		Version:  CurrentVersion,
		Networks: []domain.Network{},
		Charts:   map[int]domain.Chart{},
	}
}

// Clone returns a deep copy of the collection.
func (c Collection) Clone() Collection {
	out := Collection{Version: c.Version}
	if c.Networks != nil {
		out.Networks = make([]domain.Network, len(c.Networks))
		for i, n := range c.Networks {
			out.Networks[i] = n.Clone()
		}
	}
	if c.Charts != nil {
		out.Charts = make(map[int]domain.Chart, len(c.Charts))
		for id, ch := range c.Charts {
			out.Charts[id] = ch.Clone()
		}
	}
	return out
}

// Network returns the network with the given ID.
func (c Collection) Network(id int) (domain.Network, bool) {
	for _, n := range c.Networks {
		if n.ID == id {
			return n, true
		}
	}
	return domain.Network{}, false
}

// NextID returns the ID a newly created network should get.
func (c Collection) NextID() int {
	max := 0
	for _, n := range c.Networks {
		if n.ID > max {
			max = n.ID
		}
	}
	return max + 1
}

// WithNetwork returns a copy with the network and chart added, or replaced
// when a network with the same ID already exists.
func (c Collection) WithNetwork(n domain.Network, chart domain.Chart) Collection {
	out := c.Clone()
	if out.Charts == nil {
		out.Charts = map[int]domain.Chart{}
	}
	replaced := false
	for i := range out.Networks {
		if out.Networks[i].ID == n.ID {
			out.Networks[i] = n.Clone()
			replaced = true
			break
		}
	}
	if !replaced {
		out.Networks = append(out.Networks, n.Clone())
	}
	out.Charts[n.ID] = chart.Clone()
	return out
}

// ActivePorts returns the host ports held by every network other than
// except that is starting or started.
func (c Collection) ActivePorts(except int) map[int]bool {
	used := map[int]bool{}
	for _, n := range c.Networks {
		if n.ID == except {
			continue
		}
		if n.Status != domain.StatusStarted && n.Status != domain.StatusStarting {
			continue
		}
		for _, p := range n.HostPorts() {
			used[p] = true
		}
	}
	return used
}
