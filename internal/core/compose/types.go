package compose

// =============================================================================
// Manifest - Generator Output Type
// =============================================================================

// ManifestVersion is the compose file format version written to every manifest.
const ManifestVersion = "3.3"

// Manifest is the compose file generated for a network.
// Field order matters: version is always written before services.
type Manifest struct {
	Version  string             `yaml:"version"`
	Services map[string]Service `yaml:"services"`
}

// Service is a single compose service definition.
type Service struct {
	Image         string            `yaml:"image"`
	ContainerName string            `yaml:"container_name"`
	Environment   map[string]string `yaml:"environment,omitempty"`
	Hostname      string            `yaml:"hostname"`
	Command       string            `yaml:"command"`
	Restart       string            `yaml:"restart,omitempty"`
	DependsOn     []string          `yaml:"depends_on,omitempty"`
	Volumes       []string          `yaml:"volumes,omitempty"`
	Expose        []string          `yaml:"expose,omitempty"`
	Ports         []string          `yaml:"ports,omitempty"`
}

// Options controls naming in generated manifests.
type Options struct {
	// Prefix is the application prefix used in container names.
	Prefix string
	// ImageRepo is the repository hosting node images.
	ImageRepo string
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		Prefix:    "polar",
		ImageRepo: "polarlightning",
	}
}

// =============================================================================
// ParsedManifest - Parser Output Type
// =============================================================================

// ParsedManifest is a validated summary of a compose manifest.
type ParsedManifest struct {
	Services []ParsedService `json:"services"`
}

// ParsedService summarizes one service of a parsed manifest.
type ParsedService struct {
	Name          string   `json:"name"`
	ContainerName string   `json:"container_name"`
	Image         string   `json:"image"`
	DependsOn     []string `json:"depends_on,omitempty"`
	Ports         []Port   `json:"ports,omitempty"`
	Volumes       []string `json:"volumes,omitempty"`
}

// Port represents a port mapping.
type Port struct {
	Target    uint32 `json:"target"`              // Container port
	Published uint32 `json:"published,omitempty"` // Host port (0 = dynamic)
	Protocol  string `json:"protocol,omitempty"`  // tcp, udp
}

// Service returns the parsed service with the given name.
func (m *ParsedManifest) Service(name string) (ParsedService, bool) {
	for _, s := range m.Services {
		if s.Name == name {
			return s, true
		}
	}
	return ParsedService{}, false
}
