package compose

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
	"github.com/docker/go-connections/nat"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Parser Functions
// =============================================================================

// ParseManifest validates manifest text with compose-go and summarizes its
// services, sorted by name. It is used to check generated manifests and
// manifests edited by hand before they are handed to the compose CLI.
func ParseManifest(content string) (*ParsedManifest, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyInput
	}

	project, err := loadManifest(content)
	if err != nil {
		return nil, err
	}

	parsed := &ParsedManifest{
		Services: make([]ParsedService, 0, len(project.Services)),
	}
	for _, svc := range project.Services {
		converted, err := convertService(svc)
		if err != nil {
			return nil, err
		}
		parsed.Services = append(parsed.Services, converted)
	}
	sort.Slice(parsed.Services, func(i, j int) bool {
		return parsed.Services[i].Name < parsed.Services[j].Name
	})

	if err := detectCircularDependencies(parsed.Services); err != nil {
		return nil, err
	}

	return parsed, nil
}

// loadManifest loads a manifest using compose-go
func loadManifest(content string) (*types.Project, error) {
	var dict map[string]interface{}
	if err := yaml.Unmarshal([]byte(content), &dict); err != nil {
		return nil, newParseError("", "invalid YAML syntax", ErrInvalidYAML)
	}
	if dict == nil {
		return nil, newParseError("", "invalid YAML syntax", ErrInvalidYAML)
	}
	if _, ok := dict["services"]; !ok {
		return nil, newParseError("services", "manifest has no services section", ErrNoServices)
	}

	project, err := loader.LoadWithContext(context.Background(), types.ConfigDetails{
		ConfigFiles: []types.ConfigFile{
			{
				Content: []byte(content),
				Config:  dict,
			},
		},
		Environment: types.Mapping{},
	}, func(opts *loader.Options) {
		opts.SetProjectName("lnstack-validate", false)
		opts.SkipNormalization = true
		opts.SkipExtends = true
		opts.SkipConsistencyCheck = false
	})
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "dependency cycle detected") {
			return nil, newParseError("", "circular dependency detected", ErrCircularDependency)
		}
		if strings.Contains(errStr, "depends on undefined service") {
			return nil, newParseError("", errStr, ErrUnknownDependency)
		}
		return nil, newParseError("", errStr, ErrInvalidYAML)
	}

	return project, nil
}

// convertService converts a compose-go service to our ParsedService type
func convertService(svc types.ServiceConfig) (ParsedService, error) {
	out := ParsedService{
		Name:          svc.Name,
		ContainerName: svc.ContainerName,
		Image:         svc.Image,
	}
	if out.Image == "" {
		return ParsedService{}, newParseError("services."+svc.Name, "service must have an image", ErrServiceNoImage)
	}

	for dep := range svc.DependsOn {
		out.DependsOn = append(out.DependsOn, dep)
	}
	sort.Strings(out.DependsOn)

	for i, p := range svc.Ports {
		port, err := convertPort(p)
		if err != nil {
			return ParsedService{}, newParseError(
				fmt.Sprintf("services.%s.ports[%d]", svc.Name, i),
				err.Error(),
				ErrServiceInvalidPort,
			)
		}
		out.Ports = append(out.Ports, port)
	}

	for _, v := range svc.Volumes {
		if v.Target == "" {
			return ParsedService{}, newParseError("services."+svc.Name+".volumes", "volume has no target", ErrServiceInvalidVolume)
		}
		out.Volumes = append(out.Volumes, v.Source+":"+v.Target)
	}

	return out, nil
}

// convertPort validates a port through the engine's own port spec parser.
func convertPort(p types.ServicePortConfig) (Port, error) {
	proto := p.Protocol
	if proto == "" {
		proto = "tcp"
	}
	spec := fmt.Sprintf("%d/%s", p.Target, proto)
	if p.Published != "" {
		spec = p.Published + ":" + spec
	}
	mappings, err := nat.ParsePortSpec(spec)
	if err != nil {
		return Port{}, err
	}
	if len(mappings) != 1 {
		return Port{}, fmt.Errorf("port spec %q must map exactly one port", spec)
	}

	port := Port{Target: p.Target, Protocol: proto}
	if hp := mappings[0].Binding.HostPort; hp != "" {
		published, err := strconv.ParseUint(hp, 10, 16)
		if err != nil {
			return Port{}, err
		}
		port.Published = uint32(published)
	}
	return port, nil
}

// detectCircularDependencies detects circular dependencies in service dependencies
func detectCircularDependencies(services []ParsedService) error {
	deps := make(map[string][]string)
	for _, svc := range services {
		deps[svc.Name] = svc.DependsOn
	}

	visited := make(map[string]bool)
	recStack := make(map[string]bool)

	var hasCycle func(node string) bool
	hasCycle = func(node string) bool {
		visited[node] = true
		recStack[node] = true

		for _, dep := range deps[node] {
			if dep == node {
				return true
			}
			if !visited[dep] {
				if hasCycle(dep) {
					return true
				}
			} else if recStack[dep] {
				return true
			}
		}

		recStack[node] = false
		return false
	}

	for _, svc := range services {
		if !visited[svc.Name] {
			if hasCycle(svc.Name) {
				return ErrCircularDependency
			}
		}
	}

	return nil
}
