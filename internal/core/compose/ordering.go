package compose

import "sort"

// =============================================================================
// Service Ordering Functions
// =============================================================================

// StartOrder sorts services so every service comes after the services it
// depends on, using Kahn's algorithm. Services that become ready at the same
// time are ordered by name, so the result is stable for a given manifest.
//
// Dependencies on services not in the list are ignored. If a cycle remains,
// the services caught in it are appended by name.
//
// Example:
//
//	// alice depends on backend1
//	services := []ParsedService{
//	    {Name: "alice", DependsOn: []string{"backend1"}},
//	    {Name: "backend1"},
//	}
//	ordered := StartOrder(services)
//	// Result: [backend1, alice]
func StartOrder(services []ParsedService) []ParsedService {
	if len(services) == 0 {
		return services
	}

	byName := make(map[string]ParsedService, len(services))
	inDegree := make(map[string]int, len(services))
	for _, svc := range services {
		byName[svc.Name] = svc
		inDegree[svc.Name] = 0
	}

	dependents := make(map[string][]string)
	for _, svc := range services {
		for _, dep := range svc.DependsOn {
			if _, ok := byName[dep]; !ok {
				continue
			}
			inDegree[svc.Name]++
			dependents[dep] = append(dependents[dep], svc.Name)
		}
	}

	var ready []string
	for name, degree := range inDegree {
		if degree == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	result := make([]ParsedService, 0, len(services))
	placed := make(map[string]bool, len(services))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		result = append(result, byName[name])
		placed[name] = true

		var next []string
		for _, dep := range dependents[name] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				next = append(next, dep)
			}
		}
		if len(next) > 0 {
			ready = append(ready, next...)
			sort.Strings(ready)
		}
	}

	if len(result) < len(byName) {
		var rest []string
		for name := range byName {
			if !placed[name] {
				rest = append(rest, name)
			}
		}
		sort.Strings(rest)
		for _, name := range rest {
			result = append(result, byName[name])
		}
	}

	return result
}
