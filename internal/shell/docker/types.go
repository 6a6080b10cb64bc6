// Package docker provides the container engine client and the compose CLI
// executor used to run simulated networks.
package docker

import "context"

// =============================================================================
// Engine Types
// =============================================================================

// EngineVersion is the version reported by the container engine.
type EngineVersion struct {
	Version    string
	APIVersion string
}

// ImageSummary is one image known to the engine.
type ImageSummary struct {
	ID       string
	RepoTags []string
}

// =============================================================================
// Compose Types
// =============================================================================

// ComposeOptions are passed to every compose invocation.
type ComposeOptions struct {
	// Cwd is the directory holding docker-compose.yml.
	Cwd string
	// Env replaces the process environment when non-nil.
	Env map[string]string
}

// ComposeResult is the captured output of a successful compose command.
type ComposeResult struct {
	Command  string
	ExitCode int
	Out      string
	Err      string
}

// Runner runs an external command. exitCode is meaningful only when err is
// nil; err reports a failure to run the command at all.
type Runner interface {
	Run(ctx context.Context, dir string, env []string, name string, args ...string) (stdout, stderr string, exitCode int, err error)
}
