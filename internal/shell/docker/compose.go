package docker

import (
	"context"
	"log/slog"
	"sort"
	"strings"
)

// =============================================================================
// Compose CLI
// =============================================================================

// ComposeCLI runs compose verbs against a manifest directory.
type ComposeCLI struct {
	binary string
	runner Runner
	logger *slog.Logger
}

// NewComposeCLI creates a compose executor. An empty binary selects the
// "docker compose" plugin; any other value is run as a standalone binary
// such as "docker-compose".
func NewComposeCLI(binary string, runner Runner, logger *slog.Logger) *ComposeCLI {
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ComposeCLI{binary: binary, runner: runner, logger: logger}
}

// Version returns the compose CLI version string.
func (c *ComposeCLI) Version(ctx context.Context, opts ComposeOptions) (string, error) {
	res, err := c.run(ctx, "version", opts, "version", "--short")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Out), nil
}

// UpAll starts every service in the manifest, detached.
func (c *ComposeCLI) UpAll(ctx context.Context, opts ComposeOptions) (ComposeResult, error) {
	return c.run(ctx, "upAll", opts, "up", "-d")
}

// Down stops and removes every service in the manifest.
func (c *ComposeCLI) Down(ctx context.Context, opts ComposeOptions) (ComposeResult, error) {
	return c.run(ctx, "down", opts, "down")
}

// UpOne starts a single service, detached.
func (c *ComposeCLI) UpOne(ctx context.Context, service string, opts ComposeOptions) (ComposeResult, error) {
	return c.run(ctx, "upOne", opts, "up", "-d", service)
}

// StopOne stops a single service without removing it.
func (c *ComposeCLI) StopOne(ctx context.Context, service string, opts ComposeOptions) (ComposeResult, error) {
	return c.run(ctx, "stopOne", opts, "stop", service)
}

// Rm removes stopped service containers without prompting.
func (c *ComposeCLI) Rm(ctx context.Context, opts ComposeOptions, services ...string) (ComposeResult, error) {
	args := append([]string{"rm", "-f"}, services...)
	return c.run(ctx, "rm", opts, args...)
}

func (c *ComposeCLI) run(ctx context.Context, op string, opts ComposeOptions, args ...string) (ComposeResult, error) {
	name, full := c.command(args)
	cmdline := name + " " + strings.Join(full, " ")

	c.logger.Debug("running compose command", "op", op, "cmd", cmdline, "cwd", opts.Cwd)

	stdout, stderr, code, err := c.runner.Run(ctx, opts.Cwd, envList(opts.Env), name, full...)
	if err != nil {
		return ComposeResult{}, &ExecError{Op: op, Errno: err.Error(), Cause: err}
	}

	res := ComposeResult{Command: cmdline, ExitCode: code, Out: stdout, Err: stderr}
	if code != 0 {
		c.logger.Debug("compose command failed", "op", op, "exit_code", code, "stderr", stderr)
		return res, &ComposeError{Op: op, ExitCode: code, Out: stdout, Err: strings.TrimSpace(stderr)}
	}
	return res, nil
}

func (c *ComposeCLI) command(args []string) (string, []string) {
	if c.binary == "" || c.binary == "docker" {
		return "docker", append([]string{"compose"}, args...)
	}
	return c.binary, args
}

// envList converts an environment map to sorted KEY=VALUE pairs. A nil map
// yields nil so the child inherits the current process environment.
func envList(env map[string]string) []string {
	if env == nil {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
