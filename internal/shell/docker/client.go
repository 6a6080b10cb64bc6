package docker

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
)

// =============================================================================
// Docker Client Implementation
// =============================================================================

// DockerClient queries the container engine through the Docker SDK.
type DockerClient struct {
	cli *client.Client
}

// NewDockerClient creates a new Docker client.
// If host is empty, it uses the default Docker host from environment.
// No connection is made until the first call.
func NewDockerClient(host string) (*DockerClient, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, NewDockerError("NewDockerClient", "", "", fmt.Sprintf("failed to create client: %v", err), ErrConnectionFailed)
	}
	return &DockerClient{cli: cli}, nil
}

// Ping checks if Docker daemon is reachable.
func (d *DockerClient) Ping(ctx context.Context) error {
	if _, err := d.cli.Ping(ctx); err != nil {
		return NewDockerError("Ping", "", "", fmt.Sprintf("failed to ping docker: %v", err), ErrConnectionFailed)
	}
	return nil
}

// Close closes the Docker client connection.
func (d *DockerClient) Close() error {
	return d.cli.Close()
}

// Version returns the engine's server version.
func (d *DockerClient) Version(ctx context.Context) (EngineVersion, error) {
	v, err := d.cli.ServerVersion(ctx)
	if err != nil {
		return EngineVersion{}, NewDockerError("Version", "engine", "", err.Error(), err)
	}
	return EngineVersion{Version: v.Version, APIVersion: v.APIVersion}, nil
}

// ListImages returns every image the engine knows about.
func (d *DockerClient) ListImages(ctx context.Context) ([]ImageSummary, error) {
	images, err := d.cli.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return nil, NewDockerError("ListImages", "image", "", err.Error(), err)
	}
	out := make([]ImageSummary, 0, len(images))
	for _, img := range images {
		out = append(out, ImageSummary{ID: img.ID, RepoTags: img.RepoTags})
	}
	return out, nil
}
