package lifecycle

import (
	"context"

	"github.com/artpar/lnstack/internal/shell/docker"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// Version Probe
// =============================================================================

// Versions holds the engine and compose versions. A field is empty when its
// query failed in lenient mode.
type Versions struct {
	Docker  string `json:"docker"`
	Compose string `json:"compose"`
}

// GetVersions queries both executors. Both queries always run. In lenient
// mode failures leave the matching field empty and no error is returned. In
// strict mode any failure is returned with its normalized message,
// preferring the engine's when both fail. The compose query runs with the
// built environment.
func (e *Executor) GetVersions(ctx context.Context, strict bool) (Versions, error) {
	var (
		out                   Versions
		engineErr, composeErr error
	)
	env := e.env.Build()

	var g errgroup.Group
	g.Go(func() error {
		v, err := e.engine.Version(ctx)
		if err != nil {
			engineErr = err
			return nil
		}
		out.Docker = v.Version
		return nil
	})
	g.Go(func() error {
		v, err := e.compose.Version(ctx, docker.ComposeOptions{Env: env})
		if err != nil {
			composeErr = err
			return nil
		}
		out.Compose = v
		return nil
	})
	_ = g.Wait()

	if engineErr != nil {
		e.logger.Warn("engine version query failed", "error", engineErr)
	}
	if composeErr != nil {
		e.logger.Warn("compose version query failed", "error", composeErr)
	}

	if strict {
		if engineErr != nil {
			return Versions{}, NewQueryError("engine version", engineErr)
		}
		if composeErr != nil {
			return Versions{}, NewQueryError("compose version", composeErr)
		}
	}
	return out, nil
}

// =============================================================================
// Image Listing
// =============================================================================

// GetImages returns every tag known to the engine in engine order. Images
// without a tag are skipped. A failed query yields an empty list.
func (e *Executor) GetImages(ctx context.Context) []string {
	images, err := e.engine.ListImages(ctx)
	if err != nil {
		e.logger.Warn("image list query failed", "error", err)
		return []string{}
	}

	tags := []string{}
	for _, img := range images {
		for _, tag := range img.RepoTags {
			if tag == "" || tag == "<none>:<none>" {
				continue
			}
			tags = append(tags, tag)
		}
	}
	return tags
}
