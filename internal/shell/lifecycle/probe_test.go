package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/artpar/lnstack/internal/shell/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// GetVersions Tests
// =============================================================================

func TestGetVersions_Success(t *testing.T) {
	f := newFixture()
	f.engine.version = "28.5.2"
	f.compose.version = "2.40.0"

	for _, strict := range []bool{false, true} {
		v, err := f.exec.GetVersions(context.Background(), strict)
		require.NoError(t, err)
		assert.Equal(t, Versions{Docker: "28.5.2", Compose: "2.40.0"}, v)
	}

	require.Len(t, f.compose.calls, 2)
	for _, call := range f.compose.calls {
		assert.Equal(t, "version", call.verb)
		assert.Equal(t, map[string]string{"USERID": "1000", "GROUPID": "1000"}, call.opts.Env,
			"compose version runs with the built environment")
	}
}

func TestGetVersions_StrictUsesEngineMessage(t *testing.T) {
	cause := errors.New("Cannot connect to the Docker daemon at unix:///var/run/docker.sock")
	f := newFixture()
	f.engine.versionErr = docker.NewDockerError("Version", "engine", "", cause.Error(), cause)
	f.compose.errs["version"] = &docker.ComposeError{Op: "version", ExitCode: 1, Err: "compose broke"}

	_, err := f.exec.GetVersions(context.Background(), true)
	require.Error(t, err)
	assert.Equal(t, cause.Error(), err.Error())
	assert.ErrorIs(t, err, cause)

	var qerr *QueryError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, "engine version", qerr.Op)
}

func TestGetVersions_StrictUsesComposeStderr(t *testing.T) {
	f := newFixture()
	f.engine.version = "28.5.2"
	f.compose.errs["version"] = &docker.ComposeError{Op: "version", ExitCode: 1, Err: "unknown command: compose"}

	_, err := f.exec.GetVersions(context.Background(), true)
	require.Error(t, err)
	assert.Equal(t, "unknown command: compose", err.Error())
	assert.ErrorIs(t, err, docker.ErrCommandFailed)
}

func TestGetVersions(t *testing.T) {
	engineErr := errors.New("engine down")
	composeErr := errors.New("compose missing")

	tests := []struct {
		name       string
		engineErr  error
		composeErr error
		strict     bool
		want       Versions
		wantErr    string
	}{
		{"lenient engine fails", engineErr, nil, false, Versions{Compose: "2.40.0"}, ""},
		{"lenient compose fails", nil, composeErr, false, Versions{Docker: "28.5.2"}, ""},
		{"lenient both fail", engineErr, composeErr, false, Versions{}, ""},
		{"strict engine fails", engineErr, nil, true, Versions{}, "engine down"},
		{"strict compose fails", nil, composeErr, true, Versions{}, "compose missing"},
		{"strict both fail", engineErr, composeErr, true, Versions{}, "engine down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.engine.version = "28.5.2"
			f.engine.versionErr = tt.engineErr
			f.compose.version = "2.40.0"
			f.compose.errs["version"] = tt.composeErr

			v, err := f.exec.GetVersions(context.Background(), tt.strict)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
			assert.Len(t, f.compose.calls, 1, "compose is always queried")
		})
	}
}

// =============================================================================
// GetImages Tests
// =============================================================================

func TestGetImages(t *testing.T) {
	tests := []struct {
		name   string
		images []docker.ImageSummary
		want   []string
	}{
		{
			name:   "own repo only",
			images: []docker.ImageSummary{{RepoTags: []string{"polarlightning/aaa"}}, {RepoTags: []string{"polarlightning/bbb"}}},
			want:   []string{"polarlightning/aaa", "polarlightning/bbb"},
		},
		{
			name:   "mixed repos keep order",
			images: []docker.ImageSummary{{RepoTags: []string{"other1"}}, {RepoTags: []string{"polarlightning/aaa"}}, {RepoTags: []string{"other2"}}},
			want:   []string{"other1", "polarlightning/aaa", "other2"},
		},
		{
			name:   "untagged skipped",
			images: []docker.ImageSummary{{RepoTags: nil}, {RepoTags: []string{"<none>:<none>"}}, {RepoTags: []string{"a", "b"}}},
			want:   []string{"a", "b"},
		},
		{
			name:   "empty",
			images: nil,
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.engine.images = tt.images
			assert.Equal(t, tt.want, f.exec.GetImages(context.Background()))
		})
	}
}

func TestGetImages_FailureYieldsEmpty(t *testing.T) {
	f := newFixture()
	f.engine.imagesErr = errors.New("engine down")

	got := f.exec.GetImages(context.Background())
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
