package builder_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clowdy/internal/builder"
)

type stubEngine struct {
	imageExistsFn func(ctx context.Context, image string) (bool, error)
	buildImageFn  func(ctx context.Context, tag string, files map[string][]byte) error
	removeImageFn func(ctx context.Context, tag string) error
	imageTagsFn   func(ctx context.Context) ([]string, error)
}

func (s *stubEngine) ImageExists(ctx context.Context, image string) (bool, error) {
	if s.imageExistsFn != nil {
		return s.imageExistsFn(ctx, image)
	}
	return false, nil
}

func (s *stubEngine) BuildImage(ctx context.Context, tag string, files map[string][]byte) error {
	if s.buildImageFn != nil {
		return s.buildImageFn(ctx, tag, files)
	}
	return nil
}

func (s *stubEngine) RemoveImage(ctx context.Context, tag string) error {
	if s.removeImageFn != nil {
		return s.removeImageFn(ctx, tag)
	}
	return nil
}

func (s *stubEngine) ImageTags(ctx context.Context) ([]string, error) {
	if s.imageTagsFn != nil {
		return s.imageTagsFn(ctx)
	}
	return nil, nil
}

var _ builder.Engine = (*stubEngine)(nil)

func TestHashRequirements_OrderInsensitive(t *testing.T) {
	a := builder.HashRequirements("requests==2.31.0\nflask==3.0.0\n")
	b := builder.HashRequirements("flask==3.0.0\nrequests==2.31.0\n")
	assert.Equal(t, a, b)
}

func TestHashRequirements_IgnoresCommentsAndBlanks(t *testing.T) {
	a := builder.HashRequirements("requests==2.31.0")
	b := builder.HashRequirements("# http client\n\n  requests==2.31.0  \n\n")
	assert.Equal(t, a, b)
}

func TestHashRequirements_DifferentPackagesDiffer(t *testing.T) {
	a := builder.HashRequirements("requests==2.31.0")
	b := builder.HashRequirements("requests==2.32.0")
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 64)
}

func TestImageName_Format(t *testing.T) {
	hash := builder.HashRequirements("requests==2.31.0")
	name := builder.ImageName("abc123def456", hash)
	assert.Equal(t, "clowdy-project-abc123def456:"+hash[:8], name)
}

func TestBuildProjectImage_SkipsWhenImageExists(t *testing.T) {
	built := false
	engine := &stubEngine{
		imageExistsFn: func(_ context.Context, _ string) (bool, error) { return true, nil },
		buildImageFn: func(_ context.Context, _ string, _ map[string][]byte) error {
			built = true
			return nil
		},
	}

	b := builder.New(engine)
	image, hash, err := b.BuildProjectImage(context.Background(), "p1", "requests==2.31.0")
	require.NoError(t, err)
	assert.False(t, built)
	assert.Equal(t, builder.ImageName("p1", hash), image)
}

func TestBuildProjectImage_SendsDockerfileAndRawRequirements(t *testing.T) {
	reqs := "flask==3.0.0\nrequests==2.31.0"
	var gotTag string
	var gotFiles map[string][]byte
	engine := &stubEngine{
		buildImageFn: func(_ context.Context, tag string, files map[string][]byte) error {
			gotTag = tag
			gotFiles = files
			return nil
		},
	}

	b := builder.New(engine)
	image, _, err := b.BuildProjectImage(context.Background(), "p1", reqs)
	require.NoError(t, err)
	assert.Equal(t, image, gotTag)

	require.Contains(t, gotFiles, "Dockerfile")
	require.Contains(t, gotFiles, "requirements.txt")
	dockerfile := string(gotFiles["Dockerfile"])
	assert.True(t, strings.HasPrefix(dockerfile, "FROM clowdy-python-runtime\n"), dockerfile)
	assert.Contains(t, dockerfile, "pip install --no-cache-dir -r /tmp/requirements.txt")
	assert.Equal(t, reqs, string(gotFiles["requirements.txt"]))
}

func TestBuildProjectImage_PropagatesBuildError(t *testing.T) {
	engine := &stubEngine{
		buildImageFn: func(_ context.Context, _ string, _ map[string][]byte) error {
			return errors.New("docker build failed:\nstep 2/3 error")
		},
	}

	b := builder.New(engine)
	_, _, err := b.BuildProjectImage(context.Background(), "p1", "nosuchpkg==9.9.9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "docker build failed")
}

func TestEnsureBaseImage(t *testing.T) {
	var gotTag string
	var gotFiles map[string][]byte
	engine := &stubEngine{
		buildImageFn: func(_ context.Context, tag string, files map[string][]byte) error {
			gotTag = tag
			gotFiles = files
			return nil
		},
	}

	b := builder.New(engine)
	require.NoError(t, b.EnsureBaseImage(context.Background()))
	assert.Equal(t, builder.BaseImage, gotTag)
	assert.Contains(t, gotFiles, "Dockerfile")
	assert.Contains(t, gotFiles, "runner.py")
	assert.Contains(t, string(gotFiles["Dockerfile"]), "FROM python:3.11-slim")
	assert.Contains(t, string(gotFiles["runner.py"]), "INPUT_JSON")

	// Present already: no rebuild.
	engine.imageExistsFn = func(_ context.Context, _ string) (bool, error) { return true, nil }
	gotTag = ""
	require.NoError(t, b.EnsureBaseImage(context.Background()))
	assert.Empty(t, gotTag)
}

func TestPruneProjectImages(t *testing.T) {
	var removed []string
	engine := &stubEngine{
		imageTagsFn: func(_ context.Context) ([]string, error) {
			return []string{
				"clowdy-project-p1:aaaa1111",
				"clowdy-project-p1:bbbb2222",
				"clowdy-project-p2:cccc3333",
				"python:3.11-slim",
			}, nil
		},
		removeImageFn: func(_ context.Context, tag string) error {
			removed = append(removed, tag)
			return nil
		},
	}

	b := builder.New(engine)
	b.PruneProjectImages(context.Background(), "p1", "clowdy-project-p1:bbbb2222")
	assert.Equal(t, []string{"clowdy-project-p1:aaaa1111"}, removed)

	removed = nil
	b.PruneProjectImages(context.Background(), "p1", "")
	assert.Equal(t, []string{"clowdy-project-p1:aaaa1111", "clowdy-project-p1:bbbb2222"}, removed)
}
