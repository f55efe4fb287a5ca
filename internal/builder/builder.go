package builder

import (
	"context"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

//go:embed runtime/Dockerfile
var baseDockerfile []byte

//go:embed runtime/runner.py
var runnerScript []byte

// BaseImage is the default runtime every project starts from.
const BaseImage = "clowdy-python-runtime"

// imagePrefix namespaces per-project images: clowdy-project-{id}:{hash8}.
const imagePrefix = "clowdy-project-"

// projectDockerfile layers a project's pip packages on the base runtime.
const projectDockerfile = "FROM " + BaseImage + "\n" +
	"COPY requirements.txt /tmp/requirements.txt\n" +
	"RUN pip install --no-cache-dir -r /tmp/requirements.txt && rm /tmp/requirements.txt\n"

// Engine is the slice of the Docker driver the builder needs.
type Engine interface {
	ImageExists(ctx context.Context, image string) (bool, error)
	BuildImage(ctx context.Context, tag string, files map[string][]byte) error
	RemoveImage(ctx context.Context, tag string) error
	ImageTags(ctx context.Context) ([]string, error)
}

// Builder produces content-addressed per-project images: the tag encodes
// the requirements hash, so unchanged requirements never rebuild.
type Builder struct {
	engine Engine
	group  singleflight.Group
}

// New creates a Builder on top of the given engine.
func New(engine Engine) *Builder {
	return &Builder{engine: engine}
}

// HashRequirements canonicalizes a requirements.txt and returns its
// SHA-256 hex digest. Lines are trimmed, empty lines and comments are
// dropped, and the rest is sorted, so two files listing the same packages
// in a different order map to the same image.
func HashRequirements(requirementsTxt string) string {
	var lines []string
	for _, line := range strings.Split(requirementsTxt, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	sort.Strings(lines)
	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}

// ImageName returns the tag for a project's custom image.
func ImageName(projectID, hash string) string {
	return fmt.Sprintf("%s%s:%s", imagePrefix, projectID, hash[:8])
}

// BuildProjectImage builds (or reuses) the image for a project's
// requirements and returns its tag plus the requirements hash. Concurrent
// builds for the same project and hash collapse into a single build. A
// fresh build prunes the project's older images afterwards.
func (b *Builder) BuildProjectImage(ctx context.Context, projectID, requirementsTxt string) (string, string, error) {
	hash := HashRequirements(requirementsTxt)
	image := ImageName(projectID, hash)

	_, err, _ := b.group.Do(projectID+":"+hash, func() (any, error) {
		exists, err := b.engine.ImageExists(ctx, image)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, nil
		}

		zap.L().Info("building project image",
			zap.String("image", image),
			zap.String("project_id", projectID))

		// The raw text goes into the context; pip sees exactly what the
		// user wrote. Only the hash is canonicalized.
		files := map[string][]byte{
			"Dockerfile":       []byte(projectDockerfile),
			"requirements.txt": []byte(requirementsTxt),
		}
		if err := b.engine.BuildImage(ctx, image, files); err != nil {
			return nil, err
		}
		b.PruneProjectImages(ctx, projectID, image)
		return nil, nil
	})
	if err != nil {
		return "", "", err
	}
	return image, hash, nil
}

// ImageExists reports whether the given tag is present locally.
func (b *Builder) ImageExists(ctx context.Context, image string) (bool, error) {
	return b.engine.ImageExists(ctx, image)
}

// EnsureBaseImage builds the default runtime image if it is missing, so a
// fresh install can invoke functions without any manual setup.
func (b *Builder) EnsureBaseImage(ctx context.Context) error {
	exists, err := b.engine.ImageExists(ctx, BaseImage)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	zap.L().Info("building base runtime image", zap.String("image", BaseImage))
	return b.engine.BuildImage(ctx, BaseImage, map[string][]byte{
		"Dockerfile": baseDockerfile,
		"runner.py":  runnerScript,
	})
}

// PruneProjectImages removes a project's custom images except keep, which
// may be empty to remove them all. Best effort: failures are logged and
// skipped.
func (b *Builder) PruneProjectImages(ctx context.Context, projectID, keep string) {
	tags, err := b.engine.ImageTags(ctx)
	if err != nil {
		zap.L().Warn("failed to list images for prune", zap.Error(err))
		return
	}
	prefix := imagePrefix + projectID + ":"
	for _, tag := range tags {
		if strings.HasPrefix(tag, prefix) && tag != keep {
			if err := b.engine.RemoveImage(ctx, tag); err != nil {
				zap.L().Warn("failed to remove stale image",
					zap.String("image", tag), zap.Error(err))
			}
		}
	}
}
