package invoke

import (
	"context"

	"clowdy/internal/builder"
	"clowdy/internal/docker"
)

// Placement owns sandbox lifecycle: it is the only component that calls
// the driver's create and destroy. The pool uses it as its Destroyer and
// the orchestrator uses it for cold starts.
type Placement struct {
	driver Driver
}

// NewPlacement creates a Placement on top of the given driver.
func NewPlacement(driver Driver) *Placement {
	return &Placement{driver: driver}
}

// CreateSandbox cold-starts a sandbox. An empty image means the default
// runtime.
func (p *Placement) CreateSandbox(ctx context.Context, image string, networkEnabled bool) (string, error) {
	if image == "" {
		image = builder.BaseImage
	}
	return p.driver.CreateSandbox(ctx, docker.CreateSandboxOptions{
		Image:          image,
		NetworkEnabled: networkEnabled,
	})
}

// DestroySandbox force-removes a sandbox.
func (p *Placement) DestroySandbox(ctx context.Context, id string) error {
	return p.driver.DestroySandbox(ctx, id)
}
