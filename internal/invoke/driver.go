package invoke

import (
	"context"
	"time"

	"clowdy/internal/docker"
)

// Driver is the slice of the Docker client the invoke path needs.
type Driver interface {
	Ping(ctx context.Context) error
	CreateSandbox(ctx context.Context, opts docker.CreateSandboxOptions) (string, error)
	DestroySandbox(ctx context.Context, id string) error
	InjectFiles(ctx context.Context, id, dir string, files map[string][]byte) error
	Exec(ctx context.Context, id string, cmd, env []string, timeout time.Duration) (docker.ExecResult, error)
}
