package invoke_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clowdy/internal/docker"
	"clowdy/internal/invoke"
	"clowdy/internal/pool"
)

type stubDriver struct {
	pingFn    func(ctx context.Context) error
	createFn  func(ctx context.Context, opts docker.CreateSandboxOptions) (string, error)
	destroyFn func(ctx context.Context, id string) error
	injectFn  func(ctx context.Context, id, dir string, files map[string][]byte) error
	execFn    func(ctx context.Context, id string, cmd, env []string, timeout time.Duration) (docker.ExecResult, error)

	created   []docker.CreateSandboxOptions
	destroyed []string
}

func (s *stubDriver) Ping(ctx context.Context) error {
	if s.pingFn != nil {
		return s.pingFn(ctx)
	}
	return nil
}

func (s *stubDriver) CreateSandbox(ctx context.Context, opts docker.CreateSandboxOptions) (string, error) {
	s.created = append(s.created, opts)
	if s.createFn != nil {
		return s.createFn(ctx, opts)
	}
	return "sbx-1", nil
}

func (s *stubDriver) DestroySandbox(ctx context.Context, id string) error {
	s.destroyed = append(s.destroyed, id)
	if s.destroyFn != nil {
		return s.destroyFn(ctx, id)
	}
	return nil
}

func (s *stubDriver) InjectFiles(ctx context.Context, id, dir string, files map[string][]byte) error {
	if s.injectFn != nil {
		return s.injectFn(ctx, id, dir, files)
	}
	return nil
}

func (s *stubDriver) Exec(ctx context.Context, id string, cmd, env []string, timeout time.Duration) (docker.ExecResult, error) {
	if s.execFn != nil {
		return s.execFn(ctx, id, cmd, env, timeout)
	}
	return docker.ExecResult{ExitCode: 0, Stdout: "{}"}, nil
}

var _ invoke.Driver = (*stubDriver)(nil)

func newOrchestrator(d *stubDriver) (*invoke.Orchestrator, *pool.Pool) {
	placement := invoke.NewPlacement(d)
	p := pool.New(placement, pool.Config{})
	return invoke.NewOrchestrator(d, placement, p), p
}

func TestInvoke_ColdStartSuccess(t *testing.T) {
	d := &stubDriver{
		execFn: func(_ context.Context, _ string, _, _ []string, _ time.Duration) (docker.ExecResult, error) {
			return docker.ExecResult{ExitCode: 0, Stdout: `{"message": "hi"}` + "\n"}, nil
		},
	}
	orch, p := newOrchestrator(d)

	inv := orch.Invoke(context.Background(), invoke.Request{
		Code:         "def handler(event):\n    return {\"message\": \"hi\"}\n",
		FunctionName: "hello",
	})

	assert.True(t, inv.Success)
	assert.Equal(t, map[string]any{"message": "hi"}, inv.Output)
	assert.True(t, inv.ColdStart)
	assert.Equal(t, "success", inv.Status())

	require.Len(t, d.created, 1)
	assert.Equal(t, "clowdy-python-runtime", d.created[0].Image)
	assert.False(t, d.created[0].NetworkEnabled)

	// Clean run: the sandbox went back to the pool.
	assert.Equal(t, 1, p.Size())
	assert.Equal(t, map[string]int{"clowdy-python-runtime|net=false": 1}, p.Stats())
}

func TestInvoke_WarmReuse(t *testing.T) {
	var execID string
	d := &stubDriver{
		execFn: func(_ context.Context, id string, _, _ []string, _ time.Duration) (docker.ExecResult, error) {
			execID = id
			return docker.ExecResult{ExitCode: 0, Stdout: `"ok"`}, nil
		},
	}
	orch, p := newOrchestrator(d)
	p.Release(pool.Key{Image: "clowdy-python-runtime"}, "warm-1")

	inv := orch.Invoke(context.Background(), invoke.Request{Code: "x", FunctionName: "fn"})

	assert.True(t, inv.Success)
	assert.False(t, inv.ColdStart)
	assert.Equal(t, "warm-1", execID)
	assert.Empty(t, d.created)
	assert.Equal(t, 1, p.Size())
}

func TestInvoke_EngineDown(t *testing.T) {
	d := &stubDriver{
		pingFn: func(context.Context) error { return errors.New("dial unix /var/run/docker.sock: no such file") },
	}
	orch, _ := newOrchestrator(d)

	inv := orch.Invoke(context.Background(), invoke.Request{Code: "x"})

	assert.False(t, inv.Success)
	assert.Equal(t, "Could not connect to Docker. Is Docker running?", inv.Output)
	assert.True(t, inv.ColdStart)
	assert.Empty(t, d.created)
}

func TestInvoke_DefaultImageMissing(t *testing.T) {
	d := &stubDriver{
		createFn: func(context.Context, docker.CreateSandboxOptions) (string, error) {
			return "", docker.ErrImageNotFound
		},
	}
	orch, _ := newOrchestrator(d)

	inv := orch.Invoke(context.Background(), invoke.Request{Code: "x"})

	assert.False(t, inv.Success)
	assert.Equal(t, "Docker image 'clowdy-python-runtime' not found. Build the default runtime image first.", inv.Output)
}

func TestInvoke_CustomImageMissing(t *testing.T) {
	d := &stubDriver{
		createFn: func(context.Context, docker.CreateSandboxOptions) (string, error) {
			return "", docker.ErrImageNotFound
		},
	}
	orch, _ := newOrchestrator(d)

	inv := orch.Invoke(context.Background(), invoke.Request{Code: "x", Image: "clowdy-project-p1:abcd1234"})

	assert.Equal(t, "Docker image 'clowdy-project-p1:abcd1234' not found. The project's custom image may need to be rebuilt.", inv.Output)
}

func TestInvoke_CreateFailsUnexpectedly(t *testing.T) {
	d := &stubDriver{
		createFn: func(context.Context, docker.CreateSandboxOptions) (string, error) {
			return "", errors.New("no space left on device")
		},
	}
	orch, _ := newOrchestrator(d)

	inv := orch.Invoke(context.Background(), invoke.Request{Code: "x"})

	assert.Equal(t, "Unexpected error: no space left on device", inv.Output)
}

func TestInvoke_UserErrorStillReleases(t *testing.T) {
	d := &stubDriver{
		execFn: func(_ context.Context, _ string, _, _ []string, _ time.Duration) (docker.ExecResult, error) {
			return docker.ExecResult{ExitCode: 1, Stdout: `{"error": "Function error: ZeroDivisionError"}`}, nil
		},
	}
	orch, p := newOrchestrator(d)

	inv := orch.Invoke(context.Background(), invoke.Request{Code: "x"})

	assert.False(t, inv.Success)
	assert.Equal(t, "Function error: ZeroDivisionError", inv.Output)
	assert.Equal(t, "error", inv.Status())

	// The sandbox itself is healthy: back to the pool, not destroyed.
	assert.Equal(t, 1, p.Size())
	assert.Empty(t, d.destroyed)
}

func TestInvoke_DriverErrorDestroys(t *testing.T) {
	d := &stubDriver{
		execFn: func(_ context.Context, _ string, _, _ []string, _ time.Duration) (docker.ExecResult, error) {
			return docker.ExecResult{}, errors.New("connection reset by peer")
		},
	}
	orch, p := newOrchestrator(d)

	inv := orch.Invoke(context.Background(), invoke.Request{Code: "x"})

	assert.False(t, inv.Success)
	assert.Equal(t, "Execution error: connection reset by peer", inv.Output)
	assert.Equal(t, []string{"sbx-1"}, d.destroyed)
	assert.Equal(t, 0, p.Size())
}

func TestInvoke_TimeoutDestroys(t *testing.T) {
	d := &stubDriver{
		execFn: func(_ context.Context, _ string, _, _ []string, _ time.Duration) (docker.ExecResult, error) {
			return docker.ExecResult{ExitCode: docker.ExitTimeout}, nil
		},
	}
	orch, p := newOrchestrator(d)

	inv := orch.Invoke(context.Background(), invoke.Request{Code: "while True: pass"})

	assert.False(t, inv.Success)
	assert.True(t, inv.TimedOut)
	assert.Equal(t, "Function timed out after 30 seconds", inv.Output)
	assert.Equal(t, "timeout", inv.Status())
	assert.Equal(t, []string{"sbx-1"}, d.destroyed)
	assert.Equal(t, 0, p.Size())
}
