package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/containerd/errdefs"
	"github.com/moby/moby/api/pkg/stdcopy"
	"github.com/moby/moby/api/types/container"
	moby "github.com/moby/moby/client"
)

// Client wraps the Docker SDK and exposes the sandbox driver operations:
// create, destroy, exec, and file injection.
type Client struct {
	cli  *moby.Client
	host string
}

// Sandbox resource limits (128MB RAM, half a CPU). Deliberately tight:
// sandboxes run one short-lived function at a time.
const (
	sandboxMemoryBytes = 128 * 1024 * 1024
	sandboxNanoCPUs    = 500_000_000
)

// managedLabel marks containers owned by this control plane so orphans
// can be found after a crash.
const managedLabel = "clowdy.managed"

// ExitTimeout is the exit code reported when a command exceeds its deadline.
const ExitTimeout = -1

// ExecResult is the outcome of running a command inside a sandbox.
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// New creates a Client for the local Docker engine. No connection is made
// here; the daemon may come up after we do.
func New() (*Client, error) {
	host := discoverHost()
	opts := []moby.Opt{moby.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, moby.WithHost(host))
	} else {
		opts = append(opts, moby.FromEnv)
	}
	cli, err := moby.NewClientWithOpts(opts...)
	if err != nil {
		return nil, err
	}
	return &Client{cli: cli, host: host}, nil
}

// discoverHost picks the Docker socket: DOCKER_HOST if set, the Colima
// socket when present, otherwise empty (SDK default).
func discoverHost() string {
	if h := os.Getenv("DOCKER_HOST"); h != "" {
		return h
	}
	if home, err := os.UserHomeDir(); err == nil {
		sock := filepath.Join(home, ".colima", "default", "docker.sock")
		if _, err := os.Stat(sock); err == nil {
			return "unix://" + sock
		}
	}
	return ""
}

// Host returns the discovered Docker socket, empty when using the default.
func (c *Client) Host() string {
	return c.host
}

// Ping checks connectivity with the Docker daemon. Failures wrap
// ErrEngineUnavailable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.cli.Ping(ctx, moby.PingOptions{}); err != nil {
		return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	return nil
}

// CreateSandboxOptions configure a new sandbox container.
type CreateSandboxOptions struct {
	Image          string
	NetworkEnabled bool
}

// CreateSandbox creates and starts a sandbox running an idle keepalive
// process; code and input arrive later via InjectFiles and Exec.
// Returns ErrImageNotFound if the image does not exist locally.
func (c *Client) CreateSandbox(ctx context.Context, opts CreateSandboxOptions) (string, error) {
	exists, err := c.ImageExists(ctx, opts.Image)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", ErrImageNotFound
	}

	cfg := &container.Config{
		Image:           opts.Image,
		Cmd:             []string{"sleep", "infinity"},
		Labels:          map[string]string{managedLabel: "true"},
		NetworkDisabled: !opts.NetworkEnabled,
	}
	hostCfg := &container.HostConfig{
		Resources: container.Resources{
			Memory:   sandboxMemoryBytes,
			NanoCPUs: sandboxNanoCPUs,
		},
	}

	result, err := c.cli.ContainerCreate(ctx, moby.ContainerCreateOptions{
		Config:     cfg,
		HostConfig: hostCfg,
		Name:       generateName(),
	})
	if err != nil {
		return "", err
	}

	if _, err := c.cli.ContainerStart(ctx, result.ID, moby.ContainerStartOptions{}); err != nil {
		c.cli.ContainerRemove(context.Background(), result.ID, moby.ContainerRemoveOptions{Force: true})
		return "", err
	}

	return result.ID, nil
}

// DestroySandbox force-removes a sandbox container.
func (c *Client) DestroySandbox(ctx context.Context, id string) error {
	_, err := c.cli.ContainerRemove(ctx, id, moby.ContainerRemoveOptions{Force: true})
	return wrapNotFound(err)
}

// ListManagedSandboxes returns the IDs of every container carrying the
// managed label, running or not. Used to sweep orphans left behind by an
// unclean shutdown.
func (c *Client) ListManagedSandboxes(ctx context.Context) ([]string, error) {
	result, err := c.cli.ContainerList(ctx, moby.ContainerListOptions{All: true})
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, it := range result.Items {
		if it.Labels[managedLabel] == "true" {
			ids = append(ids, it.ID)
		}
	}
	return ids, nil
}

// InjectFiles writes files into a running sandbox by streaming a tar
// archive through an exec's stdin. dir is created if needed.
func (c *Client) InjectFiles(ctx context.Context, id, dir string, files map[string][]byte) error {
	archive, err := TarArchive(files)
	if err != nil {
		return err
	}
	cmd := []string{"sh", "-c", "mkdir -p " + dir + " && tar -xf - -C " + dir}
	res, err := c.execWithStdin(ctx, id, cmd, bytes.NewReader(archive))
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("inject files: tar extract exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// Exec runs a command inside a sandbox with the given environment,
// bounded by timeout. When the timeout fires the result carries
// ExitTimeout; the in-sandbox process keeps running engine-side, so the
// caller is expected to destroy the sandbox.
func (c *Client) Exec(ctx context.Context, id string, cmd, env []string, timeout time.Duration) (ExecResult, error) {
	execResult, err := c.cli.ExecCreate(ctx, id, moby.ExecCreateOptions{
		AttachStdout: true,
		AttachStderr: true,
		Cmd:          cmd,
		Env:          env,
	})
	if err != nil {
		return ExecResult{}, wrapNotFound(err)
	}

	attached, err := c.cli.ExecAttach(ctx, execResult.ID, moby.ExecAttachOptions{})
	if err != nil {
		return ExecResult{}, err
	}
	defer attached.Close()

	stdout := newTailBuffer(maxExecOutput)
	stderr := newTailBuffer(maxExecOutput)
	done := make(chan error, 1)
	go func() {
		_, err := stdcopy.StdCopy(stdout, stderr, attached.Reader)
		done <- err
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil && err != io.EOF {
			return ExecResult{}, err
		}
	case <-timer.C:
		attached.Close()
		<-done
		return ExecResult{ExitCode: ExitTimeout, Stdout: stdout.String(), Stderr: stderr.String()}, nil
	case <-ctx.Done():
		attached.Close()
		<-done
		return ExecResult{}, ctx.Err()
	}

	inspect, err := c.cli.ExecInspect(ctx, execResult.ID, moby.ExecInspectOptions{})
	if err != nil {
		return ExecResult{}, err
	}

	return ExecResult{ExitCode: inspect.ExitCode, Stdout: stdout.String(), Stderr: stderr.String()}, nil
}

// ImageExists checks if an image exists locally.
func (c *Client) ImageExists(ctx context.Context, image string) (bool, error) {
	_, err := c.cli.ImageInspect(ctx, image)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ImageTags returns every tag of every local image.
func (c *Client) ImageTags(ctx context.Context) ([]string, error) {
	result, err := c.cli.ImageList(ctx, moby.ImageListOptions{})
	if err != nil {
		return nil, err
	}
	var tags []string
	for _, img := range result.Items {
		tags = append(tags, img.RepoTags...)
	}
	return tags, nil
}

// RemoveImage removes a local image by tag.
func (c *Client) RemoveImage(ctx context.Context, tag string) error {
	_, err := c.cli.ImageRemove(ctx, tag, moby.ImageRemoveOptions{Force: true})
	return err
}

// execWithStdin runs a command feeding stdin, then collects the exit code.
func (c *Client) execWithStdin(ctx context.Context, id string, cmd []string, stdin io.Reader) (ExecResult, error) {
	execResult, err := c.cli.ExecCreate(ctx, id, moby.ExecCreateOptions{
		AttachStdin:  true,
		AttachStdout: true,
		AttachStderr: true,
		Cmd:          cmd,
	})
	if err != nil {
		return ExecResult{}, wrapNotFound(err)
	}

	attached, err := c.cli.ExecAttach(ctx, execResult.ID, moby.ExecAttachOptions{})
	if err != nil {
		return ExecResult{}, err
	}
	defer attached.Close()

	if _, err := io.Copy(attached.Conn, stdin); err != nil {
		return ExecResult{}, err
	}
	attached.CloseWrite()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, attached.Reader); err != nil && err != io.EOF {
		return ExecResult{}, err
	}

	inspect, err := c.cli.ExecInspect(ctx, execResult.ID, moby.ExecInspectOptions{})
	if err != nil {
		return ExecResult{}, err
	}

	return ExecResult{ExitCode: inspect.ExitCode, Stdout: stdout.String(), Stderr: stderr.String()}, nil
}

// wrapNotFound converts Docker "not found" errors to ErrNotFound.
func wrapNotFound(err error) error {
	if err == nil {
		return nil
	}
	if errdefs.IsNotFound(err) {
		return ErrNotFound
	}
	return err
}
