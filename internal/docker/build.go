package docker

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// buildLogTail is how many trailing lines of build output an error carries.
const buildLogTail = 10

// BuildImage builds an image by piping a tar build context to the docker
// CLI. The CLI is used instead of the SDK build endpoint so BuildKit and
// the user's credential helpers work exactly as they do in a shell.
func (c *Client) BuildImage(ctx context.Context, tag string, files map[string][]byte) error {
	archive, err := TarArchive(files)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, "docker", "build", "-t", tag, "-")
	cmd.Stdin = bytes.NewReader(archive)
	if c.host != "" {
		cmd.Env = append(os.Environ(), "DOCKER_HOST="+c.host)
	}

	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("docker build failed:\n%s", lastLines(string(out), buildLogTail))
	}
	return nil
}

// lastLines returns the last n lines of s with surrounding space trimmed.
func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
