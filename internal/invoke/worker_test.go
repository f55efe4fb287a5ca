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
)

func TestExecute_InjectsCodeAndBuildsEnv(t *testing.T) {
	var gotDir string
	var gotFiles map[string][]byte
	var gotCmd, gotEnv []string
	var gotTimeout time.Duration

	d := &stubDriver{
		injectFn: func(_ context.Context, _ string, dir string, files map[string][]byte) error {
			gotDir = dir
			gotFiles = files
			return nil
		},
		execFn: func(_ context.Context, _ string, cmd, env []string, timeout time.Duration) (docker.ExecResult, error) {
			gotCmd = cmd
			gotEnv = env
			gotTimeout = timeout
			return docker.ExecResult{ExitCode: 0, Stdout: "{}"}, nil
		},
	}
	w := invoke.NewWorker(d)

	code := "def handler(event):\n    return event\n"
	_, err := w.Execute(context.Background(), "sbx-1", code,
		map[string]any{"name": "Ada"},
		map[string]string{
			"DATABASE_URL":  "postgres://u:p@h/db",
			"FUNCTION_NAME": "spoofed",
		},
		"greeter")
	require.NoError(t, err)

	assert.Equal(t, "/app", gotDir)
	assert.Equal(t, code, string(gotFiles["function.py"]))
	assert.Equal(t, []string{"python", "/app/runner.py"}, gotCmd)
	assert.Equal(t, invoke.ExecTimeout, gotTimeout)

	// Sorted, with the controlled vars overriding user ones.
	assert.Equal(t, []string{
		"DATABASE_URL=postgres://u:p@h/db",
		"FUNCTION_NAME=greeter",
		`INPUT_JSON={"name":"Ada"}`,
	}, gotEnv)
}

func TestExecute_NilInputBecomesEmptyObject(t *testing.T) {
	var gotEnv []string
	d := &stubDriver{
		execFn: func(_ context.Context, _ string, _, env []string, _ time.Duration) (docker.ExecResult, error) {
			gotEnv = env
			return docker.ExecResult{ExitCode: 0, Stdout: "null"}, nil
		},
	}
	w := invoke.NewWorker(d)

	_, err := w.Execute(context.Background(), "sbx-1", "x", nil, nil, "fn")
	require.NoError(t, err)
	assert.Contains(t, gotEnv, "INPUT_JSON={}")
}

func TestExecute_SuccessOutputs(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
		want   any
	}{
		{"json object", `{"n": 42}` + "\n", map[string]any{"n": float64(42)}},
		{"json array", `[1, 2]`, []any{float64(1), float64(2)}},
		{"json string", `"hello"`, "hello"},
		{"raw text", "plain text\n", "plain text"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &stubDriver{
				execFn: func(_ context.Context, _ string, _, _ []string, _ time.Duration) (docker.ExecResult, error) {
					return docker.ExecResult{ExitCode: 0, Stdout: tt.stdout}, nil
				},
			}
			res, err := invoke.NewWorker(d).Execute(context.Background(), "sbx-1", "x", nil, nil, "fn")
			require.NoError(t, err)
			assert.True(t, res.Success)
			assert.Equal(t, tt.want, res.Output)
		})
	}
}

func TestExecute_FailureOutputs(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
		stderr string
		want   any
	}{
		{"runner error object", `{"error": "boom"}`, "", "boom"},
		{"raw traceback", "Traceback (most recent call last):\n  ...", "", "Traceback (most recent call last):\n  ..."},
		{"object without error key", `{"detail": "x"}`, "", `{"detail": "x"}`},
		{"stderr fallback", "", "python: MemoryError", "python: MemoryError"},
		{"nothing at all", "", "", "Function exited with an error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &stubDriver{
				execFn: func(_ context.Context, _ string, _, _ []string, _ time.Duration) (docker.ExecResult, error) {
					return docker.ExecResult{ExitCode: 1, Stdout: tt.stdout, Stderr: tt.stderr}, nil
				},
			}
			res, err := invoke.NewWorker(d).Execute(context.Background(), "sbx-1", "x", nil, nil, "fn")
			require.NoError(t, err)
			assert.False(t, res.Success)
			assert.False(t, res.TimedOut)
			assert.Equal(t, tt.want, res.Output)
		})
	}
}

func TestExecute_TimeoutSentinel(t *testing.T) {
	d := &stubDriver{
		execFn: func(_ context.Context, _ string, _, _ []string, _ time.Duration) (docker.ExecResult, error) {
			return docker.ExecResult{ExitCode: docker.ExitTimeout}, nil
		},
	}
	res, err := invoke.NewWorker(d).Execute(context.Background(), "sbx-1", "x", nil, nil, "fn")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.True(t, res.TimedOut)
	assert.Equal(t, "Function timed out after 30 seconds", res.Output)
}

func TestExecute_InjectFailurePropagates(t *testing.T) {
	d := &stubDriver{
		injectFn: func(context.Context, string, string, map[string][]byte) error {
			return errors.New("tar extract exited 2")
		},
	}
	_, err := invoke.NewWorker(d).Execute(context.Background(), "sbx-1", "x", nil, nil, "fn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tar extract")
}
