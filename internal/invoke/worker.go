package invoke

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"clowdy/internal/docker"
)

// ExecTimeout bounds a single function execution.
const ExecTimeout = 30 * time.Second

// Result is the outcome of one function execution inside a sandbox.
// Output carries whatever the function produced: decoded JSON on success,
// an error message otherwise.
type Result struct {
	Success  bool
	Output   any
	TimedOut bool
}

// Worker runs user code inside an already-created sandbox. It never
// creates or destroys sandboxes; that is Placement's job.
type Worker struct {
	driver Driver
}

// NewWorker creates a Worker on top of the given driver.
func NewWorker(driver Driver) *Worker {
	return &Worker{driver: driver}
}

// Execute injects the code at /app/function.py and runs it through the
// runtime's runner with the merged environment.
func (w *Worker) Execute(ctx context.Context, sandboxID, code string, input map[string]any, envVars map[string]string, functionName string) (Result, error) {
	err := w.driver.InjectFiles(ctx, sandboxID, "/app", map[string][]byte{
		"function.py": []byte(code),
	})
	if err != nil {
		return Result{}, err
	}

	env, err := buildEnv(envVars, input, functionName)
	if err != nil {
		return Result{}, err
	}

	res, err := w.driver.Exec(ctx, sandboxID, []string{"python", "/app/runner.py"}, env, ExecTimeout)
	if err != nil {
		return Result{}, err
	}

	if res.ExitCode == docker.ExitTimeout {
		return Result{
			Success:  false,
			Output:   fmt.Sprintf("Function timed out after %d seconds", int(ExecTimeout/time.Second)),
			TimedOut: true,
		}, nil
	}

	if res.ExitCode != 0 {
		return Result{Success: false, Output: parseFailure(res)}, nil
	}
	return Result{Success: true, Output: parseSuccess(res)}, nil
}

// buildEnv merges the project env vars with the execution-controlled
// ones. INPUT_JSON and FUNCTION_NAME always win so user vars cannot
// spoof them. Sorted for determinism.
func buildEnv(envVars map[string]string, input map[string]any, functionName string) ([]string, error) {
	if input == nil {
		input = map[string]any{}
	}
	inputJSON, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]string, len(envVars)+2)
	for k, v := range envVars {
		merged[k] = v
	}
	merged["INPUT_JSON"] = string(inputJSON)
	merged["FUNCTION_NAME"] = functionName

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+merged[k])
	}
	return env, nil
}

// parseSuccess decodes the runner's stdout: JSON when it parses, the raw
// string otherwise.
func parseSuccess(res docker.ExecResult) any {
	stdout := strings.TrimSpace(res.Stdout)
	var parsed any
	if err := json.Unmarshal([]byte(stdout), &parsed); err == nil {
		return parsed
	}
	return stdout
}

// parseFailure extracts the most useful error message from a failed run.
// The runner prints {"error": ...} to stdout; raw tracebacks and stderr
// are the fallbacks.
func parseFailure(res docker.ExecResult) any {
	stdout := strings.TrimSpace(res.Stdout)
	if stdout != "" {
		var obj map[string]any
		if err := json.Unmarshal([]byte(stdout), &obj); err == nil {
			if v, ok := obj["error"]; ok {
				return v
			}
		}
		return stdout
	}
	if stderr := strings.TrimSpace(res.Stderr); stderr != "" {
		return stderr
	}
	return "Function exited with an error"
}
