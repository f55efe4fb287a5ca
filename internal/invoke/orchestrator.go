package invoke

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"clowdy/internal/builder"
	"clowdy/internal/docker"
	"clowdy/internal/metrics"
	"clowdy/internal/pool"
)

// Request is one function execution ask, fully resolved: the code to run,
// its input, and the project's execution context.
type Request struct {
	Code           string
	Input          map[string]any
	EnvVars        map[string]string
	FunctionName   string
	Image          string // empty means the default runtime
	NetworkEnabled bool
}

// Invocation is the outcome handed to the recording and shaping layers.
type Invocation struct {
	Success    bool
	Output     any
	DurationMs int64
	ColdStart  bool
	TimedOut   bool
}

// Status is the invocation log status for this outcome.
func (inv Invocation) Status() string {
	switch {
	case inv.Success:
		return "success"
	case inv.TimedOut:
		return "timeout"
	default:
		return "error"
	}
}

// EncodeOutput renders a function's return value for the invocation log:
// JSON for objects, the plain string form for everything else.
func EncodeOutput(output any) string {
	if output == nil {
		return "null"
	}
	if m, ok := output.(map[string]any); ok {
		if b, err := json.Marshal(m); err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(output)
}

// Orchestrator drives one invocation end to end: warm acquire or cold
// start, execute, then release or destroy. Disposal rule: a clean run
// re-pools the sandbox even when the function itself failed; a
// driver-level failure or timeout destroys it.
type Orchestrator struct {
	driver    Driver
	placement *Placement
	worker    *Worker
	pool      *pool.Pool
}

// NewOrchestrator wires the invocation path together.
func NewOrchestrator(driver Driver, placement *Placement, p *pool.Pool) *Orchestrator {
	return &Orchestrator{
		driver:    driver,
		placement: placement,
		worker:    NewWorker(driver),
		pool:      p,
	}
}

// Invoke executes code per req. It never returns an error: every failure
// becomes an Invocation with success=false and a user-facing message.
func (o *Orchestrator) Invoke(ctx context.Context, req Request) Invocation {
	start := time.Now()

	// The exec must not die with the client connection; pool bookkeeping
	// and disposal below depend on it running to completion.
	ctx = context.WithoutCancel(ctx)

	if err := o.driver.Ping(ctx); err != nil {
		return o.finish(start, Invocation{
			Output:    "Could not connect to Docker. Is Docker running?",
			ColdStart: true,
		})
	}

	image := req.Image
	if image == "" {
		image = builder.BaseImage
	}
	key := pool.Key{Image: image, NetworkEnabled: req.NetworkEnabled}

	sandboxID, warm := o.pool.Acquire(key)
	if !warm {
		id, err := o.placement.CreateSandbox(ctx, image, req.NetworkEnabled)
		if err != nil {
			return o.finish(start, Invocation{
				Output:    createErrorMessage(err, image, req.Image != ""),
				ColdStart: true,
			})
		}
		sandboxID = id
	}
	coldStart := !warm

	result, err := o.worker.Execute(ctx, sandboxID, req.Code, req.Input, req.EnvVars, req.FunctionName)
	if err != nil {
		// Driver-level failure: the sandbox is suspect, never re-pool it.
		o.destroy(sandboxID)
		return o.finish(start, Invocation{
			Output:    fmt.Sprintf("Execution error: %v", err),
			ColdStart: coldStart,
		})
	}

	if result.TimedOut {
		// The runaway process is still burning CPU inside; destroying
		// the sandbox is what actually stops it.
		o.destroy(sandboxID)
		return o.finish(start, Invocation{
			Output:    result.Output,
			ColdStart: coldStart,
			TimedOut:  true,
		})
	}

	o.pool.Release(key, sandboxID)
	return o.finish(start, Invocation{
		Success:   result.Success,
		Output:    result.Output,
		ColdStart: coldStart,
	})
}

// finish stamps the duration, records metrics, and logs the outcome.
func (o *Orchestrator) finish(start time.Time, inv Invocation) Invocation {
	elapsed := time.Since(start)
	inv.DurationMs = elapsed.Milliseconds()
	metrics.ObserveInvocation(inv.Status(), inv.ColdStart, elapsed)
	zap.L().Debug("invocation finished",
		zap.String("status", inv.Status()),
		zap.Bool("cold_start", inv.ColdStart),
		zap.Int64("duration_ms", inv.DurationMs))
	return inv
}

// destroy disposes of a broken sandbox, detached from the request.
func (o *Orchestrator) destroy(id string) {
	if err := o.placement.DestroySandbox(context.Background(), id); err != nil {
		zap.L().Warn("failed to destroy sandbox", zap.String("id", id), zap.Error(err))
	}
}

// createErrorMessage maps cold start failures to the messages users see.
func createErrorMessage(err error, image string, custom bool) string {
	if errors.Is(err, docker.ErrImageNotFound) {
		if custom {
			return fmt.Sprintf("Docker image '%s' not found. The project's custom image may need to be rebuilt.", image)
		}
		return fmt.Sprintf("Docker image '%s' not found. Build the default runtime image first.", image)
	}
	return fmt.Sprintf("Unexpected error: %v", err)
}
