// Package sandbox executes generated analysis scripts in an isolated,
// time-boxed subprocess. Each invocation gets its own scratch directory and
// shares no mutable state with concurrently running executions.
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/jonathan/longform-writer/internal/types"
)

// Default execution limits
const (
	DefaultTimeout        = 60 * time.Second
	DefaultMaxOutputBytes = 256 * 1024
	DefaultInterpreter    = "python3"
)

// Limits bounds a single script execution
type Limits struct {
	Timeout        time.Duration
	MaxOutputBytes int64
	Interpreter    string

	// ArtifactDir receives files the script produced. When empty, produced
	// files are discarded with the scratch directory.
	ArtifactDir string
}

// DefaultLimits returns the default execution limits.
func DefaultLimits() Limits {
	return Limits{
		Timeout:        DefaultTimeout,
		MaxOutputBytes: DefaultMaxOutputBytes,
		Interpreter:    DefaultInterpreter,
	}
}

// TimeoutError reports that a script exceeded its wall-clock budget and was
// killed. Callers treat this as "section degraded", never fatal.
type TimeoutError struct {
	Limit time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("sandbox: script killed after exceeding %s time limit", e.Limit)
}

// ResourceExceededError reports that a script exceeded its output budget.
type ResourceExceededError struct {
	Limit int64
}

func (e *ResourceExceededError) Error() string {
	return fmt.Sprintf("sandbox: script exceeded %d byte output limit", e.Limit)
}

// Result holds the outcome of a successful execution
type Result struct {
	Stdout    string
	Stderr    string
	ExitCode  int
	Artifacts []types.Artifact
	Duration  time.Duration
}

// Runner executes scripts under fixed limits
type Runner struct {
	limits Limits
}

// NewRunner creates a Runner. Zero-valued limit fields use defaults.
func NewRunner(limits Limits) *Runner {
	if limits.Timeout <= 0 {
		limits.Timeout = DefaultTimeout
	}
	if limits.MaxOutputBytes <= 0 {
		limits.MaxOutputBytes = DefaultMaxOutputBytes
	}
	if limits.Interpreter == "" {
		limits.Interpreter = DefaultInterpreter
	}
	return &Runner{limits: limits}
}

// Execute runs a script in a fresh scratch directory. Files the script
// writes into the directory are returned as artifacts. The process is hard
// killed on timeout; a non-zero exit is not an error, it is reported via
// Result.ExitCode.
func (r *Runner) Execute(ctx context.Context, script string) (*Result, error) {
	workDir, err := os.MkdirTemp("", "sandbox-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create sandbox dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	scriptPath := filepath.Join(workDir, "script")
	if err := os.WriteFile(scriptPath, []byte(script), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write script: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, r.limits.Timeout)
	defer cancel()

	stdout := newCappedBuffer(r.limits.MaxOutputBytes)
	stderr := newCappedBuffer(r.limits.MaxOutputBytes)

	cmd := exec.CommandContext(runCtx, r.limits.Interpreter, scriptPath)
	cmd.Dir = workDir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = 2 * time.Second

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if runCtx.Err() == context.DeadlineExceeded {
		return nil, &TimeoutError{Limit: r.limits.Timeout}
	}
	if stdout.exceeded || stderr.exceeded {
		return nil, &ResourceExceededError{Limit: r.limits.MaxOutputBytes}
	}

	result := &Result{
		Stdout:   stdout.buf.String(),
		Stderr:   stderr.buf.String(),
		Duration: elapsed,
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("sandbox: failed to run script: %w", runErr)
		}
	}

	result.Artifacts = collectArtifacts(workDir, scriptPath, r.limits.ArtifactDir)
	return result, nil
}

// collectArtifacts moves files the script left behind into the artifact dir.
// The scratch directory is deleted after the run, so anything not moved out
// is gone.
func collectArtifacts(workDir, scriptPath, artifactDir string) []types.Artifact {
	if artifactDir == "" {
		return nil
	}
	entries, err := os.ReadDir(workDir)
	if err != nil {
		return nil
	}

	var artifacts []types.Artifact
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		src := filepath.Join(workDir, entry.Name())
		if src == scriptPath {
			continue
		}
		dst := filepath.Join(artifactDir, entry.Name())
		if err := os.Rename(src, dst); err != nil {
			// Cross-device rename can fail; fall back to copy.
			data, readErr := os.ReadFile(src)
			if readErr != nil {
				continue
			}
			if writeErr := os.WriteFile(dst, data, 0o644); writeErr != nil {
				continue
			}
		}
		artifacts = append(artifacts, types.Artifact{
			Name: entry.Name(),
			Path: dst,
		})
	}
	return artifacts
}

// cappedBuffer collects output up to a byte limit, then starts failing
// writes so the child process is torn down instead of filling memory.
type cappedBuffer struct {
	buf      bytes.Buffer
	limit    int64
	exceeded bool
}

func newCappedBuffer(limit int64) *cappedBuffer {
	return &cappedBuffer{limit: limit}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if int64(b.buf.Len())+int64(len(p)) > b.limit {
		b.exceeded = true
		return 0, fmt.Errorf("output limit exceeded")
	}
	return b.buf.Write(p)
}
