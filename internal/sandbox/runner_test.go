package sandbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shRunner uses sh as the interpreter so tests have no Python dependency.
func shRunner(t *testing.T, limits Limits) *Runner {
	t.Helper()
	limits.Interpreter = "sh"
	return NewRunner(limits)
}

func TestExecute_CapturesStdout(t *testing.T) {
	runner := shRunner(t, Limits{})

	result, err := runner.Execute(context.Background(), `echo "mean=4.2"`)
	require.NoError(t, err)

	assert.Equal(t, "mean=4.2\n", result.Stdout)
	assert.Equal(t, 0, result.ExitCode)
}

func TestExecute_NonZeroExitIsNotAnError(t *testing.T) {
	runner := shRunner(t, Limits{})

	result, err := runner.Execute(context.Background(), `exit 3`)
	require.NoError(t, err)
	assert.Equal(t, 3, result.ExitCode)
}

func TestExecute_TimeoutKillsScript(t *testing.T) {
	runner := shRunner(t, Limits{Timeout: 200 * time.Millisecond})

	start := time.Now()
	_, err := runner.Execute(context.Background(), `sleep 10`)
	elapsed := time.Since(start)

	var timeoutErr *TimeoutError
	require.True(t, errors.As(err, &timeoutErr))
	assert.Less(t, elapsed, 5*time.Second, "script was not killed promptly")
}

func TestExecute_OutputCapExceeded(t *testing.T) {
	runner := shRunner(t, Limits{MaxOutputBytes: 64})

	_, err := runner.Execute(context.Background(), `i=0; while [ $i -lt 100 ]; do echo "0123456789abcdef"; i=$((i+1)); done`)

	var resourceErr *ResourceExceededError
	require.True(t, errors.As(err, &resourceErr))
	assert.Equal(t, int64(64), resourceErr.Limit)
}

func TestExecute_CollectsArtifacts(t *testing.T) {
	artifactDir := t.TempDir()
	runner := shRunner(t, Limits{ArtifactDir: artifactDir})

	result, err := runner.Execute(context.Background(), `echo "a,b" > results.csv`)
	require.NoError(t, err)

	require.Len(t, result.Artifacts, 1)
	assert.Equal(t, "results.csv", result.Artifacts[0].Name)
	assert.FileExists(t, result.Artifacts[0].Path)
}

func TestExecute_NoArtifactDirDiscardsFiles(t *testing.T) {
	runner := shRunner(t, Limits{})

	result, err := runner.Execute(context.Background(), `echo x > out.txt`)
	require.NoError(t, err)
	assert.Empty(t, result.Artifacts)
}
