package scans

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCommandCapturesOutput(t *testing.T) {
	out, err := RunCommand(context.Background(), []string{"sh", "-c", "echo hello; echo oops >&2"}, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out.Stdout)
	assert.Equal(t, "oops\n", out.Stderr)
	assert.Equal(t, 0, out.ExitCode)
}

func TestRunCommandNonZeroExitIsNotAnError(t *testing.T) {
	out, err := RunCommand(context.Background(), []string{"sh", "-c", "exit 7"}, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 7, out.ExitCode)
}

func TestRunCommandEmptyArgv(t *testing.T) {
	_, err := RunCommand(context.Background(), nil, t.TempDir())
	assert.Error(t, err)
}

func TestRunCommandMissingBinary(t *testing.T) {
	_, err := RunCommand(context.Background(), []string{"definitely-not-a-binary-1234"}, t.TempDir())
	assert.Error(t, err)
}

func TestRunCommandKilledOnDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := RunCommand(ctx, []string{"sleep", "10"}, t.TempDir())
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, elapsed, 2*time.Second, "process must be killed, not waited for")
}

func TestRunCommandWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	out, err := RunCommand(context.Background(), []string{"pwd"}, dir)
	require.NoError(t, err)
	assert.Contains(t, out.Stdout, dir)
}
