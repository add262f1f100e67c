// Package scans provides the builtin probe implementations and the shared
// command runner they use to shell out to external tools.
package scans

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

// CommandOutput captures one external command invocation.
type CommandOutput struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// RunCommand executes argv with the given working directory, capturing
// stdout and stderr. The process inherits ctx: when the executor's
// deadline expires, exec.CommandContext kills it rather than abandoning
// it. A non-zero exit code is reported in the output, not as an error;
// the returned error covers start failures and cancellation.
func RunCommand(ctx context.Context, argv []string, dir string) (*CommandOutput, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}

	log.Debug().Str("command", strings.Join(argv, " ")).Msg("running command")

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := &CommandOutput{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Prefer reporting the deadline over the kill-induced
			// exit status.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			out.ExitCode = exitErr.ExitCode()
			return out, nil
		}
		return nil, err
	}
	return out, nil
}
