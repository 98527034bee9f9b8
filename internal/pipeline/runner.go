package pipeline

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"github.com/mpnn-design-labs/design-node/internal/types"
)

// TimeoutReturncode is the sentinel exit status reported for a step that
// exceeded its timeout budget, matching the shell convention.
const TimeoutReturncode = 124

// CommandRunner executes one external program to completion. Tests swap in
// a fake so no real subprocess is needed.
type CommandRunner interface {
	Run(ctx context.Context, argv []string, timeout time.Duration) types.StepResult
}

// ExecRunner runs commands through os/exec with a per-invocation timeout
type ExecRunner struct{}

// Run executes argv and captures exit status, stdout and stderr. The process
// is killed when the timeout elapses; whatever output was captured up to
// that point is preserved.
func (er *ExecRunner) Run(ctx context.Context, argv []string, timeout time.Duration) types.StepResult {
	result := types.StepResult{Returncode: -1}

	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	startTime := time.Now()
	err := cmd.Run()
	result.RuntimeMS = time.Since(startTime).Milliseconds()

	result.Stdout = stdoutBuf.String()
	result.Stderr = stderrBuf.String()

	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			result.Returncode = TimeoutReturncode
		} else if exitErr, ok := err.(*exec.ExitError); ok {
			result.Returncode = exitErr.ExitCode()
		} else {
			// Could not start at all (missing interpreter, bad path)
			result.Returncode = -1
			if result.Stderr == "" {
				result.Stderr = err.Error()
			}
		}
		return result
	}

	result.Returncode = 0
	return result
}
