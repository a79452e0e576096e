package toolchain

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
)

// CommandRunner abstracts external process invocation so pipeline tests can
// substitute a recording fake for the real cargo/near binaries.
type CommandRunner interface {
	Run(ctx context.Context, dir, name string, args ...string) error
}

// ExecRunner invokes commands via os/exec with output streams passed through,
// so the user sees exactly what the failing tool printed.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

func (r ExecRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = r.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = r.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	return cmd.Run()
}

// ExitCode maps a pipeline error to the process exit code: 0 for nil, the
// failing tool's own exit status when the chain contains an exec.ExitError,
// and 1 for everything else.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return 1
}
