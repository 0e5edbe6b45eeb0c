// Package shell wraps the external command invocations the executor
// and fix-up operations need (junction creation, ACL grants). Every
// invocation carries a bounded timeout; exceeding it is a
// distinguishable error, never a hang.
package shell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"runtime"
	"time"

	romerrors "github.com/arthur-debert/romlayout/pkg/errors"
	"github.com/arthur-debert/romlayout/pkg/logging"
)

// Runner executes external commands with a bounded timeout.
type Runner interface {
	Run(ctx context.Context, timeout time.Duration, name string, args ...string) (stdout, stderr string, err error)
}

// ElevationProbe reports whether the process has elevated privileges.
type ElevationProbe func() bool

// osRunner runs commands via os/exec
type osRunner struct{}

// NewRunner creates a Runner backed by os/exec.
func NewRunner() Runner {
	return &osRunner{}
}

func (r *osRunner) Run(ctx context.Context, timeout time.Duration, name string, args ...string) (string, string, error) {
	logger := logging.GetLogger("shell.runner")
	logger.Debug().Str("command", name).Strs("args", args).Dur("timeout", timeout).Msg("Executing command")

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return stdout.String(), stderr.String(), romerrors.Newf(romerrors.ErrCommandTimeout,
			"command %s timed out after %s", name, timeout)
	}
	if err != nil {
		return stdout.String(), stderr.String(), romerrors.Wrapf(err, romerrors.ErrStepExecute,
			"command %s failed", name)
	}
	return stdout.String(), stderr.String(), nil
}

// IsElevated reports whether the process runs with administrative
// privileges. On unix this means euid 0; on Windows we probe a
// resource only administrators can open.
func IsElevated() bool {
	if runtime.GOOS == "windows" {
		_, _, err := NewRunner().Run(context.Background(), 5*time.Second, "net", "session")
		return err == nil
	}
	return os.Geteuid() == 0
}
