// Package fixup provides narrow recovery operations for migrations
// that partially failed: retrying symlink steps with elevation,
// granting filesystem permissions, and proposing path corrections.
// Each operation is independent of the plan/step machinery and acts on
// a previous plan's failed steps.
package fixup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/arthur-debert/romlayout/pkg/errors"
	"github.com/arthur-debert/romlayout/pkg/logging"
	"github.com/arthur-debert/romlayout/pkg/shell"
	"github.com/arthur-debert/romlayout/pkg/types"
	"github.com/rs/zerolog"
)

// permissionTimeout bounds the ACL-modification command.
const permissionTimeout = 30 * time.Second

// Fixer performs recovery operations.
type Fixer struct {
	fs       types.FS
	runner   shell.Runner
	elevated shell.ElevationProbe
	logger   zerolog.Logger
}

// NewFixer creates a Fixer. A nil elevation probe defaults to the real
// one.
func NewFixer(fs types.FS, runner shell.Runner, elevated shell.ElevationProbe) *Fixer {
	if elevated == nil {
		elevated = shell.IsElevated
	}
	return &Fixer{
		fs:       fs,
		runner:   runner,
		elevated: elevated,
		logger:   logging.GetLogger("fixup"),
	}
}

// RetrySymlinks re-attempts the failed symlink steps of a previously
// executed plan. It refuses up front without elevated privileges
// rather than failing step by step.
func (f *Fixer) RetrySymlinks(ctx context.Context, plan *types.Plan) (*types.MigrationResult, error) {
	if !f.elevated() {
		return &types.MigrationResult{
			Success: false,
			Message: "retrying symlink creation requires elevated privileges; re-run as administrator",
		}, nil
	}

	result := &types.MigrationResult{}
	retried, failed := 0, 0

	for _, step := range plan.Steps {
		if step.Action != types.ActionCreateSymlink || !step.Failed() {
			continue
		}
		retried++

		if _, err := f.fs.Lstat(step.TargetPath); err == nil {
			// A partial artifact from the failed attempt blocks the retry.
			if rmErr := f.fs.Remove(step.TargetPath); rmErr != nil {
				failed++
				step.Error = rmErr.Error()
				continue
			}
		}
		if err := f.fs.Symlink(step.SourcePath, step.TargetPath); err != nil {
			failed++
			step.Error = err.Error()
			f.logger.Error().Str("step", step.StepID).Err(err).Msg("Symlink retry failed")
			continue
		}

		step.Error = ""
		step.Executed = true
		step.Rollback.Symlink = &types.SymlinkRollback{
			Method: types.LinkMethodSymlink,
			Target: step.TargetPath,
		}
		result.ExecutedSteps = append(result.ExecutedSteps, step.StepID)
	}

	result.Success = failed == 0
	switch {
	case retried == 0:
		result.Message = "no failed symlink steps to retry"
	case failed == 0:
		result.Message = fmt.Sprintf("retried %d symlink steps successfully", retried)
	default:
		result.Message = fmt.Sprintf("retried %d symlink steps, %d still failing", retried, failed)
	}
	return result, nil
}

// GrantPermissions grants full access on the target directory via the
// platform ACL tool. Command failures surface stderr verbatim.
func (f *Fixer) GrantPermissions(ctx context.Context, target string) (*types.MigrationResult, error) {
	_, stderr, err := f.runner.Run(ctx, permissionTimeout,
		"icacls", target, "/grant", "Users:(OI)(CI)F", "/T")
	if err != nil {
		if errors.IsErrorCode(err, errors.ErrCommandTimeout) {
			return nil, err
		}
		return &types.MigrationResult{
			Success: false,
			Message: fmt.Sprintf("permission grant on %s failed: %s", target, strings.TrimSpace(stderr)),
		}, nil
	}

	f.logger.Info().Str("target", target).Msg("Permissions granted")
	return &types.MigrationResult{
		Success: true,
		Message: fmt.Sprintf("granted full access on %s", target),
	}, nil
}
