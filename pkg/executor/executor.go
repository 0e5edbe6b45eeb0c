// Package executor applies migration plans to the filesystem. Apply
// runs preflight checks (confirmation, plan validity, disk space),
// takes a backup when the plan is destructive, then executes steps in
// order, recording per-step rollback metadata. The first failure stops
// execution and rolls back every step already applied, in reverse
// order.
package executor

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/arthur-debert/romlayout/pkg/errors"
	"github.com/arthur-debert/romlayout/pkg/logging"
	"github.com/arthur-debert/romlayout/pkg/paths"
	"github.com/arthur-debert/romlayout/pkg/shell"
	"github.com/arthur-debert/romlayout/pkg/types"
	"github.com/rs/zerolog"
)

// diskSpaceMargin is the extra headroom required on top of the
// estimated byte cost of a plan, in percent.
const diskSpaceMargin = 10

// perEntryOverhead approximates the metadata cost of a directory or
// link entry when estimating required disk space.
const perEntryOverhead = 4096

// DiskFreeFunc reports available bytes on the filesystem holding path.
type DiskFreeFunc func(path string) (uint64, error)

// Executor applies and rolls back migration plans.
type Executor struct {
	layout   *paths.Layout
	fs       types.FS
	linker   Linker
	backups  *BackupManager
	free     DiskFreeFunc
	progress types.ProgressFunc
	logger   zerolog.Logger
}

// Option customizes an Executor.
type Option func(*Executor)

// WithLinker replaces the production link strategy.
func WithLinker(l Linker) Option {
	return func(e *Executor) { e.linker = l }
}

// WithDiskFree replaces the disk space probe.
func WithDiskFree(fn DiskFreeFunc) Option {
	return func(e *Executor) { e.free = fn }
}

// WithProgress installs a progress callback.
func WithProgress(fn types.ProgressFunc) Option {
	return func(e *Executor) {
		if fn != nil {
			e.progress = fn
		}
	}
}

// New creates an Executor for the given layout.
func New(layout *paths.Layout, filesystem types.FS, runner shell.Runner, opts ...Option) *Executor {
	e := &Executor{
		layout:   layout,
		fs:       filesystem,
		linker:   NewLinker(filesystem, runner),
		backups:  NewBackupManager(layout, filesystem),
		free:     diskFree,
		progress: types.NopProgress,
		logger:   logging.GetLogger("executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Backups exposes the executor's backup manager for history queries.
func (e *Executor) Backups() *BackupManager { return e.backups }

// Apply executes the plan. Without confirm it fails fast with an
// error before touching anything, as do invalid or already-executed
// plans. Insufficient disk space yields a failed result with a
// descriptive message; so does a step failure, after rolling back all
// applied steps. Rollback failures escalate to an error.
func (e *Executor) Apply(ctx context.Context, plan *types.Plan, confirm bool) (*types.MigrationResult, error) {
	if !confirm {
		return nil, errors.New(errors.ErrNotConfirmed,
			"migration not confirmed; re-run with --confirm to apply the plan")
	}

	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if plan.Executed {
		return nil, errors.Newf(errors.ErrPlanInvalid,
			"plan %s has already been executed", plan.PlanID)
	}

	if err := e.checkDiskSpace(plan); err != nil {
		return &types.MigrationResult{
			Success: false,
			Message: err.Error(),
		}, nil
	}

	snapshot := planIsDestructive(plan)
	backupDir, err := e.backups.Create(plan, snapshot)
	if err != nil {
		return nil, err
	}

	e.logger.Info().Str("plan", plan.PlanID).Int("steps", plan.TotalSteps()).
		Bool("snapshot", snapshot).Msg("Applying migration plan")

	result := &types.MigrationResult{BackupLocation: backupDir}
	var applied []*types.Step

	for i, step := range plan.Steps {
		e.progress(fmt.Sprintf("[%d/%d] %s", i+1, plan.TotalSteps(), step.Description))

		err := e.executeStep(ctx, step)
		step.Executed = true
		if err != nil {
			step.Error = err.Error()
			e.logger.Error().Str("step", step.StepID).Err(err).Msg("Step failed, rolling back")

			// The failed step may have left a partial artifact (a link
			// that failed its probe); its rollback metadata covers it.
			toUndo := append(append([]*types.Step{}, applied...), step)
			if rbErr := e.rollbackSteps(toUndo); rbErr != nil {
				e.saveState(plan)
				return result, errors.Wrapf(rbErr, errors.ErrRollback,
					"rollback failed after step %s; filesystem may be inconsistent", step.StepID)
			}

			result.Success = false
			result.FailedStep = step.StepID
			result.RollbackPerformed = true
			result.Message = fmt.Sprintf("step %s failed: %v; all changes rolled back", step.StepID, err)
			e.saveState(plan)
			return result, nil
		}

		applied = append(applied, step)
		result.ExecutedSteps = append(result.ExecutedSteps, step.StepID)
	}

	plan.Executed = true
	plan.Success = true
	result.Success = true
	result.Message = fmt.Sprintf("migration complete: %d steps applied", len(applied))
	e.saveState(plan)

	e.logger.Info().Str("plan", plan.PlanID).Int("steps", len(applied)).Msg("Migration complete")
	return result, nil
}

// Rollback undoes an executed plan, newest step first. Steps that
// never executed are skipped.
func (e *Executor) Rollback(plan *types.Plan) (*types.MigrationResult, error) {
	var executed []*types.Step
	for _, step := range plan.Steps {
		if step.Executed && step.Error == "" {
			executed = append(executed, step)
		}
	}
	if len(executed) == 0 {
		return nil, errors.Newf(errors.ErrRollback,
			"plan %s has no executed steps to roll back", plan.PlanID)
	}

	e.logger.Info().Str("plan", plan.PlanID).Int("steps", len(executed)).Msg("Rolling back plan")

	if err := e.rollbackSteps(executed); err != nil {
		e.saveState(plan)
		return nil, err
	}

	plan.Executed = false
	plan.Success = false
	e.saveState(plan)

	return &types.MigrationResult{
		Success:           true,
		RollbackPerformed: true,
		Message:           fmt.Sprintf("rolled back %d steps", len(executed)),
		BackupLocation:    plan.BackupLocation,
	}, nil
}

// executeStep applies one step and records its rollback metadata.
func (e *Executor) executeStep(ctx context.Context, step *types.Step) error {
	switch step.Action {
	case types.ActionCreateDirectory:
		return e.createDirectory(step)
	case types.ActionCreateSymlink:
		return e.createSymlink(ctx, step)
	case types.ActionMoveFile:
		return e.moveFile(step)
	case types.ActionCopyFile:
		return e.copyFile(step)
	default:
		return errors.Newf(errors.ErrUnknownAction, "unknown action %q in step %s", step.Action, step.StepID)
	}
}

func (e *Executor) createDirectory(step *types.Step) error {
	created := false
	if _, err := e.fs.Stat(step.TargetPath); err != nil {
		if err := e.fs.MkdirAll(step.TargetPath, 0o755); err != nil {
			return errors.Wrapf(err, errors.ErrDirCreate, "failed to create %s", step.TargetPath)
		}
		created = true
	}
	step.Rollback.Directory = &types.DirectoryRollback{Created: created}
	return nil
}

func (e *Executor) createSymlink(ctx context.Context, step *types.Step) error {
	if _, err := e.fs.Lstat(step.TargetPath); err == nil {
		return errors.Newf(errors.ErrFileExists, "link target %s already exists", step.TargetPath)
	}
	createdParent, err := e.ensureParent(step.TargetPath)
	if err != nil {
		return err
	}
	if createdParent != "" {
		// Record the parent immediately so a failed link does not leak it.
		step.Rollback.Symlink = &types.SymlinkRollback{CreatedParent: createdParent}
	}

	res, err := e.linker.Link(ctx, step.SourcePath, step.TargetPath)
	if res.Method != "" {
		// Record the link even when the probe failed so rollback removes it.
		if step.Rollback.Symlink == nil {
			step.Rollback.Symlink = &types.SymlinkRollback{}
		}
		step.Rollback.Symlink.Method = res.Method
		step.Rollback.Symlink.Target = step.TargetPath
	}
	return err
}

func (e *Executor) moveFile(step *types.Step) error {
	targetExisted := false
	if _, err := e.fs.Stat(step.TargetPath); err == nil {
		targetExisted = true
	}
	createdParent, err := e.ensureParent(step.TargetPath)
	if err != nil {
		return err
	}
	step.Rollback.Move = &types.MoveRollback{
		TargetExisted: targetExisted,
		CreatedParent: createdParent,
	}
	if err := e.fs.Rename(step.SourcePath, step.TargetPath); err != nil {
		return errors.Wrapf(err, errors.ErrStepExecute,
			"failed to move %s to %s", step.SourcePath, step.TargetPath)
	}
	return nil
}

func (e *Executor) copyFile(step *types.Step) error {
	targetExisted := false
	if _, err := e.fs.Stat(step.TargetPath); err == nil {
		targetExisted = true
	}
	createdParent, err := e.ensureParent(step.TargetPath)
	if err != nil {
		return err
	}
	step.Rollback.Copy = &types.CopyRollback{
		TargetExisted: targetExisted,
		CreatedParent: createdParent,
	}
	data, err := e.fs.ReadFile(step.SourcePath)
	if err != nil {
		return errors.Wrapf(err, errors.ErrStepExecute, "failed to read %s", step.SourcePath)
	}
	if err := e.fs.WriteFile(step.TargetPath, data, 0o644); err != nil {
		return errors.Wrapf(err, errors.ErrStepExecute, "failed to write %s", step.TargetPath)
	}
	return nil
}

// ensureParent creates the parent directory of path and returns the
// topmost ancestor that did not previously exist, so rollback can
// remove everything the step brought into being. Returns "" when the
// parent already existed.
func (e *Executor) ensureParent(path string) (string, error) {
	dir := filepath.Dir(path)
	if _, err := e.fs.Stat(dir); err == nil {
		return "", nil
	}

	created := dir
	for {
		parent := filepath.Dir(created)
		if parent == created {
			break
		}
		if _, err := e.fs.Stat(parent); err == nil {
			break
		}
		created = parent
	}

	if err := e.fs.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, errors.ErrDirCreate,
			"failed to create parent directory for %s", path)
	}
	return created, nil
}

// rollbackSteps undoes steps in reverse order. Any failure aborts the
// rollback and is reported; a silent partial rollback would leave the
// tree looking healthier than it is.
func (e *Executor) rollbackSteps(steps []*types.Step) error {
	for i := len(steps) - 1; i >= 0; i-- {
		step := steps[i]
		e.progress("Rolling back: " + step.Description)
		if err := e.rollbackStep(step); err != nil {
			return err
		}
		step.Executed = false
	}
	return nil
}

func (e *Executor) rollbackStep(step *types.Step) error {
	// A step that failed before mutating anything has nothing to undo.
	if step.Rollback.Empty() {
		return nil
	}

	switch step.Action {
	case types.ActionCreateDirectory:
		rb := step.Rollback.Directory
		if rb == nil || !rb.Created {
			// Pre-existing directories are never removed.
			return nil
		}
		if err := e.fs.RemoveAll(step.TargetPath); err != nil {
			return errors.Wrapf(err, errors.ErrRollback, "failed to remove directory %s", step.TargetPath)
		}
		return nil

	case types.ActionCreateSymlink:
		rb := step.Rollback.Symlink
		if rb == nil {
			return nil
		}
		if rb.Target != "" {
			if err := e.fs.Remove(rb.Target); err != nil {
				return errors.Wrapf(err, errors.ErrRollback, "failed to remove link %s", rb.Target)
			}
			if rb.Method == types.LinkMethodJunction {
				// Junction removal can silently no-op; verify it is gone.
				if _, err := e.fs.Lstat(rb.Target); err == nil {
					return errors.Newf(errors.ErrJunctionRemoval,
						"junction %s persists after removal", rb.Target)
				}
			}
		}
		return e.removeCreatedParent(rb.CreatedParent)

	case types.ActionMoveFile:
		rb := step.Rollback.Move
		if rb == nil {
			return nil
		}
		if _, err := e.fs.Stat(step.TargetPath); err == nil {
			if err := e.fs.Rename(step.TargetPath, step.SourcePath); err != nil {
				return errors.Wrapf(err, errors.ErrRollback,
					"failed to move %s back to %s", step.TargetPath, step.SourcePath)
			}
		}
		return e.removeCreatedParent(rb.CreatedParent)

	case types.ActionCopyFile:
		rb := step.Rollback.Copy
		if rb == nil {
			return nil
		}
		if rb.TargetExisted {
			// An overwritten original cannot be restored from step
			// metadata alone; the backup snapshot covers it.
			return nil
		}
		if _, err := e.fs.Stat(step.TargetPath); err == nil {
			if err := e.fs.Remove(step.TargetPath); err != nil {
				return errors.Wrapf(err, errors.ErrRollback, "failed to remove copy %s", step.TargetPath)
			}
		}
		return e.removeCreatedParent(rb.CreatedParent)

	default:
		return nil
	}
}

// removeCreatedParent deletes the ancestor directory a step created
// for its target. Pre-existing directories are never touched.
func (e *Executor) removeCreatedParent(dir string) error {
	if dir == "" {
		return nil
	}
	if err := e.fs.RemoveAll(dir); err != nil {
		return errors.Wrapf(err, errors.ErrRollback, "failed to remove created directory %s", dir)
	}
	return nil
}

// checkDiskSpace estimates the byte cost of the plan and refuses to
// run when the base volume lacks that much free space plus margin.
func (e *Executor) checkDiskSpace(plan *types.Plan) error {
	var required uint64
	for _, step := range plan.Steps {
		switch step.Action {
		case types.ActionCopyFile:
			if info, err := e.fs.Stat(step.SourcePath); err == nil {
				required += uint64(info.Size())
			}
		case types.ActionMoveFile:
			// A cross-volume move needs the full size in flight.
			if info, err := e.fs.Stat(step.SourcePath); err == nil {
				required += uint64(info.Size())
			}
		default:
			required += perEntryOverhead
		}
	}
	required += required * diskSpaceMargin / 100

	available, err := e.free(e.layout.BasePath())
	if err != nil {
		return errors.Wrapf(err, errors.ErrDiskSpace,
			"failed to determine free space for %s", e.layout.BasePath())
	}
	if available < required {
		return errors.Newf(errors.ErrDiskSpace,
			"insufficient disk space: %d bytes required, %d available", required, available)
	}
	return nil
}

// saveState persists the plan manifest after execution or rollback;
// failures are logged but never mask the primary outcome.
func (e *Executor) saveState(plan *types.Plan) {
	if plan.BackupLocation == "" {
		return
	}
	if err := e.backups.SaveManifest(plan); err != nil {
		e.logger.Warn().Str("plan", plan.PlanID).Err(err).Msg("Failed to persist plan state")
	}
}

// planIsDestructive reports whether the plan can overwrite or relocate
// existing data, which is what warrants a snapshot backup.
func planIsDestructive(plan *types.Plan) bool {
	for _, step := range plan.Steps {
		if step.Action == types.ActionMoveFile || step.Action == types.ActionCopyFile {
			return true
		}
	}
	return false
}
