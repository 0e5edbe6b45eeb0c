package executor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/arthur-debert/romlayout/pkg/errors"
	"github.com/arthur-debert/romlayout/pkg/filesystem"
	"github.com/arthur-debert/romlayout/pkg/logging"
	"github.com/arthur-debert/romlayout/pkg/paths"
	"github.com/arthur-debert/romlayout/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// plentyOfSpace is a disk probe that always succeeds.
func plentyOfSpace(string) (uint64, error) {
	return 1 << 40, nil
}

// stubRunner records invocations and returns canned results.
type stubRunner struct {
	calls  [][]string
	stdout string
	stderr string
	err    error
	onRun  func(args []string)
}

func (r *stubRunner) Run(_ context.Context, _ time.Duration, name string, args ...string) (string, string, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	if r.onRun != nil {
		r.onRun(args)
	}
	return r.stdout, r.stderr, r.err
}

func newTestExecutor(t *testing.T, opts ...Option) (*Executor, *paths.Layout, types.FS) {
	t.Helper()
	fs := filesystem.NewMemory()
	require.NoError(t, fs.MkdirAll("/virtual/deck", 0o755))
	layout, err := paths.New("/virtual/deck")
	require.NoError(t, err)
	layout = layout.WithBackupDir("/virtual/backups")

	opts = append([]Option{WithDiskFree(plentyOfSpace)}, opts...)
	return New(layout, fs, &stubRunner{}, opts...), layout, fs
}

func dirStep(id, target string) *types.Step {
	return &types.Step{
		StepID:      id,
		Action:      types.ActionCreateDirectory,
		TargetPath:  target,
		Description: "create " + target,
	}
}

func TestApply_NotConfirmed(t *testing.T) {
	exec, _, fs := newTestExecutor(t)

	plan := types.NewPlan("test")
	plan.AddStep(dirStep("mkdir_a", "/virtual/deck/a"))

	_, err := exec.Apply(context.Background(), plan, false)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotConfirmed))
	assert.Contains(t, err.Error(), "confirm")

	_, statErr := fs.Stat("/virtual/deck/a")
	assert.Error(t, statErr, "unconfirmed apply must not mutate")
}

func TestApply_Success(t *testing.T) {
	exec, layout, fs := newTestExecutor(t)

	plan := types.NewPlan("test")
	plan.AddStep(dirStep("mkdir_a", "/virtual/deck/a"))
	plan.AddStep(&types.Step{
		StepID:     "link_b",
		Action:     types.ActionCreateSymlink,
		SourcePath: "/virtual/deck/a",
		TargetPath: "/virtual/deck/b",
	})

	result, err := exec.Apply(context.Background(), plan, true)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"mkdir_a", "link_b"}, result.ExecutedSteps)
	assert.True(t, plan.Executed)
	assert.True(t, plan.Success)

	_, statErr := fs.Stat("/virtual/deck/a")
	assert.NoError(t, statErr)
	target, readErr := fs.Readlink("/virtual/deck/b")
	require.NoError(t, readErr)
	assert.Equal(t, "/virtual/deck/a", target)

	// The manifest is persisted under the backup directory.
	require.NotEmpty(t, result.BackupLocation)
	entries, err := fs.ReadDir(layout.BackupsDir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	loaded, err := exec.Backups().LoadPlanByID(plan.PlanID)
	require.NoError(t, err)
	assert.True(t, loaded.Executed)
}

func TestApply_RollbackOnFailure(t *testing.T) {
	exec, _, fs := newTestExecutor(t)

	plan := types.NewPlan("test")
	plan.AddStep(dirStep("mkdir_a", "/virtual/deck/a"))
	plan.AddStep(&types.Step{
		StepID:     "copy_missing",
		Action:     types.ActionCopyFile,
		SourcePath: "/virtual/deck/does-not-exist.bin",
		TargetPath: "/virtual/deck/a/copy.bin",
	})

	result, err := exec.Apply(context.Background(), plan, true)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "copy_missing", result.FailedStep)
	assert.True(t, result.RollbackPerformed)

	// The directory the plan created must be gone again.
	_, statErr := fs.Stat("/virtual/deck/a")
	assert.Error(t, statErr, "rollback must remove plan-created directories")
	assert.False(t, plan.Executed)
}

func TestApply_RollbackPreservesExistingDirs(t *testing.T) {
	exec, _, fs := newTestExecutor(t)
	require.NoError(t, fs.MkdirAll("/virtual/deck/existing", 0o755))

	plan := types.NewPlan("test")
	plan.AddStep(dirStep("mkdir_existing", "/virtual/deck/existing"))
	plan.AddStep(&types.Step{
		StepID:     "copy_missing",
		Action:     types.ActionCopyFile,
		SourcePath: "/virtual/deck/nope.bin",
		TargetPath: "/virtual/deck/existing/copy.bin",
	})

	result, err := exec.Apply(context.Background(), plan, true)
	require.NoError(t, err)
	require.False(t, result.Success)

	_, statErr := fs.Stat("/virtual/deck/existing")
	assert.NoError(t, statErr, "pre-existing directories must survive rollback")
}

func TestApply_DuplicateStepIDs(t *testing.T) {
	exec, _, fs := newTestExecutor(t)

	plan := types.NewPlan("test")
	plan.AddStep(dirStep("x", "/virtual/deck/a"))
	plan.AddStep(dirStep("x", "/virtual/deck/b"))

	_, err := exec.Apply(context.Background(), plan, true)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrDuplicateStep))

	_, statErr := fs.Stat("/virtual/deck/a")
	assert.Error(t, statErr, "invalid plans must not execute any step")
}

func TestApply_InsufficientSpace(t *testing.T) {
	exec, layout, fs := newTestExecutor(t, WithDiskFree(func(string) (uint64, error) {
		return 0, nil
	}))

	plan := types.NewPlan("test")
	plan.AddStep(dirStep("mkdir_a", "/virtual/deck/a"))

	result, err := exec.Apply(context.Background(), plan, true)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "insufficient disk space")

	_, statErr := fs.Stat("/virtual/deck/a")
	assert.Error(t, statErr)
	_, backupErr := fs.ReadDir(layout.BackupsDir())
	assert.Error(t, backupErr, "no backup may be created when preflight fails")
}

func TestApply_AlreadyExecuted(t *testing.T) {
	exec, _, _ := newTestExecutor(t)

	plan := types.NewPlan("test")
	plan.AddStep(dirStep("mkdir_a", "/virtual/deck/a"))
	plan.Executed = true

	_, err := exec.Apply(context.Background(), plan, true)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrPlanInvalid))
}

func TestApply_UnknownAction(t *testing.T) {
	exec, _, _ := newTestExecutor(t)

	plan := types.NewPlan("test")
	plan.AddStep(&types.Step{StepID: "bogus", Action: "defragment"})

	result, err := exec.Apply(context.Background(), plan, true)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "bogus", result.FailedStep)
}

func TestApply_MoveAndRollback(t *testing.T) {
	exec, _, fs := newTestExecutor(t)
	require.NoError(t, fs.WriteFile("/virtual/deck/rom.bin", []byte("data"), 0o644))

	plan := types.NewPlan("test")
	plan.AddStep(&types.Step{
		StepID:     "move_rom",
		Action:     types.ActionMoveFile,
		SourcePath: "/virtual/deck/rom.bin",
		TargetPath: "/virtual/deck/Roms/rom.bin",
	})

	result, err := exec.Apply(context.Background(), plan, true)
	require.NoError(t, err)
	require.True(t, result.Success)

	_, statErr := fs.Stat("/virtual/deck/Roms/rom.bin")
	require.NoError(t, statErr)

	rbResult, err := exec.Rollback(plan)
	require.NoError(t, err)
	assert.True(t, rbResult.Success)

	data, readErr := fs.ReadFile("/virtual/deck/rom.bin")
	require.NoError(t, readErr, "rollback must move the file back")
	assert.Equal(t, []byte("data"), data)
	_, statErr = fs.Stat("/virtual/deck/Roms/rom.bin")
	assert.Error(t, statErr)
}

func TestApply_CopyRollbackKeepsOverwrittenTarget(t *testing.T) {
	exec, _, fs := newTestExecutor(t)
	require.NoError(t, fs.WriteFile("/virtual/deck/src.bin", []byte("new"), 0o644))
	require.NoError(t, fs.WriteFile("/virtual/deck/dst.bin", []byte("old"), 0o644))

	plan := types.NewPlan("test")
	plan.AddStep(&types.Step{
		StepID:     "copy_over",
		Action:     types.ActionCopyFile,
		SourcePath: "/virtual/deck/src.bin",
		TargetPath: "/virtual/deck/dst.bin",
	})

	result, err := exec.Apply(context.Background(), plan, true)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.NotNil(t, plan.Steps[0].Rollback.Copy)
	assert.True(t, plan.Steps[0].Rollback.Copy.TargetExisted)

	// Rolling back a copy over an existing file leaves the copy in
	// place; the pre-execution snapshot holds the original.
	_, err = exec.Rollback(plan)
	require.NoError(t, err)
	_, statErr := fs.Stat("/virtual/deck/dst.bin")
	assert.NoError(t, statErr)
}

func TestApply_FailedMoveRemovesCreatedParent(t *testing.T) {
	exec, _, fs := newTestExecutor(t)

	plan := types.NewPlan("test")
	plan.AddStep(&types.Step{
		StepID:     "move_missing",
		Action:     types.ActionMoveFile,
		SourcePath: "/virtual/deck/does-not-exist.bin",
		TargetPath: "/virtual/deck/newparent/rom.bin",
	})

	result, err := exec.Apply(context.Background(), plan, true)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.True(t, result.RollbackPerformed)

	_, statErr := fs.Stat("/virtual/deck/newparent")
	assert.Error(t, statErr, "rollback should remove the parent directory the failed step created")
	_, statErr = fs.Stat("/virtual/deck")
	assert.NoError(t, statErr, "the pre-existing base must survive")
}

func TestRollback_RemovesSymlinkCreatedParent(t *testing.T) {
	exec, _, fs := newTestExecutor(t)
	require.NoError(t, fs.MkdirAll("/virtual/deck/Roms/NES", 0o755))

	plan := types.NewPlan("test")
	plan.AddStep(&types.Step{
		StepID:     "link_nes",
		Action:     types.ActionCreateSymlink,
		SourcePath: "/virtual/deck/Roms/NES",
		TargetPath: "/virtual/deck/Emulation/roms/nes",
	})

	result, err := exec.Apply(context.Background(), plan, true)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.NotNil(t, plan.Steps[0].Rollback.Symlink)
	assert.Equal(t, "/virtual/deck/Emulation", plan.Steps[0].Rollback.Symlink.CreatedParent)

	_, err = exec.Rollback(plan)
	require.NoError(t, err)
	_, statErr := fs.Lstat("/virtual/deck/Emulation/roms/nes")
	assert.Error(t, statErr)
	_, statErr = fs.Stat("/virtual/deck/Emulation")
	assert.Error(t, statErr, "rollback should remove the directory chain the step created")
	_, statErr = fs.Stat("/virtual/deck/Roms/NES")
	assert.NoError(t, statErr, "the link source is never touched")
}

func TestRollback_RemovesCopyCreatedParent(t *testing.T) {
	exec, _, fs := newTestExecutor(t)
	require.NoError(t, fs.WriteFile("/virtual/deck/src.bin", []byte("data"), 0o644))

	plan := types.NewPlan("test")
	plan.AddStep(&types.Step{
		StepID:     "copy_save",
		Action:     types.ActionCopyFile,
		SourcePath: "/virtual/deck/src.bin",
		TargetPath: "/virtual/deck/Emulation/saves/copy.bin",
	})

	result, err := exec.Apply(context.Background(), plan, true)
	require.NoError(t, err)
	require.True(t, result.Success)

	_, err = exec.Rollback(plan)
	require.NoError(t, err)
	_, statErr := fs.Stat("/virtual/deck/Emulation")
	assert.Error(t, statErr, "rollback should remove the directory chain the step created")
	_, statErr = fs.Stat("/virtual/deck/src.bin")
	assert.NoError(t, statErr)
}

func TestDiskSpaceEstimateMonotonic(t *testing.T) {
	fs := filesystem.NewMemory()
	require.NoError(t, fs.MkdirAll("/virtual/deck", 0o755))
	layout, err := paths.New("/virtual/deck")
	require.NoError(t, err)
	layout = layout.WithBackupDir("/virtual/backups")

	// 100MB source file for the move plan.
	big := make([]byte, 100<<20)
	require.NoError(t, fs.WriteFile("/virtual/deck/big.iso", big, 0o644))

	// Free space that covers cheap steps but not a 100MB move.
	exec := New(layout, fs, &stubRunner{}, WithDiskFree(func(string) (uint64, error) {
		return 1 << 20, nil
	}))

	cheap := types.NewPlan("cheap")
	cheap.AddStep(dirStep("mkdir_a", "/virtual/deck/a"))
	cheap.AddStep(&types.Step{
		StepID:     "link_b",
		Action:     types.ActionCreateSymlink,
		SourcePath: "/virtual/deck/a",
		TargetPath: "/virtual/deck/b",
	})

	expensive := types.NewPlan("expensive")
	expensive.AddStep(dirStep("mkdir_a", "/virtual/deck/a2"))
	expensive.AddStep(&types.Step{
		StepID:     "move_big",
		Action:     types.ActionMoveFile,
		SourcePath: "/virtual/deck/big.iso",
		TargetPath: "/virtual/deck/Roms/big.iso",
	})

	assert.NoError(t, exec.checkDiskSpace(cheap))
	err = exec.checkDiskSpace(expensive)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrDiskSpace))
}

// privilegeDenyFS wraps a filesystem and refuses native symlinks the
// way an unprivileged Windows process would.
type privilegeDenyFS struct {
	types.FS
}

func (f *privilegeDenyFS) Symlink(oldname, newname string) error {
	return fmt.Errorf("symlink %s: a required privilege is not held by the client", newname)
}

func TestJunctionFallbackEndToEnd(t *testing.T) {
	mem := filesystem.NewMemory()
	require.NoError(t, mem.MkdirAll("/virtual/deck", 0o755))
	require.NoError(t, mem.MkdirAll("/src", 0o755))
	require.NoError(t, mem.WriteFile("/src/rom.bin", []byte("rom"), 0o644))

	denying := &privilegeDenyFS{FS: mem}

	// The stub runner plays mklink: it materializes the junction in the
	// underlying filesystem.
	runner := &stubRunner{}
	runner.onRun = func(args []string) {
		// args: /c mklink /J <target> <source>
		require.Len(t, args, 5)
		require.NoError(t, mem.Symlink(args[4], args[3]))
	}

	linker := &osLinker{
		fs:     denying,
		runner: runner,
		logger: logging.GetLogger("test"),
		goos:   "windows",
	}

	layout, err := paths.New("/virtual/deck")
	require.NoError(t, err)
	layout = layout.WithBackupDir("/virtual/backups")
	exec := New(layout, denying, runner, WithDiskFree(plentyOfSpace), WithLinker(linker))

	plan := types.NewPlan("junction test")
	plan.AddStep(&types.Step{
		StepID:     "link_nes",
		Action:     types.ActionCreateSymlink,
		SourcePath: "/src",
		TargetPath: "/virtual/deck/Roms/NES",
	})

	result, err := exec.Apply(context.Background(), plan, true)
	require.NoError(t, err)
	require.True(t, result.Success, "apply should succeed via junction fallback")

	rb := plan.Steps[0].Rollback.Symlink
	require.NotNil(t, rb)
	assert.Equal(t, types.LinkMethodJunction, rb.Method)
	assert.Equal(t, "/virtual/deck/Roms/NES", rb.Target)

	// The link resolves back to the source directory.
	target, err := mem.Readlink("/virtual/deck/Roms/NES")
	require.NoError(t, err)
	assert.Equal(t, "/src", target)
	_, err = mem.ReadFile("/src/rom.bin")
	assert.NoError(t, err)

	// Rollback removes the junction and verifies it is gone.
	_, err = exec.Rollback(plan)
	require.NoError(t, err)
	_, statErr := mem.Lstat("/virtual/deck/Roms/NES")
	assert.Error(t, statErr)
}
