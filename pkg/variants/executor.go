package variants

import (
	"fmt"
	"path/filepath"

	"github.com/arthur-debert/romlayout/pkg/logging"
	"github.com/arthur-debert/romlayout/pkg/types"
	"github.com/rs/zerolog"
)

// Executor applies variant plans. Variant links are plain symlinks;
// the junction fallback belongs to the migration executor and is not
// needed for these intra-tree links.
type Executor struct {
	fs       types.FS
	progress types.ProgressFunc
	logger   zerolog.Logger
}

// NewExecutor creates a variant Executor.
func NewExecutor(fs types.FS, progress types.ProgressFunc) *Executor {
	if progress == nil {
		progress = types.NopProgress
	}
	return &Executor{
		fs:       fs,
		progress: progress,
		logger:   logging.GetLogger("variants.executor"),
	}
}

// Execute applies every operation in the plan, continuing past
// failures and aggregating them. Success means zero failed operations.
func (e *Executor) Execute(plan *Plan) *ExecutionResult {
	result := &ExecutionResult{}

	for i, op := range plan.Operations {
		e.progress(fmt.Sprintf("[%d/%d] %s", i+1, len(plan.Operations), op.Description))

		if err := e.executeOperation(op); err != nil {
			result.FailedOperations++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", op.ID, err))
			e.logger.Error().Str("operation", op.ID).Err(err).Msg("Variant operation failed")
			continue
		}
		result.ExecutedOperations++
	}

	result.Success = result.FailedOperations == 0
	e.logger.Info().Str("plan", plan.PlanID).
		Int("executed", result.ExecutedOperations).
		Int("failed", result.FailedOperations).
		Msg("Variant plan executed")
	return result
}

func (e *Executor) executeOperation(op MigrationOperation) error {
	// A detected variant's canonical name is the folder itself.
	if op.TargetPath == op.SourcePath {
		return nil
	}

	if _, err := e.fs.Lstat(op.TargetPath); err == nil {
		if e.resolvesTo(op.TargetPath, op.SourcePath) {
			return nil
		}
		return fmt.Errorf("target %s already exists", op.TargetPath)
	}

	if err := e.fs.MkdirAll(filepath.Dir(op.TargetPath), 0o755); err != nil {
		return fmt.Errorf("creating parent of %s: %w", op.TargetPath, err)
	}
	if err := e.fs.Symlink(op.SourcePath, op.TargetPath); err != nil {
		return fmt.Errorf("creating symlink %s: %w", op.TargetPath, err)
	}
	return nil
}

func (e *Executor) resolvesTo(target, source string) bool {
	current, err := e.fs.Readlink(target)
	if err != nil {
		return false
	}
	dir := filepath.Dir(target)
	return resolveAgainst(dir, current) == resolveAgainst(dir, source)
}

func resolveAgainst(dir, path string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	return filepath.Clean(path)
}
