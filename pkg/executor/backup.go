package executor

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/arthur-debert/romlayout/pkg/errors"
	"github.com/arthur-debert/romlayout/pkg/logging"
	"github.com/arthur-debert/romlayout/pkg/paths"
	"github.com/arthur-debert/romlayout/pkg/types"
	"github.com/rs/zerolog"
)

// manifestName is the plan manifest persisted inside every backup
// directory. History and rollback-by-id read these back.
const manifestName = "migration_plan.json"

// BackupManager owns the backup directory: per-plan snapshot
// directories, their plan manifests, and the history index derived
// from them.
type BackupManager struct {
	layout *paths.Layout
	fs     types.FS
	logger zerolog.Logger
	now    func() time.Time
}

// NewBackupManager creates a BackupManager for the layout's backup
// directory.
func NewBackupManager(layout *paths.Layout, filesystem types.FS) *BackupManager {
	return &BackupManager{
		layout: layout,
		fs:     filesystem,
		logger: logging.GetLogger("executor.backup"),
		now:    time.Now,
	}
}

// criticalDirs are the layout subtrees snapshotted before destructive
// plans run. Configs and saves are the only irreplaceable data the
// migration touches; ROM files are moved, never rewritten.
func (b *BackupManager) criticalDirs() []string {
	return []string{
		filepath.Join(b.layout.EmulationDir(), "configs"),
		filepath.Join(b.layout.EmulationDir(), "saves"),
	}
}

// Create allocates a backup directory for the plan and writes its
// manifest. When snapshot is true the critical directories are copied
// in as well; directories that do not exist yet are skipped.
func (b *BackupManager) Create(plan *types.Plan, snapshot bool) (string, error) {
	dir := filepath.Join(b.layout.BackupsDir(),
		b.now().Format("20060102_150405")+"_"+plan.PlanID)

	if err := b.fs.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, errors.ErrBackupCreate, "failed to create backup directory %s", dir)
	}

	if snapshot {
		for _, src := range b.criticalDirs() {
			if _, err := b.fs.Stat(src); err != nil {
				continue
			}
			dst := filepath.Join(dir, filepath.Base(src))
			if err := b.copyTree(src, dst); err != nil {
				return "", errors.Wrapf(err, errors.ErrBackupCreate, "failed to snapshot %s", src)
			}
		}
	}

	plan.BackupLocation = dir
	if err := b.SaveManifest(plan); err != nil {
		return "", err
	}

	b.logger.Info().Str("plan", plan.PlanID).Str("backup", dir).Bool("snapshot", snapshot).
		Msg("Backup created")
	return dir, nil
}

// SaveManifest rewrites the plan manifest at the plan's backup
// location, preserving step execution state for later rollback.
func (b *BackupManager) SaveManifest(plan *types.Plan) error {
	if plan.BackupLocation == "" {
		return errors.New(errors.ErrBackupCreate, "plan has no backup location")
	}
	data, err := plan.Marshal()
	if err != nil {
		return errors.Wrap(err, errors.ErrBackupCreate, "failed to serialize plan manifest")
	}
	path := filepath.Join(plan.BackupLocation, manifestName)
	if err := b.fs.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, errors.ErrBackupCreate, "failed to write plan manifest %s", path)
	}
	return nil
}

// History returns every plan recorded under the backup directory,
// newest first. Directories without a readable manifest are skipped.
func (b *BackupManager) History() ([]*types.Plan, error) {
	entries, err := b.fs.ReadDir(b.layout.BackupsDir())
	if err != nil {
		return nil, nil
	}

	var plans []*types.Plan
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		data, err := b.fs.ReadFile(filepath.Join(b.layout.BackupsDir(), entry.Name(), manifestName))
		if err != nil {
			continue
		}
		plan, err := types.UnmarshalPlan(data)
		if err != nil {
			b.logger.Warn().Str("backup", entry.Name()).Err(err).Msg("Skipping unreadable plan manifest")
			continue
		}
		plans = append(plans, plan)
	}

	sort.Slice(plans, func(i, j int) bool {
		return plans[i].CreatedAt.After(plans[j].CreatedAt)
	})
	return plans, nil
}

// LoadPlanByID returns the recorded plan with the given id. A prefix
// of the id is accepted when it is unambiguous.
func (b *BackupManager) LoadPlanByID(planID string) (*types.Plan, error) {
	plans, err := b.History()
	if err != nil {
		return nil, err
	}

	var match *types.Plan
	for _, plan := range plans {
		if plan.PlanID == planID {
			return plan, nil
		}
		if strings.HasPrefix(plan.PlanID, planID) {
			if match != nil {
				return nil, errors.Newf(errors.ErrPlanNotFound, "plan id %s is ambiguous", planID)
			}
			match = plan
		}
	}
	if match == nil {
		return nil, errors.Newf(errors.ErrPlanNotFound, "no recorded plan matches %s", planID)
	}
	return match, nil
}

// BackupStatus summarizes the backup directory.
type BackupStatus struct {
	BackupDir   string      `json:"backup_dir"`
	BackupCount int         `json:"backup_count"`
	LatestPlan  *types.Plan `json:"latest_plan,omitempty"`
}

// Status reports how many backups exist and the most recent plan.
func (b *BackupManager) Status() (*BackupStatus, error) {
	plans, err := b.History()
	if err != nil {
		return nil, err
	}
	status := &BackupStatus{
		BackupDir:   b.layout.BackupsDir(),
		BackupCount: len(plans),
	}
	if len(plans) > 0 {
		status.LatestPlan = plans[0]
	}
	return status, nil
}

// copyTree copies a directory tree through the filesystem seam.
// Symlinks are re-created pointing at their original targets.
func (b *BackupManager) copyTree(src, dst string) error {
	if err := b.fs.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	entries, err := b.fs.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		switch {
		case entry.Type()&fs.ModeSymlink != 0:
			target, err := b.fs.Readlink(srcPath)
			if err != nil {
				return err
			}
			if err := b.fs.Symlink(target, dstPath); err != nil {
				return err
			}
		case entry.IsDir():
			if err := b.copyTree(srcPath, dstPath); err != nil {
				return err
			}
		default:
			data, err := b.fs.ReadFile(srcPath)
			if err != nil {
				return err
			}
			if err := b.fs.WriteFile(dstPath, data, 0o644); err != nil {
				return err
			}
		}
	}
	return nil
}
