package executor

import (
	"testing"
	"time"

	"github.com/arthur-debert/romlayout/pkg/errors"
	"github.com/arthur-debert/romlayout/pkg/filesystem"
	"github.com/arthur-debert/romlayout/pkg/paths"
	"github.com/arthur-debert/romlayout/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackupManager(t *testing.T) (*BackupManager, types.FS) {
	t.Helper()
	fs := filesystem.NewMemory()
	require.NoError(t, fs.MkdirAll("/virtual/deck", 0o755))
	layout, err := paths.New("/virtual/deck")
	require.NoError(t, err)
	layout = layout.WithBackupDir("/virtual/backups")
	return NewBackupManager(layout, fs), fs
}

func TestBackup_CreateAndHistory(t *testing.T) {
	bm, _ := newTestBackupManager(t)

	// Distinct timestamps so history ordering is observable.
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	older := types.NewPlan("older")
	older.CreatedAt = base
	newer := types.NewPlan("newer")
	newer.CreatedAt = base.Add(time.Hour)

	_, err := bm.Create(older, false)
	require.NoError(t, err)
	bm.now = func() time.Time { return base.Add(time.Hour) }
	_, err = bm.Create(newer, false)
	require.NoError(t, err)

	plans, err := bm.History()
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, newer.PlanID, plans[0].PlanID, "history must be newest first")
}

func TestBackup_SnapshotCopiesCriticalDirs(t *testing.T) {
	bm, fs := newTestBackupManager(t)
	require.NoError(t, fs.MkdirAll("/virtual/deck/Emulation/saves", 0o755))
	require.NoError(t, fs.WriteFile("/virtual/deck/Emulation/saves/zelda.srm", []byte("save"), 0o644))

	plan := types.NewPlan("destructive")
	loc, err := bm.Create(plan, true)
	require.NoError(t, err)

	data, err := fs.ReadFile(loc + "/saves/zelda.srm")
	require.NoError(t, err)
	assert.Equal(t, []byte("save"), data)
}

func TestBackup_LoadPlanByID(t *testing.T) {
	bm, _ := newTestBackupManager(t)

	plan := types.NewPlan("test")
	_, err := bm.Create(plan, false)
	require.NoError(t, err)

	loaded, err := bm.LoadPlanByID(plan.PlanID)
	require.NoError(t, err)
	assert.Equal(t, plan.PlanID, loaded.PlanID)

	// A unique prefix resolves too.
	loaded, err = bm.LoadPlanByID(plan.PlanID[:8])
	require.NoError(t, err)
	assert.Equal(t, plan.PlanID, loaded.PlanID)

	_, err = bm.LoadPlanByID("plan_nonexistent")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrPlanNotFound))
}

func TestBackup_Status(t *testing.T) {
	bm, _ := newTestBackupManager(t)

	status, err := bm.Status()
	require.NoError(t, err)
	assert.Zero(t, status.BackupCount)
	assert.Nil(t, status.LatestPlan)

	plan := types.NewPlan("test")
	_, err = bm.Create(plan, false)
	require.NoError(t, err)

	status, err = bm.Status()
	require.NoError(t, err)
	assert.Equal(t, 1, status.BackupCount)
	require.NotNil(t, status.LatestPlan)
	assert.Equal(t, plan.PlanID, status.LatestPlan.PlanID)
}
