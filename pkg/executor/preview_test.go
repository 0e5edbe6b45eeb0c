package executor

import (
	"fmt"
	"testing"

	"github.com/arthur-debert/romlayout/pkg/filesystem"
	"github.com/arthur-debert/romlayout/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreview_NoMutation(t *testing.T) {
	fs := filesystem.NewMemory()
	require.NoError(t, fs.MkdirAll("/virtual/deck", 0o755))

	plan := types.NewPlan("test")
	plan.AddStep(dirStep("mkdir_a", "/virtual/deck/a"))
	plan.AddStep(&types.Step{
		StepID:     "move_rom",
		Action:     types.ActionMoveFile,
		SourcePath: "/virtual/deck/rom.bin",
		TargetPath: "/virtual/deck/Roms/rom.bin",
	})

	before, err := fs.ReadDir("/virtual/deck")
	require.NoError(t, err)

	report := Preview(plan)
	require.NotNil(t, report)

	after, err := fs.ReadDir("/virtual/deck")
	require.NoError(t, err)
	assert.Equal(t, len(before), len(after), "preview must not touch the filesystem")
	_, statErr := fs.Stat("/virtual/deck/a")
	assert.Error(t, statErr)
}

func TestPreview_Report(t *testing.T) {
	plan := types.NewPlan("test")
	plan.AddStep(dirStep("mkdir_a", "/base/a"))
	plan.AddStep(&types.Step{
		StepID:     "move_rom",
		Action:     types.ActionMoveFile,
		SourcePath: "/base/rom.bin",
		TargetPath: "/base/Roms/rom.bin",
	})
	plan.AddStep(&types.Step{
		StepID:     "link_nes",
		Action:     types.ActionCreateSymlink,
		SourcePath: "/base/Roms/NES",
		TargetPath: "/base/Emulation/roms/nes",
	})

	report := Preview(plan)
	assert.Equal(t, 3, report.TotalSteps)
	assert.Equal(t, RiskLow, report.RiskLevel)
	assert.True(t, report.BackupRequired, "a move step requires a backup")
	require.Len(t, report.Changes, 3)
	assert.Equal(t, "pending", report.Changes[0].Status)

	// One warning for the move, one for the symlink.
	assert.Len(t, report.Warnings, 2)
}

func TestPreview_RiskLevels(t *testing.T) {
	tests := []struct {
		steps int
		want  string
	}{
		{1, RiskLow},
		{49, RiskLow},
		{50, RiskMedium},
		{199, RiskMedium},
		{200, RiskHigh},
		{500, RiskHigh},
	}

	for _, tt := range tests {
		plan := types.NewPlan("test")
		for i := 0; i < tt.steps; i++ {
			plan.AddStep(dirStep(fmt.Sprintf("mkdir_%d", i), fmt.Sprintf("/base/%d", i)))
		}
		assert.Equal(t, tt.want, Preview(plan).RiskLevel, "steps=%d", tt.steps)
	}
}

func TestPreview_ExecutedStepStatus(t *testing.T) {
	plan := types.NewPlan("test")
	ok := dirStep("mkdir_a", "/base/a")
	ok.Executed = true
	failed := dirStep("mkdir_b", "/base/b")
	failed.Executed = true
	failed.Error = "boom"
	plan.AddStep(ok)
	plan.AddStep(failed)

	report := Preview(plan)
	assert.Equal(t, "completed", report.Changes[0].Status)
	assert.Equal(t, "failed", report.Changes[1].Status)
}
