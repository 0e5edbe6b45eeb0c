package types

import (
	"testing"
	"time"

	"github.com/arthur-debert/romlayout/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlan(t *testing.T) {
	plan := NewPlan("test plan")
	assert.Contains(t, plan.PlanID, "plan_")
	assert.Equal(t, "test plan", plan.Description)
	assert.False(t, plan.CreatedAt.IsZero())
	assert.Zero(t, plan.TotalSteps())
}

func TestPlan_Validate(t *testing.T) {
	tests := []struct {
		name    string
		stepIDs []string
		wantErr errors.ErrorCode
	}{
		{"unique ids", []string{"a", "b", "c"}, ""},
		{"duplicate ids", []string{"x", "y", "x"}, errors.ErrDuplicateStep},
		{"empty id", []string{"a", ""}, errors.ErrPlanInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := NewPlan("test")
			for _, id := range tt.stepIDs {
				plan.AddStep(&Step{StepID: id, Action: ActionCreateDirectory})
			}
			err := plan.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, errors.IsErrorCode(err, tt.wantErr))
			}
		})
	}
}

func TestPlan_Counters(t *testing.T) {
	plan := NewPlan("test")
	plan.AddStep(&Step{StepID: "a", Action: ActionCreateDirectory, Executed: true})
	plan.AddStep(&Step{StepID: "b", Action: ActionCreateSymlink, Executed: true, Error: "boom"})
	plan.AddStep(&Step{StepID: "c", Action: ActionCreateSymlink})

	assert.Equal(t, 3, plan.TotalSteps())
	assert.Equal(t, 1, plan.CompletedSteps())
	assert.Equal(t, 1, plan.FailedSteps())

	stats := plan.Stats()
	assert.Equal(t, 1, stats.StepsByAction[ActionCreateDirectory])
	assert.Equal(t, 2, stats.StepsByAction[ActionCreateSymlink])
}

func TestPlan_EstimatedDuration(t *testing.T) {
	dirs := NewPlan("dirs")
	dirs.AddStep(&Step{StepID: "a", Action: ActionCreateDirectory})

	copies := NewPlan("copies")
	copies.AddStep(&Step{StepID: "a", Action: ActionCopyFile})

	assert.Equal(t, 400*time.Millisecond, dirs.EstimatedDuration())
	assert.Equal(t, time.Second, copies.EstimatedDuration())
	assert.Greater(t, copies.EstimatedDuration(), dirs.EstimatedDuration())
}

func TestPlan_MarshalRoundTrip(t *testing.T) {
	plan := NewPlan("round trip")
	plan.AddStep(&Step{
		StepID:     "link_nes",
		Action:     ActionCreateSymlink,
		SourcePath: "/base/Roms/NES",
		TargetPath: "/base/Emulation/roms/nes",
		Executed:   true,
		Rollback: RollbackInfo{
			Symlink: &SymlinkRollback{
				Method: LinkMethodJunction,
				Target: "/base/Emulation/roms/nes",
			},
		},
	})

	data, err := plan.Marshal()
	require.NoError(t, err)

	loaded, err := UnmarshalPlan(data)
	require.NoError(t, err)
	assert.Equal(t, plan.PlanID, loaded.PlanID)
	require.Len(t, loaded.Steps, 1)
	require.NotNil(t, loaded.Steps[0].Rollback.Symlink)
	assert.Equal(t, LinkMethodJunction, loaded.Steps[0].Rollback.Symlink.Method)
}

func TestRollbackInfo_Empty(t *testing.T) {
	var rb RollbackInfo
	assert.True(t, rb.Empty())
	rb.Directory = &DirectoryRollback{Created: true}
	assert.False(t, rb.Empty())
}

func TestStep_StateQueries(t *testing.T) {
	pending := &Step{StepID: "a"}
	assert.False(t, pending.Succeeded())
	assert.False(t, pending.Failed())

	ok := &Step{StepID: "b", Executed: true}
	assert.True(t, ok.Succeeded())

	failed := &Step{StepID: "c", Executed: true, Error: "boom"}
	assert.True(t, failed.Failed())
	assert.False(t, failed.Succeeded())
}
