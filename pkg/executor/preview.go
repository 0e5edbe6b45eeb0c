package executor

import (
	"fmt"
	"time"

	"github.com/arthur-debert/romlayout/pkg/types"
)

// Risk levels reported by Preview, derived from plan size.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Preview summarizes what applying the plan would do. It computes
// everything from the plan itself and never touches the filesystem.
func Preview(plan *types.Plan) *types.PreviewReport {
	report := &types.PreviewReport{
		TotalSteps:     plan.TotalSteps(),
		EstimatedTime:  plan.EstimatedDuration().Round(100 * time.Millisecond).String(),
		RiskLevel:      riskLevel(plan.TotalSteps()),
		BackupRequired: planIsDestructive(plan),
	}

	for _, step := range plan.Steps {
		status := "pending"
		switch {
		case step.Failed():
			status = "failed"
		case step.Succeeded():
			status = "completed"
		}
		report.Changes = append(report.Changes, types.PreviewChange{
			StepID:      step.StepID,
			Action:      step.Action,
			Description: step.Description,
			TargetPath:  step.TargetPath,
			Status:      status,
		})

		switch step.Action {
		case types.ActionMoveFile:
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("%s moves existing data; a backup snapshot will be taken", step.StepID))
		case types.ActionCreateSymlink:
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("%s may fall back to a junction without symlink privileges", step.StepID))
		}
	}

	return report
}

func riskLevel(steps int) string {
	switch {
	case steps < 50:
		return RiskLow
	case steps < 200:
		return RiskMedium
	default:
		return RiskHigh
	}
}
