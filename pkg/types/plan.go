package types

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/arthur-debert/romlayout/pkg/errors"
)

// Plan is an ordered sequence of Steps. Step order is both the
// execution order and the reverse of the rollback order.
type Plan struct {
	PlanID         string    `json:"plan_id"`
	Description    string    `json:"description"`
	Steps          []*Step   `json:"steps"`
	Executed       bool      `json:"executed"`
	Success        bool      `json:"success"`
	BackupLocation string    `json:"backup_location,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewPlan creates an empty plan with a fresh random identifier.
func NewPlan(description string) *Plan {
	return &Plan{
		PlanID:      NewID("plan"),
		Description: description,
		CreatedAt:   time.Now(),
	}
}

// NewID generates a short random identifier with the given prefix.
func NewID(prefix string) string {
	return prefix + "_" + randomID()
}

// AddStep appends a step to the plan.
func (p *Plan) AddStep(step *Step) {
	p.Steps = append(p.Steps, step)
}

// TotalSteps returns the number of steps in the plan.
func (p *Plan) TotalSteps() int {
	return len(p.Steps)
}

// CompletedSteps counts steps that executed without error.
func (p *Plan) CompletedSteps() int {
	count := 0
	for _, step := range p.Steps {
		if step.Succeeded() {
			count++
		}
	}
	return count
}

// FailedSteps counts steps that recorded an error.
func (p *Plan) FailedSteps() int {
	count := 0
	for _, step := range p.Steps {
		if step.Error != "" {
			count++
		}
	}
	return count
}

// StepByID returns the step with the given id, or nil.
func (p *Plan) StepByID(stepID string) *Step {
	for _, step := range p.Steps {
		if step.StepID == stepID {
			return step
		}
	}
	return nil
}

// Validate checks plan-level invariants. Duplicate step ids make the
// plan invalid and execution must refuse to run it.
func (p *Plan) Validate() error {
	seen := make(map[string]struct{}, len(p.Steps))
	for _, step := range p.Steps {
		if step.StepID == "" {
			return errors.New(errors.ErrPlanInvalid, "plan contains a step with an empty id")
		}
		if _, ok := seen[step.StepID]; ok {
			return errors.Newf(errors.ErrDuplicateStep,
				"duplicate step id in plan %s: %s", p.PlanID, step.StepID)
		}
		seen[step.StepID] = struct{}{}
	}
	return nil
}

// Statistics aggregates per-action step counts for a plan.
type Statistics struct {
	PlanID         string         `json:"plan_id"`
	TotalSteps     int            `json:"total_steps"`
	CompletedSteps int            `json:"completed_steps"`
	FailedSteps    int            `json:"failed_steps"`
	StepsByAction  map[Action]int `json:"steps_by_action"`
}

// Stats computes aggregate statistics for the plan.
func (p *Plan) Stats() Statistics {
	byAction := make(map[Action]int)
	for _, step := range p.Steps {
		byAction[step.Action]++
	}
	return Statistics{
		PlanID:         p.PlanID,
		TotalSteps:     p.TotalSteps(),
		CompletedSteps: p.CompletedSteps(),
		FailedSteps:    p.FailedSteps(),
		StepsByAction:  byAction,
	}
}

// EstimatedDuration returns a rough execution time estimate derived
// from per-action baselines.
func (p *Plan) EstimatedDuration() time.Duration {
	baseline := map[Action]time.Duration{
		ActionCreateDirectory: 400 * time.Millisecond,
		ActionCreateSymlink:   600 * time.Millisecond,
		ActionMoveFile:        800 * time.Millisecond,
		ActionCopyFile:        time.Second,
	}

	var total time.Duration
	for _, step := range p.Steps {
		d, ok := baseline[step.Action]
		if !ok {
			d = 500 * time.Millisecond
		}
		total += d
	}
	return total
}

// Marshal renders the manifest format persisted next to backups.
func (p *Plan) Marshal() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// UnmarshalPlan loads a plan from its serialized manifest form.
func UnmarshalPlan(data []byte) (*Plan, error) {
	var plan Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, errors.Wrap(err, errors.ErrPlanInvalid, "failed to parse plan manifest")
	}
	return &plan, nil
}

func randomID() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the OS entropy source is broken
		return "00000000"
	}
	return hex.EncodeToString(buf)
}
