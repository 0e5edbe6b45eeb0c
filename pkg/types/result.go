package types

// MigrationResult is the outcome of applying or rolling back a Plan.
type MigrationResult struct {
	Success           bool     `json:"success"`
	Message           string   `json:"message"`
	ExecutedSteps     []string `json:"executed_steps"`
	FailedStep        string   `json:"failed_step,omitempty"`
	RollbackPerformed bool     `json:"rollback_performed"`
	BackupLocation    string   `json:"backup_location,omitempty"`
}

// ExitCode maps a result onto the two process exit codes the CLI uses.
func (r MigrationResult) ExitCode() int {
	if r.Success {
		return 0
	}
	return 1
}

// PreviewChange describes one simulated step in a preview report.
type PreviewChange struct {
	StepID      string `json:"step_id"`
	Action      Action `json:"action"`
	Description string `json:"description"`
	TargetPath  string `json:"target_path,omitempty"`
	Status      string `json:"status"`
}

// PreviewReport summarizes what applying a plan would do. Producing it
// never mutates the filesystem.
type PreviewReport struct {
	TotalSteps     int             `json:"total_steps"`
	EstimatedTime  string          `json:"estimated_time"`
	RiskLevel      string          `json:"risk_level"`
	BackupRequired bool            `json:"backup_required"`
	Changes        []PreviewChange `json:"changes"`
	Warnings       []string        `json:"warnings"`
}
