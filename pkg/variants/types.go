// Package variants handles alternate ROM editions (hacks, translations,
// homebrew) organized into per-platform subfolders. It mirrors the
// migration engine's analyze/plan/execute shape at a smaller scope:
// the analyzer classifies variant folders against a mapping table, the
// planner emits symlink operations, and the executor links them.
package variants

// OperationStatus tracks a variant symlink operation through its
// lifecycle.
type OperationStatus string

const (
	StatusPending           OperationStatus = "pending"
	StatusDetected          OperationStatus = "detected"
	StatusCreated           OperationStatus = "created"
	StatusFailed            OperationStatus = "failed"
	StatusNeedsOrganization OperationStatus = "needs_organization"
)

// OperationType distinguishes the two symlink kinds a variant needs.
type OperationType string

const (
	OpCreateVariantSymlink OperationType = "create_variant_symlink"
	OpCreateMediaSymlink   OperationType = "create_media_symlink"
)

// SymlinkOperation is one candidate variant found by the analyzer.
// TargetVariantFolder is the folder name actually present on disk; for
// a detected variant it equals the expected name from the mapping, for
// needs_organization it is the mismatched folder the expected name
// should link to.
type SymlinkOperation struct {
	VariantType         string          `json:"variant_type"`
	PlatformName        string          `json:"platform_name"`
	MainPlatformDir     string          `json:"main_platform_dir"`
	TargetVariantFolder string          `json:"target_variant_folder"`
	MainMediaDir        string          `json:"main_media_dir"`
	Status              OperationStatus `json:"status"`
}

// PlatformVariantAnalysis groups the variant operations found for one
// platform directory.
type PlatformVariantAnalysis struct {
	PlatformName string             `json:"platform_name"`
	PlatformDir  string             `json:"platform_dir"`
	MainMediaDir string             `json:"main_media_dir"`
	Operations   []SymlinkOperation `json:"operations"`
}

// MigrationOperation is one step of a variant plan. Metadata carries
// the variant type and platform for reporting.
type MigrationOperation struct {
	ID          string            `json:"id"`
	Type        OperationType     `json:"operation_type"`
	Description string            `json:"description"`
	SourcePath  string            `json:"source_path"`
	TargetPath  string            `json:"target_path"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Plan is an ordered list of variant operations.
type Plan struct {
	PlanID      string               `json:"plan_id"`
	Description string               `json:"description"`
	Operations  []MigrationOperation `json:"operations"`
}

// ExecutionResult aggregates the outcome of executing a variant plan.
type ExecutionResult struct {
	Success            bool     `json:"success"`
	ExecutedOperations int      `json:"executed_operations"`
	FailedOperations   int      `json:"failed_operations"`
	Errors             []string `json:"errors,omitempty"`
}
