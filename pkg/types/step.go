package types

// Action identifies the kind of filesystem mutation a Step performs.
type Action string

const (
	ActionCreateDirectory Action = "create_directory"
	ActionCreateSymlink   Action = "create_symlink"
	ActionMoveFile        Action = "move_file"
	ActionCopyFile        Action = "copy_file"
)

// LinkMethod records how a link object was materialized on disk.
type LinkMethod string

const (
	LinkMethodSymlink  LinkMethod = "symlink"
	LinkMethodJunction LinkMethod = "junction"
)

// DirectoryRollback records whether a create_directory step actually
// created the directory. Pre-existing directories are never removed
// during rollback.
type DirectoryRollback struct {
	Created bool `json:"created"`
}

// SymlinkRollback records which link method succeeded and where the
// link object lives, so rollback can remove exactly what was created.
// CreatedParent names the topmost ancestor directory the step created
// on the way to the link; empty when the parent already existed.
type SymlinkRollback struct {
	Method        LinkMethod `json:"method_used,omitempty"`
	Target        string     `json:"target,omitempty"`
	CreatedParent string     `json:"created_parent,omitempty"`
}

// MoveRollback records whether the move overwrote an existing target
// and which ancestor directory, if any, the step created for it.
type MoveRollback struct {
	TargetExisted bool   `json:"target_existed"`
	CreatedParent string `json:"created_parent,omitempty"`
}

// CopyRollback records whether the copy overwrote an existing target
// and which ancestor directory, if any, the step created for it.
// Overwritten originals are not recoverable from a single-level
// rollback; the copy is only deleted when it created a new file.
type CopyRollback struct {
	TargetExisted bool   `json:"target_existed"`
	CreatedParent string `json:"created_parent,omitempty"`
}

// RollbackInfo is a closed per-action variant. Exactly one field is
// non-nil once the step has executed; which one is determined by the
// step's Action.
type RollbackInfo struct {
	Directory *DirectoryRollback `json:"directory,omitempty"`
	Symlink   *SymlinkRollback   `json:"symlink,omitempty"`
	Move      *MoveRollback      `json:"move,omitempty"`
	Copy      *CopyRollback      `json:"copy,omitempty"`
}

// Empty reports whether no rollback metadata has been recorded.
func (r RollbackInfo) Empty() bool {
	return r.Directory == nil && r.Symlink == nil && r.Move == nil && r.Copy == nil
}

// Step is one atomic filesystem action within a Plan. Steps are created
// by the planner and mutated only by the executor (Executed, Error,
// Rollback).
type Step struct {
	StepID      string       `json:"step_id"`
	Action      Action       `json:"action"`
	SourcePath  string       `json:"source_path,omitempty"`
	TargetPath  string       `json:"target_path,omitempty"`
	Description string       `json:"description"`
	Executed    bool         `json:"executed"`
	Error       string       `json:"error,omitempty"`
	Rollback    RollbackInfo `json:"rollback_info,omitempty"`
}

// Succeeded reports whether the step ran and completed without error.
func (s *Step) Succeeded() bool {
	return s.Executed && s.Error == ""
}

// Failed reports whether the step ran and recorded an error.
func (s *Step) Failed() bool {
	return s.Executed && s.Error != ""
}
