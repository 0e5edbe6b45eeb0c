// Package testutil provides test environments for the migration and
// variant engines: an in-memory filesystem with a pre-wired layout, or
// an isolated temp directory on the real filesystem.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/arthur-debert/romlayout/pkg/filesystem"
	"github.com/arthur-debert/romlayout/pkg/paths"
	"github.com/arthur-debert/romlayout/pkg/types"
)

// EnvType defines the type of test environment
type EnvType int

const (
	EnvMemoryOnly EnvType = iota // Pure in-memory, no real filesystem
	EnvIsolated                  // Real filesystem in temp directory
)

// TestEnvironment provides a base path, backup directory, layout, and
// filesystem for engine tests.
type TestEnvironment struct {
	BaseRoot  string
	BackupDir string

	FS     types.FS
	Layout *paths.Layout

	Type EnvType

	t *testing.T
}

// NewTestEnvironment creates a new test environment
func NewTestEnvironment(t *testing.T, envType EnvType) *TestEnvironment {
	t.Helper()

	env := &TestEnvironment{
		t:    t,
		Type: envType,
	}

	switch envType {
	case EnvMemoryOnly:
		env.BaseRoot = "/virtual/deck"
		env.BackupDir = "/virtual/backups"
		env.FS = filesystem.NewMemory()
	case EnvIsolated:
		tempDir := t.TempDir()
		env.BaseRoot = filepath.Join(tempDir, "deck")
		env.BackupDir = filepath.Join(tempDir, "backups")
		env.FS = filesystem.NewOS()
	}

	if err := env.FS.MkdirAll(env.BaseRoot, 0o755); err != nil {
		t.Fatalf("Failed to create base root: %v", err)
	}

	t.Setenv(paths.EnvBaseRoot, env.BaseRoot)
	t.Setenv(paths.EnvBackupDir, env.BackupDir)

	layout, err := paths.New(env.BaseRoot)
	if err != nil {
		t.Fatalf("Failed to create layout: %v", err)
	}
	env.Layout = layout.WithBackupDir(env.BackupDir)

	return env
}

// MkdirAll creates a directory under the base root, failing the test
// on error.
func (env *TestEnvironment) MkdirAll(rel string) string {
	env.t.Helper()
	path := filepath.Join(env.BaseRoot, filepath.FromSlash(rel))
	if err := env.FS.MkdirAll(path, 0o755); err != nil {
		env.t.Fatalf("Failed to create %s: %v", path, err)
	}
	return path
}

// WriteFile writes a file under the base root, creating parents,
// failing the test on error.
func (env *TestEnvironment) WriteFile(rel string, data []byte) string {
	env.t.Helper()
	path := filepath.Join(env.BaseRoot, filepath.FromSlash(rel))
	if err := env.FS.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		env.t.Fatalf("Failed to create parent of %s: %v", path, err)
	}
	if err := env.FS.WriteFile(path, data, 0o644); err != nil {
		env.t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

// Path resolves a path relative to the base root.
func (env *TestEnvironment) Path(rel string) string {
	return filepath.Join(env.BaseRoot, filepath.FromSlash(rel))
}
