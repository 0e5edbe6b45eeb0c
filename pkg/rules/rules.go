// Package rules defines the placement rule document the planner
// consumes: required directories and required symlinks for the
// normalized emulation layout. Rule documents are TOML and are
// normalized into a single canonical shape at load time.
package rules

import (
	"path"
	"path/filepath"

	"github.com/arthur-debert/romlayout/pkg/errors"
	"github.com/arthur-debert/romlayout/pkg/types"
	"github.com/pelletier/go-toml/v2"
)

// DirectoryRule names a directory the layout requires, relative to the
// migration base path.
type DirectoryRule struct {
	Path    string `toml:"path" json:"path"`
	Purpose string `toml:"purpose" json:"purpose"`
}

// SymlinkRule describes a required symlink. Patterns may contain
// {platform}, {platform_full} and {emulator} placeholders which the
// planner expands against the mapping tables.
type SymlinkRule struct {
	SourcePattern string `toml:"source_pattern" json:"source_pattern"`
	TargetPattern string `toml:"target_pattern" json:"target_pattern"`
	Description   string `toml:"description" json:"description"`
}

// Ruleset is the canonical, already-normalized rule document.
type Ruleset struct {
	RequiredDirectories []DirectoryRule `toml:"required_directories" json:"required_directories"`
	RequiredSymlinks    []SymlinkRule   `toml:"required_symlinks" json:"required_symlinks"`
}

// Load reads and normalizes a rule document from a TOML file.
func Load(fs types.FS, rulePath string) (*Ruleset, error) {
	data, err := fs.ReadFile(rulePath)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "failed to read rule document %s", rulePath)
	}
	return Parse(data)
}

// Parse decodes and normalizes a TOML rule document.
func Parse(data []byte) (*Ruleset, error) {
	var rs Ruleset
	if err := toml.Unmarshal(data, &rs); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to parse rule document")
	}
	rs.normalize()
	if err := rs.validate(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// Default returns the built-in ruleset for the standard layout.
func Default() *Ruleset {
	rs := &Ruleset{
		RequiredDirectories: []DirectoryRule{
			{Path: "Roms", Purpose: "Platform ROM directories (full display names)"},
			{Path: "Emulation", Purpose: "Shared emulation resources"},
			{Path: "Emulation/roms", Purpose: "Short-name platform symlinks"},
			{Path: "Emulation/configs", Purpose: "Shared emulator configuration"},
			{Path: "Emulation/saves", Purpose: "Shared save data"},
			{Path: "Emulation/downloaded_media", Purpose: "Shared scraped media"},
			{Path: "Emulators", Purpose: "Emulator installations"},
		},
		RequiredSymlinks: []SymlinkRule{
			{
				SourcePattern: "Roms/{platform_full}",
				TargetPattern: "Emulation/roms/{platform}",
				Description:   "Short-name compatibility link for {platform_full}",
			},
		},
	}
	rs.normalize()
	return rs
}

func (rs *Ruleset) normalize() {
	for i := range rs.RequiredDirectories {
		rs.RequiredDirectories[i].Path = normalizePath(rs.RequiredDirectories[i].Path)
	}
	for i := range rs.RequiredSymlinks {
		rs.RequiredSymlinks[i].SourcePattern = normalizePath(rs.RequiredSymlinks[i].SourcePattern)
		rs.RequiredSymlinks[i].TargetPattern = normalizePath(rs.RequiredSymlinks[i].TargetPattern)
	}
}

func (rs *Ruleset) validate() error {
	for _, dir := range rs.RequiredDirectories {
		if dir.Path == "" {
			return errors.New(errors.ErrConfigValid, "required directory with empty path")
		}
	}
	for _, link := range rs.RequiredSymlinks {
		if link.SourcePattern == "" || link.TargetPattern == "" {
			return errors.Newf(errors.ErrConfigValid,
				"required symlink missing pattern: %q -> %q", link.SourcePattern, link.TargetPattern)
		}
	}
	return nil
}

// normalizePath converts a rule path to clean slash form
func normalizePath(p string) string {
	if p == "" {
		return p
	}
	return path.Clean(filepath.ToSlash(p))
}
