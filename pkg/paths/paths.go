// Package paths provides centralized path handling for romlayout.
// The migration layout (Roms/, Emulation/, Emulators/) hangs off a
// single base path; tool-owned files (config, backups, logs) follow
// the XDG Base Directory specification.
package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/arthur-debert/romlayout/pkg/errors"
)

// Environment variable names
const (
	// EnvBaseRoot is the primary environment variable for the
	// migration base path
	EnvBaseRoot = "ROMLAYOUT_ROOT"

	// EnvBackupDir overrides the backup directory
	EnvBackupDir = "ROMLAYOUT_BACKUP_DIR"
)

// Layout directory names. These define the normalized tree the
// migration produces and are not user-configurable.
const (
	// RomsDirName holds full-display-name platform directories
	RomsDirName = "Roms"

	// EmulationDirName holds shared emulation resources
	EmulationDirName = "Emulation"

	// EmulatorsDirName holds per-emulator directories
	EmulatorsDirName = "Emulators"

	// RomSymlinkDirName holds short-name symlinks under Emulation/
	RomSymlinkDirName = "roms"

	// MediaDirName holds shared downloaded media under Emulation/
	MediaDirName = "downloaded_media"

	// AppDirName is the directory name for romlayout-owned files
	AppDirName = "romlayout"

	// VariantMappingFile is the variant mapping document name
	VariantMappingFile = "variant_mapping.json"
)

// Layout provides centralized path resolution for a migration base
// path. Construct one per engine instance; never reach for globals.
type Layout struct {
	basePath     string
	backupDir    string
	usedFallback bool
}

// New creates a Layout rooted at basePath. An empty basePath falls
// back to ROMLAYOUT_ROOT, then to the working directory (flagged via
// UsedFallback so callers can warn).
func New(basePath string) (*Layout, error) {
	l := &Layout{}

	if basePath == "" {
		basePath = os.Getenv(EnvBaseRoot)
	}
	if basePath == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrFileAccess, "failed to determine working directory")
		}
		basePath = cwd
		l.usedFallback = true
	}

	abs, err := filepath.Abs(expandHome(basePath))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to resolve base path %s", basePath)
	}
	l.basePath = abs

	backupDir := os.Getenv(EnvBackupDir)
	if backupDir == "" {
		backupDir = filepath.Join(xdg.StateHome, AppDirName, "backups")
	}
	l.backupDir = backupDir

	return l, nil
}

// WithBackupDir returns a copy of the layout using the given backup
// directory instead of the default.
func (l *Layout) WithBackupDir(dir string) *Layout {
	copied := *l
	copied.backupDir = dir
	return &copied
}

// BasePath returns the migration base path.
func (l *Layout) BasePath() string { return l.basePath }

// UsedFallback reports whether the base path fell back to the working
// directory.
func (l *Layout) UsedFallback() bool { return l.usedFallback }

// RomsDir returns the directory holding full-name platform folders.
func (l *Layout) RomsDir() string {
	return filepath.Join(l.basePath, RomsDirName)
}

// EmulationDir returns the shared emulation resources directory.
func (l *Layout) EmulationDir() string {
	return filepath.Join(l.basePath, EmulationDirName)
}

// EmulatorsDir returns the per-emulator directory root.
func (l *Layout) EmulatorsDir() string {
	return filepath.Join(l.basePath, EmulatorsDirName)
}

// RomSymlinkDir returns the directory holding short-name platform
// symlinks.
func (l *Layout) RomSymlinkDir() string {
	return filepath.Join(l.EmulationDir(), RomSymlinkDirName)
}

// MediaDir returns the shared downloaded-media directory.
func (l *Layout) MediaDir() string {
	return filepath.Join(l.EmulationDir(), MediaDirName)
}

// PlatformDir returns the full-name directory for a platform.
func (l *Layout) PlatformDir(fullName string) string {
	return filepath.Join(l.RomsDir(), fullName)
}

// EmulatorDir returns the directory for a single emulator.
func (l *Layout) EmulatorDir(name string) string {
	return filepath.Join(l.EmulatorsDir(), name)
}

// BackupsDir returns the directory holding migration backups.
func (l *Layout) BackupsDir() string { return l.backupDir }

// ConfigDir returns the XDG config directory for romlayout.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppDirName)
}

// VariantMappingPath returns the default variant mapping document
// location.
func VariantMappingPath() string {
	return filepath.Join(ConfigDir(), VariantMappingFile)
}

// IsWithin reports whether path is inside parent.
func IsWithin(path, parent string) bool {
	path = filepath.Clean(path)
	parent = filepath.Clean(parent)

	rel, err := filepath.Rel(parent, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// expandHome expands a leading ~ to the user home directory
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
