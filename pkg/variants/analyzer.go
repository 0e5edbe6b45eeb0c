package variants

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/arthur-debert/romlayout/pkg/logging"
	"github.com/arthur-debert/romlayout/pkg/paths"
	"github.com/arthur-debert/romlayout/pkg/types"
	"github.com/rs/zerolog"
)

// mediaShortNames maps full platform display names onto the short
// folder names used under the shared media directory. Unknown
// platforms fall back to a normalized form of the display name.
var mediaShortNames = map[string]string{
	"Nintendo Entertainment System":       "nes",
	"Super Nintendo Entertainment System": "snes",
	"Nintendo 64":                         "n64",
	"Nintendo GameCube":                   "gc",
	"Nintendo DS":                         "nds",
	"Game Boy":                            "gb",
	"Game Boy Color":                      "gbc",
	"Game Boy Advance":                    "gba",
	"Sega Genesis":                        "genesis",
	"Sega Dreamcast":                      "dreamcast",
	"Sony PlayStation":                    "psx",
	"Sony PlayStation 2":                  "ps2",
	"Sony PlayStation Portable":           "psp",
}

// Analyzer scans the ROM tree for variant folders.
type Analyzer struct {
	layout *paths.Layout
	fs     types.FS
	logger zerolog.Logger
}

// NewAnalyzer creates an Analyzer for the layout's ROM directory.
func NewAnalyzer(layout *paths.Layout, fs types.FS) *Analyzer {
	return &Analyzer{
		layout: layout,
		fs:     fs,
		logger: logging.GetLogger("variants.analyzer"),
	}
}

// Analyze scans each platform directory under the ROMs root and
// matches its subfolders against the variant mapping. An exact
// folder-name match is detected; a folder whose name merely contains
// the variant key needs organization first. Platforms without any
// match produce no analysis.
func (a *Analyzer) Analyze(mapping types.VariantMapping) ([]PlatformVariantAnalysis, error) {
	entries, err := a.fs.ReadDir(a.layout.RomsDir())
	if err != nil {
		// An unmigrated tree has no ROMs root yet; nothing to analyze.
		return nil, nil
	}

	var analyses []PlatformVariantAnalysis
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		platform := entry.Name()
		variantTable, ok := mapping[platform]
		if !ok {
			continue
		}

		platformDir := filepath.Join(a.layout.RomsDir(), platform)
		mediaDir := filepath.Join(a.layout.MediaDir(), MediaShortName(platform))

		ops := a.matchVariants(platform, platformDir, mediaDir, variantTable)
		if len(ops) == 0 {
			continue
		}

		analyses = append(analyses, PlatformVariantAnalysis{
			PlatformName: platform,
			PlatformDir:  platformDir,
			MainMediaDir: mediaDir,
			Operations:   ops,
		})
	}

	a.logger.Info().Int("platforms", len(analyses)).Msg("Variant analysis complete")
	return analyses, nil
}

// matchVariants classifies the platform's subfolders against its
// variant table. The media folder itself is never a variant.
func (a *Analyzer) matchVariants(platform, platformDir, mediaDir string, table map[string]string) []SymlinkOperation {
	entries, err := a.fs.ReadDir(platformDir)
	if err != nil {
		a.logger.Warn().Str("platform", platform).Err(err).Msg("Cannot read platform directory")
		return nil
	}

	var folders []string
	for _, entry := range entries {
		if entry.IsDir() && entry.Name() != "media" {
			folders = append(folders, entry.Name())
		}
	}

	var ops []SymlinkOperation
	for _, variantKey := range sortedKeys(table) {
		expectedFolder := table[variantKey]

		matched, status := matchFolder(folders, variantKey, expectedFolder)
		if matched == "" {
			continue
		}
		ops = append(ops, SymlinkOperation{
			VariantType:         variantKey,
			PlatformName:        platform,
			MainPlatformDir:     platformDir,
			TargetVariantFolder: matched,
			MainMediaDir:        mediaDir,
			Status:              status,
		})
	}
	return ops
}

// matchFolder finds the best folder for a variant: an exact match on
// the expected folder name wins over a substring match on the key.
func matchFolder(folders []string, variantKey, expectedFolder string) (string, OperationStatus) {
	for _, folder := range folders {
		if folder == expectedFolder {
			return folder, StatusDetected
		}
	}
	key := strings.ToLower(variantKey)
	for _, folder := range folders {
		if strings.Contains(strings.ToLower(folder), key) {
			return folder, StatusNeedsOrganization
		}
	}
	return "", StatusPending
}

// MediaShortName returns the shared-media folder name for a platform.
func MediaShortName(platform string) string {
	if short, ok := mediaShortNames[platform]; ok {
		return short
	}
	var b strings.Builder
	for _, r := range strings.ToLower(platform) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
