package fixup

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/beevik/etree"
)

// romExtensions are the archive and image formats treated as ROM files
// during path resolution.
var romExtensions = map[string]bool{
	".zip": true,
	".7z":  true,
	".rar": true,
	".iso": true,
	".chd": true,
	".bin": true,
}

// emulatorNames are substrings that identify an executable as a known
// emulator.
var emulatorNames = []string{
	"retroarch", "dolphin", "pcsx", "duckstation", "mame",
	"snes9x", "cemu", "rpcs3", "melonds", "mgba",
}

// PathResolution is the outcome of AutoResolvePaths. Resolved entries
// are broken references matched to an existing file; Suggestions are
// findings the caller may act on. Nothing is mutated.
type PathResolution struct {
	Resolved    []string `json:"resolved"`
	Suggestions []string `json:"suggestions"`
}

// AutoResolvePaths walks base looking for ROM files, emulator
// executables, and EmulationStation gamelist.xml indexes. Broken
// gamelist entries whose file exists elsewhere under base are reported
// as resolved corrections; everything else of interest becomes a
// suggestion.
func (f *Fixer) AutoResolvePaths(base string) (*PathResolution, error) {
	var files []string
	if err := f.walk(base, &files); err != nil {
		return nil, err
	}

	// Index files by basename so broken references can be re-pointed.
	byName := make(map[string][]string)
	var gamelists []string
	resolution := &PathResolution{}

	for _, path := range files {
		name := strings.ToLower(filepath.Base(path))
		byName[name] = append(byName[name], path)

		switch {
		case name == "gamelist.xml":
			gamelists = append(gamelists, path)
		case isEmulatorExecutable(name):
			resolution.Suggestions = append(resolution.Suggestions,
				fmt.Sprintf("emulator executable found at %s", path))
		}
	}

	for _, listPath := range gamelists {
		f.resolveGamelist(listPath, byName, resolution)
	}

	sort.Strings(resolution.Resolved)
	sort.Strings(resolution.Suggestions)
	return resolution, nil
}

// resolveGamelist checks every <game><path> entry of a gamelist.xml
// against the filesystem and the basename index.
func (f *Fixer) resolveGamelist(listPath string, byName map[string][]string, resolution *PathResolution) {
	data, err := f.fs.ReadFile(listPath)
	if err != nil {
		return
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		f.logger.Warn().Str("gamelist", listPath).Err(err).Msg("Skipping unparseable gamelist")
		return
	}

	listDir := filepath.Dir(listPath)
	for _, game := range doc.FindElements("//game") {
		pathEl := game.SelectElement("path")
		if pathEl == nil {
			continue
		}
		ref := strings.TrimSpace(pathEl.Text())
		if ref == "" {
			continue
		}

		abs := ref
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(listDir, filepath.FromSlash(ref))
		}
		if _, err := f.fs.Stat(abs); err == nil {
			continue
		}

		name := strings.ToLower(filepath.Base(filepath.FromSlash(ref)))
		if !romExtensions[filepath.Ext(name)] {
			continue
		}
		if candidates, ok := byName[name]; ok {
			resolution.Resolved = append(resolution.Resolved,
				fmt.Sprintf("%s: %s -> %s", listPath, ref, candidates[0]))
		} else {
			resolution.Suggestions = append(resolution.Suggestions,
				fmt.Sprintf("%s references missing file %s", listPath, ref))
		}
	}
}

func (f *Fixer) walk(dir string, files *[]string) error {
	entries, err := f.fs.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		// Link loops are possible in a half-migrated tree; links are
		// never descended into.
		if entry.Type()&fs.ModeSymlink != 0 {
			continue
		}
		if entry.IsDir() {
			if err := f.walk(path, files); err != nil {
				continue
			}
			continue
		}
		*files = append(*files, path)
	}
	return nil
}

func isEmulatorExecutable(name string) bool {
	ext := filepath.Ext(name)
	if ext != ".exe" && ext != ".bat" && ext != ".appimage" {
		return false
	}
	for _, known := range emulatorNames {
		if strings.Contains(name, known) {
			return true
		}
	}
	return false
}
