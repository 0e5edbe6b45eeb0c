// Package planner turns the mapping tables and the placement ruleset
// into an ordered migration plan. Planning reads the filesystem to
// decide whether a step is needed but never writes to it; re-planning
// an already-migrated tree yields an empty (or near-empty) plan.
package planner

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/arthur-debert/romlayout/pkg/errors"
	"github.com/arthur-debert/romlayout/pkg/logging"
	"github.com/arthur-debert/romlayout/pkg/paths"
	"github.com/arthur-debert/romlayout/pkg/rules"
	"github.com/arthur-debert/romlayout/pkg/types"
	"github.com/rs/zerolog"
)

// Emulator path entries the layout expects. Missing entries get a
// directory planned under the emulator's own tree; executables are
// never fabricated.
var requiredEmulatorPaths = []string{"config", "bios", "saves"}

// Planner produces migration plans for a single layout.
type Planner struct {
	layout   *paths.Layout
	fs       types.FS
	progress types.ProgressFunc
	logger   zerolog.Logger
}

// Option customizes a Planner.
type Option func(*Planner)

// WithProgress installs a progress callback.
func WithProgress(fn types.ProgressFunc) Option {
	return func(p *Planner) {
		if fn != nil {
			p.progress = fn
		}
	}
}

// New creates a Planner for the given layout.
func New(layout *paths.Layout, fs types.FS, opts ...Option) *Planner {
	p := &Planner{
		layout:   layout,
		fs:       fs,
		progress: types.NopProgress,
		logger:   logging.GetLogger("planner"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// planContext tracks what the current plan already covers, so the
// symlink phase doesn't duplicate links the ROM phase planned.
type planContext struct {
	plan        *types.Plan
	plannedDirs map[string]struct{}
	plannedLnks map[string]struct{}
}

// PlanMigration builds a plan from the four ordered phases: directory
// structure, ROM organization, emulator paths, symlink creation.
// Later phases assume the directories earlier phases plan.
func (p *Planner) PlanMigration(emulators types.EmulatorMapping, platforms types.PlatformMapping, rs *rules.Ruleset) (*types.Plan, error) {
	if rs == nil {
		return nil, errors.New(errors.ErrInvalidInput, "ruleset is required for planning")
	}

	plan := types.NewPlan("ROM layout migration plan")
	ctx := &planContext{
		plan:        plan,
		plannedDirs: make(map[string]struct{}),
		plannedLnks: make(map[string]struct{}),
	}

	p.planDirectoryStructure(ctx, rs)
	p.planRomOrganization(ctx, platforms)
	p.planEmulatorPaths(ctx, emulators)
	p.planSymlinkCreation(ctx, emulators, platforms, rs)

	p.progress(fmt.Sprintf("Migration plan created: %d steps planned", plan.TotalSteps()))
	p.logger.Info().
		Str("plan", plan.PlanID).
		Int("steps", plan.TotalSteps()).
		Msg("Migration plan created")

	return plan, nil
}

// planDirectoryStructure plans creation of every required directory
// not already present.
func (p *Planner) planDirectoryStructure(ctx *planContext, rs *rules.Ruleset) {
	p.progress("Planning directory structure...")

	for _, rule := range rs.RequiredDirectories {
		target := filepath.Join(p.layout.BasePath(), filepath.FromSlash(rule.Path))
		p.planDirectory(ctx, "mkdir_"+slug(rule.Path), target,
			fmt.Sprintf("Create directory %s (%s)", rule.Path, rule.Purpose))
	}
}

// planRomOrganization plans a full-display-name directory per platform
// plus the short-name symlink pointing at it.
func (p *Planner) planRomOrganization(ctx *planContext, platforms types.PlatformMapping) {
	p.progress("Planning ROM organization...")

	for _, short := range sortedKeys(platforms) {
		full := platforms[short]
		platformDir := p.layout.PlatformDir(full)
		p.planDirectory(ctx, "romdir_"+slug(short), platformDir,
			fmt.Sprintf("Create ROM directory for %s", full))

		linkPath := filepath.Join(p.layout.RomSymlinkDir(), short)
		relSource, err := filepath.Rel(p.layout.RomSymlinkDir(), platformDir)
		if err != nil {
			relSource = platformDir
		}
		p.planSymlink(ctx, "romlink_"+slug(short), relSource, linkPath,
			fmt.Sprintf("Create symlink %s -> %s", short, full))
	}
}

// planEmulatorPaths plans each emulator's directory and the standard
// sub-directories its mapping entry lacks. This phase never fabricates
// missing executables.
func (p *Planner) planEmulatorPaths(ctx *planContext, emulators types.EmulatorMapping) {
	p.progress("Planning emulator paths...")

	for _, name := range sortedKeys(emulators) {
		cfg := emulators[name]
		emulatorDir := p.layout.EmulatorDir(name)
		p.planDirectory(ctx, "emudir_"+slug(name), emulatorDir,
			fmt.Sprintf("Create emulator directory for %s", name))

		for _, key := range requiredEmulatorPaths {
			if _, ok := cfg.Paths[key]; ok {
				continue
			}
			p.planDirectory(ctx, fmt.Sprintf("emupath_%s_%s", slug(name), key),
				filepath.Join(emulatorDir, key),
				fmt.Sprintf("Create %s directory for %s", key, name))
		}
	}
}

// planSymlinkCreation expands every required symlink rule against the
// mapping tables. A rule source that does not exist yet is not a
// planning error; execution surfaces the failure.
func (p *Planner) planSymlinkCreation(ctx *planContext, emulators types.EmulatorMapping, platforms types.PlatformMapping, rs *rules.Ruleset) {
	p.progress("Planning compatibility symlinks...")

	for i, rule := range rs.RequiredSymlinks {
		for j, exp := range p.expandSymlinkRule(rule, emulators, platforms) {
			source := filepath.Join(p.layout.BasePath(), filepath.FromSlash(exp.source))
			target := filepath.Join(p.layout.BasePath(), filepath.FromSlash(exp.target))
			p.planSymlink(ctx, fmt.Sprintf("symlink_%d_%d_%s", i, j, slug(exp.target)),
				source, target, exp.description)
		}
	}
}

// expansion is one concrete (source, target) pair produced from a
// symlink rule's placeholders.
type expansion struct {
	source      string
	target      string
	description string
}

func (p *Planner) expandSymlinkRule(rule rules.SymlinkRule, emulators types.EmulatorMapping, platforms types.PlatformMapping) []expansion {
	combined := rule.SourcePattern + rule.TargetPattern

	switch {
	case strings.Contains(combined, "{emulator}"):
		// Pairings implied by each emulator's supported systems.
		var out []expansion
		for _, emu := range sortedKeys(emulators) {
			for _, short := range emulators[emu].Systems {
				full, ok := platforms[short]
				if !ok {
					full = short
				}
				out = append(out, expandOne(rule, map[string]string{
					"{emulator}":      emu,
					"{platform}":      short,
					"{platform_full}": full,
				}))
			}
		}
		return out

	case strings.Contains(combined, "{platform}") || strings.Contains(combined, "{platform_full}"):
		var out []expansion
		for _, short := range sortedKeys(platforms) {
			out = append(out, expandOne(rule, map[string]string{
				"{platform}":      short,
				"{platform_full}": platforms[short],
			}))
		}
		return out

	default:
		return []expansion{expandOne(rule, nil)}
	}
}

func expandOne(rule rules.SymlinkRule, repl map[string]string) expansion {
	exp := expansion{
		source:      rule.SourcePattern,
		target:      rule.TargetPattern,
		description: rule.Description,
	}
	for placeholder, value := range repl {
		exp.source = strings.ReplaceAll(exp.source, placeholder, value)
		exp.target = strings.ReplaceAll(exp.target, placeholder, value)
		exp.description = strings.ReplaceAll(exp.description, placeholder, value)
	}
	if exp.description == "" {
		exp.description = fmt.Sprintf("Create symlink %s -> %s", exp.target, exp.source)
	}
	return exp
}

// planDirectory appends a create_directory step unless the directory
// already exists or the plan already covers it.
func (p *Planner) planDirectory(ctx *planContext, stepID, target, description string) {
	if _, ok := ctx.plannedDirs[target]; ok {
		return
	}
	if _, err := p.fs.Stat(target); err == nil {
		return
	}
	ctx.plannedDirs[target] = struct{}{}
	ctx.plan.AddStep(&types.Step{
		StepID:      stepID,
		Action:      types.ActionCreateDirectory,
		TargetPath:  target,
		Description: description,
	})
}

// planSymlink appends a create_symlink step unless the link already
// resolves to the wanted source or the plan already covers the target.
func (p *Planner) planSymlink(ctx *planContext, stepID, source, target, description string) {
	if _, ok := ctx.plannedLnks[target]; ok {
		return
	}
	if p.linkResolvesTo(target, source) {
		return
	}
	ctx.plannedLnks[target] = struct{}{}
	ctx.plan.AddStep(&types.Step{
		StepID:      stepID,
		Action:      types.ActionCreateSymlink,
		SourcePath:  source,
		TargetPath:  target,
		Description: description,
	})
}

// linkResolvesTo reports whether target is a link already pointing at
// source (relative link targets are resolved against the link's own
// directory).
func (p *Planner) linkResolvesTo(target, source string) bool {
	if _, err := p.fs.Lstat(target); err != nil {
		return false
	}
	current, err := p.fs.Readlink(target)
	if err != nil {
		return false
	}
	linkDir := filepath.Dir(target)
	return resolveAgainst(linkDir, current) == resolveAgainst(linkDir, source)
}

func resolveAgainst(dir, path string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	return filepath.Clean(path)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// slug converts a free-form name into a step-id friendly token
func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}
