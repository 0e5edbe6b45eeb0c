package variants

import (
	"path/filepath"
	"testing"

	"github.com/arthur-debert/romlayout/pkg/filesystem"
	"github.com/arthur-debert/romlayout/pkg/paths"
	"github.com/arthur-debert/romlayout/pkg/testutil"
	"github.com/arthur-debert/romlayout/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nesFull = "Nintendo Entertainment System"

func newTestAnalyzer(t *testing.T) (*Analyzer, *paths.Layout, types.FS) {
	t.Helper()
	env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
	return NewAnalyzer(env.Layout, env.FS), env.Layout, env.FS
}

func TestAnalyze_DetectedRoundTrip(t *testing.T) {
	analyzer, layout, fs := newTestAnalyzer(t)
	require.NoError(t, fs.MkdirAll(filepath.Join(layout.PlatformDir(nesFull), "Hacks"), 0o755))

	mapping := types.VariantMapping{
		nesFull: {"Hacks": "Hacks"},
	}

	analyses, err := analyzer.Analyze(mapping)
	require.NoError(t, err)
	require.Len(t, analyses, 1)

	analysis := analyses[0]
	assert.Equal(t, nesFull, analysis.PlatformName)
	require.Len(t, analysis.Operations, 1)

	op := analysis.Operations[0]
	assert.Equal(t, "Hacks", op.VariantType)
	assert.Equal(t, StatusDetected, op.Status)
	assert.Equal(t, "Hacks", op.TargetVariantFolder)
	assert.Equal(t, filepath.Join(layout.MediaDir(), "nes"), op.MainMediaDir)

	plan := NewPlanner().PlanSymlinks(analyses)
	require.Len(t, plan.Operations, 2)
	assert.Equal(t, OpCreateVariantSymlink, plan.Operations[0].Type)
	assert.Equal(t, OpCreateMediaSymlink, plan.Operations[1].Type)
}

func TestAnalyze_NeedsOrganization(t *testing.T) {
	analyzer, layout, fs := newTestAnalyzer(t)
	require.NoError(t, fs.MkdirAll(filepath.Join(layout.PlatformDir(nesFull), "my hacks collection"), 0o755))

	mapping := types.VariantMapping{
		nesFull: {"Hacks": "Hacks"},
	}

	analyses, err := analyzer.Analyze(mapping)
	require.NoError(t, err)
	require.Len(t, analyses, 1)
	require.Len(t, analyses[0].Operations, 1)

	op := analyses[0].Operations[0]
	assert.Equal(t, StatusNeedsOrganization, op.Status)
	assert.Equal(t, "my hacks collection", op.TargetVariantFolder)
}

func TestAnalyze_SkipsMediaAndUnmappedPlatforms(t *testing.T) {
	analyzer, layout, fs := newTestAnalyzer(t)
	require.NoError(t, fs.MkdirAll(filepath.Join(layout.PlatformDir(nesFull), "media"), 0o755))
	require.NoError(t, fs.MkdirAll(layout.PlatformDir("Sega Genesis"), 0o755))

	mapping := types.VariantMapping{
		nesFull: {"media": "media"},
	}

	analyses, err := analyzer.Analyze(mapping)
	require.NoError(t, err)
	assert.Empty(t, analyses, "the media folder is never a variant")
}

func TestAnalyze_MissingRomsRoot(t *testing.T) {
	analyzer, _, _ := newTestAnalyzer(t)

	analyses, err := analyzer.Analyze(types.VariantMapping{nesFull: {"Hacks": "Hacks"}})
	require.NoError(t, err)
	assert.Empty(t, analyses)
}

func TestMediaShortName(t *testing.T) {
	assert.Equal(t, "nes", MediaShortName(nesFull))
	assert.Equal(t, "gba", MediaShortName("Game Boy Advance"))
	assert.Equal(t, "atari2600", MediaShortName("Atari 2600"))
}

func TestExecute_CreatesLinks(t *testing.T) {
	analyzer, layout, fs := newTestAnalyzer(t)
	hacksDir := filepath.Join(layout.PlatformDir(nesFull), "Hacks")
	require.NoError(t, fs.MkdirAll(hacksDir, 0o755))
	require.NoError(t, fs.MkdirAll(filepath.Join(layout.MediaDir(), "nes"), 0o755))

	analyses, err := analyzer.Analyze(types.VariantMapping{nesFull: {"Hacks": "Hacks"}})
	require.NoError(t, err)
	plan := NewPlanner().PlanSymlinks(analyses)

	result := NewExecutor(fs, nil).Execute(plan)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.ExecutedOperations)
	assert.Zero(t, result.FailedOperations)

	// The media link points back at the shared media directory.
	target, err := fs.Readlink(filepath.Join(hacksDir, "media"))
	require.NoError(t, err)
	resolved := filepath.Clean(filepath.Join(hacksDir, target))
	assert.Equal(t, filepath.Join(layout.MediaDir(), "nes"), resolved)
}

func TestExecute_Idempotent(t *testing.T) {
	analyzer, layout, fs := newTestAnalyzer(t)
	require.NoError(t, fs.MkdirAll(filepath.Join(layout.PlatformDir(nesFull), "Hacks"), 0o755))

	analyses, err := analyzer.Analyze(types.VariantMapping{nesFull: {"Hacks": "Hacks"}})
	require.NoError(t, err)
	plan := NewPlanner().PlanSymlinks(analyses)

	first := NewExecutor(fs, nil).Execute(plan)
	require.True(t, first.Success)
	second := NewExecutor(fs, nil).Execute(plan)
	assert.True(t, second.Success, "re-executing should tolerate existing links: %v", second.Errors)
}

func TestExecute_AggregatesFailures(t *testing.T) {
	fs := filesystem.NewMemory()

	plan := &Plan{
		PlanID: "variant_plan_test",
		Operations: []MigrationOperation{
			{
				ID:         "good",
				Type:       OpCreateVariantSymlink,
				SourcePath: "/a",
				TargetPath: "/a",
			},
			{
				ID:         "bad",
				Type:       OpCreateMediaSymlink,
				SourcePath: "/src",
				TargetPath: "/existing",
			},
		},
	}
	require.NoError(t, fs.WriteFile("/existing", []byte("in the way"), 0o644))

	result := NewExecutor(fs, nil).Execute(plan)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.ExecutedOperations)
	assert.Equal(t, 1, result.FailedOperations)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "bad")
}
