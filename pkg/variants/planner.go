package variants

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/romlayout/pkg/logging"
	"github.com/arthur-debert/romlayout/pkg/types"
	"github.com/rs/zerolog"
)

// Planner turns variant analyses into a symlink plan.
type Planner struct {
	logger zerolog.Logger
}

// NewPlanner creates a variant Planner.
func NewPlanner() *Planner {
	return &Planner{logger: logging.GetLogger("variants.planner")}
}

// PlanSymlinks emits exactly two operations per analyzed variant: one
// linking the canonical variant name to the folder actually on disk,
// and one linking the variant's media subfolder to the platform's
// shared media directory.
func (p *Planner) PlanSymlinks(analyses []PlatformVariantAnalysis) *Plan {
	plan := &Plan{
		PlanID:      types.NewID("variant_plan"),
		Description: "Variant symlink plan",
	}

	for _, analysis := range analyses {
		for _, op := range analysis.Operations {
			variantDir := filepath.Join(op.MainPlatformDir, op.TargetVariantFolder)
			linkPath := filepath.Join(op.MainPlatformDir, op.VariantType)

			plan.Operations = append(plan.Operations, MigrationOperation{
				ID:          fmt.Sprintf("variant_%s_%s", opSlug(op.PlatformName), opSlug(op.VariantType)),
				Type:        OpCreateVariantSymlink,
				Description: fmt.Sprintf("Link variant %s for %s", op.VariantType, op.PlatformName),
				SourcePath:  variantDir,
				TargetPath:  linkPath,
				Metadata: map[string]string{
					"platform":     op.PlatformName,
					"variant_type": op.VariantType,
				},
			})

			mediaLink := filepath.Join(variantDir, "media")
			mediaSource, err := filepath.Rel(variantDir, op.MainMediaDir)
			if err != nil {
				mediaSource = op.MainMediaDir
			}
			plan.Operations = append(plan.Operations, MigrationOperation{
				ID:          fmt.Sprintf("media_%s_%s", opSlug(op.PlatformName), opSlug(op.VariantType)),
				Type:        OpCreateMediaSymlink,
				Description: fmt.Sprintf("Link shared media for %s variant %s", op.PlatformName, op.VariantType),
				SourcePath:  mediaSource,
				TargetPath:  mediaLink,
				Metadata: map[string]string{
					"platform":     op.PlatformName,
					"variant_type": op.VariantType,
				},
			})
		}
	}

	p.logger.Info().Str("plan", plan.PlanID).Int("operations", len(plan.Operations)).
		Msg("Variant plan created")
	return plan
}

func opSlug(s string) string {
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
