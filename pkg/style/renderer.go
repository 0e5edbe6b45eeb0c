package style

import (
	"fmt"
	"os"
	"strings"

	"github.com/arthur-debert/romlayout/pkg/types"
	"github.com/arthur-debert/romlayout/pkg/variants"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"github.com/pterm/pterm"
)

// Renderer defines the interface for rendering engine output
type Renderer interface {
	RenderPlan(plan *types.Plan) string
	RenderPreview(report *types.PreviewReport) string
	RenderResult(result *types.MigrationResult) string
	RenderVariantAnalyses(analyses []variants.PlatformVariantAnalysis) string
	RenderError(err error) string
}

// NewRenderer picks rich or plain output based on whether stdout is a
// color-capable terminal.
func NewRenderer() Renderer {
	if isatty.IsTerminal(os.Stdout.Fd()) && termenv.DefaultOutput().Profile != termenv.Ascii {
		return NewTerminalRenderer()
	}
	return NewPlainRenderer()
}

// TerminalRenderer implements Renderer with rich terminal output
type TerminalRenderer struct {
	width int
}

// NewTerminalRenderer creates a new terminal renderer
func NewTerminalRenderer() *TerminalRenderer {
	return &TerminalRenderer{
		width: 80,
	}
}

// SetWidth updates the terminal width for rendering
func (r *TerminalRenderer) SetWidth(width int) {
	r.width = width
}

// RenderPlan renders the steps of a migration plan
func (r *TerminalRenderer) RenderPlan(plan *types.Plan) string {
	if plan.TotalSteps() == 0 {
		return MutedStyle.Render("Nothing to do; the layout is already in place")
	}

	var result strings.Builder
	result.WriteString(TitleStyle.Render(plan.Description) + "\n\n")

	for _, step := range plan.Steps {
		result.WriteString(r.renderStep(step) + "\n")
	}

	result.WriteString("\n" + MutedStyle.Render(
		fmt.Sprintf("%d steps, estimated %s", plan.TotalSteps(), plan.EstimatedDuration().String())))
	return result.String()
}

// renderStep renders a single step line
func (r *TerminalRenderer) renderStep(step *types.Step) string {
	var indicator string
	switch {
	case step.Failed():
		indicator = ErrorIndicator
	case step.Succeeded():
		indicator = SuccessIndicator
	default:
		indicator = PendingIndicator
	}

	var actionStyle = InfoStyle
	switch step.Action {
	case types.ActionCreateSymlink:
		actionStyle = SymlinkStyle
	case types.ActionCreateDirectory:
		actionStyle = DirectoryStyle
	case types.ActionMoveFile:
		actionStyle = MoveStyle
	case types.ActionCopyFile:
		actionStyle = CopyStyle
	}

	desc := step.Description
	if step.SourcePath != "" && step.TargetPath != "" {
		desc = fmt.Sprintf("%s → %s",
			PathStyle.Render(step.SourcePath),
			PathStyle.Render(step.TargetPath))
	}

	return fmt.Sprintf("%s %s %s", indicator, actionStyle.Render(string(step.Action)), desc)
}

// RenderPreview renders a preview report summary
func (r *TerminalRenderer) RenderPreview(report *types.PreviewReport) string {
	var result strings.Builder
	result.WriteString(TitleStyle.Render("Migration Preview") + "\n\n")

	result.WriteString(fmt.Sprintf("%s %s\n", SubtitleStyle.Render("Steps:"),
		fmt.Sprintf("%d", report.TotalSteps)))
	result.WriteString(fmt.Sprintf("%s %s\n", SubtitleStyle.Render("Estimated time:"), report.EstimatedTime))

	risk := report.RiskLevel
	switch risk {
	case "high":
		risk = ErrorStyle.Render(risk)
	case "medium":
		risk = WarningStyle.Render(risk)
	default:
		risk = SuccessStyle.Render(risk)
	}
	result.WriteString(fmt.Sprintf("%s %s\n", SubtitleStyle.Render("Risk:"), risk))

	if report.BackupRequired {
		result.WriteString(InfoIndicator + " A backup snapshot will be taken before execution\n")
	}

	for _, warning := range report.Warnings {
		result.WriteString(fmt.Sprintf("%s %s\n", WarningIndicator, warning))
	}

	return strings.TrimRight(result.String(), "\n")
}

// RenderResult renders a migration or rollback outcome
func (r *TerminalRenderer) RenderResult(result *types.MigrationResult) string {
	var b strings.Builder
	if result.Success {
		b.WriteString(fmt.Sprintf("%s %s\n", SuccessIndicator, result.Message))
	} else {
		b.WriteString(fmt.Sprintf("%s %s\n", ErrorIndicator, result.Message))
		if result.FailedStep != "" {
			b.WriteString(Indent(MutedStyle.Render("failed step: "+result.FailedStep), 1) + "\n")
		}
	}
	if result.RollbackPerformed {
		b.WriteString(Indent(InfoStyle.Render("rollback performed"), 1) + "\n")
	}
	if result.BackupLocation != "" {
		b.WriteString(Indent(MutedStyle.Render("backup: "+result.BackupLocation), 1) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderVariantAnalyses renders variant analysis results grouped by
// platform
func (r *TerminalRenderer) RenderVariantAnalyses(analyses []variants.PlatformVariantAnalysis) string {
	if len(analyses) == 0 {
		return MutedStyle.Render("No variant folders found")
	}

	var result strings.Builder
	result.WriteString(TitleStyle.Render("Variant Analysis") + "\n\n")

	for _, analysis := range analyses {
		result.WriteString(fmt.Sprintf("%s %s\n", pterm.Info.Prefix.Text, Bold(analysis.PlatformName)))
		for _, op := range analysis.Operations {
			var indicator string
			switch op.Status {
			case variants.StatusDetected, variants.StatusCreated:
				indicator = SuccessIndicator
			case variants.StatusNeedsOrganization:
				indicator = WarningIndicator
			case variants.StatusFailed:
				indicator = ErrorIndicator
			default:
				indicator = PendingIndicator
			}
			line := fmt.Sprintf("%s %s (%s)", indicator, op.VariantType, op.Status)
			result.WriteString(Indent(line, 1) + "\n")
		}
		result.WriteString("\n")
	}

	return strings.TrimRight(result.String(), "\n")
}

// RenderError renders an error message
func (r *TerminalRenderer) RenderError(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%s %s", pterm.Error.Prefix.Text, pterm.Error.MessageStyle.Sprint(err.Error()))
}

// PlainRenderer implements Renderer with plain text output (no styling)
type PlainRenderer struct{}

// NewPlainRenderer creates a new plain text renderer
func NewPlainRenderer() *PlainRenderer {
	return &PlainRenderer{}
}

// RenderPlan renders a plain step list
func (r *PlainRenderer) RenderPlan(plan *types.Plan) string {
	if plan.TotalSteps() == 0 {
		return "Nothing to do; the layout is already in place"
	}

	var result strings.Builder
	result.WriteString(plan.Description + "\n")
	for _, step := range plan.Steps {
		result.WriteString(fmt.Sprintf("  %s: %s\n", step.Action, step.Description))
	}
	result.WriteString(fmt.Sprintf("%d steps, estimated %s", plan.TotalSteps(), plan.EstimatedDuration()))
	return result.String()
}

// RenderPreview renders a plain preview summary
func (r *PlainRenderer) RenderPreview(report *types.PreviewReport) string {
	var result strings.Builder
	result.WriteString(fmt.Sprintf("Steps: %d\n", report.TotalSteps))
	result.WriteString(fmt.Sprintf("Estimated time: %s\n", report.EstimatedTime))
	result.WriteString(fmt.Sprintf("Risk: %s\n", report.RiskLevel))
	if report.BackupRequired {
		result.WriteString("A backup snapshot will be taken before execution\n")
	}
	for _, warning := range report.Warnings {
		result.WriteString("Warning: " + warning + "\n")
	}
	return strings.TrimRight(result.String(), "\n")
}

// RenderResult renders a plain outcome
func (r *PlainRenderer) RenderResult(result *types.MigrationResult) string {
	var b strings.Builder
	b.WriteString(result.Message + "\n")
	if result.FailedStep != "" {
		b.WriteString("Failed step: " + result.FailedStep + "\n")
	}
	if result.BackupLocation != "" {
		b.WriteString("Backup: " + result.BackupLocation + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderVariantAnalyses renders plain variant analyses
func (r *PlainRenderer) RenderVariantAnalyses(analyses []variants.PlatformVariantAnalysis) string {
	if len(analyses) == 0 {
		return "No variant folders found"
	}

	var result strings.Builder
	for _, analysis := range analyses {
		result.WriteString(analysis.PlatformName + ":\n")
		for _, op := range analysis.Operations {
			result.WriteString(fmt.Sprintf("  - %s (%s)\n", op.VariantType, op.Status))
		}
	}
	return strings.TrimRight(result.String(), "\n")
}

// RenderError renders a plain error message
func (r *PlainRenderer) RenderError(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %s", err.Error())
}
