package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/arthur-debert/romlayout/pkg/executor"
	"github.com/arthur-debert/romlayout/pkg/planner"
	"github.com/arthur-debert/romlayout/pkg/shell"
	"github.com/arthur-debert/romlayout/pkg/types"
	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	planOutput   string
	planJSON     bool
	applyConfirm bool
	applyPlan    string
)

func init() {
	planCmd.Flags().StringVarP(&planOutput, "output", "o", "", "Write the plan as JSON to a file")
	planCmd.Flags().BoolVar(&planJSON, "json", false, "Print the plan as JSON instead of rendered text")
	applyCmd.Flags().BoolVar(&applyConfirm, "confirm", false, "Confirm execution; without it apply refuses to run")
	applyCmd.Flags().StringVar(&applyPlan, "plan", "", "Apply a previously saved plan file instead of re-planning")
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Build a migration plan for the current tree",
	Long: `Builds a migration plan from the mapping tables and placement rules.
Planning reads the filesystem but never writes to it; re-running plan on
an already-migrated tree yields an empty plan.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newAppContext()
		if err != nil {
			return err
		}

		plan, err := buildPlan(ctx)
		if err != nil {
			return err
		}

		if planOutput != "" {
			data, err := plan.Marshal()
			if err != nil {
				return err
			}
			if err := ctx.fs.WriteFile(planOutput, data, 0o644); err != nil {
				return err
			}
			fmt.Printf("Plan %s written to %s\n", plan.PlanID, planOutput)
			return nil
		}

		if planJSON {
			data, err := plan.Marshal()
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Println(ctx.renderer.RenderPlan(plan))
		return nil
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Preview the migration without touching the filesystem",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newAppContext()
		if err != nil {
			return err
		}

		plan, err := buildPlan(ctx)
		if err != nil {
			return err
		}
		report := executor.Preview(plan)

		if isatty.IsTerminal(os.Stdout.Fd()) {
			rendered, err := glamour.Render(previewMarkdown(report), "auto")
			if err == nil {
				fmt.Print(rendered)
				return nil
			}
		}
		fmt.Println(ctx.renderer.RenderPreview(report))
		return nil
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Execute the migration plan",
	Long: `Executes the migration plan step by step. Requires --confirm. A backup
snapshot is taken before any destructive step runs; the first failure
rolls back every already-applied step in reverse order.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newAppContext()
		if err != nil {
			return err
		}

		var plan *types.Plan
		if applyPlan != "" {
			data, err := ctx.fs.ReadFile(applyPlan)
			if err != nil {
				return err
			}
			plan, err = types.UnmarshalPlan(data)
			if err != nil {
				return err
			}
		} else {
			plan, err = buildPlan(ctx)
			if err != nil {
				return err
			}
		}

		exec := executor.New(ctx.layout, ctx.fs, shell.NewRunner(),
			executor.WithProgress(progressPrinter))
		result, err := exec.Apply(cmd.Context(), plan, applyConfirm)
		if err != nil {
			return err
		}

		fmt.Println(ctx.renderer.RenderResult(result))
		if !result.Success {
			return errCommandFailed
		}
		return nil
	},
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback [plan-id]",
	Short: "Roll back an executed migration plan",
	Long: `Rolls back an executed plan, newest step first. Without a plan id the
most recent executed plan from the backup history is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newAppContext()
		if err != nil {
			return err
		}

		exec := executor.New(ctx.layout, ctx.fs, shell.NewRunner(),
			executor.WithProgress(progressPrinter))

		var plan *types.Plan
		if len(args) == 1 {
			plan, err = exec.Backups().LoadPlanByID(args[0])
			if err != nil {
				return err
			}
		} else {
			plan, err = latestExecutedPlan(exec)
			if err != nil {
				return err
			}
		}

		result, err := exec.Rollback(plan)
		if err != nil {
			return err
		}
		fmt.Println(ctx.renderer.RenderResult(result))
		if !result.Success {
			return errCommandFailed
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded migration plans",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newAppContext()
		if err != nil {
			return err
		}

		backups := executor.NewBackupManager(ctx.layout, ctx.fs)
		plans, err := backups.History()
		if err != nil {
			return err
		}
		if len(plans) == 0 {
			fmt.Println("No recorded plans")
			return nil
		}

		for _, plan := range plans {
			state := "planned"
			switch {
			case plan.Executed && plan.Success:
				state = "applied"
			case plan.FailedSteps() > 0:
				state = "failed"
			}
			fmt.Printf("%s  %s  %d steps  %s\n",
				plan.PlanID,
				plan.CreatedAt.Format("2006-01-02 15:04:05"),
				plan.TotalSteps(),
				state)
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backup directory status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newAppContext()
		if err != nil {
			return err
		}

		backups := executor.NewBackupManager(ctx.layout, ctx.fs)
		status, err := backups.Status()
		if err != nil {
			return err
		}

		fmt.Printf("Backup directory: %s\n", status.BackupDir)
		fmt.Printf("Recorded plans:   %d\n", status.BackupCount)
		if status.LatestPlan != nil {
			fmt.Printf("Latest plan:      %s (%s, %d steps)\n",
				status.LatestPlan.PlanID,
				status.LatestPlan.CreatedAt.Format("2006-01-02 15:04:05"),
				status.LatestPlan.TotalSteps())
		}
		return nil
	},
}

func buildPlan(ctx *appContext) (*types.Plan, error) {
	p := planner.New(ctx.layout, ctx.fs, planner.WithProgress(progressPrinter))
	return p.PlanMigration(ctx.emus, ctx.plats, ctx.rules)
}

func latestExecutedPlan(exec *executor.Executor) (*types.Plan, error) {
	plans, err := exec.Backups().History()
	if err != nil {
		return nil, err
	}
	for _, plan := range plans {
		if plan.Executed {
			return plan, nil
		}
	}
	return nil, fmt.Errorf("no executed plan found in history")
}

// previewMarkdown renders the preview report as a markdown document
// for terminal display.
func previewMarkdown(report *types.PreviewReport) string {
	var b strings.Builder
	b.WriteString("# Migration Preview\n\n")
	fmt.Fprintf(&b, "- **Steps:** %d\n", report.TotalSteps)
	fmt.Fprintf(&b, "- **Estimated time:** %s\n", report.EstimatedTime)
	fmt.Fprintf(&b, "- **Risk:** %s\n", report.RiskLevel)
	fmt.Fprintf(&b, "- **Backup required:** %v\n\n", report.BackupRequired)

	if len(report.Changes) > 0 {
		b.WriteString("## Changes\n\n")
		b.WriteString("| Step | Action | Target |\n|------|--------|--------|\n")
		for _, change := range report.Changes {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", change.StepID, change.Action, change.TargetPath)
		}
		b.WriteString("\n")
	}

	if len(report.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, warning := range report.Warnings {
			fmt.Fprintf(&b, "- %s\n", warning)
		}
	}
	return b.String()
}
