package main

import (
	"fmt"

	"github.com/arthur-debert/romlayout/pkg/executor"
	"github.com/arthur-debert/romlayout/pkg/fixup"
	"github.com/arthur-debert/romlayout/pkg/shell"
	"github.com/spf13/cobra"
)

var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Recovery operations for partially failed migrations",
}

func init() {
	fixCmd.AddCommand(fixSymlinksCmd)
	fixCmd.AddCommand(fixPermissionsCmd)
	fixCmd.AddCommand(fixPathsCmd)
}

var fixSymlinksCmd = &cobra.Command{
	Use:   "symlinks [plan-id]",
	Short: "Retry failed symlink steps with elevated privileges",
	Long: `Re-attempts the symlink steps that failed in a recorded plan. Requires
elevated privileges; without them the command refuses up front. Without
a plan id the most recent recorded plan is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newAppContext()
		if err != nil {
			return err
		}

		backups := executor.NewBackupManager(ctx.layout, ctx.fs)
		var planID string
		if len(args) == 1 {
			planID = args[0]
		} else {
			plans, err := backups.History()
			if err != nil {
				return err
			}
			if len(plans) == 0 {
				return fmt.Errorf("no recorded plans to fix")
			}
			planID = plans[0].PlanID
		}

		plan, err := backups.LoadPlanByID(planID)
		if err != nil {
			return err
		}

		fixer := fixup.NewFixer(ctx.fs, shell.NewRunner(), nil)
		result, err := fixer.RetrySymlinks(cmd.Context(), plan)
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

var fixPermissionsCmd = &cobra.Command{
	Use:   "permissions <path>",
	Short: "Grant full access on a directory via the platform ACL tool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newAppContext()
		if err != nil {
			return err
		}

		fixer := fixup.NewFixer(ctx.fs, shell.NewRunner(), nil)
		result, err := fixer.GrantPermissions(cmd.Context(), args[0])
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

var fixPathsCmd = &cobra.Command{
	Use:   "paths [base]",
	Short: "Propose path corrections for broken ROM references",
	Long: `Walks the base directory looking for ROM files, emulator executables,
and gamelist.xml indexes, then proposes corrections for broken
references. Nothing is modified.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newAppContext()
		if err != nil {
			return err
		}

		base := ctx.layout.BasePath()
		if len(args) == 1 {
			base = args[0]
		}

		fixer := fixup.NewFixer(ctx.fs, shell.NewRunner(), nil)
		resolution, err := fixer.AutoResolvePaths(base)
		if err != nil {
			return err
		}

		if len(resolution.Resolved) == 0 && len(resolution.Suggestions) == 0 {
			fmt.Println("No path issues found")
			return nil
		}
		if len(resolution.Resolved) > 0 {
			fmt.Println("Resolved:")
			for _, entry := range resolution.Resolved {
				fmt.Println("  " + entry)
			}
		}
		if len(resolution.Suggestions) > 0 {
			fmt.Println("Suggestions:")
			for _, entry := range resolution.Suggestions {
				fmt.Println("  " + entry)
			}
		}
		return nil
	},
}
