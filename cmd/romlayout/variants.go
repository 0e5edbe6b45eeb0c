package main

import (
	"fmt"

	"github.com/arthur-debert/romlayout/pkg/variants"
	"github.com/spf13/cobra"
)

var variantsCmd = &cobra.Command{
	Use:   "variants",
	Short: "Analyze and link alternate ROM variants",
	Long: `Variants are alternate ROM editions (hacks, translations, homebrew)
organized into per-platform subfolders. The analyze subcommand scans the
ROM tree against the variant mapping; plan and apply link detected
variants and their shared media.`,
}

func init() {
	variantsCmd.AddCommand(variantsAnalyzeCmd)
	variantsCmd.AddCommand(variantsPlanCmd)
	variantsCmd.AddCommand(variantsApplyCmd)
}

var variantsAnalyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Scan the ROM tree for variant folders",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newAppContext()
		if err != nil {
			return err
		}

		analyzer := variants.NewAnalyzer(ctx.layout, ctx.fs)
		analyses, err := analyzer.Analyze(ctx.variants)
		if err != nil {
			return err
		}
		fmt.Println(ctx.renderer.RenderVariantAnalyses(analyses))
		return nil
	},
}

var variantsPlanCmd = &cobra.Command{
	Use:   "plan",
	Short: "Plan variant symlink operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newAppContext()
		if err != nil {
			return err
		}

		analyses, err := variants.NewAnalyzer(ctx.layout, ctx.fs).Analyze(ctx.variants)
		if err != nil {
			return err
		}
		plan := variants.NewPlanner().PlanSymlinks(analyses)

		if len(plan.Operations) == 0 {
			fmt.Println("No variant operations to plan")
			return nil
		}
		fmt.Printf("%s: %d operations\n", plan.PlanID, len(plan.Operations))
		for _, op := range plan.Operations {
			fmt.Printf("  %s  %s\n", op.Type, op.Description)
		}
		return nil
	},
}

var variantsApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Create variant and media symlinks",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newAppContext()
		if err != nil {
			return err
		}

		analyses, err := variants.NewAnalyzer(ctx.layout, ctx.fs).Analyze(ctx.variants)
		if err != nil {
			return err
		}
		plan := variants.NewPlanner().PlanSymlinks(analyses)
		result := variants.NewExecutor(ctx.fs, progressPrinter).Execute(plan)

		fmt.Printf("Executed %d operations, %d failed\n",
			result.ExecutedOperations, result.FailedOperations)
		for _, msg := range result.Errors {
			fmt.Println("  " + msg)
		}
		if !result.Success {
			return errCommandFailed
		}
		return nil
	},
}
