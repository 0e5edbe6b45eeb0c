package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/arthur-debert/romlayout/pkg/config"
	"github.com/arthur-debert/romlayout/pkg/filesystem"
	"github.com/arthur-debert/romlayout/pkg/logging"
	"github.com/arthur-debert/romlayout/pkg/paths"
	"github.com/arthur-debert/romlayout/pkg/rules"
	"github.com/arthur-debert/romlayout/pkg/style"
	"github.com/arthur-debert/romlayout/pkg/types"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	verbosity  int
	basePath   string
	configFile string

	rootCmd = &cobra.Command{
		Use:   "romlayout",
		Short: "Emulation directory migration engine",
		Long: `romlayout migrates ad-hoc emulation ROM directories into a normalized
layout (Roms/, Emulation/, Emulators/). It plans discrete, reversible
steps, previews them without touching the filesystem, executes with
per-step rollback metadata, and manages alternate ROM variants.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// errCommandFailed signals a failure already reported through the
// renderer; Execute maps it to exit code 1 without reprinting.
var errCommandFailed = errors.New("command failed")

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errCommandFailed) {
			fmt.Println(style.NewRenderer().RenderError(err))
		}
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	rootCmd.PersistentFlags().StringVar(&basePath, "base", "", "Migration base path (default $ROMLAYOUT_ROOT, then the working directory)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default is $XDG_CONFIG_HOME/romlayout/romlayout.toml)")

	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(variantsCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("romlayout version %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

// appContext bundles everything a command needs: config, layout,
// filesystem seam, mapping tables, and ruleset.
type appContext struct {
	cfg      *config.Config
	layout   *paths.Layout
	fs       types.FS
	rules    *rules.Ruleset
	emus     types.EmulatorMapping
	plats    types.PlatformMapping
	variants types.VariantMapping
	renderer style.Renderer
}

// newAppContext resolves configuration and mapping inputs once, at the
// command boundary, so the engines only see canonical shapes.
func newAppContext() (*appContext, error) {
	path := configFile
	if path == "" {
		path = filepath.Join(paths.ConfigDir(), "romlayout.toml")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	base := basePath
	if base == "" {
		base = cfg.BasePath
	}
	layout, err := paths.New(base)
	if err != nil {
		return nil, err
	}
	if cfg.BackupDir != "" {
		layout = layout.WithBackupDir(cfg.BackupDir)
	}
	if layout.UsedFallback() {
		pterm.Warning.Println("No base path configured; using the working directory")
	}

	fs := filesystem.NewOS()

	rs := rules.Default()
	if cfg.RulesFile != "" {
		rs, err = rules.Load(fs, cfg.RulesFile)
		if err != nil {
			return nil, err
		}
	}

	emus, err := config.LoadEmulatorMapping(fs, cfg.EmulatorMappingFile)
	if err != nil {
		return nil, err
	}
	plats, err := config.LoadPlatformMapping(fs, cfg.PlatformMappingFile)
	if err != nil {
		return nil, err
	}

	variantPath := cfg.VariantMappingFile
	if variantPath == "" {
		variantPath = paths.VariantMappingPath()
	}
	variantMapping, err := config.LoadVariantMapping(fs, variantPath)
	if err != nil {
		return nil, err
	}

	return &appContext{
		cfg:      cfg,
		layout:   layout,
		fs:       fs,
		rules:    rs,
		emus:     emus,
		plats:    plats,
		variants: variantMapping,
		renderer: style.NewRenderer(),
	}, nil
}

// progressPrinter reports engine progress through pterm.
func progressPrinter(msg string) {
	pterm.Info.Println(msg)
}
