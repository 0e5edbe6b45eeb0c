package config

import (
	"os"

	"github.com/arthur-debert/romlayout/pkg/errors"
	"github.com/pelletier/go-toml/v2"
)

// Config is the application configuration, read from romlayout.toml.
type Config struct {
	// BasePath is the migration base path. Empty means resolve via
	// ROMLAYOUT_ROOT or the working directory.
	BasePath string `toml:"base_path"`

	// BackupDir overrides the default backup location.
	BackupDir string `toml:"backup_dir"`

	// RulesFile points at a TOML rule document. Empty means use the
	// built-in ruleset.
	RulesFile string `toml:"rules_file"`

	// EmulatorMappingFile and PlatformMappingFile point at the JSON
	// mapping documents. Empty entries leave the mapping empty.
	EmulatorMappingFile string `toml:"emulator_mapping_file"`
	PlatformMappingFile string `toml:"platform_mapping_file"`
	VariantMappingFile  string `toml:"variant_mapping_file"`
}

// Load reads a Config from a TOML file. A missing file yields the zero
// config rather than an error, matching the optional nature of the
// file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "failed to read config %s", path)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigParse, "failed to parse config %s", path)
	}
	return &cfg, nil
}
