package types

// EmulatorConfig is the canonical per-emulator shape produced by the
// configuration layer. The engines never see raw config documents.
type EmulatorConfig struct {
	Systems    []string          `json:"systems"`
	Paths      map[string]string `json:"paths"`
	Components []string          `json:"components"`
}

// EmulatorMapping maps emulator names to their configuration.
type EmulatorMapping map[string]EmulatorConfig

// PlatformMapping maps platform short names (nes, snes) to full
// display names (Nintendo Entertainment System).
type PlatformMapping map[string]string

// VariantMapping maps a platform full display name to its variant
// table (variant key -> variant folder name).
type VariantMapping map[string]map[string]string

// ProgressFunc receives one human-readable message per meaningful
// sub-step. It must be safe to call synchronously; a nil callback is
// valid and equivalent to a no-op.
type ProgressFunc func(message string)

// NopProgress discards progress messages.
func NopProgress(string) {}
