package config

import (
	"encoding/json"
	"strings"

	"github.com/arthur-debert/romlayout/pkg/errors"
	"github.com/arthur-debert/romlayout/pkg/types"
	"github.com/xeipuuv/gojsonschema"
)

// JSON Schemas for the mapping documents. Validation happens once at
// the loading boundary so the engines can assume well-formed input.
const emulatorMappingSchema = `{
  "type": "object",
  "additionalProperties": {
    "type": "object",
    "properties": {
      "systems": {"type": "array", "items": {"type": "string"}},
      "paths": {"type": "object", "additionalProperties": {"type": "string"}},
      "components": {"type": "array", "items": {"type": "string"}}
    },
    "required": ["systems"]
  }
}`

const platformMappingSchema = `{
  "type": "object",
  "additionalProperties": {"type": "string", "minLength": 1}
}`

const variantMappingSchema = `{
  "type": "object",
  "additionalProperties": {
    "type": "object",
    "additionalProperties": {"type": "string", "minLength": 1}
  }
}`

// ParseEmulatorMapping validates and decodes an emulator mapping
// document.
func ParseEmulatorMapping(data []byte) (types.EmulatorMapping, error) {
	if err := validateSchema(data, emulatorMappingSchema, "emulator mapping"); err != nil {
		return nil, err
	}
	var mapping types.EmulatorMapping
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to parse emulator mapping")
	}
	return mapping, nil
}

// ParsePlatformMapping validates and decodes a platform mapping
// document.
func ParsePlatformMapping(data []byte) (types.PlatformMapping, error) {
	if err := validateSchema(data, platformMappingSchema, "platform mapping"); err != nil {
		return nil, err
	}
	var mapping types.PlatformMapping
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to parse platform mapping")
	}
	return mapping, nil
}

// ParseVariantMapping validates and decodes a variant mapping
// document (variant_mapping.json).
func ParseVariantMapping(data []byte) (types.VariantMapping, error) {
	if err := validateSchema(data, variantMappingSchema, "variant mapping"); err != nil {
		return nil, err
	}
	var mapping types.VariantMapping
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to parse variant mapping")
	}
	return mapping, nil
}

// LoadEmulatorMapping reads an emulator mapping file through the
// filesystem seam. A missing file yields an empty mapping.
func LoadEmulatorMapping(fs types.FS, path string) (types.EmulatorMapping, error) {
	data, err := readOptional(fs, path)
	if err != nil || data == nil {
		return types.EmulatorMapping{}, err
	}
	return ParseEmulatorMapping(data)
}

// LoadPlatformMapping reads a platform mapping file. A missing file
// yields an empty mapping.
func LoadPlatformMapping(fs types.FS, path string) (types.PlatformMapping, error) {
	data, err := readOptional(fs, path)
	if err != nil || data == nil {
		return types.PlatformMapping{}, err
	}
	return ParsePlatformMapping(data)
}

// LoadVariantMapping reads variant_mapping.json. A missing file yields
// an empty mapping, matching the analyzer's tolerance for unmapped
// platforms.
func LoadVariantMapping(fs types.FS, path string) (types.VariantMapping, error) {
	data, err := readOptional(fs, path)
	if err != nil || data == nil {
		return types.VariantMapping{}, err
	}
	return ParseVariantMapping(data)
}

func readOptional(fs types.FS, path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := fs.Stat(path); err != nil {
		return nil, nil
	}
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "failed to read %s", path)
	}
	return data, nil
}

func validateSchema(data []byte, schema, name string) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return errors.Wrapf(err, errors.ErrConfigParse, "failed to validate %s", name)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return errors.Newf(errors.ErrConfigValid, "%s is invalid: %s", name, strings.Join(msgs, "; "))
	}
	return nil
}
