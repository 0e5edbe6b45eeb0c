// Package config loads romlayout's own configuration (TOML) and the
// mapping documents supplied by the user (JSON). Mapping documents are
// validated against embedded JSON Schemas before being handed to the
// engines, so the planner and executors only ever see the canonical
// shapes in pkg/types.
package config
