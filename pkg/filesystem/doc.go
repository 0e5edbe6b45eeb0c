// Package filesystem provides the concrete implementations of the
// types.FS interface: a direct OS passthrough for production and an
// afero-backed filesystem for tests.
package filesystem
