// Package types defines the core data model shared by the planner,
// executor and variant engines: migration steps, plans, results, the
// canonical mapping shapes supplied by the configuration layer, and the
// filesystem seam used to keep the engines testable.
package types
