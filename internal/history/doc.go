// Package history keeps the durable record of jobs across runs. The
// store is a single JSON file guarded by an advisory file lock so
// concurrent processes do not corrupt it.
package history
