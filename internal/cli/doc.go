// Package cli implements the mediaq command line: download, resume,
// status, and version subcommands wired over the settings store,
// history store, queue, engine, and session snapshotter.
package cli
