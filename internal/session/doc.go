// Package session persists the live queue to disk so in-flight and
// queued jobs survive a restart. Writes are debounced; restore replays
// unfinished jobs as pending submissions.
package session
