package engine

// Package engine drives one job end-to-end: metadata prefetch, rendition
// selection, argument building, process supervision, log capture with
// debounced flushing, progress blending, output resolution, optional
// watermark post-processing, and reconciliation of every transition into
// the history store. The queue decides when a job starts; the engine
// owns everything that happens after the start signal.
