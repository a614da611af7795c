package progress

// Package progress blends the per-stream percentages reported by the
// external fetcher into a single job percentage. A job that merges N
// streams reports N sequential 0..100 runs on one channel; the blender
// detects the boundary between runs with a high-to-low jump heuristic.
// The heuristic is an approximation: a genuine stall near 90% followed
// by a retry from near 0% can both over- and under-count parts.
