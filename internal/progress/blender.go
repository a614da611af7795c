package progress

import "math"

// Part-boundary jump thresholds. These exact values are user-visible
// behavior: a reported drop from >=90 to <=10 is read as the fetcher
// moving on to the next stream.
const (
	boundaryHigh = 90.0
	boundaryLow  = 10.0
)

// Blender folds a sequence of raw per-stream percentages into one
// monotonic-enough job percentage. Not safe for concurrent use; each job
// owns exactly one Blender fed from its single process stream.
type Blender struct {
	totalParts     int
	completedParts int
	lastPercent    float64
}

// NewBlender creates a blender for a job expected to report totalParts
// sequential streams.
func NewBlender(totalParts int) *Blender {
	if totalParts < 1 {
		totalParts = 1
	}
	return &Blender{totalParts: totalParts}
}

// Observe consumes one reported percentage and returns the blended job
// percentage in [0,100].
func (b *Blender) Observe(percent float64) float64 {
	percent = clamp(percent)

	if b.totalParts > 1 &&
		b.lastPercent >= boundaryHigh &&
		percent <= boundaryLow &&
		b.completedParts < b.totalParts-1 {
		b.completedParts++
	}
	b.lastPercent = percent

	if b.totalParts <= 1 {
		return percent
	}
	blended := (float64(b.completedParts) + percent/100) / float64(b.totalParts) * 100
	return clamp(blended)
}

// CompletedParts reports how many stream boundaries have been detected.
func (b *Blender) CompletedParts() int {
	return b.completedParts
}

// TotalParts reports the expected stream count.
func (b *Blender) TotalParts() int {
	return b.totalParts
}

func clamp(p float64) float64 {
	// NaN fails every comparison below and would pass through untouched.
	if math.IsNaN(p) {
		return 0
	}
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
