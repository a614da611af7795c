package progress

import (
	"math"
	"testing"
)

func TestBlender_TwoPartSequence(t *testing.T) {
	// The 95 -> 5 drop marks the boundary between the two streams.
	b := NewBlender(2)

	inputs := []float64{10, 50, 95, 5, 40, 90}
	expected := []float64{5, 25, 47.5, 52.5, 70, 95}

	for i, p := range inputs {
		got := b.Observe(p)
		if math.Abs(got-expected[i]) > 1e-9 {
			t.Errorf("step %d: Observe(%v) = %v, expected %v", i, p, got, expected[i])
		}
	}

	if b.CompletedParts() != 1 {
		t.Errorf("expected 1 completed part, got %d", b.CompletedParts())
	}
}

func TestBlender_SinglePartPassThrough(t *testing.T) {
	b := NewBlender(1)

	for _, p := range []float64{0, 33.3, 95, 5, 100} {
		if got := b.Observe(p); got != p {
			t.Errorf("Observe(%v) = %v, expected pass-through", p, got)
		}
	}
	if b.CompletedParts() != 0 {
		t.Errorf("single part blender must never count boundaries, got %d", b.CompletedParts())
	}
}

func TestBlender_MonotonicWithinPart(t *testing.T) {
	b := NewBlender(3)

	last := -1.0
	for p := 0.0; p <= 100; p += 7 {
		got := b.Observe(p)
		if got < last {
			t.Fatalf("blended percent decreased within a part: %v -> %v", last, got)
		}
		last = got
	}
}

func TestBlender_BoundsMalformedInput(t *testing.T) {
	b := NewBlender(2)

	for _, p := range []float64{-50, 400, math.Inf(1), math.Inf(-1), math.NaN(), 12, -1, 101} {
		got := b.Observe(p)
		if math.IsNaN(got) || got < 0 || got > 100 {
			t.Errorf("Observe(%v) = %v, out of [0,100]", p, got)
		}
	}
}

func TestBlender_NaNDoesNotPoisonState(t *testing.T) {
	b := NewBlender(2)

	// NaN is treated as 0, so 95 -> NaN crosses the part boundary and the
	// blend lands exactly at the start of the second part.
	b.Observe(95)
	if got := b.Observe(math.NaN()); got != 50 {
		t.Errorf("Observe(NaN) = %v, expected 50", got)
	}
	if b.CompletedParts() != 1 {
		t.Errorf("expected boundary after NaN reset, got %d", b.CompletedParts())
	}
	if got := b.Observe(100); got != 100 {
		t.Errorf("final percent = %v, expected 100", got)
	}
}

func TestBlender_BoundaryCountCapped(t *testing.T) {
	// Repeated high->low jumps must not count past totalParts-1.
	b := NewBlender(2)

	for i := 0; i < 4; i++ {
		b.Observe(95)
		b.Observe(5)
	}

	if b.CompletedParts() != 1 {
		t.Errorf("expected boundary count capped at 1, got %d", b.CompletedParts())
	}
	if got := b.Observe(100); got != 100 {
		t.Errorf("final percent = %v, expected 100", got)
	}
}

func TestBlender_NoBoundaryOnShallowDrop(t *testing.T) {
	b := NewBlender(2)

	b.Observe(89) // below the high threshold
	b.Observe(5)
	if b.CompletedParts() != 0 {
		t.Errorf("drop from 89 must not count as a boundary")
	}

	b.Observe(95)
	b.Observe(11) // above the low threshold
	if b.CompletedParts() != 0 {
		t.Errorf("drop to 11 must not count as a boundary")
	}
}
