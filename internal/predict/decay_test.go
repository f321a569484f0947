package predict

import (
	"math"
	"testing"
)

func TestApplyDecayBounds(t *testing.T) {
	for _, m := range []float64{0, 0.25, 0.5, 0.75, 1} {
		for _, lambda := range []float64{0, 0.04, 0.5} {
			for _, days := range []int{0, 1, 6, 30, 365} {
				got := ApplyDecay(m, lambda, days)
				if got < 0 || got > m {
					t.Fatalf("ApplyDecay(%v, %v, %d) = %v, want within [0, %v]", m, lambda, days, got, m)
				}
			}
		}
	}
}

func TestApplyDecayZeroDaysIsNoop(t *testing.T) {
	for _, m := range []float64{0, 0.3934, 1} {
		if got := ApplyDecay(m, 0.04, 0); got != m {
			t.Fatalf("ApplyDecay(%v, 0.04, 0) = %v, want %v", m, got, m)
		}
		if got := ApplyDecay(m, 0.04, -3); got != m {
			t.Fatalf("ApplyDecay(%v, 0.04, -3) = %v, want %v", m, got, m)
		}
	}
}

func TestApplyDecaySixDays(t *testing.T) {
	// mastery 0.5, lambda 0.04, 6 days elapsed: 0.5 * e^-0.24
	got := ApplyDecay(0.5, 0.04, 6)
	want := 0.5 * math.Exp(-0.24)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("ApplyDecay(0.5, 0.04, 6) = %v, want %v", got, want)
	}
	if math.Abs(got-0.3934) > 5e-4 {
		t.Fatalf("ApplyDecay(0.5, 0.04, 6) = %v, want ~0.3934", got)
	}
}

func TestLearnUpdateMonotonicAndClamped(t *testing.T) {
	for _, m := range []float64{0, 0.4, 0.9, 1} {
		got := LearnUpdate(m, 2.0, 4.0, 0.8)
		if got < m {
			t.Fatalf("LearnUpdate(%v) = %v decreased mastery", m, got)
		}
		if got > 1 {
			t.Fatalf("LearnUpdate(%v) = %v exceeds 1", m, got)
		}
	}
	// Huge investment saturates at full mastery.
	if got := LearnUpdate(0.5, 1000, 4.0, 0.8); got != 1.0 {
		t.Fatalf("saturated LearnUpdate = %v, want 1.0", got)
	}
}

func TestLearnUpdateGuardsTEst(t *testing.T) {
	// Non-positive tEst substitutes 1.0 instead of dividing by zero.
	got := LearnUpdate(0.2, 0.5, 0, 0.8)
	want := LearnUpdate(0.2, 0.5, 1.0, 0.8)
	if got != want {
		t.Fatalf("LearnUpdate with tEst=0 = %v, want %v", got, want)
	}
}

func TestLearnBeatsRevise(t *testing.T) {
	const eta, rho = 0.8, 0.35
	for _, m := range []float64{0, 0.3, 0.7} {
		learn := LearnUpdate(m, 1.5, 4.0, eta)
		revise := ReviseUpdate(m, 1.5, 4.0, rho)
		if learn < revise {
			t.Fatalf("LearnUpdate(%v)=%v < ReviseUpdate(%v)=%v with eta>rho", m, learn, m, revise)
		}
	}
}

func TestReviseUpdateDiminishingReturns(t *testing.T) {
	lowGain := ReviseUpdate(0.9, 1.0, 4.0, 0.35) - 0.9
	highGain := ReviseUpdate(0.2, 1.0, 4.0, 0.35) - 0.2
	if lowGain >= highGain {
		t.Fatalf("gain at m=0.9 (%v) should be below gain at m=0.2 (%v)", lowGain, highGain)
	}
}
