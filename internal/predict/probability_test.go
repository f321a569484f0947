package predict

import (
	"math"
	"testing"
)

func TestExpectedAndVariance(t *testing.T) {
	contribs := []Contribution{
		{Weight: 0.5, Mastery: 1.0, TotalMarks: 200}, // no uncertainty at m=1
		{Weight: 0.5, Mastery: 0.5, TotalMarks: 200},
	}
	mu, sigma2 := ExpectedAndVariance(contribs)
	if math.Abs(mu-150) > 1e-9 {
		t.Fatalf("mu = %v, want 150", mu)
	}
	want := 0.25 * 0.25 * 200 * 200 // w^2 * m(1-m) * marks^2 of the second task
	if math.Abs(sigma2-want) > 1e-9 {
		t.Fatalf("sigma2 = %v, want %v", sigma2, want)
	}
}

func TestProbClearConcrete(t *testing.T) {
	// mu=100, sigma2=225: z = (120-100)/15 = 1.333, P ~ 0.0912
	got := ProbClear(100, 225, 120)
	if math.Abs(got-0.0912) > 1e-3 {
		t.Fatalf("ProbClear(100, 225, 120) = %v, want ~0.0912", got)
	}
}

func TestProbClearDeterministicWithoutVariance(t *testing.T) {
	if got := ProbClear(130, 0, 120); got != 1.0 {
		t.Fatalf("ProbClear above threshold with sigma2=0 = %v, want 1", got)
	}
	if got := ProbClear(110, 0, 120); got != 0.0 {
		t.Fatalf("ProbClear below threshold with sigma2=0 = %v, want 0", got)
	}
}

func TestProbClearMonotonicity(t *testing.T) {
	// Non-increasing in the threshold.
	prev := 1.1
	for _, threshold := range []float64{80, 100, 120, 140, 160} {
		got := ProbClear(100, 225, threshold)
		if got > prev {
			t.Fatalf("ProbClear increased with threshold %v: %v > %v", threshold, got, prev)
		}
		prev = got
	}
	// Non-decreasing in mu.
	prev = -0.1
	for _, mu := range []float64{60, 90, 120, 150} {
		got := ProbClear(mu, 225, 120)
		if got < prev {
			t.Fatalf("ProbClear decreased with mu %v: %v < %v", mu, got, prev)
		}
		prev = got
	}
}

func TestProjectMuGeometricSum(t *testing.T) {
	// 2 marks/day decaying by 0.5: 2 + 1 + 0.5 = 3.5 total gain over 3 days.
	got := ProjectMu(100, 2, 3, 0.5)
	if math.Abs(got-103.5) > 1e-9 {
		t.Fatalf("ProjectMu = %v, want 103.5", got)
	}
}

func TestProjectMuLinearWhenDecayNearOne(t *testing.T) {
	got := ProjectMu(100, 2, 10, 1.0)
	if math.Abs(got-120) > 1e-9 {
		t.Fatalf("ProjectMu with decay=1 = %v, want 120", got)
	}
}

func TestProjectMuNoDaysRemaining(t *testing.T) {
	if got := ProjectMu(100, 5, 0, 0.7); got != 100 {
		t.Fatalf("ProjectMu with 0 days = %v, want 100", got)
	}
}
