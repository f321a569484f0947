package predict

import "math"

// Contribution is one task's share of the exam-score distribution.
type Contribution struct {
	Weight     float64
	Mastery    float64
	TotalMarks float64
}

// ExpectedAndVariance aggregates the exam-score expectation and variance
// across independent tasks. Each task contributes w*m*marks to the mean and
// w^2 * m * (1-m) * marks^2 of binomial-style uncertainty.
func ExpectedAndVariance(contribs []Contribution) (mu, sigma2 float64) {
	for _, c := range contribs {
		mu += c.Weight * c.Mastery * c.TotalMarks
		sigma2 += c.Weight * c.Weight * c.Mastery * (1 - c.Mastery) * c.TotalMarks * c.TotalMarks
	}
	return mu, sigma2
}

// ProbClear is the probability of scoring at least threshold under the
// normal approximation N(mu, sigma2), computed via erfc for stability.
// With no variance it degenerates to a step function.
func ProbClear(mu, sigma2, threshold float64) float64 {
	if sigma2 <= 0 {
		if mu >= threshold {
			return 1.0
		}
		return 0.0
	}
	sigma := math.Sqrt(sigma2)
	z := (threshold - mu) / sigma
	prob := 0.5 * math.Erfc(z/math.Sqrt2)
	return clamp01(prob)
}

// ProjectMu extrapolates the expected score to the exam date. The daily gain
// itself decays by deltaDecay each day (saturation as the exam nears), so the
// total gain is a geometric series; deltaDecay ~= 1 degenerates to linear.
func ProjectMu(currentMu, dailyDelta float64, daysRemaining int, deltaDecay float64) float64 {
	if daysRemaining <= 0 {
		return currentMu
	}
	var totalGain float64
	if math.Abs(deltaDecay-1.0) < 0.001 {
		totalGain = dailyDelta * float64(daysRemaining)
	} else {
		totalGain = dailyDelta * (1 - math.Pow(deltaDecay, float64(daysRemaining))) / (1 - deltaDecay)
	}
	return currentMu + totalGain
}
