package predict

// BayesInit fits Beta(alpha, beta) to an initial mastery estimate by method
// of moments, assuming a prior variance of 0.1. The mean is kept off the
// 0/1 boundaries and both parameters are floored at 1.
func BayesInit(initialMastery float64) (alpha, beta float64) {
	mean := initialMastery
	if mean < 0.01 {
		mean = 0.01
	}
	if mean > 0.99 {
		mean = 0.99
	}
	const variance = 0.1

	// mean = a/(a+b), variance = ab / ((a+b)^2 (a+b+1))
	temp := mean*(1-mean)/variance - 1
	alpha = mean * temp
	beta = (1 - mean) * temp

	if alpha < 1.0 {
		alpha = 1.0
	}
	if beta < 1.0 {
		beta = 1.0
	}
	return alpha, beta
}

// QuizUpdate folds a quiz outcome into the Beta posterior, treating each
// question as a Bernoulli trial: successes go to alpha, failures to beta.
func QuizUpdate(alpha, beta float64, correct, total int) (float64, float64) {
	incorrect := total - correct
	return alpha + float64(correct), beta + float64(incorrect)
}

// MasteryFromBeta returns the posterior mean alpha / (alpha + beta).
func MasteryFromBeta(alpha, beta float64) float64 {
	return alpha / (alpha + beta)
}
