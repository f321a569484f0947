package predict

import "math"

// SPH is the Study Priority Heuristic for new learning: favors important,
// unmastered, quick-to-learn tasks. SPH = w * (1 - m) / sqrt(tEst).
func SPH(conceptWeight, mastery, tEstHours float64) float64 {
	if tEstHours <= 0 {
		tEstHours = 1.0
	}
	gap := 1.0 - mastery
	return conceptWeight * gap / math.Sqrt(tEstHours)
}

// RPF is the Revision Priority Factor: favors important, already-mastered
// tasks at risk of decay. RPF = w * m * (1 - exp(-lambda * days)).
// Zero when the task was studied today; there is no urgency yet.
func RPF(conceptWeight, mastery, lambdaForgetting float64, daysSinceLast int) float64 {
	if daysSinceLast <= 0 {
		return 0.0
	}
	decayFactor := 1.0 - math.Exp(-lambdaForgetting*float64(daysSinceLast))
	return conceptWeight * mastery * decayFactor
}
