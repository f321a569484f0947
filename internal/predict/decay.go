package predict

import "math"

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ApplyDecay runs the exponential forgetting curve: m * exp(-lambda * days),
// clamped to [0,1]. Zero or negative elapsed days is a no-op.
func ApplyDecay(mastery, lambdaForgetting float64, days int) float64 {
	if days <= 0 {
		return mastery
	}
	return clamp01(mastery * math.Exp(-lambdaForgetting*float64(days)))
}

// LearnUpdate simulates the mastery gain of a new-learning session.
// Gain is proportional to time invested and shrinks as the gap to full
// mastery closes: dm = eta * (hours / tEst) * (1 - m).
func LearnUpdate(mastery, hours, tEstHours, etaLearn float64) float64 {
	if tEstHours <= 0 {
		tEstHours = 1.0
	}
	gap := 1.0 - mastery
	gain := etaLearn * (hours / tEstHours) * gap
	return clamp01(mastery + gain)
}

// ReviseUpdate simulates the mastery restoration of a revision session.
// Same shape as LearnUpdate with the weaker revision efficiency rho.
func ReviseUpdate(mastery, hours, tEstHours, rhoRevise float64) float64 {
	if tEstHours <= 0 {
		tEstHours = 1.0
	}
	gap := 1.0 - mastery
	gain := rhoRevise * (hours / tEstHours) * gap
	return clamp01(mastery + gain)
}
