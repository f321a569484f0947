package predict

import "time"

// totalMarksFactor approximates the exam total from the clearing threshold
// (threshold 120 corresponds to 200 total marks).
const totalMarksFactor = 1.67

// StatusResult is the aggregate readiness report for one goal.
type StatusResult struct {
	Mu             float64 `json:"mu"`
	Sigma2         float64 `json:"sigma2"`
	PClearToday    float64 `json:"p_clear_today"`
	MuExam         float64 `json:"mu_exam"`
	PClearExam     float64 `json:"p_clear_exam"`
	DaysRemaining  int     `json:"days_remaining"`
	TotalTasks     int     `json:"total_tasks"`
	MasteredTasks  int     `json:"mastered_tasks"`
	AvgMastery     float64 `json:"avg_mastery"`
	ThresholdMarks float64 `json:"threshold_marks"`
}

// ComputeGoalStatus produces the current readiness outlook for a goal and,
// when an exam date lies in the future, the projection at that date. The
// daily gain used for projection comes from one plan simulation. Entirely
// read-only: re-derivable from task state plus the goal parameters.
func ComputeGoalStatus(tasks []TaskState, thresholdMarks float64, examDate *time.Time, dailyHours, splitNew, deltaDecay float64, today time.Time, cfg Config) StatusResult {
	current := make([]float64, len(tasks))
	contribs := make([]Contribution, len(tasks))
	for i, t := range tasks {
		days := DaysSince(t.LastStudiedAt, today)
		current[i] = ApplyDecay(t.Mastery, t.LambdaForgetting, days)
		contribs[i] = Contribution{
			Weight:     t.ConceptWeight,
			Mastery:    current[i],
			TotalMarks: thresholdMarks * totalMarksFactor,
		}
	}

	mu, sigma2 := ExpectedAndVariance(contribs)
	pClearToday := ProbClear(mu, sigma2, thresholdMarks)

	muExam := mu
	pClearExam := pClearToday
	daysRemaining := 0

	if examDate != nil {
		daysRemaining = int(CivilDate(*examDate).Sub(CivilDate(today)).Hours() / 24)
		if daysRemaining > 0 {
			plan := SimulateDailyPlan(tasks, dailyHours, splitNew, today, cfg)
			dailyDelta := plan.After.DeltaMu
			muExam = ProjectMu(mu, dailyDelta, daysRemaining, deltaDecay)
			pClearExam = ProbClear(muExam, sigma2, thresholdMarks)
		}
	}

	total := len(tasks)
	mastered := 0
	var sumMastery float64
	for _, m := range current {
		if m >= cfg.MasteredThreshold {
			mastered++
		}
		sumMastery += m
	}
	avg := 0.0
	if total > 0 {
		avg = sumMastery / float64(total)
	}

	return StatusResult{
		Mu:             mu,
		Sigma2:         sigma2,
		PClearToday:    pClearToday,
		MuExam:         muExam,
		PClearExam:     pClearExam,
		DaysRemaining:  daysRemaining,
		TotalTasks:     total,
		MasteredTasks:  mastered,
		AvgMastery:     avg,
		ThresholdMarks: thresholdMarks,
	}
}
