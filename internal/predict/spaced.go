package predict

import "time"

// SpacedStages is the fixed review-interval table, in days. A task's
// spaced_stage indexes into it.
var SpacedStages = [5]int{1, 3, 7, 14, 30}

func clampStage(stage int) int {
	if stage < 0 {
		return 0
	}
	if stage >= len(SpacedStages) {
		return len(SpacedStages) - 1
	}
	return stage
}

// NextDueDate returns lastStudied plus the interval of the current stage.
func NextDueDate(lastStudied time.Time, currentStage int) time.Time {
	interval := SpacedStages[clampStage(currentStage)]
	return CivilDate(lastStudied).AddDate(0, 0, interval)
}

// IsDueForReview reports whether a task has reached its spaced-repetition
// due date. A task that was never studied is always due.
func IsDueForReview(lastStudied *time.Time, currentStage int, today time.Time) bool {
	if lastStudied == nil {
		return true
	}
	due := NextDueDate(*lastStudied, currentStage)
	return !CivilDate(today).Before(due)
}
