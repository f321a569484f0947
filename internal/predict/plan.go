package predict

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// TaskState is the engine's borrowed view of one mastery unit. Loaders fill
// every field (applying record defaults); the engine never touches storage.
type TaskState struct {
	TaskID           uuid.UUID
	Name             string
	SubjectName      string
	ConceptWeight    float64
	Mastery          float64
	TEstHours        float64
	LambdaForgetting float64
	EtaLearn         float64
	RhoRevise        float64
	LastStudiedAt    *time.Time
	SpacedStage      int
	TaskType         string
	Derived          bool
}

// PlannedTask is one selected row of a simulated daily plan.
type PlannedTask struct {
	TaskID         uuid.UUID `json:"task_id"`
	Name           string    `json:"task_name"`
	SubjectName    string    `json:"subject_name"`
	AllocatedHours float64   `json:"allocated_hours"`
	MasteryBefore  float64   `json:"mastery_before"`
	MasteryAfter   float64   `json:"mastery_after"`
	Priority       float64   `json:"priority"`
	DaysSinceLast  int       `json:"days_since_last"`
	Derived        bool      `json:"derived"`
}

// Projection is the aggregate outlook at one point of the simulation.
type Projection struct {
	Mu      float64 `json:"mu"`
	Sigma2  float64 `json:"sigma2"`
	PClear  float64 `json:"p_clear_today"`
	DeltaMu float64 `json:"delta_mu,omitempty"`
}

// PlanResult is the outcome of one read-only plan simulation.
type PlanResult struct {
	NewTasks      []PlannedTask `json:"new_tasks"`
	RevisionTasks []PlannedTask `json:"revision_tasks"`
	HoursNew      float64       `json:"hours_new"`
	HoursRevision float64       `json:"hours_revision"`
	Before        Projection    `json:"before"`
	After         Projection    `json:"after"`
}

// candidate pairs a task with its decayed state and score during selection.
type candidate struct {
	task          TaskState
	decayed       float64
	daysSinceLast int
	score         float64
}

// allocateByPriority distributes totalHours across the selected candidates
// proportionally to score, falling back to an equal split when the scores
// sum to zero.
func allocateByPriority(selected []candidate, totalHours float64) []float64 {
	hours := make([]float64, len(selected))
	if len(selected) == 0 || totalHours <= 0 {
		return hours
	}
	var totalScore float64
	for _, c := range selected {
		totalScore += c.score
	}
	if totalScore <= 0 {
		each := totalHours / float64(len(selected))
		for i := range hours {
			hours[i] = each
		}
		return hours
	}
	for i, c := range selected {
		hours[i] = (c.score / totalScore) * totalHours
	}
	return hours
}

// SimulateDailyPlan builds a read-only daily study plan: decay everything,
// score candidates, pick the top slices, allocate the hour budget, and
// simulate the resulting mastery and aggregate outlook. No persistence.
func SimulateDailyPlan(tasks []TaskState, dailyHours, splitNew float64, today time.Time, cfg Config) PlanResult {
	hoursNew := dailyHours * splitNew
	hoursRevision := dailyHours * (1 - splitNew)

	// Decay all tasks to today before any scoring.
	decayed := make([]candidate, len(tasks))
	for i, t := range tasks {
		days := DaysSince(t.LastStudiedAt, today)
		decayed[i] = candidate{
			task:          t,
			decayed:       ApplyDecay(t.Mastery, t.LambdaForgetting, days),
			daysSinceLast: days,
		}
	}

	var newCandidates, revisionCandidates []candidate
	for _, c := range decayed {
		if c.decayed < cfg.NewMasteryCeiling {
			c.score = SPH(c.task.ConceptWeight, c.decayed, c.task.TEstHours)
			newCandidates = append(newCandidates, c)
		}
		if c.decayed > cfg.RevisionMasteryFloor && c.daysSinceLast >= cfg.RevisionMinDays {
			score := RPF(c.task.ConceptWeight, c.decayed, c.task.LambdaForgetting, c.daysSinceLast)
			// Spaced-repetition due date boosts the revision score; it is a
			// scheduling override, not a hard constraint.
			if IsDueForReview(c.task.LastStudiedAt, c.task.SpacedStage, today) {
				score *= cfg.DueBoostFactor
			}
			c.score = score
			revisionCandidates = append(revisionCandidates, c)
		}
	}

	sort.SliceStable(newCandidates, func(i, j int) bool {
		return newCandidates[i].score > newCandidates[j].score
	})
	sort.SliceStable(revisionCandidates, func(i, j int) bool {
		return revisionCandidates[i].score > revisionCandidates[j].score
	})

	if len(newCandidates) > cfg.MaxNewTasks {
		newCandidates = newCandidates[:cfg.MaxNewTasks]
	}
	if len(revisionCandidates) > cfg.MaxRevisionTasks {
		revisionCandidates = revisionCandidates[:cfg.MaxRevisionTasks]
	}

	newHours := allocateByPriority(newCandidates, hoursNew)
	revisionHours := allocateByPriority(revisionCandidates, hoursRevision)

	simulated := make(map[uuid.UUID]float64)

	newTasks := make([]PlannedTask, len(newCandidates))
	for i, c := range newCandidates {
		after := LearnUpdate(c.decayed, newHours[i], c.task.TEstHours, c.task.EtaLearn)
		simulated[c.task.TaskID] = after
		newTasks[i] = PlannedTask{
			TaskID:         c.task.TaskID,
			Name:           c.task.Name,
			SubjectName:    c.task.SubjectName,
			AllocatedHours: newHours[i],
			MasteryBefore:  c.decayed,
			MasteryAfter:   after,
			Priority:       c.score,
			DaysSinceLast:  c.daysSinceLast,
			Derived:        c.task.Derived,
		}
	}

	revisionTasks := make([]PlannedTask, len(revisionCandidates))
	for i, c := range revisionCandidates {
		after := ReviseUpdate(c.decayed, revisionHours[i], c.task.TEstHours, c.task.RhoRevise)
		// Revision never downgrades a simulated learn outcome for the same task.
		if prev, ok := simulated[c.task.TaskID]; !ok || after > prev {
			simulated[c.task.TaskID] = after
		}
		revisionTasks[i] = PlannedTask{
			TaskID:         c.task.TaskID,
			Name:           c.task.Name,
			SubjectName:    c.task.SubjectName,
			AllocatedHours: revisionHours[i],
			MasteryBefore:  c.decayed,
			MasteryAfter:   after,
			Priority:       c.score,
			DaysSinceLast:  c.daysSinceLast,
			Derived:        c.task.Derived,
		}
	}

	// Aggregate outlook before (decayed mastery everywhere) and after
	// (simulated mastery for the selected tasks only).
	before := make([]Contribution, len(decayed))
	after := make([]Contribution, len(decayed))
	for i, c := range decayed {
		before[i] = Contribution{Weight: c.task.ConceptWeight, Mastery: c.decayed, TotalMarks: cfg.PlanTotalMarks}
		m := c.decayed
		if sim, ok := simulated[c.task.TaskID]; ok {
			m = sim
		}
		after[i] = Contribution{Weight: c.task.ConceptWeight, Mastery: m, TotalMarks: cfg.PlanTotalMarks}
	}

	muBefore, sigma2Before := ExpectedAndVariance(before)
	muAfter, sigma2After := ExpectedAndVariance(after)

	return PlanResult{
		NewTasks:      newTasks,
		RevisionTasks: revisionTasks,
		HoursNew:      hoursNew,
		HoursRevision: hoursRevision,
		Before: Projection{
			Mu:     muBefore,
			Sigma2: sigma2Before,
			PClear: ProbClear(muBefore, sigma2Before, cfg.PlanClearThreshold),
		},
		After: Projection{
			Mu:      muAfter,
			Sigma2:  sigma2After,
			PClear:  ProbClear(muAfter, sigma2After, cfg.PlanClearThreshold),
			DeltaMu: muAfter - muBefore,
		},
	}
}
