package predict

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
)

var testToday = time.Date(2025, 10, 17, 0, 0, 0, 0, planTimezone)

func planTask(name string, weight, mastery float64, daysAgo int) TaskState {
	ts := TaskState{
		TaskID:           uuid.New(),
		Name:             name,
		SubjectName:      "History",
		ConceptWeight:    weight,
		Mastery:          mastery,
		TEstHours:        4.0,
		LambdaForgetting: 0.04,
		EtaLearn:         0.8,
		RhoRevise:        0.35,
		TaskType:         "learn",
	}
	if daysAgo >= 0 {
		last := testToday.AddDate(0, 0, -daysAgo)
		ts.LastStudiedAt = &last
	}
	return ts
}

func TestSimulateDailyPlanHourConservation(t *testing.T) {
	tasks := []TaskState{
		planTask("Ancient India", 0.2, 0.1, -1),
		planTask("Medieval India", 0.15, 0.5, 5),
		planTask("Modern India", 0.25, 0.6, 7),
		planTask("Art & Culture", 0.1, 0.4, 4),
	}
	res := SimulateDailyPlan(tasks, 6.0, 0.6, testToday, DefaultConfig())

	if math.Abs(res.HoursNew-3.6) > 1e-9 || math.Abs(res.HoursRevision-2.4) > 1e-9 {
		t.Fatalf("hour split = (%v, %v), want (3.6, 2.4)", res.HoursNew, res.HoursRevision)
	}

	var sumNew float64
	for _, pt := range res.NewTasks {
		sumNew += pt.AllocatedHours
	}
	if len(res.NewTasks) > 0 && math.Abs(sumNew-res.HoursNew) > 1e-9 {
		t.Fatalf("new-task hours sum to %v, want %v", sumNew, res.HoursNew)
	}

	var sumRev float64
	for _, pt := range res.RevisionTasks {
		sumRev += pt.AllocatedHours
	}
	if len(res.RevisionTasks) > 0 && math.Abs(sumRev-res.HoursRevision) > 1e-9 {
		t.Fatalf("revision hours sum to %v, want %v", sumRev, res.HoursRevision)
	}
}

func TestSimulateDailyPlanCandidateFilters(t *testing.T) {
	mastered := planTask("Mastered", 0.3, 0.97, 1)
	fresh := planTask("Fresh", 0.3, 0.6, 1)  // studied yesterday: not revisable yet
	stale := planTask("Stale", 0.3, 0.6, 10) // decayed but above floor, old enough
	weak := planTask("Weak", 0.3, 0.05, 10)  // below the revision floor

	res := SimulateDailyPlan([]TaskState{mastered, fresh, stale, weak}, 6.0, 0.6, testToday, DefaultConfig())

	for _, pt := range res.NewTasks {
		if pt.TaskID == mastered.TaskID {
			t.Fatal("task above the mastery ceiling selected for new learning")
		}
	}
	for _, pt := range res.RevisionTasks {
		if pt.TaskID == fresh.TaskID {
			t.Fatal("task studied 1 day ago selected for revision")
		}
		if pt.TaskID == weak.TaskID {
			t.Fatal("task below the mastery floor selected for revision")
		}
	}

	found := false
	for _, pt := range res.RevisionTasks {
		if pt.TaskID == stale.TaskID {
			found = true
			if pt.DaysSinceLast != 10 {
				t.Fatalf("days_since_last = %d, want 10", pt.DaysSinceLast)
			}
		}
	}
	if !found {
		t.Fatal("stale task missing from revision selection")
	}
}

func TestSimulateDailyPlanTopNCaps(t *testing.T) {
	var tasks []TaskState
	for i := 0; i < 30; i++ {
		tasks = append(tasks, planTask(fmt.Sprintf("unit-%d", i), 0.03, 0.5, 10))
	}
	res := SimulateDailyPlan(tasks, 6.0, 0.6, testToday, DefaultConfig())
	if len(res.NewTasks) != 10 {
		t.Fatalf("selected %d new tasks, want 10", len(res.NewTasks))
	}
	if len(res.RevisionTasks) != 8 {
		t.Fatalf("selected %d revision tasks, want 8", len(res.RevisionTasks))
	}
}

func TestSimulateDailyPlanEqualSplitOnZeroScores(t *testing.T) {
	// Zero concept weight zeroes every SPH score; hours split equally.
	tasks := []TaskState{
		planTask("a", 0, 0.1, -1),
		planTask("b", 0, 0.2, -1),
		planTask("c", 0, 0.3, -1),
	}
	res := SimulateDailyPlan(tasks, 6.0, 0.5, testToday, DefaultConfig())
	if len(res.NewTasks) != 3 {
		t.Fatalf("selected %d new tasks, want 3", len(res.NewTasks))
	}
	for _, pt := range res.NewTasks {
		if math.Abs(pt.AllocatedHours-1.0) > 1e-9 {
			t.Fatalf("allocated %v hours, want equal split of 1.0", pt.AllocatedHours)
		}
	}
}

func TestSimulateDailyPlanImprovesOutlook(t *testing.T) {
	tasks := []TaskState{
		planTask("x", 0.3, 0.2, -1),
		planTask("y", 0.3, 0.5, 6),
		planTask("z", 0.4, 0.7, 8),
	}
	res := SimulateDailyPlan(tasks, 6.0, 0.6, testToday, DefaultConfig())
	if res.After.Mu < res.Before.Mu {
		t.Fatalf("mu dropped after study: %v < %v", res.After.Mu, res.Before.Mu)
	}
	if math.Abs(res.After.DeltaMu-(res.After.Mu-res.Before.Mu)) > 1e-9 {
		t.Fatalf("delta_mu = %v, want %v", res.After.DeltaMu, res.After.Mu-res.Before.Mu)
	}
	for _, pt := range append(res.NewTasks, res.RevisionTasks...) {
		if pt.MasteryAfter < pt.MasteryBefore {
			t.Fatalf("task %s lost mastery in simulation: %v -> %v", pt.Name, pt.MasteryBefore, pt.MasteryAfter)
		}
	}
}

func TestSimulateDailyPlanDueBoostReordersRevision(t *testing.T) {
	// Two equal revision candidates; only one is past its spaced due date.
	due := planTask("due", 0.2, 0.6, 8)
	due.SpacedStage = 2 // 7-day interval, 8 days elapsed: due
	notDue := planTask("not-due", 0.2, 0.6, 8)
	notDue.SpacedStage = 3 // 14-day interval: not due

	res := SimulateDailyPlan([]TaskState{notDue, due}, 6.0, 0.4, testToday, DefaultConfig())
	if len(res.RevisionTasks) != 2 {
		t.Fatalf("selected %d revision tasks, want 2", len(res.RevisionTasks))
	}
	if res.RevisionTasks[0].TaskID != due.TaskID {
		t.Fatal("due task should outrank the identical not-due task")
	}
	if res.RevisionTasks[0].Priority <= res.RevisionTasks[1].Priority {
		t.Fatalf("boosted priority %v should exceed unboosted %v",
			res.RevisionTasks[0].Priority, res.RevisionTasks[1].Priority)
	}
}

func TestSimulateDailyPlanOverlapKeepsStrongerOutcome(t *testing.T) {
	// One task can be selected for both learning and revision in the same
	// plan. The after aggregate keeps whichever simulated outcome is
	// stronger, regardless of which list is processed last.
	task := planTask("Polity", 0.3, 0.6, 5)
	res := SimulateDailyPlan([]TaskState{task}, 4.0, 0.5, testToday, DefaultConfig())

	if len(res.NewTasks) != 1 || len(res.RevisionTasks) != 1 {
		t.Fatalf("selected (%d new, %d revision), want the same task in both lists",
			len(res.NewTasks), len(res.RevisionTasks))
	}
	learnAfter := res.NewTasks[0].MasteryAfter
	reviseAfter := res.RevisionTasks[0].MasteryAfter
	if learnAfter <= reviseAfter {
		t.Fatalf("learn outcome %v should exceed revise outcome %v with these rates", learnAfter, reviseAfter)
	}

	wantMu := task.ConceptWeight * learnAfter * DefaultConfig().PlanTotalMarks
	if math.Abs(res.After.Mu-wantMu) > 1e-9 {
		t.Fatalf("after mu = %v, want %v from the stronger learn outcome", res.After.Mu, wantMu)
	}
}

func TestSimulateDailyPlanCarriesDerivedFlag(t *testing.T) {
	virtual := planTask("placeholder", 0.2, 0.1, -1)
	virtual.Derived = true
	res := SimulateDailyPlan([]TaskState{virtual}, 2.0, 1.0, testToday, DefaultConfig())
	if len(res.NewTasks) != 1 || !res.NewTasks[0].Derived {
		t.Fatal("derived flag not carried onto the planned task")
	}
}
