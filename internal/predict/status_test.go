package predict

import (
	"math"
	"testing"
)

func TestComputeGoalStatusWithoutExamDate(t *testing.T) {
	tasks := []TaskState{
		planTask("a", 0.4, 0.9, -1),
		planTask("b", 0.3, 0.85, -1),
		planTask("c", 0.3, 0.2, -1),
	}
	st := ComputeGoalStatus(tasks, 120, nil, 6.0, 0.6, 0.7, testToday, DefaultConfig())

	if st.DaysRemaining != 0 {
		t.Fatalf("days_remaining = %d, want 0", st.DaysRemaining)
	}
	if st.MuExam != st.Mu || st.PClearExam != st.PClearToday {
		t.Fatal("without an exam date the projection must equal the current state")
	}
	if st.TotalTasks != 3 {
		t.Fatalf("total_tasks = %d, want 3", st.TotalTasks)
	}
	if st.MasteredTasks != 2 {
		t.Fatalf("mastered_tasks = %d, want 2 (mastery >= 0.8)", st.MasteredTasks)
	}
	wantAvg := (0.9 + 0.85 + 0.2) / 3
	if math.Abs(st.AvgMastery-wantAvg) > 1e-9 {
		t.Fatalf("avg_mastery = %v, want %v", st.AvgMastery, wantAvg)
	}
}

func TestComputeGoalStatusAppliesDecay(t *testing.T) {
	stale := planTask("stale", 1.0, 0.5, 6)
	st := ComputeGoalStatus([]TaskState{stale}, 120, nil, 6.0, 0.6, 0.7, testToday, DefaultConfig())

	decayed := 0.5 * math.Exp(-0.24)
	wantMu := decayed * 1.0 * 120 * 1.67
	if math.Abs(st.Mu-wantMu) > 1e-6 {
		t.Fatalf("mu = %v, want %v from decayed mastery", st.Mu, wantMu)
	}
	if math.Abs(st.AvgMastery-decayed) > 1e-9 {
		t.Fatalf("avg_mastery = %v, want decayed %v", st.AvgMastery, decayed)
	}
}

func TestComputeGoalStatusProjectsToExamDate(t *testing.T) {
	tasks := []TaskState{
		planTask("a", 0.5, 0.3, -1),
		planTask("b", 0.5, 0.4, 7),
	}
	exam := testToday.AddDate(0, 0, 60)
	st := ComputeGoalStatus(tasks, 120, &exam, 6.0, 0.6, 0.7, testToday, DefaultConfig())

	if st.DaysRemaining != 60 {
		t.Fatalf("days_remaining = %d, want 60", st.DaysRemaining)
	}
	if st.MuExam < st.Mu {
		t.Fatalf("projected mu %v below current mu %v with positive daily delta", st.MuExam, st.Mu)
	}
	if st.PClearExam < st.PClearToday {
		t.Fatalf("projected P(clear) %v below today's %v", st.PClearExam, st.PClearToday)
	}
}

func TestComputeGoalStatusPastExamDateSkipsProjection(t *testing.T) {
	tasks := []TaskState{planTask("a", 1.0, 0.5, -1)}
	exam := testToday.AddDate(0, 0, -1)
	st := ComputeGoalStatus(tasks, 120, &exam, 6.0, 0.6, 0.7, testToday, DefaultConfig())
	if st.MuExam != st.Mu {
		t.Fatal("past exam date must not project")
	}
}

func TestComputeGoalStatusEmptyTasks(t *testing.T) {
	st := ComputeGoalStatus(nil, 120, nil, 6.0, 0.6, 0.7, testToday, DefaultConfig())
	if st.Mu != 0 || st.AvgMastery != 0 || st.TotalTasks != 0 {
		t.Fatalf("empty task set should zero the aggregates, got %+v", st)
	}
	if st.PClearToday != 0 {
		t.Fatalf("P(clear) with mu=0, sigma2=0 below threshold = %v, want 0", st.PClearToday)
	}
}
