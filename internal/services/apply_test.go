package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prepmetrics/prepmetrics-backend/internal/apperrors"
	"github.com/prepmetrics/prepmetrics-backend/internal/cache"
	"github.com/prepmetrics/prepmetrics-backend/internal/logger"
	"github.com/prepmetrics/prepmetrics-backend/internal/predict"
	"github.com/prepmetrics/prepmetrics-backend/internal/repos"
	"github.com/prepmetrics/prepmetrics-backend/internal/types"
)

// The write-path fakes hold rows in memory and count mutations, so the tests
// can assert that a replayed request re-applies nothing. The gorm handle is a
// real in-memory database purely so Transaction begin/commit works; every
// query goes through the fakes instead.

type fakeGoalRepo struct {
	goals map[uuid.UUID]*types.Goal
}

func (f *fakeGoalRepo) GetByIDForUser(ctx context.Context, tx *gorm.DB, goalID, userID uuid.UUID) (*types.Goal, error) {
	goal, ok := f.goals[goalID]
	if !ok || goal.UserID != userID {
		return nil, nil
	}
	copied := *goal
	return &copied, nil
}

func (f *fakeGoalRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Goal, error) {
	var rows []*types.Goal
	for _, goal := range f.goals {
		copied := *goal
		rows = append(rows, &copied)
	}
	return rows, nil
}

func (f *fakeGoalRepo) Save(ctx context.Context, tx *gorm.DB, goal *types.Goal) error {
	copied := *goal
	f.goals[goal.ID] = &copied
	return nil
}

type fakeTopicRepo struct {
	topics      map[uuid.UUID]*types.Topic
	subjectGoal map[uuid.UUID]uuid.UUID
}

func (f *fakeTopicRepo) GetVerified(ctx context.Context, tx *gorm.DB, topicID, subjectID, goalID uuid.UUID) (*types.Topic, error) {
	topic, ok := f.topics[topicID]
	if !ok || topic.SubjectID != subjectID || f.subjectGoal[subjectID] != goalID {
		return nil, nil
	}
	copied := *topic
	return &copied, nil
}

type fakeTaskRepo struct {
	tasks   map[uuid.UUID]*types.Task
	saves   int
	creates int
}

func (f *fakeTaskRepo) ListActiveByGoal(ctx context.Context, tx *gorm.DB, goalID uuid.UUID) ([]*types.Task, error) {
	var rows []*types.Task
	for _, task := range f.tasks {
		if task.RetiredAt == nil {
			copied := *task
			rows = append(rows, &copied)
		}
	}
	return rows, nil
}

func (f *fakeTaskRepo) ListBySubject(ctx context.Context, tx *gorm.DB, subjectID uuid.UUID) ([]*types.Task, error) {
	return nil, nil
}

func (f *fakeTaskRepo) GetByIDForUser(ctx context.Context, tx *gorm.DB, taskID, userID uuid.UUID) (*types.Task, error) {
	task, ok := f.tasks[taskID]
	if !ok || task.UserID != userID {
		return nil, nil
	}
	copied := *task
	return &copied, nil
}

func (f *fakeTaskRepo) GetByIDForUserLocked(ctx context.Context, tx *gorm.DB, taskID, userID uuid.UUID) (*types.Task, error) {
	return f.GetByIDForUser(ctx, tx, taskID, userID)
}

func (f *fakeTaskRepo) Create(ctx context.Context, tx *gorm.DB, task *types.Task) error {
	f.creates++
	copied := *task
	f.tasks[task.ID] = &copied
	return nil
}

func (f *fakeTaskRepo) Save(ctx context.Context, tx *gorm.DB, task *types.Task) error {
	f.saves++
	copied := *task
	f.tasks[task.ID] = &copied
	return nil
}

type fakeSnapshotRepo struct {
	upserts int
	last    *types.DailySnapshot
}

func (f *fakeSnapshotRepo) Upsert(ctx context.Context, tx *gorm.DB, snapshot *types.DailySnapshot) error {
	f.upserts++
	copied := *snapshot
	f.last = &copied
	return nil
}

func (f *fakeSnapshotRepo) ListSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from time.Time) ([]*types.DailySnapshot, error) {
	return nil, nil
}

type fakeIdemRepo struct {
	rows    map[string]*types.IdempotencyLog
	creates int
}

func (f *fakeIdemRepo) GetByKey(ctx context.Context, tx *gorm.DB, key string) (*types.IdempotencyLog, error) {
	row, ok := f.rows[key]
	if !ok {
		return nil, nil
	}
	copied := *row
	return &copied, nil
}

func (f *fakeIdemRepo) GetByKeyLocked(ctx context.Context, tx *gorm.DB, key string) (*types.IdempotencyLog, error) {
	return f.GetByKey(ctx, tx, key)
}

func (f *fakeIdemRepo) Create(ctx context.Context, tx *gorm.DB, row *types.IdempotencyLog) error {
	if _, exists := f.rows[row.IdempotencyKey]; exists {
		return fmt.Errorf("duplicate idempotency key %q", row.IdempotencyKey)
	}
	f.creates++
	copied := *row
	f.rows[row.IdempotencyKey] = &copied
	return nil
}

type fakeRetirementSweep struct {
	calls int
}

func (f *fakeRetirementSweep) CheckGoal(ctx context.Context, tx *gorm.DB, userID, goalID uuid.UUID) (map[uuid.UUID]RetiredSubject, error) {
	f.calls++
	return map[uuid.UUID]RetiredSubject{}, nil
}

func (f *fakeRetirementSweep) Reactivate(ctx context.Context, userID, taskID uuid.UUID) (*ReactivateResponse, error) {
	return nil, nil
}

func (f *fakeRetirementSweep) Stats(ctx context.Context, userID, goalID uuid.UUID) (*RetirementStatsResponse, error) {
	return nil, nil
}

var (
	_ repos.GoalRepo           = (*fakeGoalRepo)(nil)
	_ repos.TopicRepo          = (*fakeTopicRepo)(nil)
	_ repos.TaskRepo           = (*fakeTaskRepo)(nil)
	_ repos.DailySnapshotRepo  = (*fakeSnapshotRepo)(nil)
	_ repos.IdempotencyLogRepo = (*fakeIdemRepo)(nil)
	_ RetirementService        = (*fakeRetirementSweep)(nil)
)

type workflowHarness struct {
	apply  ApplyService
	quiz   QuizService
	goals  *fakeGoalRepo
	topics *fakeTopicRepo
	tasks  *fakeTaskRepo
	snaps  *fakeSnapshotRepo
	idem   *fakeIdemRepo
	sweep  *fakeRetirementSweep
	userID uuid.UUID
	goalID uuid.UUID
}

func newWorkflowHarness(t *testing.T) *workflowHarness {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("build logger: %v", err)
	}

	userID := uuid.New()
	goal := &types.Goal{
		ID:                uuid.New(),
		UserID:            userID,
		Name:              "Prelims 2026",
		ThresholdMarks:    120,
		TotalMarks:        200,
		DailyHoursDefault: 6,
		SplitNewDefault:   0.6,
		DeltaDecay:        0.7,
	}

	h := &workflowHarness{
		goals:  &fakeGoalRepo{goals: map[uuid.UUID]*types.Goal{goal.ID: goal}},
		topics: &fakeTopicRepo{topics: map[uuid.UUID]*types.Topic{}, subjectGoal: map[uuid.UUID]uuid.UUID{}},
		tasks:  &fakeTaskRepo{tasks: map[uuid.UUID]*types.Task{}},
		snaps:  &fakeSnapshotRepo{},
		idem:   &fakeIdemRepo{rows: map[string]*types.IdempotencyLog{}},
		sweep:  &fakeRetirementSweep{},
		userID: userID,
		goalID: goal.ID,
	}

	planCache := cache.New(5*time.Minute, true, nil, log)
	engine := predict.DefaultConfig()
	h.apply = NewApplyService(db, log, h.goals, h.topics, h.tasks, h.snaps, h.idem, h.sweep, planCache, engine)
	h.quiz = NewQuizService(db, log, h.tasks, h.idem, planCache, engine)
	return h
}

func (h *workflowHarness) seedTask(name string, mastery float64, daysAgo int) *types.Task {
	last := predict.Today().AddDate(0, 0, -daysAgo)
	task := &types.Task{
		ID:               uuid.New(),
		UserID:           h.userID,
		TopicID:          uuid.New(),
		Name:             name,
		ConceptWeight:    0.2,
		Mastery:          mastery,
		TEstHours:        4,
		LambdaForgetting: 0.04,
		EtaLearn:         0.8,
		RhoRevise:        0.35,
		LastStudiedAt:    &last,
		TaskType:         types.TaskTypeLearn,
	}
	h.tasks.tasks[task.ID] = task
	return task
}

func TestApplyPlanReplaysVerbatim(t *testing.T) {
	h := newWorkflowHarness(t)
	task := h.seedTask("Fundamental Rights", 0.4, 10)
	ctx := context.Background()

	req := ApplyPlanRequest{
		GoalID:         h.goalID,
		IdempotencyKey: "apply-2025-10-17",
		Tasks:          []ApplyTaskLine{{TaskID: &task.ID, AllocatedHours: 2}},
	}

	first, err := h.apply.ApplyPlan(ctx, h.userID, req)
	if err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if first.IdempotentReplay {
		t.Fatal("first application flagged as a replay")
	}
	if len(first.AppliedTasks) != 1 || first.HoursApplied != 2 {
		t.Fatalf("applied %d tasks over %v hours, want 1 task over 2 hours",
			len(first.AppliedTasks), first.HoursApplied)
	}

	second, err := h.apply.ApplyPlan(ctx, h.userID, req)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if !second.IdempotentReplay {
		t.Fatal("second application not flagged as a replay")
	}

	second.IdempotentReplay = false
	firstBody, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal first response: %v", err)
	}
	secondBody, err := json.Marshal(second)
	if err != nil {
		t.Fatalf("marshal second response: %v", err)
	}
	if !bytes.Equal(firstBody, secondBody) {
		t.Fatalf("replayed response differs:\n first: %s\nsecond: %s", firstBody, secondBody)
	}

	if h.tasks.saves != 1 {
		t.Fatalf("task saved %d times across both calls, want 1", h.tasks.saves)
	}
	if h.snaps.upserts != 1 {
		t.Fatalf("snapshot upserted %d times, want 1", h.snaps.upserts)
	}
	if h.idem.creates != 1 {
		t.Fatalf("idempotency log written %d times, want 1", h.idem.creates)
	}
	if h.sweep.calls != 1 {
		t.Fatalf("retirement sweep ran %d times, want 1", h.sweep.calls)
	}
	if got := h.tasks.tasks[task.ID].Version; got != 1 {
		t.Fatalf("task version = %d after replay, want 1", got)
	}
}

func TestApplyPlanKeyReuseConflict(t *testing.T) {
	h := newWorkflowHarness(t)
	task := h.seedTask("Fundamental Rights", 0.4, 10)
	ctx := context.Background()

	req := ApplyPlanRequest{
		GoalID:         h.goalID,
		IdempotencyKey: "apply-2025-10-17",
		Tasks:          []ApplyTaskLine{{TaskID: &task.ID, AllocatedHours: 2}},
	}
	if _, err := h.apply.ApplyPlan(ctx, h.userID, req); err != nil {
		t.Fatalf("first apply: %v", err)
	}

	req.Tasks[0].AllocatedHours = 3
	_, err := h.apply.ApplyPlan(ctx, h.userID, req)
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("reused key with different payload: err = %v, want ErrConflict", err)
	}
	if h.tasks.saves != 1 {
		t.Fatalf("conflicting request mutated tasks: %d saves, want 1", h.tasks.saves)
	}
}

func TestApplyPlanSkipsNonPositiveHours(t *testing.T) {
	h := newWorkflowHarness(t)
	studied := h.seedTask("Fundamental Rights", 0.4, 10)
	idle := h.seedTask("Directive Principles", 0.5, 10)
	ctx := context.Background()

	resp, err := h.apply.ApplyPlan(ctx, h.userID, ApplyPlanRequest{
		GoalID:         h.goalID,
		IdempotencyKey: "apply-mixed-hours",
		Tasks: []ApplyTaskLine{
			{TaskID: &studied.ID, AllocatedHours: 2},
			{TaskID: &idle.ID, AllocatedHours: 0},
		},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	if len(resp.AppliedTasks) != 1 || resp.AppliedTasks[0].TaskID != studied.ID {
		t.Fatalf("applied tasks = %+v, want only the studied task", resp.AppliedTasks)
	}
	if len(resp.SkippedTasks) != 1 || resp.SkippedTasks[0].Reason != "non_positive_hours" {
		t.Fatalf("skipped tasks = %+v, want one non_positive_hours skip", resp.SkippedTasks)
	}
	if resp.SkippedTasks[0].TaskID == nil || *resp.SkippedTasks[0].TaskID != idle.ID {
		t.Fatal("skip entry does not name the zero-hour task")
	}
	if resp.HoursApplied != 2 {
		t.Fatalf("hours applied = %v, want 2", resp.HoursApplied)
	}
	if got := h.tasks.tasks[idle.ID].Version; got != 0 {
		t.Fatalf("zero-hour task was mutated: version = %d, want 0", got)
	}

	// Every line non-positive leaves nothing to apply.
	_, err = h.apply.ApplyPlan(ctx, h.userID, ApplyPlanRequest{
		GoalID:         h.goalID,
		IdempotencyKey: "apply-all-zero",
		Tasks:          []ApplyTaskLine{{TaskID: &idle.ID, AllocatedHours: -1}},
	})
	if !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("all-zero plan: err = %v, want ErrInvalidArgument", err)
	}
}

func TestApplyPlanCreatesVirtualTask(t *testing.T) {
	h := newWorkflowHarness(t)
	h.seedTask("Fundamental Rights", 0.4, 10)
	subjectID := uuid.New()
	topic := &types.Topic{ID: uuid.New(), SubjectID: subjectID, Name: "Parliament"}
	h.topics.topics[topic.ID] = topic
	h.topics.subjectGoal[subjectID] = h.goalID
	ctx := context.Background()

	strayTopic := uuid.New()
	resp, err := h.apply.ApplyPlan(ctx, h.userID, ApplyPlanRequest{
		GoalID:         h.goalID,
		IdempotencyKey: "apply-virtual",
		Tasks: []ApplyTaskLine{
			{TopicID: &topic.ID, SubjectID: &subjectID, TaskName: "Committee system", AllocatedHours: 1.5},
			{TopicID: &strayTopic, SubjectID: &subjectID, TaskName: "Out of scope", AllocatedHours: 1},
		},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	if h.tasks.creates != 1 {
		t.Fatalf("created %d tasks, want 1", h.tasks.creates)
	}
	if len(resp.AppliedTasks) != 1 {
		t.Fatalf("applied %d tasks, want 1", len(resp.AppliedTasks))
	}
	applied := resp.AppliedTasks[0]
	if !applied.Created || !applied.Derived {
		t.Fatalf("virtual task not marked created+derived: %+v", applied)
	}
	stored, ok := h.tasks.tasks[applied.TaskID]
	if !ok {
		t.Fatal("virtual task not persisted")
	}
	if stored.BayesAlpha == nil || stored.BayesBeta == nil {
		t.Fatal("virtual task missing its initialized posterior")
	}
	if len(resp.SkippedTasks) != 1 || resp.SkippedTasks[0].Reason != "topic_not_in_goal" {
		t.Fatalf("skipped tasks = %+v, want one topic_not_in_goal skip", resp.SkippedTasks)
	}
}

func TestSubmitQuizReplaysVerbatim(t *testing.T) {
	h := newWorkflowHarness(t)
	task := h.seedTask("Fundamental Rights", 0.5, 10)
	ctx := context.Background()

	req := QuizRequest{
		TaskID:         task.ID,
		IdempotencyKey: "quiz-2025-10-17",
		McqPercent:     75,
		TotalQuestions: 20,
	}

	first, err := h.quiz.SubmitQuiz(ctx, h.userID, req)
	if err != nil {
		t.Fatalf("first quiz: %v", err)
	}
	if first.IdempotentReplay {
		t.Fatal("first submission flagged as a replay")
	}
	// Uniform prior plus 15 of 20 correct.
	if first.CorrectCount != 15 || first.Alpha != 16 || first.Beta != 6 {
		t.Fatalf("posterior = (correct %d, alpha %v, beta %v), want (15, 16, 6)",
			first.CorrectCount, first.Alpha, first.Beta)
	}
	if first.MasteryAfter != 0.727 {
		t.Fatalf("mastery after = %v, want 0.727", first.MasteryAfter)
	}

	second, err := h.quiz.SubmitQuiz(ctx, h.userID, req)
	if err != nil {
		t.Fatalf("second quiz: %v", err)
	}
	if !second.IdempotentReplay {
		t.Fatal("second submission not flagged as a replay")
	}
	second.IdempotentReplay = false
	firstBody, _ := json.Marshal(first)
	secondBody, _ := json.Marshal(second)
	if !bytes.Equal(firstBody, secondBody) {
		t.Fatalf("replayed response differs:\n first: %s\nsecond: %s", firstBody, secondBody)
	}

	if h.tasks.saves != 1 {
		t.Fatalf("task saved %d times across both calls, want 1", h.tasks.saves)
	}
	if got := h.tasks.tasks[task.ID].Version; got != 1 {
		t.Fatalf("task version = %d after replay, want 1", got)
	}
}

func TestSubmitQuizKeyReuseConflict(t *testing.T) {
	h := newWorkflowHarness(t)
	task := h.seedTask("Fundamental Rights", 0.5, 10)
	ctx := context.Background()

	req := QuizRequest{
		TaskID:         task.ID,
		IdempotencyKey: "quiz-2025-10-17",
		McqPercent:     75,
		TotalQuestions: 20,
	}
	if _, err := h.quiz.SubmitQuiz(ctx, h.userID, req); err != nil {
		t.Fatalf("first quiz: %v", err)
	}

	req.McqPercent = 80
	_, err := h.quiz.SubmitQuiz(ctx, h.userID, req)
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("reused key with different payload: err = %v, want ErrConflict", err)
	}
	if h.tasks.saves != 1 {
		t.Fatalf("conflicting request mutated the task: %d saves, want 1", h.tasks.saves)
	}
}
