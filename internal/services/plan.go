package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prepmetrics/prepmetrics-backend/internal/apperrors"
	"github.com/prepmetrics/prepmetrics-backend/internal/logger"
	"github.com/prepmetrics/prepmetrics-backend/internal/predict"
	"github.com/prepmetrics/prepmetrics-backend/internal/repos"
	"github.com/prepmetrics/prepmetrics-backend/internal/types"
)

// PlanRequest carries the caller's overrides for one plan simulation; absent
// fields fall back to the goal's stored defaults.
type PlanRequest struct {
	GoalID     uuid.UUID `json:"goal_id"`
	DailyHours *float64  `json:"daily_hours,omitempty"`
	SplitNew   *float64  `json:"split_new,omitempty"`
}

type PlanResponse struct {
	Date            string                `json:"date"`
	GoalID          uuid.UUID             `json:"goal_id"`
	DailyHours      float64               `json:"daily_hours"`
	SplitNew        float64               `json:"split_new"`
	NewTasks        []predict.PlannedTask `json:"new_tasks"`
	RevisionTasks   []predict.PlannedTask `json:"revision_tasks"`
	HoursNew        float64               `json:"hours_new"`
	HoursRevision   float64               `json:"hours_revision"`
	Before          predict.Projection    `json:"before"`
	After           predict.Projection    `json:"after"`
	CacheHit        bool                  `json:"cache_hit"`
	CacheAgeSeconds int                   `json:"cache_age_seconds,omitempty"`
}

type CurrentState struct {
	Mu          float64 `json:"mu"`
	Sigma2      float64 `json:"sigma2"`
	PClearToday float64 `json:"p_clear_today"`
}

type ExamProjection struct {
	ExamDate      string  `json:"exam_date"`
	DaysRemaining int     `json:"days_remaining"`
	MuExam        float64 `json:"mu_exam"`
	PClearExam    float64 `json:"p_clear_exam"`
}

type TaskStatistics struct {
	TotalTasks    int     `json:"total_tasks"`
	MasteredTasks int     `json:"mastered_tasks"`
	AvgMastery    float64 `json:"avg_mastery"`
}

type StatusResponse struct {
	GoalID         uuid.UUID       `json:"goal_id"`
	Date           string          `json:"date"`
	CurrentState   CurrentState    `json:"current_state"`
	ExamProjection *ExamProjection `json:"exam_projection,omitempty"`
	TaskStatistics TaskStatistics  `json:"task_statistics"`
	ThresholdMarks float64         `json:"threshold_marks"`
}

type PlanService interface {
	GeneratePlan(ctx context.Context, userID uuid.UUID, req PlanRequest) (*PlanResponse, error)
	GoalStatus(ctx context.Context, userID, goalID uuid.UUID) (*StatusResponse, error)
}

type planService struct {
	db       *gorm.DB
	log      *logger.Logger
	goalRepo repos.GoalRepo
	taskRepo repos.TaskRepo
	engine   predict.Config
}

func NewPlanService(db *gorm.DB, log *logger.Logger, goalRepo repos.GoalRepo, taskRepo repos.TaskRepo, engine predict.Config) PlanService {
	return &planService{
		db:       db,
		log:      log.With("service", "PlanService"),
		goalRepo: goalRepo,
		taskRepo: taskRepo,
		engine:   engine,
	}
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// taskStateFromRow converts a stored task into the engine's borrowed view,
// substituting the configured defaults for unset tuning fields.
func taskStateFromRow(row *types.Task, engine predict.Config) predict.TaskState {
	state := predict.TaskState{
		TaskID:           row.ID,
		Name:             row.Name,
		ConceptWeight:    row.ConceptWeight,
		Mastery:          row.Mastery,
		TEstHours:        row.TEstHours,
		LambdaForgetting: row.LambdaForgetting,
		EtaLearn:         row.EtaLearn,
		RhoRevise:        row.RhoRevise,
		LastStudiedAt:    row.LastStudiedAt,
		SpacedStage:      row.SpacedStage,
		TaskType:         row.TaskType,
		Derived:          row.Derived,
	}
	if row.Topic != nil && row.Topic.Subject != nil {
		state.SubjectName = row.Topic.Subject.Name
	}
	if state.TEstHours <= 0 {
		state.TEstHours = engine.DefaultTEstHours
	}
	if state.LambdaForgetting <= 0 {
		state.LambdaForgetting = engine.DefaultLambdaForgetting
	}
	if state.EtaLearn <= 0 {
		state.EtaLearn = engine.DefaultEtaLearn
	}
	if state.RhoRevise <= 0 {
		state.RhoRevise = engine.DefaultRhoRevise
	}
	return state
}

// loadGoalTasks resolves the goal under the caller's ownership and its active
// task states. Shared by the plan, status, apply and analytics paths.
func loadGoalTasks(ctx context.Context, tx *gorm.DB, goalRepo repos.GoalRepo, taskRepo repos.TaskRepo, userID, goalID uuid.UUID, engine predict.Config) (*types.Goal, []predict.TaskState, error) {
	goal, err := goalRepo.GetByIDForUser(ctx, tx, goalID, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("load goal: %w", err)
	}
	if goal == nil {
		return nil, nil, fmt.Errorf("%w: goal %s", apperrors.ErrNotFound, goalID)
	}
	rows, err := taskRepo.ListActiveByGoal(ctx, tx, goalID)
	if err != nil {
		return nil, nil, fmt.Errorf("load tasks: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%w: goal %s has no active tasks", apperrors.ErrInvalidArgument, goalID)
	}
	states := make([]predict.TaskState, len(rows))
	for i, row := range rows {
		states[i] = taskStateFromRow(row, engine)
	}
	return goal, states, nil
}

func roundPlannedTasks(tasks []predict.PlannedTask) []predict.PlannedTask {
	out := make([]predict.PlannedTask, len(tasks))
	for i, t := range tasks {
		t.AllocatedHours = roundTo(t.AllocatedHours, 2)
		t.MasteryBefore = roundTo(t.MasteryBefore, 3)
		t.MasteryAfter = roundTo(t.MasteryAfter, 3)
		t.Priority = roundTo(t.Priority, 4)
		out[i] = t
	}
	return out
}

func roundProjection(p predict.Projection) predict.Projection {
	p.Mu = roundTo(p.Mu, 2)
	p.Sigma2 = roundTo(p.Sigma2, 2)
	p.PClear = roundTo(p.PClear, 4)
	p.DeltaMu = roundTo(p.DeltaMu, 2)
	return p
}

func (ps *planService) GeneratePlan(ctx context.Context, userID uuid.UUID, req PlanRequest) (*PlanResponse, error) {
	goal, states, err := loadGoalTasks(ctx, nil, ps.goalRepo, ps.taskRepo, userID, req.GoalID, ps.engine)
	if err != nil {
		return nil, err
	}

	dailyHours := goal.DailyHoursDefault
	if dailyHours <= 0 {
		dailyHours = ps.engine.DefaultDailyHours
	}
	if req.DailyHours != nil {
		if *req.DailyHours <= 0 || *req.DailyHours > 24 {
			return nil, fmt.Errorf("%w: daily_hours must be in (0, 24]", apperrors.ErrInvalidArgument)
		}
		dailyHours = *req.DailyHours
	}

	splitNew := goal.SplitNewDefault
	if splitNew <= 0 {
		splitNew = ps.engine.DefaultSplitNew
	}
	if req.SplitNew != nil {
		if *req.SplitNew < 0 || *req.SplitNew > 1 {
			return nil, fmt.Errorf("%w: split_new must be in [0, 1]", apperrors.ErrInvalidArgument)
		}
		splitNew = *req.SplitNew
	}

	today := predict.Today()
	result := predict.SimulateDailyPlan(states, dailyHours, splitNew, today, ps.engine)

	ps.log.Debug("Generated plan",
		"goal_id", req.GoalID,
		"new_tasks", len(result.NewTasks),
		"revision_tasks", len(result.RevisionTasks))

	return &PlanResponse{
		Date:          today.Format("2006-01-02"),
		GoalID:        goal.ID,
		DailyHours:    dailyHours,
		SplitNew:      splitNew,
		NewTasks:      roundPlannedTasks(result.NewTasks),
		RevisionTasks: roundPlannedTasks(result.RevisionTasks),
		HoursNew:      roundTo(result.HoursNew, 2),
		HoursRevision: roundTo(result.HoursRevision, 2),
		Before:        roundProjection(result.Before),
		After:         roundProjection(result.After),
	}, nil
}

func (ps *planService) GoalStatus(ctx context.Context, userID, goalID uuid.UUID) (*StatusResponse, error) {
	goal, states, err := loadGoalTasks(ctx, nil, ps.goalRepo, ps.taskRepo, userID, goalID, ps.engine)
	if err != nil {
		return nil, err
	}

	today := predict.Today()
	status := computeStatusForGoal(states, goal, today, ps.engine)

	resp := &StatusResponse{
		GoalID: goal.ID,
		Date:   today.Format("2006-01-02"),
		CurrentState: CurrentState{
			Mu:          roundTo(status.Mu, 2),
			Sigma2:      roundTo(status.Sigma2, 2),
			PClearToday: roundTo(status.PClearToday, 4),
		},
		TaskStatistics: TaskStatistics{
			TotalTasks:    status.TotalTasks,
			MasteredTasks: status.MasteredTasks,
			AvgMastery:    roundTo(status.AvgMastery, 3),
		},
		ThresholdMarks: status.ThresholdMarks,
	}
	if goal.ExamDate != nil && status.DaysRemaining > 0 {
		resp.ExamProjection = &ExamProjection{
			ExamDate:      predict.CivilDate(*goal.ExamDate).Format("2006-01-02"),
			DaysRemaining: status.DaysRemaining,
			MuExam:        roundTo(status.MuExam, 2),
			PClearExam:    roundTo(status.PClearExam, 4),
		}
	}
	return resp, nil
}

// computeStatusForGoal runs the engine's status computation with the goal's
// stored parameters, falling back to configured defaults.
func computeStatusForGoal(states []predict.TaskState, goal *types.Goal, today time.Time, engine predict.Config) predict.StatusResult {
	threshold := goal.ThresholdMarks
	if threshold <= 0 {
		threshold = engine.PlanClearThreshold
	}
	dailyHours := goal.DailyHoursDefault
	if dailyHours <= 0 {
		dailyHours = engine.DefaultDailyHours
	}
	splitNew := goal.SplitNewDefault
	if splitNew <= 0 {
		splitNew = engine.DefaultSplitNew
	}
	deltaDecay := goal.DeltaDecay
	if deltaDecay <= 0 {
		deltaDecay = engine.DefaultDeltaDecay
	}
	return predict.ComputeGoalStatus(states, threshold, goal.ExamDate, dailyHours, splitNew, deltaDecay, today, engine)
}
