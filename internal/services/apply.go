package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prepmetrics/prepmetrics-backend/internal/apperrors"
	"github.com/prepmetrics/prepmetrics-backend/internal/cache"
	"github.com/prepmetrics/prepmetrics-backend/internal/logger"
	"github.com/prepmetrics/prepmetrics-backend/internal/predict"
	"github.com/prepmetrics/prepmetrics-backend/internal/repos"
	"github.com/prepmetrics/prepmetrics-backend/internal/types"
)

// ApplyTaskLine is one studied item of a submitted plan. Either TaskID names
// an existing task, or TopicID+SubjectID+TaskName describe a virtual task to
// create on the fly.
type ApplyTaskLine struct {
	TaskID         *uuid.UUID `json:"task_id,omitempty"`
	TopicID        *uuid.UUID `json:"topic_id,omitempty"`
	SubjectID      *uuid.UUID `json:"subject_id,omitempty"`
	TaskName       string     `json:"task_name,omitempty"`
	AllocatedHours float64    `json:"allocated_hours"`
	TaskType       string     `json:"task_type,omitempty"`
}

type ApplyPlanRequest struct {
	GoalID         uuid.UUID       `json:"goal_id"`
	IdempotencyKey string          `json:"idempotency_key"`
	Tasks          []ApplyTaskLine `json:"tasks"`
}

type AppliedTask struct {
	TaskID        uuid.UUID `json:"task_id"`
	TaskName      string    `json:"task_name"`
	Hours         float64   `json:"hours"`
	MasteryBefore float64   `json:"mastery_before"`
	MasteryAfter  float64   `json:"mastery_after"`
	TaskType      string    `json:"task_type"`
	Derived       bool      `json:"derived"`
	Created       bool      `json:"created,omitempty"`
}

type SkippedTask struct {
	TaskID   *uuid.UUID `json:"task_id,omitempty"`
	TaskName string     `json:"task_name,omitempty"`
	Reason   string     `json:"reason"`
}

type StatusDelta struct {
	Mu          float64 `json:"mu"`
	PClearToday float64 `json:"p_clear_today"`
}

type ApplyPlanResponse struct {
	Date             string                       `json:"date"`
	GoalID           uuid.UUID                    `json:"goal_id"`
	AppliedTasks     []AppliedTask                `json:"applied_tasks"`
	SkippedTasks     []SkippedTask                `json:"skipped_tasks,omitempty"`
	HoursApplied     float64                      `json:"hours_applied"`
	Before           StatusDelta                  `json:"before"`
	After            StatusDelta                  `json:"after"`
	DeltaMu          float64                      `json:"delta_mu"`
	RetiredSubjects  map[uuid.UUID]RetiredSubject `json:"retired_subjects,omitempty"`
	IdempotentReplay bool                         `json:"idempotent_replay,omitempty"`
}

type ApplyService interface {
	ApplyPlan(ctx context.Context, userID uuid.UUID, req ApplyPlanRequest) (*ApplyPlanResponse, error)
}

type applyService struct {
	db         *gorm.DB
	log        *logger.Logger
	goalRepo   repos.GoalRepo
	topicRepo  repos.TopicRepo
	taskRepo   repos.TaskRepo
	snapRepo   repos.DailySnapshotRepo
	idemRepo   repos.IdempotencyLogRepo
	retirement RetirementService
	planCache  *cache.PlanCache
	engine     predict.Config
}

func NewApplyService(
	db *gorm.DB,
	log *logger.Logger,
	goalRepo repos.GoalRepo,
	topicRepo repos.TopicRepo,
	taskRepo repos.TaskRepo,
	snapRepo repos.DailySnapshotRepo,
	idemRepo repos.IdempotencyLogRepo,
	retirement RetirementService,
	planCache *cache.PlanCache,
	engine predict.Config,
) ApplyService {
	return &applyService{
		db:         db,
		log:        log.With("service", "ApplyService"),
		goalRepo:   goalRepo,
		topicRepo:  topicRepo,
		taskRepo:   taskRepo,
		snapRepo:   snapRepo,
		idemRepo:   idemRepo,
		retirement: retirement,
		planCache:  planCache,
		engine:     engine,
	}
}

// taxonomyError reports whether err already carries one of the sentinel
// classifications the handler boundary maps to a status code.
func taxonomyError(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound) ||
		errors.Is(err, apperrors.ErrInvalidArgument) ||
		errors.Is(err, apperrors.ErrConflict) ||
		errors.Is(err, apperrors.ErrUnauthorized)
}

func (as *applyService) ApplyPlan(ctx context.Context, userID uuid.UUID, req ApplyPlanRequest) (*ApplyPlanResponse, error) {
	if req.IdempotencyKey == "" {
		return nil, fmt.Errorf("%w: idempotency_key is required", apperrors.ErrInvalidArgument)
	}
	if req.GoalID == uuid.Nil {
		return nil, fmt.Errorf("%w: goal_id is required", apperrors.ErrInvalidArgument)
	}
	if len(req.Tasks) == 0 {
		return nil, fmt.Errorf("%w: tasks must not be empty", apperrors.ErrInvalidArgument)
	}

	requestHash, err := CanonicalRequestHash(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err)
	}

	var resp *ApplyPlanResponse
	txErr := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := as.idemRepo.GetByKeyLocked(ctx, tx, req.IdempotencyKey)
		if err != nil {
			return fmt.Errorf("idempotency lookup: %w", err)
		}
		if existing != nil {
			if existing.RequestHash != requestHash {
				return fmt.Errorf("%w: idempotency key reused with a different request", apperrors.ErrConflict)
			}
			if len(existing.ResponseBody) == 0 {
				return fmt.Errorf("%w: operation for this key is still in progress", apperrors.ErrConflict)
			}
			var replay ApplyPlanResponse
			if err := json.Unmarshal(existing.ResponseBody, &replay); err != nil {
				return fmt.Errorf("decode stored response: %w", err)
			}
			replay.IdempotentReplay = true
			resp = &replay
			return nil
		}

		goal, err := as.goalRepo.GetByIDForUser(ctx, tx, req.GoalID, userID)
		if err != nil {
			return fmt.Errorf("load goal: %w", err)
		}
		if goal == nil {
			return fmt.Errorf("%w: goal %s", apperrors.ErrNotFound, req.GoalID)
		}

		today := predict.Today()
		before, err := as.statusSnapshot(ctx, tx, goal, userID, today)
		if err != nil {
			return err
		}

		applied, skipped, hoursApplied, err := as.applyLines(ctx, tx, userID, goal, req.Tasks, today)
		if err != nil {
			return err
		}

		after, err := as.statusSnapshot(ctx, tx, goal, userID, today)
		if err != nil {
			return err
		}

		retired, err := as.retirement.CheckGoal(ctx, tx, userID, req.GoalID)
		if err != nil {
			return fmt.Errorf("retirement check: %w", err)
		}

		deltaMu := after.Mu - before.Mu
		snapshot := &types.DailySnapshot{
			UserID:            userID,
			SnapshotDate:      today,
			Mu:                after.Mu,
			Sigma2:            after.Sigma2,
			PClearToday:       after.PClearToday,
			DeltaMuDay:        deltaMu,
			HoursPlanned:      hoursApplied,
			LearningGainMarks: deltaMu,
		}
		if goal.ExamDate != nil && after.DaysRemaining > 0 {
			muExam := after.MuExam
			pClearExam := after.PClearExam
			snapshot.MuExam = &muExam
			snapshot.PClearExam = &pClearExam
		}
		if err := as.snapRepo.Upsert(ctx, tx, snapshot); err != nil {
			return fmt.Errorf("upsert snapshot: %w", err)
		}

		resp = &ApplyPlanResponse{
			Date:         today.Format("2006-01-02"),
			GoalID:       goal.ID,
			AppliedTasks: applied,
			SkippedTasks: skipped,
			HoursApplied: roundTo(hoursApplied, 2),
			Before: StatusDelta{
				Mu:          roundTo(before.Mu, 2),
				PClearToday: roundTo(before.PClearToday, 4),
			},
			After: StatusDelta{
				Mu:          roundTo(after.Mu, 2),
				PClearToday: roundTo(after.PClearToday, 4),
			},
			DeltaMu: roundTo(deltaMu, 2),
		}
		if len(retired) > 0 {
			resp.RetiredSubjects = retired
		}

		body, err := json.Marshal(resp)
		if err != nil {
			return fmt.Errorf("marshal response body: %w", err)
		}
		logRow := &types.IdempotencyLog{
			IdempotencyKey: req.IdempotencyKey,
			UserID:         userID,
			GoalID:         req.GoalID,
			OperationType:  types.OperationApplyPlan,
			OperationDate:  today,
			RequestHash:    requestHash,
			ResponseBody:   body,
		}
		if err := as.idemRepo.Create(ctx, tx, logRow); err != nil {
			return fmt.Errorf("record idempotency log: %w", err)
		}
		return nil
	})
	if txErr != nil {
		if taxonomyError(txErr) {
			return nil, txErr
		}
		as.log.Error("Apply plan transaction failed", "error", txErr, "goal_id", req.GoalID)
		return nil, fmt.Errorf("%w: apply plan: %v", apperrors.ErrRetryable, txErr)
	}

	if !resp.IdempotentReplay {
		as.planCache.InvalidateUser(userID)
	}
	return resp, nil
}

// statusSnapshot computes the goal status from the tasks as currently stored
// in the transaction. An empty task set yields a zero status rather than an
// error; applying a plan of only virtual lines starts from nothing.
func (as *applyService) statusSnapshot(ctx context.Context, tx *gorm.DB, goal *types.Goal, userID uuid.UUID, today time.Time) (predict.StatusResult, error) {
	rows, err := as.taskRepo.ListActiveByGoal(ctx, tx, goal.ID)
	if err != nil {
		return predict.StatusResult{}, fmt.Errorf("load tasks for status: %w", err)
	}
	states := make([]predict.TaskState, len(rows))
	for i, row := range rows {
		states[i] = taskStateFromRow(row, as.engine)
	}
	return computeStatusForGoal(states, goal, today, as.engine), nil
}

// applyLines walks the submitted lines inside the open transaction, locking
// or creating each task and folding the studied hours into its mastery.
func (as *applyService) applyLines(ctx context.Context, tx *gorm.DB, userID uuid.UUID, goal *types.Goal, lines []ApplyTaskLine, today time.Time) ([]AppliedTask, []SkippedTask, float64, error) {
	var applied []AppliedTask
	var skipped []SkippedTask
	var hoursApplied float64

	for _, line := range lines {
		if line.AllocatedHours <= 0 {
			skipped = append(skipped, SkippedTask{TaskID: line.TaskID, TaskName: line.TaskName, Reason: "non_positive_hours"})
			continue
		}

		var task *types.Task
		created := false
		switch {
		case line.TaskID != nil:
			row, err := as.taskRepo.GetByIDForUserLocked(ctx, tx, *line.TaskID, userID)
			if err != nil {
				return nil, nil, 0, fmt.Errorf("lock task %s: %w", *line.TaskID, err)
			}
			if row == nil {
				skipped = append(skipped, SkippedTask{TaskID: line.TaskID, Reason: "not_found"})
				continue
			}
			if row.RetiredAt != nil {
				skipped = append(skipped, SkippedTask{TaskID: line.TaskID, TaskName: row.Name, Reason: "retired"})
				continue
			}
			task = row
		case line.TopicID != nil && line.SubjectID != nil && line.TaskName != "":
			topic, err := as.topicRepo.GetVerified(ctx, tx, *line.TopicID, *line.SubjectID, goal.ID)
			if err != nil {
				return nil, nil, 0, fmt.Errorf("verify topic %s: %w", *line.TopicID, err)
			}
			if topic == nil {
				skipped = append(skipped, SkippedTask{TaskName: line.TaskName, Reason: "topic_not_in_goal"})
				continue
			}
			task = &types.Task{
				ID:               uuid.New(),
				UserID:           userID,
				TopicID:          topic.ID,
				Name:             line.TaskName,
				ConceptWeight:    0,
				Mastery:          0,
				TEstHours:        as.engine.DefaultTEstHours,
				LambdaForgetting: as.engine.DefaultLambdaForgetting,
				EtaLearn:         as.engine.DefaultEtaLearn,
				RhoRevise:        as.engine.DefaultRhoRevise,
				TaskType:         types.TaskTypeLearn,
				Derived:          true,
			}
			created = true
		default:
			skipped = append(skipped, SkippedTask{TaskName: line.TaskName, Reason: "invalid_line"})
			continue
		}

		taskType := line.TaskType
		if taskType == "" {
			taskType = task.TaskType
		}

		state := taskStateFromRow(task, as.engine)

		// Pending decay, at most once per civil day.
		masteryBefore := state.Mastery
		if task.LastDecayDate == nil || !predict.CivilDate(*task.LastDecayDate).Equal(today) {
			days := predict.DaysSince(task.LastStudiedAt, today)
			masteryBefore = predict.ApplyDecay(state.Mastery, state.LambdaForgetting, days)
		}

		var masteryAfter float64
		if taskType == types.TaskTypeRevise {
			masteryAfter = predict.ReviseUpdate(masteryBefore, line.AllocatedHours, state.TEstHours, state.RhoRevise)
			if task.SpacedStage < len(predict.SpacedStages)-1 {
				task.SpacedStage++
			}
		} else {
			masteryAfter = predict.LearnUpdate(masteryBefore, line.AllocatedHours, state.TEstHours, state.EtaLearn)
		}

		studied := today
		task.Mastery = masteryAfter
		task.LastStudiedAt = &studied
		task.LastDecayDate = &studied
		if task.BayesAlpha == nil || task.BayesBeta == nil {
			alpha, beta := predict.BayesInit(masteryAfter)
			task.BayesAlpha = &alpha
			task.BayesBeta = &beta
		}
		task.Version++

		if created {
			if err := as.taskRepo.Create(ctx, tx, task); err != nil {
				return nil, nil, 0, fmt.Errorf("create virtual task %q: %w", line.TaskName, err)
			}
		} else {
			if err := as.taskRepo.Save(ctx, tx, task); err != nil {
				return nil, nil, 0, fmt.Errorf("save task %s: %w", task.ID, err)
			}
		}

		hoursApplied += line.AllocatedHours
		applied = append(applied, AppliedTask{
			TaskID:        task.ID,
			TaskName:      task.Name,
			Hours:         roundTo(line.AllocatedHours, 2),
			MasteryBefore: roundTo(masteryBefore, 3),
			MasteryAfter:  roundTo(masteryAfter, 3),
			TaskType:      taskType,
			Derived:       task.Derived,
			Created:       created,
		})
	}

	if len(applied) == 0 {
		return nil, nil, 0, fmt.Errorf("%w: no applicable task lines", apperrors.ErrInvalidArgument)
	}
	return applied, skipped, hoursApplied, nil
}
