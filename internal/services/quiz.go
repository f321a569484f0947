package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prepmetrics/prepmetrics-backend/internal/apperrors"
	"github.com/prepmetrics/prepmetrics-backend/internal/cache"
	"github.com/prepmetrics/prepmetrics-backend/internal/logger"
	"github.com/prepmetrics/prepmetrics-backend/internal/predict"
	"github.com/prepmetrics/prepmetrics-backend/internal/repos"
	"github.com/prepmetrics/prepmetrics-backend/internal/types"
)

type QuizRequest struct {
	TaskID         uuid.UUID `json:"task_id"`
	IdempotencyKey string    `json:"idempotency_key"`
	McqPercent     float64   `json:"mcq_percent"`
	TotalQuestions int       `json:"total_questions"`
	MainsScore     *float64  `json:"mains_score,omitempty"`
}

type QuizResponse struct {
	TaskID            uuid.UUID `json:"task_id"`
	TaskName          string    `json:"task_name"`
	CorrectCount      int       `json:"correct_count"`
	TotalQuestions    int       `json:"total_questions"`
	Alpha             float64   `json:"alpha"`
	Beta              float64   `json:"beta"`
	MasteryBefore     float64   `json:"mastery_before"`
	MasteryAfter      float64   `json:"mastery_after"`
	MainsFloorApplied bool      `json:"mains_floor_applied,omitempty"`
	IdempotentReplay  bool      `json:"idempotent_replay,omitempty"`
}

// QuizService folds quiz outcomes into a task's Beta posterior. Writes are
// idempotent the same way plan application is.
type QuizService interface {
	SubmitQuiz(ctx context.Context, userID uuid.UUID, req QuizRequest) (*QuizResponse, error)
}

type quizService struct {
	db        *gorm.DB
	log       *logger.Logger
	taskRepo  repos.TaskRepo
	idemRepo  repos.IdempotencyLogRepo
	planCache *cache.PlanCache
	engine    predict.Config
}

func NewQuizService(db *gorm.DB, log *logger.Logger, taskRepo repos.TaskRepo, idemRepo repos.IdempotencyLogRepo, planCache *cache.PlanCache, engine predict.Config) QuizService {
	return &quizService{
		db:        db,
		log:       log.With("service", "QuizService"),
		taskRepo:  taskRepo,
		idemRepo:  idemRepo,
		planCache: planCache,
		engine:    engine,
	}
}

func (qs *quizService) SubmitQuiz(ctx context.Context, userID uuid.UUID, req QuizRequest) (*QuizResponse, error) {
	if req.IdempotencyKey == "" {
		return nil, fmt.Errorf("%w: idempotency_key is required", apperrors.ErrInvalidArgument)
	}
	if req.TaskID == uuid.Nil {
		return nil, fmt.Errorf("%w: task_id is required", apperrors.ErrInvalidArgument)
	}
	if req.McqPercent < 0 || req.McqPercent > 100 {
		return nil, fmt.Errorf("%w: mcq_percent must be in [0, 100]", apperrors.ErrInvalidArgument)
	}
	if req.TotalQuestions <= 0 {
		return nil, fmt.Errorf("%w: total_questions must be positive", apperrors.ErrInvalidArgument)
	}
	if req.MainsScore != nil && (*req.MainsScore < 0 || *req.MainsScore > 100) {
		return nil, fmt.Errorf("%w: mains_score must be in [0, 100]", apperrors.ErrInvalidArgument)
	}

	requestHash, err := CanonicalRequestHash(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err)
	}

	var resp *QuizResponse
	txErr := qs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := qs.idemRepo.GetByKeyLocked(ctx, tx, req.IdempotencyKey)
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
			var replay QuizResponse
			if err := json.Unmarshal(existing.ResponseBody, &replay); err != nil {
				return fmt.Errorf("decode stored response: %w", err)
			}
			replay.IdempotentReplay = true
			resp = &replay
			return nil
		}

		task, err := qs.taskRepo.GetByIDForUserLocked(ctx, tx, req.TaskID, userID)
		if err != nil {
			return fmt.Errorf("lock task: %w", err)
		}
		if task == nil {
			return fmt.Errorf("%w: task %s", apperrors.ErrNotFound, req.TaskID)
		}

		today := predict.Today()
		state := taskStateFromRow(task, qs.engine)

		masteryBefore := state.Mastery
		if task.LastDecayDate == nil || !predict.CivilDate(*task.LastDecayDate).Equal(today) {
			days := predict.DaysSince(task.LastStudiedAt, today)
			masteryBefore = predict.ApplyDecay(state.Mastery, state.LambdaForgetting, days)
		}

		alpha, beta := 1.0, 1.0
		if task.BayesAlpha != nil && task.BayesBeta != nil {
			alpha, beta = *task.BayesAlpha, *task.BayesBeta
		}

		correct := int(math.Floor(req.McqPercent * float64(req.TotalQuestions) / 100.0))
		alpha, beta = predict.QuizUpdate(alpha, beta, correct, req.TotalQuestions)
		masteryAfter := predict.MasteryFromBeta(alpha, beta)

		floorApplied := false
		if req.MainsScore != nil {
			floor := qs.engine.MainsFloorFactor * (*req.MainsScore / 100.0)
			if masteryAfter < floor {
				masteryAfter = floor
				floorApplied = true
			}
		}
		if masteryAfter > 1 {
			masteryAfter = 1
		}
		if masteryAfter < 0 {
			masteryAfter = 0
		}

		decayStamp := today
		task.Mastery = masteryAfter
		task.BayesAlpha = &alpha
		task.BayesBeta = &beta
		task.LastDecayDate = &decayStamp
		task.Version++
		if err := qs.taskRepo.Save(ctx, tx, task); err != nil {
			return fmt.Errorf("save task: %w", err)
		}

		resp = &QuizResponse{
			TaskID:         task.ID,
			TaskName:       task.Name,
			CorrectCount:   correct,
			TotalQuestions: req.TotalQuestions,
			Alpha:          roundTo(alpha, 3),
			Beta:           roundTo(beta, 3),
			MasteryBefore:  roundTo(masteryBefore, 3),
			MasteryAfter:   roundTo(masteryAfter, 3),
		}
		resp.MainsFloorApplied = floorApplied

		body, err := json.Marshal(resp)
		if err != nil {
			return fmt.Errorf("marshal response body: %w", err)
		}
		logRow := &types.IdempotencyLog{
			IdempotencyKey: req.IdempotencyKey,
			UserID:         userID,
			OperationType:  types.OperationQuiz,
			OperationDate:  today,
			RequestHash:    requestHash,
			ResponseBody:   body,
		}
		if err := qs.idemRepo.Create(ctx, tx, logRow); err != nil {
			return fmt.Errorf("record idempotency log: %w", err)
		}
		return nil
	})
	if txErr != nil {
		if taxonomyError(txErr) {
			return nil, txErr
		}
		qs.log.Error("Quiz transaction failed", "error", txErr, "task_id", req.TaskID)
		return nil, fmt.Errorf("%w: submit quiz: %v", apperrors.ErrRetryable, txErr)
	}

	if !resp.IdempotentReplay {
		qs.planCache.InvalidateUser(userID)
	}
	return resp, nil
}
