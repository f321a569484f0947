package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prepmetrics/prepmetrics-backend/internal/apperrors"
	"github.com/prepmetrics/prepmetrics-backend/internal/logger"
	"github.com/prepmetrics/prepmetrics-backend/internal/predict"
	"github.com/prepmetrics/prepmetrics-backend/internal/repos"
)

// RetiredSubject reports one subject whose virtual tasks were just retired.
type RetiredSubject struct {
	SubjectName  string `json:"subject_name"`
	TasksRetired int    `json:"tasks_retired"`
}

type ReactivateResponse struct {
	TaskID   uuid.UUID `json:"task_id"`
	TaskName string    `json:"task_name"`
	Active   bool      `json:"active"`
}

type SubjectRetirementStats struct {
	SubjectID       uuid.UUID `json:"subject_id"`
	SubjectName     string    `json:"subject_name"`
	RealTasks       int       `json:"real_tasks"`
	VirtualTasks    int       `json:"virtual_tasks"`
	RetiredTasks    int       `json:"retired_tasks"`
	CoveragePercent float64   `json:"coverage_percent"`
}

type RetirementStatsResponse struct {
	GoalID   uuid.UUID                `json:"goal_id"`
	Subjects []SubjectRetirementStats `json:"subjects"`
}

// RetirementService retires placeholder tasks once real syllabus coverage
// makes them redundant. CheckGoal accepts an open transaction so the apply
// workflow can run the sweep atomically with its own writes.
type RetirementService interface {
	CheckGoal(ctx context.Context, tx *gorm.DB, userID, goalID uuid.UUID) (map[uuid.UUID]RetiredSubject, error)
	Reactivate(ctx context.Context, userID, taskID uuid.UUID) (*ReactivateResponse, error)
	Stats(ctx context.Context, userID, goalID uuid.UUID) (*RetirementStatsResponse, error)
}

type retirementService struct {
	db          *gorm.DB
	log         *logger.Logger
	goalRepo    repos.GoalRepo
	subjectRepo repos.SubjectRepo
	taskRepo    repos.TaskRepo
	engine      predict.Config
}

func NewRetirementService(db *gorm.DB, log *logger.Logger, goalRepo repos.GoalRepo, subjectRepo repos.SubjectRepo, taskRepo repos.TaskRepo, engine predict.Config) RetirementService {
	return &retirementService{
		db:          db,
		log:         log.With("service", "RetirementService"),
		goalRepo:    goalRepo,
		subjectRepo: subjectRepo,
		taskRepo:    taskRepo,
		engine:      engine,
	}
}

// eligibleForRetirement is the pure coverage rule: enough real tasks and
// their concept weight close enough to the subject's full weight.
func eligibleForRetirement(realCount int, realWeight, subjectWeight float64, engine predict.Config) bool {
	if realCount < engine.RetirementMinRealTasks {
		return false
	}
	if subjectWeight <= 0 {
		return false
	}
	return realWeight >= engine.RetirementCoverage*subjectWeight
}

func (rs *retirementService) CheckGoal(ctx context.Context, tx *gorm.DB, userID, goalID uuid.UUID) (map[uuid.UUID]RetiredSubject, error) {
	if tx != nil {
		return rs.checkGoal(ctx, tx, userID, goalID)
	}
	var result map[uuid.UUID]RetiredSubject
	err := rs.db.WithContext(ctx).Transaction(func(innerTx *gorm.DB) error {
		var cErr error
		result, cErr = rs.checkGoal(ctx, innerTx, userID, goalID)
		return cErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (rs *retirementService) checkGoal(ctx context.Context, tx *gorm.DB, userID, goalID uuid.UUID) (map[uuid.UUID]RetiredSubject, error) {
	goal, err := rs.goalRepo.GetByIDForUser(ctx, tx, goalID, userID)
	if err != nil {
		return nil, fmt.Errorf("load goal: %w", err)
	}
	if goal == nil {
		return nil, fmt.Errorf("%w: goal %s", apperrors.ErrNotFound, goalID)
	}

	subjects, err := rs.subjectRepo.ListByGoal(ctx, tx, goalID)
	if err != nil {
		return nil, fmt.Errorf("load subjects: %w", err)
	}

	result := make(map[uuid.UUID]RetiredSubject)
	now := time.Now()
	for _, subject := range subjects {
		tasks, err := rs.taskRepo.ListBySubject(ctx, tx, subject.ID)
		if err != nil {
			return nil, fmt.Errorf("load tasks for subject %s: %w", subject.ID, err)
		}

		realCount := 0
		realWeight := 0.0
		for _, task := range tasks {
			if !task.Derived && task.RetiredAt == nil {
				realCount++
				realWeight += task.ConceptWeight
			}
		}
		if !eligibleForRetirement(realCount, realWeight, subject.Weight, rs.engine) {
			continue
		}

		retired := 0
		for _, task := range tasks {
			if !task.Derived || task.RetiredAt != nil {
				continue
			}
			stamp := now
			task.RetiredAt = &stamp
			task.Version++
			if err := rs.taskRepo.Save(ctx, tx, task); err != nil {
				return nil, fmt.Errorf("retire task %s: %w", task.ID, err)
			}
			retired++
		}
		if retired > 0 {
			result[subject.ID] = RetiredSubject{SubjectName: subject.Name, TasksRetired: retired}
			rs.log.Info("Retired virtual tasks",
				"goal_id", goalID,
				"subject_id", subject.ID,
				"tasks_retired", retired)
		}
	}
	return result, nil
}

func (rs *retirementService) Reactivate(ctx context.Context, userID, taskID uuid.UUID) (*ReactivateResponse, error) {
	var resp *ReactivateResponse
	err := rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := rs.taskRepo.GetByIDForUserLocked(ctx, tx, taskID, userID)
		if err != nil {
			return fmt.Errorf("load task: %w", err)
		}
		if task == nil {
			return fmt.Errorf("%w: task %s", apperrors.ErrNotFound, taskID)
		}
		if task.RetiredAt == nil {
			return fmt.Errorf("%w: task %s is not retired", apperrors.ErrInvalidArgument, taskID)
		}
		task.RetiredAt = nil
		task.Version++
		if err := rs.taskRepo.Save(ctx, tx, task); err != nil {
			return fmt.Errorf("reactivate task: %w", err)
		}
		resp = &ReactivateResponse{TaskID: task.ID, TaskName: task.Name, Active: true}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (rs *retirementService) Stats(ctx context.Context, userID, goalID uuid.UUID) (*RetirementStatsResponse, error) {
	goal, err := rs.goalRepo.GetByIDForUser(ctx, nil, goalID, userID)
	if err != nil {
		return nil, fmt.Errorf("load goal: %w", err)
	}
	if goal == nil {
		return nil, fmt.Errorf("%w: goal %s", apperrors.ErrNotFound, goalID)
	}

	subjects, err := rs.subjectRepo.ListByGoal(ctx, nil, goalID)
	if err != nil {
		return nil, fmt.Errorf("load subjects: %w", err)
	}

	resp := &RetirementStatsResponse{GoalID: goalID}
	for _, subject := range subjects {
		tasks, err := rs.taskRepo.ListBySubject(ctx, nil, subject.ID)
		if err != nil {
			return nil, fmt.Errorf("load tasks for subject %s: %w", subject.ID, err)
		}
		row := SubjectRetirementStats{SubjectID: subject.ID, SubjectName: subject.Name}
		realWeight := 0.0
		for _, task := range tasks {
			switch {
			case task.Derived && task.RetiredAt != nil:
				row.RetiredTasks++
			case task.Derived:
				row.VirtualTasks++
			case task.RetiredAt == nil:
				row.RealTasks++
				realWeight += task.ConceptWeight
			}
		}
		if subject.Weight > 0 {
			row.CoveragePercent = roundTo(realWeight/subject.Weight*100, 1)
		}
		resp.Subjects = append(resp.Subjects, row)
	}
	return resp, nil
}
