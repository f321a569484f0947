package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/prepmetrics/prepmetrics-backend/internal/logger"
	"github.com/prepmetrics/prepmetrics-backend/internal/types"
)

type TaskRepo interface {
	ListActiveByGoal(ctx context.Context, tx *gorm.DB, goalID uuid.UUID) ([]*types.Task, error)
	ListBySubject(ctx context.Context, tx *gorm.DB, subjectID uuid.UUID) ([]*types.Task, error)
	GetByIDForUser(ctx context.Context, tx *gorm.DB, taskID, userID uuid.UUID) (*types.Task, error)
	GetByIDForUserLocked(ctx context.Context, tx *gorm.DB, taskID, userID uuid.UUID) (*types.Task, error)
	Create(ctx context.Context, tx *gorm.DB, task *types.Task) error
	Save(ctx context.Context, tx *gorm.DB, task *types.Task) error
}

type taskRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskRepo(db *gorm.DB, baseLog *logger.Logger) TaskRepo {
	return &taskRepo{
		db:  db,
		log: baseLog.With("repo", "TaskRepo"),
	}
}

// ListActiveByGoal returns every non-retired task under the goal, topic and
// subject preloaded so callers can name them without extra round trips.
func (r *taskRepo) ListActiveByGoal(ctx context.Context, tx *gorm.DB, goalID uuid.UUID) ([]*types.Task, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if goalID == uuid.Nil {
		return nil, nil
	}
	var rows []*types.Task
	err := transaction.WithContext(ctx).
		Select("task.*").
		Joins("JOIN topic ON topic.id = task.topic_id").
		Joins("JOIN subject ON subject.id = topic.subject_id").
		Where("subject.goal_id = ? AND task.retired_at IS NULL", goalID).
		Preload("Topic").
		Preload("Topic.Subject").
		Order("task.created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListBySubject returns all tasks under a subject, retired rows included.
// Retirement and coverage stats need the full picture.
func (r *taskRepo) ListBySubject(ctx context.Context, tx *gorm.DB, subjectID uuid.UUID) ([]*types.Task, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if subjectID == uuid.Nil {
		return nil, nil
	}
	var rows []*types.Task
	err := transaction.WithContext(ctx).
		Select("task.*").
		Joins("JOIN topic ON topic.id = task.topic_id").
		Where("topic.subject_id = ?", subjectID).
		Order("task.created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *taskRepo) GetByIDForUser(ctx context.Context, tx *gorm.DB, taskID, userID uuid.UUID) (*types.Task, error) {
	return r.getByIDForUser(ctx, tx, taskID, userID, false)
}

// GetByIDForUserLocked takes a FOR UPDATE row lock; only valid inside a
// transaction.
func (r *taskRepo) GetByIDForUserLocked(ctx context.Context, tx *gorm.DB, taskID, userID uuid.UUID) (*types.Task, error) {
	return r.getByIDForUser(ctx, tx, taskID, userID, true)
}

func (r *taskRepo) getByIDForUser(ctx context.Context, tx *gorm.DB, taskID, userID uuid.UUID, forUpdate bool) (*types.Task, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if taskID == uuid.Nil || userID == uuid.Nil {
		return nil, nil
	}
	query := transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", taskID, userID)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row types.Task
	if err := query.Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *taskRepo) Create(ctx context.Context, tx *gorm.DB, task *types.Task) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Create(task).Error
}

func (r *taskRepo) Save(ctx context.Context, tx *gorm.DB, task *types.Task) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(task).Error
}
