package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prepmetrics/prepmetrics-backend/internal/logger"
	"github.com/prepmetrics/prepmetrics-backend/internal/types"
)

type GoalRepo interface {
	GetByIDForUser(ctx context.Context, tx *gorm.DB, goalID, userID uuid.UUID) (*types.Goal, error)
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Goal, error)
	Save(ctx context.Context, tx *gorm.DB, goal *types.Goal) error
}

type goalRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGoalRepo(db *gorm.DB, baseLog *logger.Logger) GoalRepo {
	return &goalRepo{
		db:  db,
		log: baseLog.With("repo", "GoalRepo"),
	}
}

func (r *goalRepo) GetByIDForUser(ctx context.Context, tx *gorm.DB, goalID, userID uuid.UUID) (*types.Goal, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if goalID == uuid.Nil || userID == uuid.Nil {
		return nil, nil
	}
	var row types.Goal
	err := transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", goalID, userID).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *goalRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Goal, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.Goal
	if err := transaction.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *goalRepo) Save(ctx context.Context, tx *gorm.DB, goal *types.Goal) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(goal).Error
}
