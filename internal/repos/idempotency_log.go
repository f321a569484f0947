package repos

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/prepmetrics/prepmetrics-backend/internal/logger"
	"github.com/prepmetrics/prepmetrics-backend/internal/types"
)

type IdempotencyLogRepo interface {
	GetByKey(ctx context.Context, tx *gorm.DB, key string) (*types.IdempotencyLog, error)
	GetByKeyLocked(ctx context.Context, tx *gorm.DB, key string) (*types.IdempotencyLog, error)
	Create(ctx context.Context, tx *gorm.DB, row *types.IdempotencyLog) error
}

type idempotencyLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIdempotencyLogRepo(db *gorm.DB, baseLog *logger.Logger) IdempotencyLogRepo {
	return &idempotencyLogRepo{
		db:  db,
		log: baseLog.With("repo", "IdempotencyLogRepo"),
	}
}

func (r *idempotencyLogRepo) GetByKey(ctx context.Context, tx *gorm.DB, key string) (*types.IdempotencyLog, error) {
	return r.getByKey(ctx, tx, key, false)
}

// GetByKeyLocked serializes concurrent writers sharing a key: the second
// caller blocks here until the first commits, then sees the stored response.
func (r *idempotencyLogRepo) GetByKeyLocked(ctx context.Context, tx *gorm.DB, key string) (*types.IdempotencyLog, error) {
	return r.getByKey(ctx, tx, key, true)
}

func (r *idempotencyLogRepo) getByKey(ctx context.Context, tx *gorm.DB, key string, forUpdate bool) (*types.IdempotencyLog, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if key == "" {
		return nil, nil
	}
	query := transaction.WithContext(ctx).Where("idempotency_key = ?", key)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row types.IdempotencyLog
	if err := query.Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.IdempotencyKey == "" {
		return nil, nil
	}
	return &row, nil
}

func (r *idempotencyLogRepo) Create(ctx context.Context, tx *gorm.DB, row *types.IdempotencyLog) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Create(row).Error
}
