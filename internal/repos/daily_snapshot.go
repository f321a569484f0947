package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/prepmetrics/prepmetrics-backend/internal/logger"
	"github.com/prepmetrics/prepmetrics-backend/internal/types"
)

type DailySnapshotRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, snapshot *types.DailySnapshot) error
	ListSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from time.Time) ([]*types.DailySnapshot, error)
}

type dailySnapshotRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDailySnapshotRepo(db *gorm.DB, baseLog *logger.Logger) DailySnapshotRepo {
	return &dailySnapshotRepo{
		db:  db,
		log: baseLog.With("repo", "DailySnapshotRepo"),
	}
}

// Upsert overwrites the row for (user, date). Recomputing the same day is the
// normal case, not a conflict.
func (r *dailySnapshotRepo) Upsert(ctx context.Context, tx *gorm.DB, snapshot *types.DailySnapshot) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "snapshot_date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"mu", "sigma2", "p_clear_today", "delta_mu_day",
				"mu_exam", "p_clear_exam", "hours_planned",
				"learning_gain_marks", "extras", "updated_at",
			}),
		}).
		Create(snapshot).Error
}

func (r *dailySnapshotRepo) ListSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from time.Time) ([]*types.DailySnapshot, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil {
		return nil, nil
	}
	var rows []*types.DailySnapshot
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND snapshot_date >= ?", userID, from).
		Order("snapshot_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
