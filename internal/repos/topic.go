package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prepmetrics/prepmetrics-backend/internal/logger"
	"github.com/prepmetrics/prepmetrics-backend/internal/types"
)

type TopicRepo interface {
	// GetVerified resolves a topic only when its subject/goal chain matches,
	// so virtual tasks can never be attached outside the caller's goal.
	GetVerified(ctx context.Context, tx *gorm.DB, topicID, subjectID, goalID uuid.UUID) (*types.Topic, error)
}

type topicRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTopicRepo(db *gorm.DB, baseLog *logger.Logger) TopicRepo {
	return &topicRepo{
		db:  db,
		log: baseLog.With("repo", "TopicRepo"),
	}
}

func (r *topicRepo) GetVerified(ctx context.Context, tx *gorm.DB, topicID, subjectID, goalID uuid.UUID) (*types.Topic, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if topicID == uuid.Nil || subjectID == uuid.Nil || goalID == uuid.Nil {
		return nil, nil
	}
	var row types.Topic
	err := transaction.WithContext(ctx).
		Select("topic.*").
		Joins("JOIN subject ON subject.id = topic.subject_id").
		Where("topic.id = ? AND subject.id = ? AND subject.goal_id = ?", topicID, subjectID, goalID).
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
