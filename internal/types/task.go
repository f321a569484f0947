package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TaskTypeLearn  = "learn"
	TaskTypeRevise = "revise"
	TaskTypeTest   = "test"
)

// Task is the atomic schedulable mastery unit. The engine borrows rows for
// the duration of one computation; every mutation goes through the
// apply/quiz write paths under a row lock.
type Task struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID           uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User             *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	TopicID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"topic_id"`
	Topic            *Topic         `gorm:"constraint:OnDelete:CASCADE;foreignKey:TopicID;references:ID" json:"topic,omitempty"`
	Name             string         `gorm:"not null;column:name" json:"name"`
	ConceptWeight    float64        `gorm:"column:concept_weight;not null;default:0" json:"concept_weight"`
	Mastery          float64        `gorm:"column:mastery;not null;default:0" json:"mastery"`
	TEstHours        float64        `gorm:"column:t_est_hours;not null;default:4" json:"t_est_hours"`
	LambdaForgetting float64        `gorm:"column:lambda_forgetting;not null;default:0.04" json:"lambda_forgetting"`
	EtaLearn         float64        `gorm:"column:eta_learn;not null;default:0.8" json:"eta_learn"`
	RhoRevise        float64        `gorm:"column:rho_revise;not null;default:0.35" json:"rho_revise"`
	LastStudiedAt    *time.Time     `gorm:"column:last_studied_at;type:date" json:"last_studied_at,omitempty"`
	LastDecayDate    *time.Time     `gorm:"column:last_decay_date;type:date" json:"last_decay_date,omitempty"`
	SpacedStage      int            `gorm:"column:spaced_stage;not null;default:0" json:"spaced_stage"`
	BayesAlpha       *float64       `gorm:"column:bayes_alpha" json:"bayes_alpha,omitempty"`
	BayesBeta        *float64       `gorm:"column:bayes_beta" json:"bayes_beta,omitempty"`
	TaskType         string         `gorm:"column:task_type;not null;default:'learn'" json:"task_type"`
	Derived          bool           `gorm:"column:derived;not null;default:false" json:"derived"`
	RetiredAt        *time.Time     `gorm:"column:retired_at" json:"retired_at,omitempty"`
	Version          int            `gorm:"column:version;not null;default:0" json:"version"`
	CreatedAt        time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Task) TableName() string { return "task" }
