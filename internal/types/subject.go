package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Subject carries its share of the goal's exam weight. All subjects under one
// goal sum to 1.0; normalization happens on write in the surrounding CRUD
// layer, the engine only consumes the weights.
type Subject struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	GoalID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"goal_id"`
	Goal      *Goal          `gorm:"constraint:OnDelete:CASCADE;foreignKey:GoalID;references:ID" json:"goal,omitempty"`
	Name      string         `gorm:"not null;column:name" json:"name"`
	Weight    float64        `gorm:"column:weight;not null;default:0" json:"weight"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Subject) TableName() string { return "subject" }
