package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Goal struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID            uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User              *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Name              string         `gorm:"not null;column:name" json:"name"`
	ThresholdMarks    float64        `gorm:"column:threshold_marks;not null;default:120" json:"threshold_marks"`
	TotalMarks        float64        `gorm:"column:total_marks;not null;default:200" json:"total_marks"`
	ExamDate          *time.Time     `gorm:"column:exam_date;type:date" json:"exam_date,omitempty"`
	DailyHoursDefault float64        `gorm:"column:daily_hours_default;not null;default:6" json:"daily_hours_default"`
	SplitNewDefault   float64        `gorm:"column:split_new_default;not null;default:0.6" json:"split_new_default"`
	DeltaDecay        float64        `gorm:"column:delta_decay;not null;default:0.7" json:"delta_decay"`
	Version           int            `gorm:"column:version;not null;default:0" json:"version"`
	CreatedAt         time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Goal) TableName() string { return "goal" }
