package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DailySnapshot is the overwrite-on-recompute cache row behind the analytics
// dashboard. Never a source of truth: every field is re-derivable from task
// state on the snapshot date.
type DailySnapshot struct {
	UserID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"user_id"`
	SnapshotDate      time.Time      `gorm:"primaryKey;type:date;column:snapshot_date" json:"snapshot_date"`
	Mu                float64        `gorm:"column:mu;not null;default:0" json:"mu"`
	Sigma2            float64        `gorm:"column:sigma2;not null;default:0" json:"sigma2"`
	PClearToday       float64        `gorm:"column:p_clear_today;not null;default:0" json:"p_clear_today"`
	DeltaMuDay        float64        `gorm:"column:delta_mu_day;not null;default:0" json:"delta_mu_day"`
	MuExam            *float64       `gorm:"column:mu_exam" json:"mu_exam,omitempty"`
	PClearExam        *float64       `gorm:"column:p_clear_exam" json:"p_clear_exam,omitempty"`
	HoursPlanned      float64        `gorm:"column:hours_planned;not null;default:0" json:"hours_planned"`
	LearningGainMarks float64        `gorm:"column:learning_gain_marks;not null;default:0" json:"learning_gain_marks"`
	Extras            datatypes.JSON `gorm:"type:jsonb;column:extras" json:"extras,omitempty"`
	CreatedAt         time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (DailySnapshot) TableName() string { return "daily_snapshot" }
