package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	OperationApplyPlan = "apply_plan"
	OperationQuiz      = "quiz"
)

// IdempotencyLog maps a client-supplied key to the exact response produced
// for a write operation. A key, once logged, always replays that response
// verbatim and never re-applies side effects.
type IdempotencyLog struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	IdempotencyKey string         `gorm:"uniqueIndex;not null;column:idempotency_key" json:"idempotency_key"`
	UserID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	GoalID         uuid.UUID      `gorm:"type:uuid;index" json:"goal_id"`
	OperationType  string         `gorm:"column:operation_type;not null" json:"operation_type"`
	OperationDate  time.Time      `gorm:"column:operation_date;type:date;not null" json:"operation_date"`
	RequestHash    string         `gorm:"column:request_hash;not null" json:"request_hash"`
	ResponseBody   datatypes.JSON `gorm:"type:jsonb;column:response_body" json:"response_body,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (IdempotencyLog) TableName() string { return "idempotency_log" }
