package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DeadLetter holds a job that failed after exhausting its retry budget.
// Rows are for manual inspection only and are never re-run automatically.
type DeadLetter struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	JobID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"job_id"`
	OwnerUserID uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	ContentID   uuid.UUID `gorm:"type:uuid;index" json:"content_id"`

	JobType  string         `gorm:"column:job_type;not null" json:"job_type"`
	Attempts int            `gorm:"column:attempts;not null" json:"attempts"`
	Error    string         `gorm:"column:error" json:"error"`
	Payload  datatypes.JSON `gorm:"column:payload" json:"payload"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (DeadLetter) TableName() string { return "dead_letter" }
