package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

const JobTypeStyleLearning = "style_learning"

// LearningJob is one durable, retryable unit of work: learn from a single
// edited content item. Workers claim pending rows (and failed rows below the
// attempt cap, and stale processing rows) and run them to completion.
type LearningJob struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	ContentID   uuid.UUID `gorm:"type:uuid;not null;index" json:"content_id"`

	JobType  string `gorm:"column:job_type;not null;index" json:"job_type"`
	Status   string `gorm:"column:status;not null;index" json:"status"`
	Stage    string `gorm:"column:stage;not null" json:"stage"`
	Priority int    `gorm:"column:priority;not null;default:0;index" json:"priority"`
	Attempts int    `gorm:"column:attempts;not null;default:0" json:"attempts"`

	Error       string     `gorm:"column:error" json:"error,omitempty"`
	LockedAt    *time.Time `gorm:"column:locked_at;index" json:"locked_at,omitempty"`
	HeartbeatAt *time.Time `gorm:"column:heartbeat_at;index" json:"heartbeat_at,omitempty"`
	LastErrorAt *time.Time `gorm:"column:last_error_at;index" json:"last_error_at,omitempty"`

	// RunAfter is the earliest time a failed job may be re-claimed. Fail sets
	// it with exponential backoff (base delay doubling per attempt).
	RunAfter *time.Time `gorm:"column:run_after;index" json:"run_after,omitempty"`

	ProcessingStartedAt   *time.Time `gorm:"column:processing_started_at" json:"processing_started_at,omitempty"`
	ProcessingCompletedAt *time.Time `gorm:"column:processing_completed_at" json:"processing_completed_at,omitempty"`

	// StyleDelta snapshots the extracted (or thread-aggregated) delta the job
	// acted on, for audit and idempotent reprocessing.
	StyleDelta datatypes.JSON `gorm:"column:style_delta" json:"style_delta,omitempty"`
	Payload    datatypes.JSON `gorm:"column:payload" json:"payload"`
	Result     datatypes.JSON `gorm:"column:result" json:"result"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (LearningJob) TableName() string { return "learning_job" }
