package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ProfileVersion is an immutable snapshot of a style profile taken right
// before an automatic update. Bounded to the most recent N per user; used for
// audit and manual rollback, never updated in place.
type ProfileVersion struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID uuid.UUID `gorm:"type:uuid;not null;index:idx_profile_version_user_created" json:"owner_user_id"`
	ProfileID   uuid.UUID `gorm:"type:uuid;not null;index" json:"profile_id"`

	Iteration int            `gorm:"column:iteration;not null;default:0" json:"iteration"`
	Snapshot  datatypes.JSON `gorm:"column:snapshot;not null" json:"snapshot"`

	CreatedAt time.Time `gorm:"not null;index:idx_profile_version_user_created" json:"created_at"`
}

func (ProfileVersion) TableName() string { return "profile_version" }
