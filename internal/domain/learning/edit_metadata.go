package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EditMetadata is one recorded delta between a generated text and the user's
// edit of it (or the aggregate of a thread's per-tweet deltas). Rows are
// retained up to a per-user cap; the oldest are pruned first.
type EditMetadata struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID uuid.UUID `gorm:"type:uuid;not null;index:idx_edit_metadata_user_created" json:"owner_user_id"`
	ContentID   uuid.UUID `gorm:"type:uuid;not null;index" json:"content_id"`

	OriginalText   string `gorm:"column:original_text" json:"original_text"`
	OriginalLength int    `gorm:"column:original_length;not null;default:0" json:"original_length"`
	EditedLength   int    `gorm:"column:edited_length;not null;default:0" json:"edited_length"`

	SentenceLengthDelta float64 `gorm:"column:sentence_length_delta;not null;default:0" json:"sentence_length_delta"`

	EmojiAdded   int `gorm:"column:emoji_added;not null;default:0" json:"emoji_added"`
	EmojiRemoved int `gorm:"column:emoji_removed;not null;default:0" json:"emoji_removed"`
	EmojiNet     int `gorm:"column:emoji_net;not null;default:0" json:"emoji_net"`

	ParagraphsAdded   int                         `gorm:"column:paragraphs_added;not null;default:0" json:"paragraphs_added"`
	ParagraphsRemoved int                         `gorm:"column:paragraphs_removed;not null;default:0" json:"paragraphs_removed"`
	BulletsAdded      int                         `gorm:"column:bullets_added;not null;default:0" json:"bullets_added"`
	FormattingChanges datatypes.JSONSlice[string] `gorm:"column:formatting_changes" json:"formatting_changes"`

	ToneShift string `gorm:"column:tone_shift;not null;default:'no change'" json:"tone_shift"`

	WordsSubstituted datatypes.JSONSlice[string] `gorm:"column:words_substituted" json:"words_substituted"`
	ComplexityShift  string                      `gorm:"column:complexity_shift" json:"complexity_shift"`

	PhrasesAdded   datatypes.JSONSlice[string] `gorm:"column:phrases_added" json:"phrases_added"`
	PhrasesRemoved datatypes.JSONSlice[string] `gorm:"column:phrases_removed" json:"phrases_removed"`

	EditTimestamp     time.Time `gorm:"column:edit_timestamp;not null;index:idx_edit_metadata_user_created" json:"edit_timestamp"`
	LearningProcessed bool      `gorm:"column:learning_processed;not null;default:false" json:"learning_processed"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (EditMetadata) TableName() string { return "edit_metadata" }
