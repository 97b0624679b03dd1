package content

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Format tags how a content item is shaped on the wire. Thread formats carry
// per-tweet edits and use the thread aggregation strategy.
type Format string

const (
	FormatSingle     Format = "single"
	FormatMiniThread Format = "mini_thread"
	FormatFullThread Format = "full_thread"
)

func (f Format) IsThread() bool {
	return f == FormatMiniThread || f == FormatFullThread
}

// TweetEdit is one tweet of a thread with its generated and edited text.
type TweetEdit struct {
	Index        int    `json:"index"`
	OriginalText string `json:"original_text"`
	EditedText   string `json:"edited_text"`
}

// ContentItem is a generated post the user may have hand-edited. The learning
// engine reads edited_text/tweets and writes back only edit_metadata;
// generated_text and the other authored fields belong to the generation side.
type ContentItem struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_user_id"`

	Format        Format         `gorm:"column:content_format;not null;default:single;index" json:"content_format"`
	GeneratedText string         `gorm:"column:generated_text" json:"generated_text"`
	EditedText    string         `gorm:"column:edited_text" json:"edited_text"`
	Tweets        datatypes.JSON `gorm:"column:tweets" json:"tweets,omitempty"`
	EditMetadata  datatypes.JSON `gorm:"column:edit_metadata" json:"edit_metadata,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ContentItem) TableName() string { return "content_item" }

// DecodeTweets parses the tweets column. A missing or malformed column
// decodes to nil; callers treat that as "not a thread".
func (c *ContentItem) DecodeTweets() []TweetEdit {
	if c == nil || len(c.Tweets) == 0 {
		return nil
	}
	var out []TweetEdit
	if err := json.Unmarshal(c.Tweets, &out); err != nil {
		return nil
	}
	return out
}
