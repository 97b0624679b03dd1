package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Tone metric bounds and writing-trait clamps. Every numeric trait on a
// style profile stays inside these ranges no matter what the learning
// policy computes.
const (
	ToneMin = 1
	ToneMax = 10

	SentenceLengthMin = 5.0
	SentenceLengthMax = 50.0

	EmojiFrequencyMin = 0
	EmojiFrequencyMax = 5

	// PhraseSetCap bounds common_phrases and banned_phrases. Overflow drops
	// the oldest entries first (FIFO).
	PhraseSetCap = 20

	SamplePostCap = 10
)

// Manual-override keys. Presence of a key in ManualOverrides freezes that
// field for the automatic learning policy; only the user can change it.
const (
	OverrideAvgSentenceLength = "avg_sentence_length"
	OverrideUsesEmojis        = "uses_emojis"
	OverrideEmojiFrequency    = "emoji_frequency"
	OverrideEndingStyle       = "ending_style"
	OverrideFormality         = "formality"
	OverrideEnthusiasm        = "enthusiasm"
	OverrideDirectness        = "directness"
	OverrideHumor             = "humor"
	OverrideEmotionality      = "emotionality"
)

type ToneSettings struct {
	Formality    int `gorm:"column:tone_formality;not null;default:5" json:"formality"`
	Enthusiasm   int `gorm:"column:tone_enthusiasm;not null;default:5" json:"enthusiasm"`
	Directness   int `gorm:"column:tone_directness;not null;default:5" json:"directness"`
	Humor        int `gorm:"column:tone_humor;not null;default:5" json:"humor"`
	Emotionality int `gorm:"column:tone_emotionality;not null;default:5" json:"emotionality"`
}

type WritingTraits struct {
	AvgSentenceLength   float64 `gorm:"column:avg_sentence_length;not null;default:15" json:"avg_sentence_length"`
	UsesQuestionsOften  bool    `gorm:"column:uses_questions_often;not null;default:false" json:"uses_questions_often"`
	UsesEmojis          bool    `gorm:"column:uses_emojis;not null;default:false" json:"uses_emojis"`
	EmojiFrequency      int     `gorm:"column:emoji_frequency;not null;default:0" json:"emoji_frequency"`
	UsesBulletPoints    bool    `gorm:"column:uses_bullet_points;not null;default:false" json:"uses_bullet_points"`
	UsesShortParagraphs bool    `gorm:"column:uses_short_paragraphs;not null;default:false" json:"uses_short_paragraphs"`
	UsesHooks           bool    `gorm:"column:uses_hooks;not null;default:false" json:"uses_hooks"`
}

type StructurePreferences struct {
	IntroStyle  string `gorm:"column:intro_style" json:"intro_style"`
	BodyStyle   string `gorm:"column:body_style" json:"body_style"`
	EndingStyle string `gorm:"column:ending_style" json:"ending_style"`
}

// StyleProfile is the persistent per-user model of writing voice. It is
// mutated only by the learning policy (under the rate-limit gate) or by an
// explicit user edit.
type StyleProfile struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	User   *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`

	VoiceType string               `gorm:"column:voice_type" json:"voice_type"`
	Tone      ToneSettings         `gorm:"embedded" json:"tone"`
	Traits    WritingTraits        `gorm:"embedded" json:"writing_traits"`
	Structure StructurePreferences `gorm:"embedded" json:"structure_preferences"`

	VocabularyLevel string `gorm:"column:vocabulary_level" json:"vocabulary_level"`

	CommonPhrases datatypes.JSONSlice[string] `gorm:"column:common_phrases" json:"common_phrases"`
	BannedPhrases datatypes.JSONSlice[string] `gorm:"column:banned_phrases" json:"banned_phrases"`
	SamplePosts   datatypes.JSONSlice[string] `gorm:"column:sample_posts" json:"sample_posts"`

	// Sparse map keyed by the Override* constants. Read-only to the engine.
	ManualOverrides datatypes.JSONMap `gorm:"column:manual_overrides" json:"manual_overrides"`

	LearningIterations int       `gorm:"column:learning_iterations;not null;default:0" json:"learning_iterations"`
	LastUpdated        time.Time `gorm:"column:last_updated" json:"last_updated"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (StyleProfile) TableName() string { return "style_profile" }

// HasOverride reports whether the field key is frozen by a manual override.
func (p *StyleProfile) HasOverride(key string) bool {
	if p == nil || len(p.ManualOverrides) == 0 {
		return false
	}
	_, ok := p.ManualOverrides[key]
	return ok
}

// Clone returns a deep copy. The learning policy works on a clone and never
// mutates the loaded row.
func (p *StyleProfile) Clone() *StyleProfile {
	if p == nil {
		return nil
	}
	cp := *p
	cp.CommonPhrases = append(datatypes.JSONSlice[string]{}, p.CommonPhrases...)
	cp.BannedPhrases = append(datatypes.JSONSlice[string]{}, p.BannedPhrases...)
	cp.SamplePosts = append(datatypes.JSONSlice[string]{}, p.SamplePosts...)
	if p.ManualOverrides != nil {
		cp.ManualOverrides = make(datatypes.JSONMap, len(p.ManualOverrides))
		for k, v := range p.ManualOverrides {
			cp.ManualOverrides[k] = v
		}
	}
	return &cp
}

func ClampTone(v int) int {
	if v < ToneMin {
		return ToneMin
	}
	if v > ToneMax {
		return ToneMax
	}
	return v
}

func ClampSentenceLength(v float64) float64 {
	if v < SentenceLengthMin {
		return SentenceLengthMin
	}
	if v > SentenceLengthMax {
		return SentenceLengthMax
	}
	return v
}

func ClampEmojiFrequency(v int) int {
	if v < EmojiFrequencyMin {
		return EmojiFrequencyMin
	}
	if v > EmojiFrequencyMax {
		return EmojiFrequencyMax
	}
	return v
}
