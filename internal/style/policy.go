package style

import (
	"strings"
	"time"

	"gorm.io/datatypes"

	types "github.com/echodraft/echodraft-backend/internal/domain"
	"github.com/echodraft/echodraft-backend/internal/domain/user"
	"github.com/echodraft/echodraft-backend/internal/platform/logger"
)

// Policy applies detected patterns to a style profile as bounded, weighted,
// override-respecting updates. Clone-then-modify: the input profile is never
// mutated, the returned profile is a fresh object.
type Policy struct {
	cfg Config
	log *logger.Logger
}

func NewPolicy(baseLog *logger.Logger, cfg Config) *Policy {
	return &Policy{
		cfg: cfg,
		log: baseLog.With("component", "ProfileUpdatePolicy"),
	}
}

// ApplyWeightedUpdates returns the updated clone and the list of changed
// field names. Rules run in a fixed order; each numeric/categorical rule is
// skipped when the field carries a manual override. Phrase additions are
// never gated by overrides and always deduplicate.
func (p *Policy) ApplyWeightedUpdates(
	profile *types.StyleProfile,
	patterns DetectedPatterns,
	overrides map[string]interface{},
	canMakeMajorChanges bool,
) (*types.StyleProfile, []string) {
	next := profile.Clone()
	var changed []string

	hasOverride := func(key string) bool {
		if len(overrides) == 0 {
			return false
		}
		_, ok := overrides[key]
		return ok
	}

	// 1. Sentence length: weighted nudge, clamped.
	if patterns.SentenceLengthDelta != nil && !hasOverride(user.OverrideAvgSentenceLength) {
		old := next.Traits.AvgSentenceLength
		next.Traits.AvgSentenceLength = user.ClampSentenceLength(old + *patterns.SentenceLengthDelta*p.cfg.SentenceLengthWeight)
		if next.Traits.AvgSentenceLength != old {
			changed = append(changed, "avg_sentence_length")
		}
	}

	// 2. Emoji: direct set, no blending.
	if patterns.Emoji != nil {
		if !hasOverride(user.OverrideUsesEmojis) && next.Traits.UsesEmojis != patterns.Emoji.ShouldUse {
			next.Traits.UsesEmojis = patterns.Emoji.ShouldUse
			changed = append(changed, "uses_emojis")
		}
		if !hasOverride(user.OverrideEmojiFrequency) {
			freq := user.ClampEmojiFrequency(patterns.Emoji.Frequency)
			if next.Traits.EmojiFrequency != freq {
				next.Traits.EmojiFrequency = freq
				changed = append(changed, "emoji_frequency")
			}
		}
	}

	// 3. Call to action.
	if patterns.PrefersCTA && !hasOverride(user.OverrideEndingStyle) && next.Structure.EndingStyle != "cta" {
		next.Structure.EndingStyle = "cta"
		changed = append(changed, "ending_style")
	}

	// 4. Tone: a single ±1 step, only with enough accumulated evidence.
	if canMakeMajorChanges && patterns.ToneShift != "" {
		if field, key, delta, ok := toneAdjustment(patterns.ToneShift, next); ok && !hasOverride(key) {
			old := *field
			*field = user.ClampTone(old + delta)
			if *field != old {
				changed = append(changed, "tone_"+key)
			}
		}
	}

	// 5. Phrases: always applied, never overridable, FIFO-bounded.
	if len(patterns.BannedPhrases) > 0 {
		merged, added := appendPhrases([]string(next.BannedPhrases), patterns.BannedPhrases, p.cfg.PhraseSetCap)
		next.BannedPhrases = datatypes.JSONSlice[string](merged)
		if added > 0 {
			changed = append(changed, "banned_phrases")
		}
	}
	if len(patterns.CommonPhrases) > 0 {
		merged, added := appendPhrases([]string(next.CommonPhrases), patterns.CommonPhrases, p.cfg.PhraseSetCap)
		next.CommonPhrases = datatypes.JSONSlice[string](merged)
		if added > 0 {
			changed = append(changed, "common_phrases")
		}
	}

	next.LearningIterations++
	next.LastUpdated = time.Now().UTC()

	if p.log != nil {
		p.log.Debug("Applied weighted profile updates",
			"user_id", profile.UserID,
			"iteration", next.LearningIterations,
			"changed_fields", strings.Join(changed, ","),
			"major_changes_allowed", canMakeMajorChanges,
		)
	}
	return next, changed
}

// toneAdjustment maps a tone-shift label to the profile field it moves and
// the direction. Unknown labels (including "no change") adjust nothing.
func toneAdjustment(label string, profile *types.StyleProfile) (*int, string, int, bool) {
	switch label {
	case ToneMoreCasual:
		return &profile.Tone.Formality, user.OverrideFormality, -1, true
	case ToneMoreProfessional:
		return &profile.Tone.Formality, user.OverrideFormality, +1, true
	case ToneMoreEnthusiastic:
		return &profile.Tone.Enthusiasm, user.OverrideEnthusiasm, +1, true
	case ToneMoreSubdued:
		return &profile.Tone.Enthusiasm, user.OverrideEnthusiasm, -1, true
	case ToneMoreDirect:
		return &profile.Tone.Directness, user.OverrideDirectness, +1, true
	case ToneMoreIndirect:
		return &profile.Tone.Directness, user.OverrideDirectness, -1, true
	case ToneMoreHumorous:
		return &profile.Tone.Humor, user.OverrideHumor, +1, true
	case ToneMoreSerious:
		return &profile.Tone.Humor, user.OverrideHumor, -1, true
	default:
		return nil, "", 0, false
	}
}

// appendPhrases adds new phrases to the set, skipping case-insensitive
// duplicates, then enforces the bound by dropping from the front (FIFO).
func appendPhrases(existing []string, add []string, limit int) ([]string, int) {
	out := append([]string{}, existing...)
	added := 0
	for _, phrase := range add {
		dup := false
		for _, have := range out {
			if strings.EqualFold(have, phrase) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		out = append(out, phrase)
		added++
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, added
}
