package style

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config carries the learning thresholds. Defaults are load-bearing for the
// detection semantics; a YAML file can override individual values for a
// deployment.
type Config struct {
	// RecentEditWindow is how many recent edits feed one learning cycle.
	// Pattern detection and the major-change gate read the same window.
	RecentEditWindow int `yaml:"recent_edit_window"`

	// MinEditsForPattern gates every pattern family.
	MinEditsForPattern int `yaml:"min_edits_for_pattern"`

	// MinEditsForMajorChange gates tone-metric moves.
	MinEditsForMajorChange int `yaml:"min_edits_for_major_change"`

	// SentenceLengthWeight scales the detected mean delta before it is
	// applied to the profile.
	SentenceLengthWeight float64 `yaml:"sentence_length_weight"`

	// SentenceLengthMinMean: a mean per-edit delta below this magnitude (in
	// words) is noise and not reported.
	SentenceLengthMinMean float64 `yaml:"sentence_length_min_mean"`

	// EmojiMinAdded: total emojis added across the window before the emoji
	// pattern fires.
	EmojiMinAdded int `yaml:"emoji_min_added"`

	CTAMinEdits  int `yaml:"cta_min_edits"`
	ToneMinCount int `yaml:"tone_min_count"`

	BannedPhraseMinEdits int `yaml:"banned_phrase_min_edits"`
	CommonPhraseMinEdits int `yaml:"common_phrase_min_edits"`

	PhraseSetCap int `yaml:"phrase_set_cap"`
}

func DefaultConfig() Config {
	return Config{
		RecentEditWindow:       10,
		MinEditsForPattern:     3,
		MinEditsForMajorChange: 5,
		SentenceLengthWeight:   0.15,
		SentenceLengthMinMean:  1.0,
		EmojiMinAdded:          3,
		CTAMinEdits:            3,
		ToneMinCount:           3,
		BannedPhraseMinEdits:   2,
		CommonPhraseMinEdits:   3,
		PhraseSetCap:           20,
	}
}

// LoadConfig returns the defaults overlaid with the YAML file at path, if
// any. An empty path is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read learning config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse learning config: %w", err)
	}
	return cfg, nil
}

// CTAKeywords is the fixed call-to-action vocabulary scanned in added
// phrases.
var CTAKeywords = []string{
	"check out", "learn more", "click here", "visit",
	"try now", "get started", "sign up", "download",
}
