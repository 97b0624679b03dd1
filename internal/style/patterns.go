package style

import (
	"math"
	"strings"

	types "github.com/echodraft/echodraft-backend/internal/domain"
)

type EmojiPattern struct {
	ShouldUse bool `json:"should_use"`
	Frequency int  `json:"frequency"`
}

// DetectedPatterns is the compact summary of statistically supported signals
// in one edit window.
type DetectedPatterns struct {
	EditCount int `json:"edit_count"`

	// SentenceLengthDelta is the mean per-edit delta, present only when its
	// magnitude clears the noise floor.
	SentenceLengthDelta *float64      `json:"sentence_length_delta,omitempty"`
	Emoji               *EmojiPattern `json:"emoji,omitempty"`
	PrefersCTA          bool          `json:"prefers_cta,omitempty"`

	// ToneShift is empty when no label reached the threshold.
	ToneShift string `json:"tone_shift,omitempty"`

	BannedPhrases []string `json:"banned_phrases,omitempty"`
	CommonPhrases []string `json:"common_phrases,omitempty"`
}

func (d DetectedPatterns) Empty() bool {
	return d.SentenceLengthDelta == nil &&
		d.Emoji == nil &&
		!d.PrefersCTA &&
		d.ToneShift == "" &&
		len(d.BannedPhrases) == 0 &&
		len(d.CommonPhrases) == 0
}

// Detector decides which behavioral patterns a window of edits supports.
// Pure computation: deterministic for a given window, no side effects.
type Detector struct {
	cfg Config
}

func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

func (d *Detector) DetectPatterns(edits []*types.EditMetadata) DetectedPatterns {
	out := DetectedPatterns{EditCount: len(edits)}
	if len(edits) == 0 {
		return out
	}
	d.detectSentenceLength(edits, &out)
	d.detectEmoji(edits, &out)
	d.detectCTA(edits, &out)
	d.detectTone(edits, &out)
	d.detectPhrases(edits, &out)
	return out
}

func (d *Detector) detectSentenceLength(edits []*types.EditMetadata, out *DetectedPatterns) {
	if len(edits) < d.cfg.MinEditsForPattern {
		return
	}
	var sum float64
	for _, e := range edits {
		sum += e.SentenceLengthDelta
	}
	mean := sum / float64(len(edits))
	if math.Abs(mean) > d.cfg.SentenceLengthMinMean {
		out.SentenceLengthDelta = &mean
	}
}

func (d *Detector) detectEmoji(edits []*types.EditMetadata, out *DetectedPatterns) {
	if len(edits) < d.cfg.MinEditsForPattern {
		return
	}
	added, removed := 0, 0
	for _, e := range edits {
		added += e.EmojiAdded
		removed += e.EmojiRemoved
	}
	if added > removed && added >= d.cfg.EmojiMinAdded {
		freq := int(math.Ceil(float64(added) / float64(len(edits))))
		if freq > 5 {
			freq = 5
		}
		out.Emoji = &EmojiPattern{ShouldUse: true, Frequency: freq}
	}
}

func (d *Detector) detectCTA(edits []*types.EditMetadata, out *DetectedPatterns) {
	count := 0
	for _, e := range edits {
		if editAddsCTA(e) {
			count++
		}
	}
	out.PrefersCTA = count >= d.cfg.CTAMinEdits
}

func editAddsCTA(e *types.EditMetadata) bool {
	for _, p := range e.PhrasesAdded {
		lower := strings.ToLower(p)
		for _, kw := range CTAKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

func (d *Detector) detectTone(edits []*types.EditMetadata, out *DetectedPatterns) {
	counts := map[string]int{}
	var order []string
	shifted := 0
	for _, e := range edits {
		label := strings.TrimSpace(e.ToneShift)
		if label == "" || label == ToneNoChange {
			continue
		}
		shifted++
		if _, ok := counts[label]; !ok {
			order = append(order, label)
		}
		counts[label]++
	}
	if shifted < d.cfg.MinEditsForPattern {
		return
	}
	best, bestCount := "", 0
	for _, label := range order {
		if counts[label] > bestCount {
			best = label
			bestCount = counts[label]
		}
	}
	if bestCount >= d.cfg.ToneMinCount {
		out.ToneShift = best
	}
}

// detectPhrases counts distinct edits per normalized phrase. A phrase
// removed in enough edits becomes banned; a phrase added in enough edits
// becomes common. Surface form is the first-seen spelling.
func (d *Detector) detectPhrases(edits []*types.EditMetadata, out *DetectedPatterns) {
	removedCounts := map[string]int{}
	removedDisplay := map[string]string{}
	var removedOrder []string
	addedCounts := map[string]int{}
	addedDisplay := map[string]string{}
	var addedOrder []string

	for _, e := range edits {
		for _, p := range dedupeFold(e.PhrasesRemoved) {
			key := strings.ToLower(p)
			if _, ok := removedCounts[key]; !ok {
				removedOrder = append(removedOrder, key)
				removedDisplay[key] = p
			}
			removedCounts[key]++
		}
		for _, p := range dedupeFold(e.PhrasesAdded) {
			key := strings.ToLower(p)
			if _, ok := addedCounts[key]; !ok {
				addedOrder = append(addedOrder, key)
				addedDisplay[key] = p
			}
			addedCounts[key]++
		}
	}

	for _, key := range removedOrder {
		if removedCounts[key] >= d.cfg.BannedPhraseMinEdits {
			out.BannedPhrases = append(out.BannedPhrases, removedDisplay[key])
		}
	}
	for _, key := range addedOrder {
		if addedCounts[key] >= d.cfg.CommonPhraseMinEdits {
			out.CommonPhrases = append(out.CommonPhrases, addedDisplay[key])
		}
	}
}

// dedupeFold keeps each phrase once per edit so one edit cannot vote twice.
func dedupeFold(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		key := strings.ToLower(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
