package style

import (
	"strings"

	"github.com/echodraft/echodraft-backend/internal/domain/content"
)

// Aggregator folds the per-tweet deltas of one content item into a single
// delta. Each content format picks its own strategy.
type Aggregator interface {
	Aggregate(deltas []StyleDelta) StyleDelta
}

func AggregatorFor(f content.Format) Aggregator {
	if f.IsThread() {
		return threadAggregator{}
	}
	return singleAggregator{}
}

// singleAggregator: a single post has exactly one delta.
type singleAggregator struct{}

func (singleAggregator) Aggregate(deltas []StyleDelta) StyleDelta {
	if len(deltas) == 0 {
		return StyleDelta{ToneShift: ToneNoChange}
	}
	return deltas[0]
}

// threadAggregator: sentence-length delta is averaged across tweets, emoji
// and phrase signals are summed, tone shift is a majority vote.
type threadAggregator struct{}

func (threadAggregator) Aggregate(deltas []StyleDelta) StyleDelta {
	if len(deltas) == 0 {
		return StyleDelta{ToneShift: ToneNoChange}
	}

	var out StyleDelta
	var sentenceSum float64
	for _, d := range deltas {
		out.OriginalLength += d.OriginalLength
		out.EditedLength += d.EditedLength
		sentenceSum += d.SentenceLengthDelta
		out.Emoji.Added += d.Emoji.Added
		out.Emoji.Removed += d.Emoji.Removed
		out.Emoji.NetChange += d.Emoji.NetChange
		out.Structure.ParagraphsAdded += d.Structure.ParagraphsAdded
		out.Structure.ParagraphsRemoved += d.Structure.ParagraphsRemoved
		out.Structure.BulletsAdded += d.Structure.BulletsAdded
		out.Structure.FormattingChanges = appendUnique(out.Structure.FormattingChanges, d.Structure.FormattingChanges)
		out.Vocabulary.WordsSubstituted = appendUnique(out.Vocabulary.WordsSubstituted, d.Vocabulary.WordsSubstituted)
		out.PhrasesAdded = appendUnique(out.PhrasesAdded, d.PhrasesAdded)
		out.PhrasesRemoved = appendUnique(out.PhrasesRemoved, d.PhrasesRemoved)
	}
	out.SentenceLengthDelta = sentenceSum / float64(len(deltas))
	out.ToneShift = majorityTone(deltas)
	out.Vocabulary.ComplexityShift = majorityComplexity(deltas)
	return out
}

// majorityTone picks the most frequent non-"no change" label; ties go to the
// first-seen label. All-"no change" stays "no change".
func majorityTone(deltas []StyleDelta) string {
	counts := map[string]int{}
	var order []string
	for _, d := range deltas {
		label := d.ToneShift
		if label == "" || label == ToneNoChange {
			continue
		}
		if _, ok := counts[label]; !ok {
			order = append(order, label)
		}
		counts[label]++
	}
	best := ToneNoChange
	bestCount := 0
	for _, label := range order {
		if counts[label] > bestCount {
			best = label
			bestCount = counts[label]
		}
	}
	return best
}

func majorityComplexity(deltas []StyleDelta) string {
	counts := map[string]int{}
	var order []string
	for _, d := range deltas {
		s := d.Vocabulary.ComplexityShift
		if s == "" || s == "no change" {
			continue
		}
		if _, ok := counts[s]; !ok {
			order = append(order, s)
		}
		counts[s]++
	}
	best := "no change"
	bestCount := 0
	for _, s := range order {
		if counts[s] > bestCount {
			best = s
			bestCount = counts[s]
		}
	}
	return best
}

func appendUnique(dst []string, add []string) []string {
	for _, s := range add {
		dup := false
		for _, existing := range dst {
			if strings.EqualFold(existing, s) {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, s)
		}
	}
	return dst
}
