package style

import (
	"context"
	"strings"
)

// HeuristicToneClassifier labels the tone shift between two texts from
// surface markers alone. It scores each text on four dimensions and reports
// the dimension that moved the most, or "no change" when nothing moved.
// Deterministic: same inputs always give the same label.
type HeuristicToneClassifier struct{}

var casualMarkers = []string{
	"gonna", "wanna", "gotta", "hey", "lol", "btw", "tbh", "kinda",
	"don't", "can't", "won't", "it's", "i'm", "you're", "we're", "that's",
}

var professionalMarkers = []string{
	"furthermore", "moreover", "therefore", "regarding", "additionally",
	"consequently", "utilize", "facilitate", "implement", "accordingly",
}

var humorMarkers = []string{
	"haha", "lol", "lmao", "joke", "funny", "hilarious", "😂", "🤣",
}

var hedgeMarkers = []string{
	"maybe", "perhaps", "might", "possibly", "i think", "sort of",
	"kind of", "probably", "somewhat",
}

var enthusiasmMarkers = []string{
	"amazing", "awesome", "excited", "love", "incredible", "fantastic",
	"thrilled", "can't wait",
}

type toneScores struct {
	formality  int
	directness int
	humor      int
	enthusiasm int
}

func scoreTone(text string) toneScores {
	lower := strings.ToLower(text)
	var s toneScores
	s.formality += countOccurrences(lower, professionalMarkers)
	s.formality -= countOccurrences(lower, casualMarkers)
	s.formality -= countEmojis(text)
	s.directness -= countOccurrences(lower, hedgeMarkers)
	s.humor += countOccurrences(lower, humorMarkers)
	s.enthusiasm += countOccurrences(lower, enthusiasmMarkers)
	s.enthusiasm += strings.Count(text, "!")
	return s
}

func (HeuristicToneClassifier) ClassifyShift(_ context.Context, original, edited string) (string, error) {
	o := scoreTone(original)
	e := scoreTone(edited)

	type shift struct {
		magnitude int
		label     string
	}
	pick := func(delta int, pos, neg string) shift {
		if delta > 0 {
			return shift{delta, pos}
		}
		return shift{-delta, neg}
	}

	// Fixed evaluation order breaks ties deterministically.
	candidates := []shift{
		pick(e.formality-o.formality, ToneMoreProfessional, ToneMoreCasual),
		pick(e.directness-o.directness, ToneMoreDirect, ToneMoreIndirect),
		pick(e.humor-o.humor, ToneMoreHumorous, ToneMoreSerious),
		pick(e.enthusiasm-o.enthusiasm, ToneMoreEnthusiastic, ToneMoreSubdued),
	}

	best := shift{0, ToneNoChange}
	for _, c := range candidates {
		if c.magnitude > best.magnitude {
			best = c
		}
	}
	if best.magnitude < 2 {
		return ToneNoChange, nil
	}
	return best.label, nil
}
