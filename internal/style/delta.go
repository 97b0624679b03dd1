package style

import (
	"context"
	"strings"

	"github.com/echodraft/echodraft-backend/internal/platform/apperr"
	"github.com/echodraft/echodraft-backend/internal/platform/logger"
)

// Tone-shift labels form a closed vocabulary. Whatever classifier is plugged
// in, the output is always one of these.
const (
	ToneNoChange         = "no change"
	ToneMoreCasual       = "more casual"
	ToneMoreProfessional = "more professional"
	ToneMoreDirect       = "more direct"
	ToneMoreIndirect     = "more indirect"
	ToneMoreHumorous     = "more humorous"
	ToneMoreSerious      = "more serious"
	ToneMoreEnthusiastic = "more enthusiastic"
	ToneMoreSubdued      = "more subdued"
)

type EmojiChanges struct {
	Added     int `json:"added"`
	Removed   int `json:"removed"`
	NetChange int `json:"net_change"`
}

type StructureChanges struct {
	ParagraphsAdded   int      `json:"paragraphs_added"`
	ParagraphsRemoved int      `json:"paragraphs_removed"`
	BulletsAdded      int      `json:"bullets_added"`
	FormattingChanges []string `json:"formatting_changes,omitempty"`
}

type VocabularyChanges struct {
	WordsSubstituted []string `json:"words_substituted,omitempty"`
	ComplexityShift  string   `json:"complexity_shift"`
}

// StyleDelta is the structured difference between a generated text and the
// user's edit of it.
type StyleDelta struct {
	OriginalLength      int               `json:"original_length"`
	EditedLength        int               `json:"edited_length"`
	SentenceLengthDelta float64           `json:"sentence_length_delta"`
	Emoji               EmojiChanges      `json:"emoji_changes"`
	Structure           StructureChanges  `json:"structure_changes"`
	ToneShift           string            `json:"tone_shift"`
	Vocabulary          VocabularyChanges `json:"vocabulary_changes"`
	PhrasesAdded        []string          `json:"phrases_added,omitempty"`
	PhrasesRemoved      []string          `json:"phrases_removed,omitempty"`
}

// ToneClassifier labels the tone shift between two texts. The production
// deployment may back this with an external model call; the default is the
// heuristic classifier below. Implementations must return a label from the
// closed vocabulary.
type ToneClassifier interface {
	ClassifyShift(ctx context.Context, original, edited string) (string, error)
}

type Extractor struct {
	classifier ToneClassifier
	log        *logger.Logger
}

func NewExtractor(baseLog *logger.Logger, classifier ToneClassifier) *Extractor {
	if classifier == nil {
		classifier = HeuristicToneClassifier{}
	}
	return &Extractor{
		classifier: classifier,
		log:        baseLog.With("component", "StyleDeltaExtractor"),
	}
}

// ExtractDeltas computes the full delta between original and edited. It does
// not mutate its inputs and it is all-or-nothing: on any failure no partial
// delta is returned.
func (e *Extractor) ExtractDeltas(ctx context.Context, original, edited string) (*StyleDelta, error) {
	if strings.TrimSpace(original) == "" {
		return nil, &apperr.DeltaExtractionError{Reason: "empty original text"}
	}
	if strings.TrimSpace(edited) == "" {
		return nil, &apperr.DeltaExtractionError{Reason: "empty edited text"}
	}

	tone, err := e.classifier.ClassifyShift(ctx, original, edited)
	if err != nil {
		return nil, err
	}
	if tone == "" {
		tone = ToneNoChange
	}

	origPhrases := notablePhrases(original)
	editPhrases := notablePhrases(edited)

	origParas := len(paragraphs(original))
	editParas := len(paragraphs(edited))

	d := &StyleDelta{
		OriginalLength:      len(original),
		EditedLength:        len(edited),
		SentenceLengthDelta: meanWordsPerSentence(edited) - meanWordsPerSentence(original),
		ToneShift:           tone,
		PhrasesAdded:        phraseDiff(editPhrases, origPhrases),
		PhrasesRemoved:      phraseDiff(origPhrases, editPhrases),
	}

	origEmojis := countEmojis(original)
	editEmojis := countEmojis(edited)
	if editEmojis > origEmojis {
		d.Emoji.Added = editEmojis - origEmojis
	} else {
		d.Emoji.Removed = origEmojis - editEmojis
	}
	d.Emoji.NetChange = editEmojis - origEmojis

	if editParas > origParas {
		d.Structure.ParagraphsAdded = editParas - origParas
	} else {
		d.Structure.ParagraphsRemoved = origParas - editParas
	}
	origBullets := countBulletLines(original)
	editBullets := countBulletLines(edited)
	if editBullets > origBullets {
		d.Structure.BulletsAdded = editBullets - origBullets
		d.Structure.FormattingChanges = append(d.Structure.FormattingChanges, "bullets")
	}
	if editParas > origParas {
		d.Structure.FormattingChanges = append(d.Structure.FormattingChanges, "paragraph breaks")
	}

	d.Vocabulary = diffVocabulary(original, edited)
	return d, nil
}

// diffVocabulary pairs removed words with added words positionally and
// labels the overall complexity shift from the mean word length drift.
func diffVocabulary(original, edited string) VocabularyChanges {
	origWords := words(original)
	editWords := words(edited)

	origSet := map[string]bool{}
	for _, w := range origWords {
		origSet[strings.ToLower(w)] = true
	}
	editSet := map[string]bool{}
	for _, w := range editWords {
		editSet[strings.ToLower(w)] = true
	}

	var removed, added []string
	seen := map[string]bool{}
	for _, w := range origWords {
		lw := strings.ToLower(w)
		if !editSet[lw] && !stopwords[lw] && !seen[lw] {
			removed = append(removed, w)
			seen[lw] = true
		}
	}
	seen = map[string]bool{}
	for _, w := range editWords {
		lw := strings.ToLower(w)
		if !origSet[lw] && !stopwords[lw] && !seen[lw] {
			added = append(added, w)
			seen[lw] = true
		}
	}

	var subs []string
	for i := 0; i < len(removed) && i < len(added) && i < 10; i++ {
		subs = append(subs, removed[i]+"->"+added[i])
	}

	shift := "no change"
	drift := meanWordLength(editWords) - meanWordLength(origWords)
	switch {
	case drift > 0.5:
		shift = "more complex"
	case drift < -0.5:
		shift = "simpler"
	}
	return VocabularyChanges{WordsSubstituted: subs, ComplexityShift: shift}
}
