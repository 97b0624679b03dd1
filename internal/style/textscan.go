package style

import (
	"strings"
	"unicode"
)

// Plain-text heuristics shared by the extractor and the tone classifier.
// No NLP dependency: everything here is a deterministic character/word scan.

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "from": true, "had": true,
	"has": true, "have": true, "he": true, "her": true, "his": true, "i": true,
	"in": true, "is": true, "it": true, "its": true, "of": true, "on": true,
	"or": true, "our": true, "she": true, "so": true, "that": true, "the": true,
	"their": true, "them": true, "they": true, "this": true, "to": true,
	"was": true, "we": true, "were": true, "will": true, "with": true,
	"you": true, "your": true,
}

func splitSentences(text string) []string {
	var out []string
	var b strings.Builder
	flush := func() {
		s := strings.TrimSpace(b.String())
		if s != "" {
			out = append(out, s)
		}
		b.Reset()
	}
	for _, r := range text {
		switch r {
		case '.', '!', '?', '\n':
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return out
}

func words(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

// meanWordsPerSentence is the basis for the sentence-length trait.
func meanWordsPerSentence(text string) float64 {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return 0
	}
	total := 0
	for _, s := range sentences {
		total += len(words(s))
	}
	return float64(total) / float64(len(sentences))
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1FAFF: // pictographs, emoticons, symbols
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
		return true
	case r == 0x2764 || r == 0x2B50 || r == 0x2728:
		return true
	default:
		return false
	}
}

func countEmojis(text string) int {
	n := 0
	for _, r := range text {
		if isEmoji(r) {
			n++
		}
	}
	return n
}

func paragraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

func countBulletLines(text string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		s := strings.TrimSpace(line)
		if s == "" {
			continue
		}
		if strings.HasPrefix(s, "- ") || strings.HasPrefix(s, "* ") || strings.HasPrefix(s, "• ") {
			n++
			continue
		}
		// numbered list: "1. ..." / "2) ..."
		i := 0
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		if i > 0 && i < len(s) && (s[i] == '.' || s[i] == ')') {
			n++
		}
	}
	return n
}

// phraseSet holds notable phrases in first-seen order, keyed by their
// lowercase form but remembering the surface form as it appeared.
type phraseSet struct {
	keys    []string
	display map[string]string
}

func (ps *phraseSet) add(surface string) {
	key := strings.ToLower(surface)
	if _, ok := ps.display[key]; ok {
		return
	}
	if ps.display == nil {
		ps.display = map[string]string{}
	}
	ps.display[key] = surface
	ps.keys = append(ps.keys, key)
}

func (ps *phraseSet) has(key string) bool {
	_, ok := ps.display[key]
	return ok
}

const maxPhrasesPerText = 400

// notablePhrases collects candidate phrases: single non-stopword words of at
// least six letters, and 2..4-word n-grams containing at least one
// non-stopword. Phrase add/remove is the set difference of these between the
// two texts.
func notablePhrases(text string) *phraseSet {
	ps := &phraseSet{}
	ws := words(text)
	for _, w := range ws {
		if len(ps.keys) >= maxPhrasesPerText {
			return ps
		}
		if len(w) >= 6 && !stopwords[strings.ToLower(w)] {
			ps.add(w)
		}
	}
	for n := 2; n <= 4; n++ {
		for i := 0; i+n <= len(ws); i++ {
			if len(ps.keys) >= maxPhrasesPerText {
				return ps
			}
			gram := ws[i : i+n]
			notable := false
			for _, w := range gram {
				if !stopwords[strings.ToLower(w)] {
					notable = true
					break
				}
			}
			if !notable {
				continue
			}
			surface := strings.Join(gram, " ")
			if len(surface) >= 8 {
				ps.add(surface)
			}
		}
	}
	return ps
}

// phraseDiff returns surface forms present in a but not in b, in a's
// first-seen order.
func phraseDiff(a, b *phraseSet) []string {
	var out []string
	for _, key := range a.keys {
		if !b.has(key) {
			out = append(out, a.display[key])
		}
	}
	return out
}

func meanWordLength(ws []string) float64 {
	if len(ws) == 0 {
		return 0
	}
	total := 0
	for _, w := range ws {
		total += len(w)
	}
	return float64(total) / float64(len(ws))
}

func countOccurrences(lower string, markers []string) int {
	n := 0
	for _, m := range markers {
		n += strings.Count(lower, m)
	}
	return n
}
