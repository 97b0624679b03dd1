package style

import (
	"testing"

	"gorm.io/datatypes"

	types "github.com/echodraft/echodraft-backend/internal/domain"
)

func editWithEmoji(added, removed int) *types.EditMetadata {
	return &types.EditMetadata{EmojiAdded: added, EmojiRemoved: removed, ToneShift: ToneNoChange}
}

func editWithPhrasesRemoved(phrases ...string) *types.EditMetadata {
	return &types.EditMetadata{
		PhrasesRemoved: datatypes.JSONSlice[string](phrases),
		ToneShift:      ToneNoChange,
	}
}

func TestDetectPatternsEmptyWindow(t *testing.T) {
	d := NewDetector(DefaultConfig())
	got := d.DetectPatterns(nil)
	if got.EditCount != 0 || !got.Empty() {
		t.Fatalf("expected empty patterns for empty window, got %+v", got)
	}
}

func TestDetectEmojiGates(t *testing.T) {
	d := NewDetector(DefaultConfig())

	// Two edits: below the minimum window, no pattern even with emojis.
	got := d.DetectPatterns([]*types.EditMetadata{editWithEmoji(3, 0), editWithEmoji(3, 0)})
	if got.Emoji != nil {
		t.Fatalf("emoji pattern fired below the edit minimum: %+v", got.Emoji)
	}

	// Three edits but only 2 emojis added total: below EmojiMinAdded.
	got = d.DetectPatterns([]*types.EditMetadata{editWithEmoji(1, 0), editWithEmoji(1, 0), editWithEmoji(0, 0)})
	if got.Emoji != nil {
		t.Fatalf("emoji pattern fired with only 2 emojis added: %+v", got.Emoji)
	}

	// Removed >= added: no pattern.
	got = d.DetectPatterns([]*types.EditMetadata{editWithEmoji(2, 2), editWithEmoji(1, 1), editWithEmoji(0, 0)})
	if got.Emoji != nil {
		t.Fatalf("emoji pattern fired with net-zero emoji: %+v", got.Emoji)
	}

	// 7 added over 3 edits: fires with frequency ceil(7/3) = 3.
	got = d.DetectPatterns([]*types.EditMetadata{editWithEmoji(3, 0), editWithEmoji(2, 0), editWithEmoji(2, 0)})
	if got.Emoji == nil {
		t.Fatal("expected emoji pattern to fire")
	}
	if !got.Emoji.ShouldUse || got.Emoji.Frequency != 3 {
		t.Fatalf("emoji pattern = %+v, want should_use=true frequency=3", got.Emoji)
	}

	// Frequency is capped at 5.
	got = d.DetectPatterns([]*types.EditMetadata{editWithEmoji(10, 0), editWithEmoji(10, 0), editWithEmoji(10, 0)})
	if got.Emoji == nil || got.Emoji.Frequency != 5 {
		t.Fatalf("emoji frequency not capped: %+v", got.Emoji)
	}
}

func TestDetectBannedPhraseAfterTwoEdits(t *testing.T) {
	d := NewDetector(DefaultConfig())

	// One edit removing "Leverage": not enough.
	got := d.DetectPatterns([]*types.EditMetadata{
		editWithPhrasesRemoved("Leverage"),
		editWithPhrasesRemoved("synergy"),
		{ToneShift: ToneNoChange},
	})
	if len(got.BannedPhrases) != 0 {
		t.Fatalf("banned after one removal: %v", got.BannedPhrases)
	}

	// A second distinct edit removing it (different case) crosses the bar.
	got = d.DetectPatterns([]*types.EditMetadata{
		editWithPhrasesRemoved("Leverage"),
		editWithPhrasesRemoved("leverage"),
		{ToneShift: ToneNoChange},
	})
	if len(got.BannedPhrases) != 1 || got.BannedPhrases[0] != "Leverage" {
		t.Fatalf("BannedPhrases = %v, want [Leverage] with first-seen spelling", got.BannedPhrases)
	}
}

func TestDetectPhrasesOneVotePerEdit(t *testing.T) {
	d := NewDetector(DefaultConfig())

	// A single edit listing the same phrase twice counts once.
	got := d.DetectPatterns([]*types.EditMetadata{
		editWithPhrasesRemoved("leverage", "Leverage"),
		{ToneShift: ToneNoChange},
		{ToneShift: ToneNoChange},
	})
	if len(got.BannedPhrases) != 0 {
		t.Fatalf("one edit voted twice: %v", got.BannedPhrases)
	}
}

func TestDetectCommonPhrases(t *testing.T) {
	d := NewDetector(DefaultConfig())

	added := func(p string) *types.EditMetadata {
		return &types.EditMetadata{
			PhrasesAdded: datatypes.JSONSlice[string]{p},
			ToneShift:    ToneNoChange,
		}
	}

	got := d.DetectPatterns([]*types.EditMetadata{added("honestly"), added("honestly"), added("Honestly")})
	if len(got.CommonPhrases) != 1 || got.CommonPhrases[0] != "honestly" {
		t.Fatalf("CommonPhrases = %v, want [honestly]", got.CommonPhrases)
	}

	// Two edits only: below the threshold of three.
	got = d.DetectPatterns([]*types.EditMetadata{added("honestly"), added("honestly"), {ToneShift: ToneNoChange}})
	if len(got.CommonPhrases) != 0 {
		t.Fatalf("common phrase fired at two edits: %v", got.CommonPhrases)
	}
}

func TestDetectCTA(t *testing.T) {
	d := NewDetector(DefaultConfig())

	cta := func() *types.EditMetadata {
		return &types.EditMetadata{
			PhrasesAdded: datatypes.JSONSlice[string]{"Check out the full writeup"},
			ToneShift:    ToneNoChange,
		}
	}

	got := d.DetectPatterns([]*types.EditMetadata{cta(), cta(), {ToneShift: ToneNoChange}})
	if got.PrefersCTA {
		t.Fatal("CTA preference fired at two edits")
	}

	got = d.DetectPatterns([]*types.EditMetadata{cta(), cta(), cta()})
	if !got.PrefersCTA {
		t.Fatal("expected CTA preference at three edits")
	}
}

func TestDetectTone(t *testing.T) {
	d := NewDetector(DefaultConfig())

	tone := func(label string) *types.EditMetadata {
		return &types.EditMetadata{ToneShift: label}
	}

	// Two real shifts plus a "no change": below the threshold.
	got := d.DetectPatterns([]*types.EditMetadata{
		tone(ToneMoreCasual), tone(ToneMoreCasual), tone(ToneNoChange),
	})
	if got.ToneShift != "" {
		t.Fatalf("tone fired with two shifted edits: %q", got.ToneShift)
	}

	// Three matching shifts: fires with the majority label.
	got = d.DetectPatterns([]*types.EditMetadata{
		tone(ToneMoreCasual), tone(ToneMoreCasual), tone(ToneMoreCasual), tone(ToneMoreProfessional),
	})
	if got.ToneShift != ToneMoreCasual {
		t.Fatalf("ToneShift = %q, want %q", got.ToneShift, ToneMoreCasual)
	}

	// No single label reaching three: nothing fires.
	got = d.DetectPatterns([]*types.EditMetadata{
		tone(ToneMoreCasual), tone(ToneMoreCasual),
		tone(ToneMoreProfessional), tone(ToneMoreProfessional),
	})
	if got.ToneShift != "" {
		t.Fatalf("ToneShift = %q, want empty with a 2-2 split", got.ToneShift)
	}
}

func TestDetectSentenceLength(t *testing.T) {
	d := NewDetector(DefaultConfig())

	sl := func(delta float64) *types.EditMetadata {
		return &types.EditMetadata{SentenceLengthDelta: delta, ToneShift: ToneNoChange}
	}

	// Mean of -3.0 clears the noise floor.
	got := d.DetectPatterns([]*types.EditMetadata{sl(-4), sl(-3), sl(-2)})
	if got.SentenceLengthDelta == nil {
		t.Fatal("expected sentence-length pattern")
	}
	if *got.SentenceLengthDelta != -3.0 {
		t.Fatalf("SentenceLengthDelta = %v, want -3.0", *got.SentenceLengthDelta)
	}

	// Mean magnitude under 1 word is noise.
	got = d.DetectPatterns([]*types.EditMetadata{sl(0.5), sl(-0.5), sl(0.9)})
	if got.SentenceLengthDelta != nil {
		t.Fatalf("noise-level delta reported: %v", *got.SentenceLengthDelta)
	}
}
