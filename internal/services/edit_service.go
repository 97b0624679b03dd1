package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/echodraft/echodraft-backend/internal/data/repos"
	types "github.com/echodraft/echodraft-backend/internal/domain"
	"github.com/echodraft/echodraft-backend/internal/observability"
	"github.com/echodraft/echodraft-backend/internal/platform/apperr"
	"github.com/echodraft/echodraft-backend/internal/platform/dbctx"
	"github.com/echodraft/echodraft-backend/internal/platform/logger"
	"github.com/echodraft/echodraft-backend/internal/style"
)

// EditService records user edits: it diffs the generated text against the
// edit, persists the structured delta, and writes the summary back onto the
// content row. Threads are diffed per tweet and folded into one delta.
type EditService interface {
	RecordEdit(dbc dbctx.Context, ownerUserID, contentID uuid.UUID, editedText string, tweets []types.TweetEdit) (*types.EditMetadata, error)
	GetRecentEdits(dbc dbctx.Context, ownerUserID uuid.UUID, limit int) ([]*types.EditMetadata, error)
	PruneOldEdits(dbc dbctx.Context, ownerUserID uuid.UUID) (int64, error)
}

type editService struct {
	db        *gorm.DB
	log       *logger.Logger
	extractor *style.Extractor
	contents  repos.ContentRepo
	edits     repos.EditMetadataRepo

	// retention is how many edit rows each user keeps; older rows are pruned.
	retention int
}

func NewEditService(
	db *gorm.DB,
	baseLog *logger.Logger,
	extractor *style.Extractor,
	contents repos.ContentRepo,
	edits repos.EditMetadataRepo,
	retention int,
) EditService {
	if retention <= 0 {
		retention = 50
	}
	return &editService{
		db:        db,
		log:       baseLog.With("service", "EditService"),
		extractor: extractor,
		contents:  contents,
		edits:     edits,
		retention: retention,
	}
}

func (s *editService) RecordEdit(dbc dbctx.Context, ownerUserID, contentID uuid.UUID, editedText string, tweets []types.TweetEdit) (*types.EditMetadata, error) {
	if ownerUserID == uuid.Nil || contentID == uuid.Nil {
		return nil, apperr.ErrInvalidArgument
	}

	item, err := s.contents.GetByID(dbc, contentID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("content %s: %w", contentID, apperr.ErrNotFound)
	}
	if item.OwnerUserID != ownerUserID {
		return nil, fmt.Errorf("content %s: %w", contentID, apperr.ErrNotFound)
	}

	var delta *style.StyleDelta
	if item.Format.IsThread() && len(tweets) > 0 {
		delta, err = s.extractThread(dbc, item, tweets)
	} else {
		delta, err = s.extractor.ExtractDeltas(dbc.Ctx, item.GeneratedText, editedText)
	}
	if err != nil {
		return nil, err
	}

	var tweetsJSON datatypes.JSON
	if len(tweets) > 0 {
		if raw, mErr := json.Marshal(tweets); mErr == nil {
			tweetsJSON = datatypes.JSON(raw)
		}
	}
	if err := s.contents.UpdateEditedText(dbc, contentID, editedText, tweetsJSON); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	row := &types.EditMetadata{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		ContentID:   contentID,

		OriginalText:   item.GeneratedText,
		OriginalLength: delta.OriginalLength,
		EditedLength:   delta.EditedLength,

		SentenceLengthDelta: delta.SentenceLengthDelta,

		EmojiAdded:   delta.Emoji.Added,
		EmojiRemoved: delta.Emoji.Removed,
		EmojiNet:     delta.Emoji.NetChange,

		ParagraphsAdded:   delta.Structure.ParagraphsAdded,
		ParagraphsRemoved: delta.Structure.ParagraphsRemoved,
		BulletsAdded:      delta.Structure.BulletsAdded,
		FormattingChanges: datatypes.JSONSlice[string](delta.Structure.FormattingChanges),

		ToneShift: delta.ToneShift,

		WordsSubstituted: datatypes.JSONSlice[string](delta.Vocabulary.WordsSubstituted),
		ComplexityShift:  delta.Vocabulary.ComplexityShift,

		PhrasesAdded:   datatypes.JSONSlice[string](delta.PhrasesAdded),
		PhrasesRemoved: datatypes.JSONSlice[string](delta.PhrasesRemoved),

		EditTimestamp: now,
	}

	if _, err := s.edits.Create(dbc, []*types.EditMetadata{row}); err != nil {
		return nil, err
	}

	if raw, mErr := json.Marshal(delta); mErr == nil {
		if uErr := s.contents.UpdateEditMetadata(dbc, contentID, datatypes.JSON(raw)); uErr != nil {
			s.log.Warn("edit metadata write-back failed", "content_id", contentID, "error", uErr)
		}
	}

	if pruned, pErr := s.edits.PruneOldest(dbc, ownerUserID, s.retention); pErr != nil {
		s.log.Warn("edit retention prune failed", "user_id", ownerUserID, "error", pErr)
	} else if pruned > 0 {
		s.log.Debug("pruned old edit metadata", "user_id", ownerUserID, "pruned", pruned)
	}

	observability.EditsRecorded.Inc(string(item.Format))
	s.log.Info("Recorded edit",
		"user_id", ownerUserID,
		"content_id", contentID,
		"tone_shift", delta.ToneShift,
		"sentence_length_delta", delta.SentenceLengthDelta,
	)
	return row, nil
}

// extractThread diffs each tweet's pair and folds the deltas with the
// thread strategy. Tweets left untouched (or with blank sides) are skipped;
// a thread with no diffable tweet is an extraction error.
func (s *editService) extractThread(dbc dbctx.Context, item *types.ContentItem, tweets []types.TweetEdit) (*style.StyleDelta, error) {
	var deltas []style.StyleDelta
	for _, tw := range tweets {
		if tw.OriginalText == "" || tw.EditedText == "" {
			continue
		}
		if tw.OriginalText == tw.EditedText {
			continue
		}
		d, err := s.extractor.ExtractDeltas(dbc.Ctx, tw.OriginalText, tw.EditedText)
		if err != nil {
			return nil, err
		}
		deltas = append(deltas, *d)
	}
	if len(deltas) == 0 {
		return nil, &apperr.DeltaExtractionError{Reason: "thread has no edited tweets"}
	}
	agg := style.AggregatorFor(item.Format).Aggregate(deltas)
	return &agg, nil
}

func (s *editService) GetRecentEdits(dbc dbctx.Context, ownerUserID uuid.UUID, limit int) ([]*types.EditMetadata, error) {
	return s.edits.ListRecentByUser(dbc, ownerUserID, limit)
}

func (s *editService) PruneOldEdits(dbc dbctx.Context, ownerUserID uuid.UUID) (int64, error) {
	return s.edits.PruneOldest(dbc, ownerUserID, s.retention)
}
