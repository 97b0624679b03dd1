package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/echodraft/echodraft-backend/internal/data/repos"
	"github.com/echodraft/echodraft-backend/internal/data/repos/testutil"
	types "github.com/echodraft/echodraft-backend/internal/domain"
	"github.com/echodraft/echodraft-backend/internal/platform/apperr"
	"github.com/echodraft/echodraft-backend/internal/platform/dbctx"
	"github.com/echodraft/echodraft-backend/internal/style"
)

func newEditService(t *testing.T, db *gorm.DB) EditService {
	t.Helper()
	log := testutil.Logger(t)
	return NewEditService(
		db,
		log,
		style.NewExtractor(log, nil),
		repos.NewContentRepo(db, log),
		repos.NewEditMetadataRepo(db, log),
		50,
	)
}

func TestRecordEditSinglePost(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	svc := newEditService(t, db)

	userID := uuid.New()
	item := testutil.SeedContentItem(t, ctx, tx, userID,
		"We will leverage the new framework to facilitate shipping.", "")

	edited := "We're gonna use the new framework to ship faster 🚀🚀🚀"
	row, err := svc.RecordEdit(dbc, userID, item.ID, edited, nil)
	if err != nil {
		t.Fatalf("RecordEdit: %v", err)
	}
	if row.OwnerUserID != userID || row.ContentID != item.ID {
		t.Fatalf("row ownership = %s/%s", row.OwnerUserID, row.ContentID)
	}
	if row.EmojiAdded != 3 {
		t.Fatalf("EmojiAdded = %d, want 3", row.EmojiAdded)
	}
	if row.OriginalText != item.GeneratedText {
		t.Fatal("original text not captured")
	}

	// The edit landed on the content row along with the delta summary.
	stored, err := repos.NewContentRepo(db, testutil.Logger(t)).GetByID(dbc, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.EditedText != edited {
		t.Fatalf("EditedText = %q", stored.EditedText)
	}
	if len(stored.EditMetadata) == 0 {
		t.Fatal("edit metadata not written back to the content row")
	}

	// And the metadata row is queryable through the recent window.
	window, err := svc.GetRecentEdits(dbc, userID, 10)
	if err != nil {
		t.Fatalf("GetRecentEdits: %v", err)
	}
	if len(window) != 1 || window[0].ID != row.ID {
		t.Fatalf("window = %v", window)
	}
}

func TestRecordEditThread(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	svc := newEditService(t, db)

	userID := uuid.New()
	item := testutil.SeedContentItem(t, ctx, tx, userID, "thread root", "")
	if err := tx.Model(item).Update("content_format", types.FormatFullThread).Error; err != nil {
		t.Fatalf("set format: %v", err)
	}

	tweets := []types.TweetEdit{
		{Index: 0, OriginalText: "First tweet about the release.", EditedText: "First tweet about the release! 🎉"},
		{Index: 1, OriginalText: "Second tweet, unchanged.", EditedText: "Second tweet, unchanged."},
		{Index: 2, OriginalText: "Third tweet with details.", EditedText: "Third tweet with details. 🎉"},
	}
	row, err := svc.RecordEdit(dbc, userID, item.ID, "", tweets)
	if err != nil {
		t.Fatalf("RecordEdit: %v", err)
	}
	// Two tweets were diffable; emoji additions are summed across them.
	if row.EmojiAdded != 2 {
		t.Fatalf("EmojiAdded = %d, want 2", row.EmojiAdded)
	}
}

func TestRecordEditThreadNoDiffableTweets(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	svc := newEditService(t, db)

	userID := uuid.New()
	item := testutil.SeedContentItem(t, ctx, tx, userID, "thread root", "")
	if err := tx.Model(item).Update("content_format", types.FormatMiniThread).Error; err != nil {
		t.Fatalf("set format: %v", err)
	}

	tweets := []types.TweetEdit{
		{Index: 0, OriginalText: "Same text.", EditedText: "Same text."},
		{Index: 1, OriginalText: "Blank edit.", EditedText: ""},
	}
	_, err := svc.RecordEdit(dbc, userID, item.ID, "", tweets)
	var dex *apperr.DeltaExtractionError
	if !errors.As(err, &dex) {
		t.Fatalf("err = %v, want DeltaExtractionError", err)
	}
}

func TestRecordEditRejectsForeignContent(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	svc := newEditService(t, db)

	owner := uuid.New()
	item := testutil.SeedContentItem(t, ctx, tx, owner, "the generated text", "")

	_, err := svc.RecordEdit(dbc, uuid.New(), item.ID, "someone else's edit", nil)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want not-found for foreign content", err)
	}

	_, err = svc.RecordEdit(dbc, owner, uuid.New(), "edit of a missing item", nil)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want not-found for missing content", err)
	}
}

func TestRecordEditEmptyText(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	svc := newEditService(t, db)

	userID := uuid.New()
	item := testutil.SeedContentItem(t, ctx, tx, userID, "the generated text", "")

	_, err := svc.RecordEdit(dbc, userID, item.ID, "   ", nil)
	var dex *apperr.DeltaExtractionError
	if !errors.As(err, &dex) {
		t.Fatalf("err = %v, want DeltaExtractionError", err)
	}

	// Nothing was persisted for the failed extraction.
	count, err := repos.NewEditMetadataRepo(db, testutil.Logger(t)).CountByUser(dbc, userID)
	if err != nil {
		t.Fatalf("CountByUser: %v", err)
	}
	if count != 0 {
		t.Fatalf("edit rows = %d, want 0", count)
	}
}
