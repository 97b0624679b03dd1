package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/echodraft/echodraft-backend/internal/clients/gate"
	"github.com/echodraft/echodraft-backend/internal/data/repos"
	"github.com/echodraft/echodraft-backend/internal/data/repos/testutil"
	types "github.com/echodraft/echodraft-backend/internal/domain"
	"github.com/echodraft/echodraft-backend/internal/platform/dbctx"
	"github.com/echodraft/echodraft-backend/internal/style"
)

func newLearningService(t *testing.T, db *gorm.DB) LearningService {
	t.Helper()
	log := testutil.Logger(t)
	return NewLearningService(
		db,
		log,
		style.DefaultConfig(),
		repos.NewStyleProfileRepo(db, log),
		repos.NewEditMetadataRepo(db, log),
		repos.NewProfileVersionRepo(db, log),
		gate.NewLearningGate(gate.NewMemoryGate(), 5*time.Minute, 2*time.Minute),
		nil,
	)
}

func seedEmojiEdit(t *testing.T, ctx context.Context, tx *gorm.DB, userID uuid.UUID, added int, at time.Time) {
	t.Helper()
	em := &types.EditMetadata{
		ID:            uuid.New(),
		OwnerUserID:   userID,
		ContentID:     uuid.New(),
		EmojiAdded:    added,
		EmojiNet:      added,
		ToneShift:     "no change",
		EditTimestamp: at,
	}
	if err := tx.WithContext(ctx).Create(em).Error; err != nil {
		t.Fatalf("seed edit: %v", err)
	}
}

func TestUpdateProfileFromEditsNoProfile(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	svc := newLearningService(t, db)

	userID := uuid.New()
	testutil.SeedEditMetadata(t, ctx, tx, userID, uuid.New(), time.Now())

	// No style profile yet: the cycle is a clean no-op, not an error. The
	// edit history stays for a profile created later.
	res, err := svc.UpdateProfileFromEdits(dbc, userID, "sample")
	if err != nil {
		t.Fatalf("UpdateProfileFromEdits: %v", err)
	}
	if res.Outcome != LearnOutcomeNoProfile {
		t.Fatalf("Outcome = %q, want %q", res.Outcome, LearnOutcomeNoProfile)
	}

	count, err := repos.NewEditMetadataRepo(db, testutil.Logger(t)).CountByUser(dbc, userID)
	if err != nil {
		t.Fatalf("CountByUser: %v", err)
	}
	if count != 1 {
		t.Fatalf("edit rows = %d, want 1 (history preserved)", count)
	}
}

func TestUpdateProfileFromEditsNoPatterns(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	svc := newLearningService(t, db)

	userID := uuid.New()
	testutil.SeedStyleProfile(t, ctx, tx, userID)
	testutil.SeedEditMetadata(t, ctx, tx, userID, uuid.New(), time.Now())

	res, err := svc.UpdateProfileFromEdits(dbc, userID, "")
	if err != nil {
		t.Fatalf("UpdateProfileFromEdits: %v", err)
	}
	if res.Outcome != LearnOutcomeNoPatterns {
		t.Fatalf("Outcome = %q, want %q", res.Outcome, LearnOutcomeNoPatterns)
	}
	if res.EditCount != 1 {
		t.Fatalf("EditCount = %d, want 1", res.EditCount)
	}

	// The unproductive window is still marked processed.
	window, err := repos.NewEditMetadataRepo(db, testutil.Logger(t)).ListRecentByUser(dbc, userID, 10)
	if err != nil {
		t.Fatalf("ListRecentByUser: %v", err)
	}
	if len(window) != 1 || !window[0].LearningProcessed {
		t.Fatal("edits not marked processed")
	}

	// No snapshot is taken when nothing changed.
	versions, err := repos.NewProfileVersionRepo(db, testutil.Logger(t)).ListByUser(dbc, userID, 10)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(versions) != 0 {
		t.Fatalf("versions = %d, want 0", len(versions))
	}
}

func TestUpdateProfileNoPatternsReleasesRateWindow(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	svc := newLearningService(t, db)

	userID := uuid.New()
	testutil.SeedStyleProfile(t, ctx, tx, userID)
	testutil.SeedEditMetadata(t, ctx, tx, userID, uuid.New(), time.Now().Add(-time.Minute))

	res, err := svc.UpdateProfileFromEdits(dbc, userID, "")
	if err != nil {
		t.Fatalf("UpdateProfileFromEdits: %v", err)
	}
	if res.Outcome != LearnOutcomeNoPatterns {
		t.Fatalf("Outcome = %q, want %q", res.Outcome, LearnOutcomeNoPatterns)
	}

	// The unproductive cycle hands the rate window back, so edits arriving
	// right after still learn instead of waiting out the cooldown.
	for i := 0; i < 3; i++ {
		seedEmojiEdit(t, ctx, tx, userID, 2, time.Now().Add(-time.Duration(i)*time.Second))
	}
	res, err = svc.UpdateProfileFromEdits(dbc, userID, "")
	if err != nil {
		t.Fatalf("UpdateProfileFromEdits: %v", err)
	}
	if res.Outcome != LearnOutcomeUpdated {
		t.Fatalf("Outcome = %q, want %q after a released window", res.Outcome, LearnOutcomeUpdated)
	}
}

func TestUpdateProfileFromEditsApplied(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	log := testutil.Logger(t)
	svc := newLearningService(t, db)

	userID := uuid.New()
	testutil.SeedStyleProfile(t, ctx, tx, userID)
	now := time.Now()
	for i := 0; i < 3; i++ {
		seedEmojiEdit(t, ctx, tx, userID, 2, now.Add(-time.Duration(i)*time.Minute))
	}

	res, err := svc.UpdateProfileFromEdits(dbc, userID, "Shipped it 🚀")
	if err != nil {
		t.Fatalf("UpdateProfileFromEdits: %v", err)
	}
	if res.Outcome != LearnOutcomeUpdated {
		t.Fatalf("Outcome = %q, want %q", res.Outcome, LearnOutcomeUpdated)
	}
	if res.Iteration != 1 {
		t.Fatalf("Iteration = %d, want 1", res.Iteration)
	}

	profile, err := repos.NewStyleProfileRepo(db, log).GetByUserID(dbc, userID)
	if err != nil {
		t.Fatalf("GetByUserID: %v", err)
	}
	if !profile.Traits.UsesEmojis {
		t.Fatal("emoji pattern not applied")
	}
	// 6 emojis over 3 edits: frequency ceil(6/3) = 2.
	if profile.Traits.EmojiFrequency != 2 {
		t.Fatalf("EmojiFrequency = %d, want 2", profile.Traits.EmojiFrequency)
	}
	if profile.LearningIterations != 1 {
		t.Fatalf("LearningIterations = %d, want 1", profile.LearningIterations)
	}
	if len(profile.SamplePosts) != 1 || profile.SamplePosts[0] != "Shipped it 🚀" {
		t.Fatalf("SamplePosts = %v", profile.SamplePosts)
	}

	// The pre-update profile was snapshotted.
	versions, err := repos.NewProfileVersionRepo(db, log).ListByUser(dbc, userID, 10)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(versions) != 1 || versions[0].Iteration != 0 {
		t.Fatalf("versions = %+v, want one snapshot of iteration 0", versions)
	}

	// A second cycle inside the rate-limit window is refused.
	res, err = svc.UpdateProfileFromEdits(dbc, userID, "")
	if err != nil {
		t.Fatalf("UpdateProfileFromEdits: %v", err)
	}
	if res.Outcome != LearnOutcomeRateLimited {
		t.Fatalf("Outcome = %q, want %q", res.Outcome, LearnOutcomeRateLimited)
	}
}

func TestUpdateProfileRespectsOverridesEndToEnd(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	log := testutil.Logger(t)
	svc := newLearningService(t, db)

	userID := uuid.New()
	testutil.SeedStyleProfile(t, ctx, tx, userID)
	if err := repos.NewStyleProfileRepo(db, log).SetManualOverrides(dbc, userID, map[string]interface{}{
		"uses_emojis":     false,
		"emoji_frequency": 0,
	}); err != nil {
		t.Fatalf("SetManualOverrides: %v", err)
	}

	now := time.Now()
	for i := 0; i < 3; i++ {
		seedEmojiEdit(t, ctx, tx, userID, 2, now.Add(-time.Duration(i)*time.Minute))
	}

	res, err := svc.UpdateProfileFromEdits(dbc, userID, "")
	if err != nil {
		t.Fatalf("UpdateProfileFromEdits: %v", err)
	}
	if res.Outcome != LearnOutcomeUpdated {
		t.Fatalf("Outcome = %q, want %q", res.Outcome, LearnOutcomeUpdated)
	}
	if len(res.ChangedFields) != 0 {
		t.Fatalf("ChangedFields = %v, want none under overrides", res.ChangedFields)
	}

	stored, err := repos.NewStyleProfileRepo(db, log).GetByUserID(dbc, userID)
	if err != nil {
		t.Fatalf("GetByUserID: %v", err)
	}
	if stored.Traits.UsesEmojis || stored.Traits.EmojiFrequency != 0 {
		t.Fatal("overridden emoji fields moved")
	}
	// The iteration still advances: the cycle ran.
	if stored.LearningIterations != 1 {
		t.Fatalf("LearningIterations = %d, want 1", stored.LearningIterations)
	}
}

func TestGetEvolution(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	svc := newLearningService(t, db)

	userID := uuid.New()
	profile := testutil.SeedStyleProfile(t, ctx, tx, userID)
	if err := tx.Model(profile).Update("learning_iterations", 3).Error; err != nil {
		t.Fatalf("update iterations: %v", err)
	}
	for i := 0; i < 5; i++ {
		testutil.SeedEditMetadata(t, ctx, tx, userID, uuid.New(), time.Now())
	}

	ev, err := svc.GetEvolution(dbc, userID)
	if err != nil {
		t.Fatalf("GetEvolution: %v", err)
	}
	if ev.LearningIterations != 3 || ev.EditCount != 5 {
		t.Fatalf("evolution = %+v", ev)
	}
	if ev.Score != 40 {
		t.Fatalf("Score = %d, want 40", ev.Score)
	}

	// Score is capped.
	if err := tx.Model(profile).Update("learning_iterations", 50).Error; err != nil {
		t.Fatalf("update iterations: %v", err)
	}
	ev, err = svc.GetEvolution(dbc, userID)
	if err != nil {
		t.Fatalf("GetEvolution: %v", err)
	}
	if ev.Score != 100 {
		t.Fatalf("Score = %d, want 100", ev.Score)
	}

	// A user with no profile still gets a summary.
	ev, err = svc.GetEvolution(dbc, uuid.New())
	if err != nil {
		t.Fatalf("GetEvolution: %v", err)
	}
	if ev.LearningIterations != 0 || ev.EditCount != 0 || ev.Score != 0 {
		t.Fatalf("empty evolution = %+v", ev)
	}
}
