package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/echodraft/echodraft-backend/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:        uuid.New(),
		Email:     email,
		Handle:    "tester",
		FirstName: "A",
		LastName:  "B",
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedStyleProfile(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID) *types.StyleProfile {
	tb.Helper()
	p := &types.StyleProfile{
		ID:     uuid.New(),
		UserID: userID,
		Tone: types.ToneSettings{
			Formality:    5,
			Enthusiasm:   5,
			Directness:   5,
			Humor:        5,
			Emotionality: 5,
		},
		Traits: types.WritingTraits{
			AvgSentenceLength: 15,
		},
		LastUpdated: time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed style profile: %v", err)
	}
	return p
}

func SeedContentItem(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerUserID uuid.UUID, generated, edited string) *types.ContentItem {
	tb.Helper()
	c := &types.ContentItem{
		ID:            uuid.New(),
		OwnerUserID:   ownerUserID,
		Format:        types.FormatSingle,
		GeneratedText: generated,
		EditedText:    edited,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed content item: %v", err)
	}
	return c
}

func SeedEditMetadata(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerUserID, contentID uuid.UUID, at time.Time) *types.EditMetadata {
	tb.Helper()
	em := &types.EditMetadata{
		ID:            uuid.New(),
		OwnerUserID:   ownerUserID,
		ContentID:     contentID,
		ToneShift:     "no change",
		EditTimestamp: at,
	}
	if err := tx.WithContext(ctx).Create(em).Error; err != nil {
		tb.Fatalf("seed edit metadata: %v", err)
	}
	return em
}

func SeedLearningJob(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerUserID, contentID uuid.UUID, status string) *types.LearningJob {
	tb.Helper()
	j := &types.LearningJob{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		ContentID:   contentID,
		JobType:     types.JobTypeStyleLearning,
		Status:      status,
		Stage:       "queued",
	}
	if err := tx.WithContext(ctx).Create(j).Error; err != nil {
		tb.Fatalf("seed learning job: %v", err)
	}
	return j
}
