package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/echodraft/echodraft-backend/internal/clients/gate"
	"github.com/echodraft/echodraft-backend/internal/data/repos"
	"github.com/echodraft/echodraft-backend/internal/data/repos/testutil"
	types "github.com/echodraft/echodraft-backend/internal/domain"
	"github.com/echodraft/echodraft-backend/internal/platform/apperr"
	"github.com/echodraft/echodraft-backend/internal/platform/dbctx"
)

func newJobService(t *testing.T, db *gorm.DB) JobService {
	t.Helper()
	log := testutil.Logger(t)
	return NewJobService(
		db,
		log,
		repos.NewLearningJobRepo(db, log),
		repos.NewDeadLetterRepo(db, log),
		nil,
		gate.NewLearningGate(gate.NewMemoryGate(), 5*time.Minute, 2*time.Minute),
	)
}

func TestEnqueueStyleLearningDebounce(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	svc := newJobService(t, db)

	userID := uuid.New()
	contentID := uuid.New()

	// First edit of the window opens the batch and enqueues.
	job, enqueued, err := svc.EnqueueStyleLearningIfNeeded(dbc, userID, contentID, "content_edit")
	if err != nil {
		t.Fatalf("EnqueueStyleLearningIfNeeded: %v", err)
	}
	if !enqueued || job == nil {
		t.Fatal("first edit did not enqueue")
	}
	if job.JobType != types.JobTypeStyleLearning || job.Status != types.JobStatusPending {
		t.Fatalf("job = type %q status %q", job.JobType, job.Status)
	}

	// Edits inside the window coalesce into the queued job.
	second, enqueued, err := svc.EnqueueStyleLearningIfNeeded(dbc, userID, uuid.New(), "content_edit")
	if err != nil {
		t.Fatalf("EnqueueStyleLearningIfNeeded: %v", err)
	}
	if enqueued || second != nil {
		t.Fatal("edit inside the batch window enqueued a second job")
	}

	// If the queued job already finished, an edit in the same window still
	// gets a new job so it is not lost.
	repo := repos.NewLearningJobRepo(db, testutil.Logger(t))
	if err := repo.UpdateFields(dbc, job.ID, map[string]interface{}{"status": types.JobStatusCompleted}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	third, enqueued, err := svc.EnqueueStyleLearningIfNeeded(dbc, userID, contentID, "content_edit")
	if err != nil {
		t.Fatalf("EnqueueStyleLearningIfNeeded: %v", err)
	}
	if !enqueued || third == nil {
		t.Fatal("edit after early completion was dropped")
	}

	// A different user has an independent window.
	otherJob, enqueued, err := svc.EnqueueStyleLearningIfNeeded(dbc, uuid.New(), contentID, "content_edit")
	if err != nil {
		t.Fatalf("EnqueueStyleLearningIfNeeded: %v", err)
	}
	if !enqueued || otherJob == nil {
		t.Fatal("other user's enqueue was debounced")
	}
}

func TestJobServiceGetByIDForUser(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	svc := newJobService(t, db)

	userID := uuid.New()
	job := testutil.SeedLearningJob(t, ctx, tx, userID, uuid.New(), types.JobStatusPending)

	got, err := svc.GetByIDForUser(dbc, job.ID, userID)
	if err != nil {
		t.Fatalf("GetByIDForUser: %v", err)
	}
	if got.ID != job.ID {
		t.Fatalf("got %s, want %s", got.ID, job.ID)
	}

	// Another user's id behaves exactly like a missing job.
	_, err = svc.GetByIDForUser(dbc, job.ID, uuid.New())
	var jnf *apperr.JobNotFoundError
	if !errors.As(err, &jnf) {
		t.Fatalf("err = %v, want JobNotFoundError", err)
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatal("JobNotFoundError does not unwrap to ErrNotFound")
	}

	_, err = svc.GetByIDForUser(dbc, uuid.New(), userID)
	if !errors.As(err, &jnf) {
		t.Fatalf("err = %v, want JobNotFoundError", err)
	}
}

func TestJobServiceRestart(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	svc := newJobService(t, db)

	userID := uuid.New()
	failed := testutil.SeedLearningJob(t, ctx, tx, userID, uuid.New(), types.JobStatusFailed)
	now := time.Now()
	if err := tx.Model(failed).Updates(map[string]interface{}{
		"attempts":      3,
		"error":         "boom",
		"last_error_at": now,
	}).Error; err != nil {
		t.Fatalf("prep failed job: %v", err)
	}

	restarted, err := svc.Restart(dbc, failed.ID, userID)
	if err != nil {
		t.Fatalf("Restart: %v", err)
	}
	if restarted.Status != types.JobStatusPending || restarted.Stage != "queued" {
		t.Fatalf("restarted = status %q stage %q", restarted.Status, restarted.Stage)
	}
	if restarted.Attempts != 0 || restarted.Error != "" || restarted.LastErrorAt != nil {
		t.Fatalf("restart did not reset the retry state: %+v", restarted)
	}

	// Only failed jobs restart.
	running := testutil.SeedLearningJob(t, ctx, tx, userID, uuid.New(), types.JobStatusProcessing)
	_, err = svc.Restart(dbc, running.ID, userID)
	if !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("err = %v, want invalid-argument for a processing job", err)
	}

	// Ownership is enforced before any state change.
	_, err = svc.Restart(dbc, restarted.ID, uuid.New())
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want not-found for a foreign job", err)
	}
}

func TestJobServiceRestartRefusesDeadLettered(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	svc := newJobService(t, db)

	userID := uuid.New()
	exhausted := testutil.SeedLearningJob(t, ctx, tx, userID, uuid.New(), types.JobStatusFailed)
	now := time.Now()
	if err := tx.Model(exhausted).Updates(map[string]interface{}{
		"attempts":      3,
		"error":         "boom",
		"last_error_at": now,
	}).Error; err != nil {
		t.Fatalf("prep exhausted job: %v", err)
	}
	dl := &types.DeadLetter{
		ID:          uuid.New(),
		JobID:       exhausted.ID,
		OwnerUserID: userID,
		ContentID:   exhausted.ContentID,
		JobType:     exhausted.JobType,
		Attempts:    3,
		Error:       "boom",
	}
	if err := tx.Create(dl).Error; err != nil {
		t.Fatalf("seed dead letter: %v", err)
	}

	_, err := svc.Restart(dbc, exhausted.ID, userID)
	if !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("err = %v, want invalid-argument for a dead-lettered job", err)
	}

	var after types.LearningJob
	if err := tx.Where("id = ?", exhausted.ID).First(&after).Error; err != nil {
		t.Fatalf("reload job: %v", err)
	}
	if after.Status != types.JobStatusFailed || after.Attempts != 3 {
		t.Fatalf("dead-lettered job was mutated: status %q attempts %d", after.Status, after.Attempts)
	}
}
