package style_learning

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/echodraft/echodraft-backend/internal/clients/gate"
	"github.com/echodraft/echodraft-backend/internal/data/repos"
	"github.com/echodraft/echodraft-backend/internal/data/repos/testutil"
	types "github.com/echodraft/echodraft-backend/internal/domain"
	jobrt "github.com/echodraft/echodraft-backend/internal/jobs/runtime"
	"github.com/echodraft/echodraft-backend/internal/platform/dbctx"
	"github.com/echodraft/echodraft-backend/internal/services"
	"github.com/echodraft/echodraft-backend/internal/style"
)

func dbcBackground() dbctx.Context {
	return dbctx.Context{Ctx: context.Background()}
}

// The pipeline runs through the repos' own connection, so rows are committed
// and removed explicitly.
type fixture struct {
	db       *gorm.DB
	pipeline *Pipeline
	jobs     repos.LearningJobRepo
	deads    repos.DeadLetterRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	learning := services.NewLearningService(
		db,
		log,
		style.DefaultConfig(),
		repos.NewStyleProfileRepo(db, log),
		repos.NewEditMetadataRepo(db, log),
		repos.NewProfileVersionRepo(db, log),
		gate.NewLearningGate(gate.NewMemoryGate(), 5*time.Minute, 2*time.Minute),
		nil,
	)
	return &fixture{
		db:       db,
		pipeline: New(db, log, repos.NewContentRepo(db, log), learning),
		jobs:     repos.NewLearningJobRepo(db, log),
		deads:    repos.NewDeadLetterRepo(db, log),
	}
}

func (f *fixture) seedJob(t *testing.T, ownerID, contentID uuid.UUID, attempts int) *types.LearningJob {
	t.Helper()
	job := &types.LearningJob{
		ID:          uuid.New(),
		OwnerUserID: ownerID,
		ContentID:   contentID,
		JobType:     types.JobTypeStyleLearning,
		Status:      types.JobStatusProcessing,
		Stage:       "queued",
		Attempts:    attempts,
	}
	if err := f.db.Create(job).Error; err != nil {
		t.Fatalf("seed job: %v", err)
	}
	t.Cleanup(func() {
		f.db.Unscoped().Where("job_id = ?", job.ID).Delete(&types.DeadLetter{})
		f.db.Unscoped().Where("id = ?", job.ID).Delete(&types.LearningJob{})
	})
	return job
}

func (f *fixture) seedContent(t *testing.T, ownerID uuid.UUID) *types.ContentItem {
	t.Helper()
	item := &types.ContentItem{
		ID:            uuid.New(),
		OwnerUserID:   ownerID,
		Format:        types.FormatSingle,
		GeneratedText: "We will leverage the framework.",
		EditedText:    "We're gonna use the framework.",
	}
	if err := f.db.Create(item).Error; err != nil {
		t.Fatalf("seed content: %v", err)
	}
	t.Cleanup(func() {
		f.db.Unscoped().Where("id = ?", item.ID).Delete(&types.ContentItem{})
	})
	return item
}

func (f *fixture) run(t *testing.T, job *types.LearningJob, maxAttempts int) *jobrt.Context {
	t.Helper()
	jc := jobrt.NewContext(
		context.Background(),
		f.db,
		job,
		f.jobs,
		f.deads,
		services.NewNoopJobNotifier(),
		maxAttempts,
		30*time.Second,
	)
	if err := f.pipeline.Run(jc); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return jc
}

func TestPipelineRunNoProfile(t *testing.T) {
	f := newFixture(t)
	ownerID := uuid.New()
	item := f.seedContent(t, ownerID)
	job := f.seedJob(t, ownerID, item.ID, 1)

	f.run(t, job, 3)

	// No style profile is a clean completion, not a failure.
	if job.Status != types.JobStatusCompleted || job.Stage != "done" {
		t.Fatalf("job = status %q stage %q", job.Status, job.Stage)
	}
	if len(job.Result) == 0 {
		t.Fatal("no result payload stored")
	}
}

func TestPipelineRunMissingContentFails(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(t, uuid.New(), uuid.New(), 1)

	f.run(t, job, 3)

	if job.Status != types.JobStatusFailed || job.Stage != "load" {
		t.Fatalf("job = status %q stage %q", job.Status, job.Stage)
	}
	// Attempts remain: no dead letter yet.
	dl, err := f.deads.GetByJobID(dbcBackground(), job.ID)
	if err != nil {
		t.Fatalf("GetByJobID: %v", err)
	}
	if dl != nil {
		t.Fatal("dead-lettered with retries remaining")
	}
}

func TestPipelineRunExhaustedAttemptsDeadLetters(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(t, uuid.New(), uuid.New(), 3)

	f.run(t, job, 3)

	if job.Status != types.JobStatusFailed {
		t.Fatalf("status = %q, want failed", job.Status)
	}
	dl, err := f.deads.GetByJobID(dbcBackground(), job.ID)
	if err != nil {
		t.Fatalf("GetByJobID: %v", err)
	}
	if dl == nil {
		t.Fatal("no dead letter after the final attempt")
	}
	if dl.JobType != types.JobTypeStyleLearning || dl.Attempts != 3 {
		t.Fatalf("dead letter = %+v", dl)
	}
}

func TestPipelineRunForeignContentFails(t *testing.T) {
	f := newFixture(t)
	item := f.seedContent(t, uuid.New())
	job := f.seedJob(t, uuid.New(), item.ID, 1)

	f.run(t, job, 3)

	if job.Status != types.JobStatusFailed || job.Stage != "load" {
		t.Fatalf("job = status %q stage %q", job.Status, job.Stage)
	}
}

func TestSampleText(t *testing.T) {
	single := &types.ContentItem{Format: types.FormatSingle, EditedText: "the edited post"}
	if got := sampleText(single); got != "the edited post" {
		t.Fatalf("sampleText = %q", got)
	}

	thread := &types.ContentItem{
		Format: types.FormatFullThread,
		Tweets: datatypes.JSON(`[{"index":0,"edited_text":"first"},{"index":1,"edited_text":"second"}]`),
	}
	if got := sampleText(thread); got != "first\n\nsecond" {
		t.Fatalf("sampleText = %q", got)
	}

	// A thread with no tweet payload falls back to the whole edited text.
	bare := &types.ContentItem{Format: types.FormatFullThread, EditedText: "fallback"}
	if got := sampleText(bare); got != "fallback" {
		t.Fatalf("sampleText = %q", got)
	}
}
