package worker

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/echodraft/echodraft-backend/internal/data/repos"
	types "github.com/echodraft/echodraft-backend/internal/domain"
	"github.com/echodraft/echodraft-backend/internal/jobs/runtime"
	"github.com/echodraft/echodraft-backend/internal/observability"
	"github.com/echodraft/echodraft-backend/internal/platform/dbctx"
	"github.com/echodraft/echodraft-backend/internal/platform/envutil"
	"github.com/echodraft/echodraft-backend/internal/platform/logger"
	"github.com/echodraft/echodraft-backend/internal/services"
)

// Worker polls the job table and runs claimed jobs through their registered
// handlers. Each goroutine in the pool claims independently; the claim query
// is the mutual exclusion.
type Worker struct {
	db          *gorm.DB
	log         *logger.Logger
	repo        repos.LearningJobRepo
	deadLetters repos.DeadLetterRepo
	registry    *runtime.Registry
	notify      services.JobNotifier

	concurrency     int
	maxAttempts     int
	pollInterval    time.Duration
	retryDelay      time.Duration
	staleProcessing time.Duration
}

func NewWorker(
	db *gorm.DB,
	baseLog *logger.Logger,
	repo repos.LearningJobRepo,
	deadLetters repos.DeadLetterRepo,
	registry *runtime.Registry,
	notify services.JobNotifier,
) *Worker {
	concurrency := envutil.Int("WORKER_CONCURRENCY", 5)
	if concurrency < 1 {
		concurrency = 1
	}
	maxAttempts := envutil.Int("JOB_MAX_ATTEMPTS", 3)
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Worker{
		db:              db,
		log:             baseLog.With("component", "JobWorker"),
		repo:            repo,
		deadLetters:     deadLetters,
		registry:        registry,
		notify:          notify,
		concurrency:     concurrency,
		maxAttempts:     maxAttempts,
		pollInterval:    envutil.Duration("JOB_POLL_INTERVAL", 1*time.Second),
		retryDelay:      envutil.Duration("JOB_RETRY_DELAY", 30*time.Second),
		staleProcessing: envutil.Duration("JOB_STALE_PROCESSING", 30*time.Minute),
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.log.Info("Starting job worker pool",
		"concurrency", w.concurrency,
		"max_attempts", w.maxAttempts,
		"poll_interval", w.pollInterval,
	)
	for i := 0; i < w.concurrency; i++ {
		workerID := i + 1
		go w.runLoop(ctx, workerID)
	}
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			w.claimAndRun(ctx, workerID)
		}
	}
}

func (w *Worker) claimAndRun(ctx context.Context, workerID int) {
	job, err := w.repo.ClaimNextRunnable(dbctx.Context{Ctx: ctx}, w.maxAttempts, w.retryDelay, w.staleProcessing)
	if err != nil {
		w.log.Warn("ClaimNextRunnable failed", "worker_id", workerID, "error", err)
		return
	}
	if job == nil {
		return
	}

	started := time.Now()
	jc := runtime.NewContext(ctx, w.db, job, w.repo, w.deadLetters, w.notify, w.maxAttempts, w.retryDelay)

	h, ok := w.registry.Get(job.JobType)
	if !ok {
		w.log.Warn("No handler registered for job_type",
			"worker_id", workerID,
			"job_type", job.JobType,
			"job_id", job.ID,
		)
		jc.Fail("dispatch", fmt.Errorf("no handler registered for job_type=%s", job.JobType))
		observability.JobsFailed.Inc(job.JobType)
		return
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				w.log.Error("Job handler panic",
					"worker_id", workerID,
					"job_id", job.ID,
					"job_type", job.JobType,
					"panic", r,
				)
				jc.Fail("panic", fmt.Errorf("handler panic: %v", r))
			}
		}()

		if runErr := h.Run(jc); runErr != nil {
			// Pipelines usually call jc.Fail themselves; this is a safety net.
			jc.Fail("run", runErr)
		}
	}()

	elapsed := time.Since(started)
	observability.JobDuration.Observe(elapsed.Seconds(), job.JobType)
	switch job.Status {
	case types.JobStatusCompleted:
		observability.JobsCompleted.Inc(job.JobType)
		w.log.Info("Job completed",
			"worker_id", workerID,
			"job_id", job.ID,
			"job_type", job.JobType,
			"elapsed_ms", elapsed.Milliseconds(),
		)
	case types.JobStatusFailed:
		observability.JobsFailed.Inc(job.JobType)
		w.log.Warn("Job failed",
			"worker_id", workerID,
			"job_id", job.ID,
			"job_type", job.JobType,
			"user_id", job.OwnerUserID,
			"content_id", job.ContentID,
			"stage", job.Stage,
			"attempt", job.Attempts,
			"elapsed_ms", elapsed.Milliseconds(),
			"error", job.Error,
		)
	}
}
