package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/echodraft/echodraft-backend/internal/clients/gate"
	"github.com/echodraft/echodraft-backend/internal/data/repos"
	types "github.com/echodraft/echodraft-backend/internal/domain"
	"github.com/echodraft/echodraft-backend/internal/observability"
	"github.com/echodraft/echodraft-backend/internal/platform/apperr"
	"github.com/echodraft/echodraft-backend/internal/platform/dbctx"
	"github.com/echodraft/echodraft-backend/internal/platform/logger"
)

type JobService interface {
	Enqueue(dbc dbctx.Context, ownerUserID, contentID uuid.UUID, jobType string, payload map[string]any) (*types.LearningJob, error)
	// EnqueueStyleLearningIfNeeded debounces: enqueue requests inside one
	// batch window that already have a runnable job coalesce into it.
	EnqueueStyleLearningIfNeeded(dbc dbctx.Context, ownerUserID, contentID uuid.UUID, trigger string) (*types.LearningJob, bool, error)
	GetByIDForUser(dbc dbctx.Context, jobID, ownerUserID uuid.UUID) (*types.LearningJob, error)
	ListForUser(dbc dbctx.Context, ownerUserID uuid.UUID, limit int) ([]*types.LearningJob, error)
	Restart(dbc dbctx.Context, jobID, ownerUserID uuid.UUID) (*types.LearningJob, error)
}

type jobService struct {
	db          *gorm.DB
	log         *logger.Logger
	repo        repos.LearningJobRepo
	deadLetters repos.DeadLetterRepo
	notify      JobNotifier
	gate        *gate.LearningGate
}

func NewJobService(
	db *gorm.DB,
	baseLog *logger.Logger,
	repo repos.LearningJobRepo,
	deadLetters repos.DeadLetterRepo,
	notify JobNotifier,
	lg *gate.LearningGate,
) JobService {
	if notify == nil {
		notify = NewNoopJobNotifier()
	}
	return &jobService{
		db:          db,
		log:         baseLog.With("service", "JobService"),
		repo:        repo,
		deadLetters: deadLetters,
		notify:      notify,
		gate:        lg,
	}
}

func (s *jobService) Enqueue(dbc dbctx.Context, ownerUserID, contentID uuid.UUID, jobType string, payload map[string]any) (*types.LearningJob, error) {
	if ownerUserID == uuid.Nil {
		return nil, fmt.Errorf("missing owner_user_id")
	}
	if jobType == "" {
		return nil, fmt.Errorf("missing job_type")
	}
	if payload == nil {
		payload = map[string]any{}
	}
	payloadJSON := datatypes.JSON([]byte(`{}`))
	if b, err := json.Marshal(payload); err == nil {
		payloadJSON = datatypes.JSON(b)
	}

	now := time.Now()
	job := &types.LearningJob{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		ContentID:   contentID,
		JobType:     jobType,
		Status:      types.JobStatusPending,
		Stage:       "queued",
		Payload:     payloadJSON,
		Result:      datatypes.JSON([]byte(`{}`)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.repo.Create(dbc, []*types.LearningJob{job}); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	s.notify.JobCreated(ownerUserID, job)
	observability.JobsEnqueued.Inc(jobType)
	s.log.Info("Enqueued job", "job_id", job.ID, "job_type", jobType, "user_id", ownerUserID)
	return job, nil
}

func (s *jobService) EnqueueStyleLearningIfNeeded(dbc dbctx.Context, ownerUserID, contentID uuid.UUID, trigger string) (*types.LearningJob, bool, error) {
	if ownerUserID == uuid.Nil {
		return nil, false, fmt.Errorf("missing owner_user_id")
	}

	opened, err := s.gate.OpenBatch(dbc.Ctx, ownerUserID)
	if err != nil {
		return nil, false, err
	}
	if !opened {
		// Inside an open batch window. If a runnable job is already queued
		// it will pick up this edit; enqueue only when it finished early.
		exists, err := s.repo.ExistsRunnable(dbc, ownerUserID, types.JobTypeStyleLearning, nil)
		if err != nil {
			return nil, false, err
		}
		if exists {
			s.log.Debug("Coalesced into batched learning job", "user_id", ownerUserID, "trigger", trigger)
			return nil, false, nil
		}
	}

	payload := map[string]any{
		"trigger":    trigger,
		"content_id": contentID,
	}
	job, err := s.Enqueue(dbc, ownerUserID, contentID, types.JobTypeStyleLearning, payload)
	if err != nil {
		return nil, false, err
	}
	return job, true, nil
}

func (s *jobService) GetByIDForUser(dbc dbctx.Context, jobID, ownerUserID uuid.UUID) (*types.LearningJob, error) {
	job, err := s.repo.GetByID(dbc, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil || job.OwnerUserID != ownerUserID {
		return nil, &apperr.JobNotFoundError{JobID: jobID.String()}
	}
	return job, nil
}

func (s *jobService) ListForUser(dbc dbctx.Context, ownerUserID uuid.UUID, limit int) ([]*types.LearningJob, error) {
	return s.repo.ListByUser(dbc, ownerUserID, limit)
}

// Restart re-arms a failed job: attempts reset to zero and the row goes back
// to pending, so the worker may claim it again. Only failed jobs restart.
func (s *jobService) Restart(dbc dbctx.Context, jobID, ownerUserID uuid.UUID) (*types.LearningJob, error) {
	job, err := s.GetByIDForUser(dbc, jobID, ownerUserID)
	if err != nil {
		return nil, err
	}
	if job.Status != types.JobStatusFailed {
		return nil, fmt.Errorf("job %s is %s, only failed jobs restart: %w", jobID, job.Status, apperr.ErrInvalidArgument)
	}
	// A dead-lettered job is terminal; it waits for manual inspection, not
	// another automatic run.
	dl, err := s.deadLetters.GetByJobID(dbc, job.ID)
	if err != nil {
		return nil, err
	}
	if dl != nil {
		return nil, fmt.Errorf("job %s is dead-lettered and cannot restart: %w", jobID, apperr.ErrInvalidArgument)
	}
	updates := map[string]interface{}{
		"status":        types.JobStatusPending,
		"stage":         "queued",
		"attempts":      0,
		"error":         "",
		"last_error_at": nil,
		"run_after":     nil,
		"locked_at":     nil,
		"heartbeat_at":  nil,
	}
	if err := s.repo.UpdateFields(dbc, job.ID, updates); err != nil {
		return nil, err
	}
	return s.repo.GetByID(dbc, job.ID)
}
