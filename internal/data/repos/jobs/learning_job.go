package jobs

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/echodraft/echodraft-backend/internal/domain"
	"github.com/echodraft/echodraft-backend/internal/platform/dbctx"
	"github.com/echodraft/echodraft-backend/internal/platform/logger"
)

type LearningJobRepo interface {
	Create(dbc dbctx.Context, jobs []*types.LearningJob) ([]*types.LearningJob, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.LearningJob, error)
	GetLatestByContent(dbc dbctx.Context, ownerUserID, contentID uuid.UUID, jobType string) (*types.LearningJob, error)
	ClaimNextRunnable(dbc dbctx.Context, maxAttempts int, retryDelay time.Duration, staleProcessing time.Duration) (*types.LearningJob, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, disallowedStatuses []string, updates map[string]interface{}) (bool, error)
	Heartbeat(dbc dbctx.Context, id uuid.UUID) error
	ExistsRunnable(dbc dbctx.Context, ownerUserID uuid.UUID, jobType string, contentID *uuid.UUID) (bool, error)
	ListByUser(dbc dbctx.Context, ownerUserID uuid.UUID, limit int) ([]*types.LearningJob, error)
}

type learningJobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLearningJobRepo(db *gorm.DB, baseLog *logger.Logger) LearningJobRepo {
	return &learningJobRepo{
		db:  db,
		log: baseLog.With("repo", "LearningJobRepo"),
	}
}

func (r *learningJobRepo) Create(dbc dbctx.Context, jobs []*types.LearningJob) ([]*types.LearningJob, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(jobs) == 0 {
		return []*types.LearningJob{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *learningJobRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.LearningJob, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var job types.LearningJob
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, nil
	}
	return &job, nil
}

func (r *learningJobRepo) GetLatestByContent(dbc dbctx.Context, ownerUserID, contentID uuid.UUID, jobType string) (*types.LearningJob, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if ownerUserID == uuid.Nil || contentID == uuid.Nil || jobType == "" {
		return nil, nil
	}
	var job types.LearningJob
	err := transaction.WithContext(dbc.Ctx).
		Where("owner_user_id = ? AND content_id = ? AND job_type = ?", ownerUserID, contentID, jobType).
		Order("created_at DESC").
		Limit(1).
		Find(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, nil
	}
	return &job, nil
}

// ClaimNextRunnable atomically picks the next job a worker may run and marks
// it processing. Runnable means: pending, or failed with attempts left and
// past its run_after backoff time, or processing with a heartbeat older than
// the stale cutoff (its worker died). Higher priority wins, then oldest
// first. Failed rows without a run_after fall back to the base retry delay
// measured from last_error_at.
func (r *learningJobRepo) ClaimNextRunnable(dbc dbctx.Context, maxAttempts int, retryDelay time.Duration, staleProcessing time.Duration) (*types.LearningJob, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	retryCutoff := now.Add(-retryDelay)
	staleCutoff := now.Add(-staleProcessing)
	var claimed *types.LearningJob
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		var job types.LearningJob
		q := txx.Where(`
        (
          status = ?
          OR (
            status = ?
            AND attempts < ?
            AND (
              (run_after IS NOT NULL AND run_after < ?)
              OR (run_after IS NULL AND (last_error_at IS NULL OR last_error_at < ?))
            )
          )
          OR (
            status = ?
            AND heartbeat_at IS NOT NULL
            AND heartbeat_at < ?
          )
        )
      `, types.JobStatusPending, types.JobStatusFailed, maxAttempts, now, retryCutoff, types.JobStatusProcessing, staleCutoff).
			Order("priority DESC").
			Order("created_at ASC")
		if txx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		qErr := q.First(&job).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		uErr := txx.Model(&types.LearningJob{}).
			Where("id = ?", job.ID).
			Updates(map[string]interface{}{
				"status":                types.JobStatusProcessing,
				"attempts":              gorm.Expr("attempts + 1"),
				"locked_at":             now,
				"heartbeat_at":          now,
				"processing_started_at": now,
				"updated_at":            now,
			}).Error
		if uErr != nil {
			return uErr
		}
		job.Status = types.JobStatusProcessing
		job.Attempts++
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *learningJobRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.LearningJob{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// UpdateFieldsUnlessStatus applies updates only while the row is not in one
// of the disallowed statuses. Returns whether a row was updated, so callers
// can tell a lost race (job already terminal) from a successful write.
func (r *learningJobRepo) UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, disallowedStatuses []string, updates map[string]interface{}) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}

	q := transaction.WithContext(dbc.Ctx).
		Model(&types.LearningJob{}).
		Where("id = ?", id)
	if len(disallowedStatuses) == 1 {
		q = q.Where("status <> ?", disallowedStatuses[0])
	} else if len(disallowedStatuses) > 1 {
		q = q.Where("status NOT IN ?", disallowedStatuses)
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *learningJobRepo) Heartbeat(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	now := time.Now()
	return transaction.WithContext(dbc.Ctx).
		Model(&types.LearningJob{}).
		Where("id = ? AND status = ?", id, types.JobStatusProcessing).
		Updates(map[string]interface{}{
			"heartbeat_at": now,
			"updated_at":   now,
		}).Error
}

// ExistsRunnable reports whether the user already has a pending or processing
// job of the given type, optionally scoped to one content item. Used to
// coalesce enqueue requests during a batch window.
func (r *learningJobRepo) ExistsRunnable(dbc dbctx.Context, ownerUserID uuid.UUID, jobType string, contentID *uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if ownerUserID == uuid.Nil || jobType == "" {
		return false, nil
	}

	q := transaction.WithContext(dbc.Ctx).Model(&types.LearningJob{}).
		Where("owner_user_id = ? AND job_type = ? AND status IN ?",
			ownerUserID, jobType, []string{types.JobStatusPending, types.JobStatusProcessing})
	if contentID != nil && *contentID != uuid.Nil {
		q = q.Where("content_id = ?", *contentID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *learningJobRepo) ListByUser(dbc dbctx.Context, ownerUserID uuid.UUID, limit int) ([]*types.LearningJob, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.LearningJob
	if ownerUserID == uuid.Nil {
		return out, nil
	}
	q := transaction.WithContext(dbc.Ctx).
		Where("owner_user_id = ?", ownerUserID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
