package jobs

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/echodraft/echodraft-backend/internal/domain"
	"github.com/echodraft/echodraft-backend/internal/platform/dbctx"
	"github.com/echodraft/echodraft-backend/internal/platform/logger"
)

type DeadLetterRepo interface {
	Create(dbc dbctx.Context, letters []*types.DeadLetter) ([]*types.DeadLetter, error)
	GetByJobID(dbc dbctx.Context, jobID uuid.UUID) (*types.DeadLetter, error)
	ListByUser(dbc dbctx.Context, ownerUserID uuid.UUID, limit int) ([]*types.DeadLetter, error)
}

type deadLetterRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDeadLetterRepo(db *gorm.DB, baseLog *logger.Logger) DeadLetterRepo {
	return &deadLetterRepo{
		db:  db,
		log: baseLog.With("repo", "DeadLetterRepo"),
	}
}

// Create is idempotent per job: a second dead-letter for the same job id is
// silently dropped on the unique index.
func (r *deadLetterRepo) Create(dbc dbctx.Context, letters []*types.DeadLetter) ([]*types.DeadLetter, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(letters) == 0 {
		return []*types.DeadLetter{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "job_id"}}, DoNothing: true}).
		Create(&letters).Error; err != nil {
		return nil, err
	}
	return letters, nil
}

func (r *deadLetterRepo) GetByJobID(dbc dbctx.Context, jobID uuid.UUID) (*types.DeadLetter, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if jobID == uuid.Nil {
		return nil, nil
	}
	var dl types.DeadLetter
	err := transaction.WithContext(dbc.Ctx).
		Where("job_id = ?", jobID).
		Limit(1).
		Find(&dl).Error
	if err != nil {
		return nil, err
	}
	if dl.ID == uuid.Nil {
		return nil, nil
	}
	return &dl, nil
}

func (r *deadLetterRepo) ListByUser(dbc dbctx.Context, ownerUserID uuid.UUID, limit int) ([]*types.DeadLetter, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.DeadLetter
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
