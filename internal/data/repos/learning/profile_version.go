package learning

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/echodraft/echodraft-backend/internal/domain"
	"github.com/echodraft/echodraft-backend/internal/platform/dbctx"
	"github.com/echodraft/echodraft-backend/internal/platform/logger"
)

type ProfileVersionRepo interface {
	Create(dbc dbctx.Context, versions []*types.ProfileVersion) ([]*types.ProfileVersion, error)
	ListByUser(dbc dbctx.Context, ownerUserID uuid.UUID, limit int) ([]*types.ProfileVersion, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ProfileVersion, error)
	PruneOldest(dbc dbctx.Context, ownerUserID uuid.UUID, keep int) (int64, error)
}

type profileVersionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProfileVersionRepo(db *gorm.DB, baseLog *logger.Logger) ProfileVersionRepo {
	return &profileVersionRepo{
		db:  db,
		log: baseLog.With("repo", "ProfileVersionRepo"),
	}
}

func (r *profileVersionRepo) Create(dbc dbctx.Context, versions []*types.ProfileVersion) ([]*types.ProfileVersion, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(versions) == 0 {
		return []*types.ProfileVersion{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&versions).Error; err != nil {
		return nil, err
	}
	return versions, nil
}

func (r *profileVersionRepo) ListByUser(dbc dbctx.Context, ownerUserID uuid.UUID, limit int) ([]*types.ProfileVersion, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ProfileVersion
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

func (r *profileVersionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ProfileVersion, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var v types.ProfileVersion
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&v).Error
	if err != nil {
		return nil, err
	}
	if v.ID == uuid.Nil {
		return nil, nil
	}
	return &v, nil
}

func (r *profileVersionRepo) PruneOldest(dbc dbctx.Context, ownerUserID uuid.UUID, keep int) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if ownerUserID == uuid.Nil || keep < 0 {
		return 0, nil
	}
	var ids []uuid.UUID
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.ProfileVersion{}).
		Where("owner_user_id = ?", ownerUserID).
		Order("created_at DESC").
		Offset(keep).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Delete(&types.ProfileVersion{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
