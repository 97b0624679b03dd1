package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/echodraft/echodraft-backend/internal/domain"
	"github.com/echodraft/echodraft-backend/internal/platform/dbctx"
	"github.com/echodraft/echodraft-backend/internal/platform/logger"
)

type EditMetadataRepo interface {
	Create(dbc dbctx.Context, rows []*types.EditMetadata) ([]*types.EditMetadata, error)
	ListRecentByUser(dbc dbctx.Context, ownerUserID uuid.UUID, limit int) ([]*types.EditMetadata, error)
	CountByUser(dbc dbctx.Context, ownerUserID uuid.UUID) (int64, error)
	MarkProcessed(dbc dbctx.Context, ids []uuid.UUID) error
	PruneOldest(dbc dbctx.Context, ownerUserID uuid.UUID, keep int) (int64, error)
}

type editMetadataRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEditMetadataRepo(db *gorm.DB, baseLog *logger.Logger) EditMetadataRepo {
	return &editMetadataRepo{
		db:  db,
		log: baseLog.With("repo", "EditMetadataRepo"),
	}
}

func (r *editMetadataRepo) Create(dbc dbctx.Context, rows []*types.EditMetadata) ([]*types.EditMetadata, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.EditMetadata{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListRecentByUser returns the newest rows first, capped at limit. Pattern
// detection runs over this window.
func (r *editMetadataRepo) ListRecentByUser(dbc dbctx.Context, ownerUserID uuid.UUID, limit int) ([]*types.EditMetadata, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.EditMetadata
	if ownerUserID == uuid.Nil {
		return out, nil
	}
	q := transaction.WithContext(dbc.Ctx).
		Where("owner_user_id = ?", ownerUserID).
		Order("edit_timestamp DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *editMetadataRepo) CountByUser(dbc dbctx.Context, ownerUserID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if ownerUserID == uuid.Nil {
		return 0, nil
	}
	var count int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.EditMetadata{}).
		Where("owner_user_id = ?", ownerUserID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *editMetadataRepo) MarkProcessed(dbc dbctx.Context, ids []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.EditMetadata{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"learning_processed": true,
			"updated_at":         time.Now(),
		}).Error
}

// PruneOldest hard-deletes rows beyond the newest keep, oldest first.
// Returns the number of rows removed.
func (r *editMetadataRepo) PruneOldest(dbc dbctx.Context, ownerUserID uuid.UUID, keep int) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if ownerUserID == uuid.Nil || keep < 0 {
		return 0, nil
	}
	var ids []uuid.UUID
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.EditMetadata{}).
		Where("owner_user_id = ?", ownerUserID).
		Order("edit_timestamp DESC").
		Offset(keep).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Unscoped().
		Where("id IN ?", ids).
		Delete(&types.EditMetadata{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
