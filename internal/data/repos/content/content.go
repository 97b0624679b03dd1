package content

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/echodraft/echodraft-backend/internal/domain"
	"github.com/echodraft/echodraft-backend/internal/platform/dbctx"
	"github.com/echodraft/echodraft-backend/internal/platform/logger"
)

type ContentRepo interface {
	Create(dbc dbctx.Context, items []*types.ContentItem) ([]*types.ContentItem, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ContentItem, error)
	// UpdateEditMetadata is the only write the learning side performs on a
	// content row. Generated and edited text stay owned by the editor flow.
	UpdateEditMetadata(dbc dbctx.Context, id uuid.UUID, metadata datatypes.JSON) error
	UpdateEditedText(dbc dbctx.Context, id uuid.UUID, editedText string, tweets datatypes.JSON) error
}

type contentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentRepo(db *gorm.DB, baseLog *logger.Logger) ContentRepo {
	return &contentRepo{
		db:  db,
		log: baseLog.With("repo", "ContentRepo"),
	}
}

func (r *contentRepo) Create(dbc dbctx.Context, items []*types.ContentItem) ([]*types.ContentItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(items) == 0 {
		return []*types.ContentItem{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *contentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ContentItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var item types.ContentItem
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == uuid.Nil {
		return nil, nil
	}
	return &item, nil
}

func (r *contentRepo) UpdateEditMetadata(dbc dbctx.Context, id uuid.UUID, metadata datatypes.JSON) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.ContentItem{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"edit_metadata": metadata,
			"updated_at":    time.Now(),
		}).Error
}

func (r *contentRepo) UpdateEditedText(dbc dbctx.Context, id uuid.UUID, editedText string, tweets datatypes.JSON) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	updates := map[string]interface{}{
		"edited_text": editedText,
		"updated_at":  time.Now(),
	}
	if len(tweets) > 0 {
		updates["tweets"] = tweets
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.ContentItem{}).
		Where("id = ?", id).
		Updates(updates).Error
}
