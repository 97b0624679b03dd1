package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/echodraft/echodraft-backend/internal/domain"
	"github.com/echodraft/echodraft-backend/internal/platform/dbctx"
	"github.com/echodraft/echodraft-backend/internal/platform/logger"
)

type StyleProfileRepo interface {
	Create(dbc dbctx.Context, profiles []*types.StyleProfile) ([]*types.StyleProfile, error)
	GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.StyleProfile, error)
	Save(dbc dbctx.Context, profile *types.StyleProfile) error
	SetManualOverrides(dbc dbctx.Context, userID uuid.UUID, overrides map[string]interface{}) error
}

type styleProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStyleProfileRepo(db *gorm.DB, baseLog *logger.Logger) StyleProfileRepo {
	return &styleProfileRepo{
		db:  db,
		log: baseLog.With("repo", "StyleProfileRepo"),
	}
}

func (r *styleProfileRepo) Create(dbc dbctx.Context, profiles []*types.StyleProfile) ([]*types.StyleProfile, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(profiles) == 0 {
		return []*types.StyleProfile{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// GetByUserID returns nil, nil when the user has no profile yet. Callers
// treat that as "skip learning", not an error.
func (r *styleProfileRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.StyleProfile, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil {
		return nil, nil
	}
	var p types.StyleProfile
	err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Limit(1).
		Find(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == uuid.Nil {
		return nil, nil
	}
	return &p, nil
}

// Save writes the whole profile row back, including zero-valued fields.
// The policy returns a full clone, so a partial update would lose resets.
func (r *styleProfileRepo) Save(dbc dbctx.Context, profile *types.StyleProfile) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if profile == nil || profile.ID == uuid.Nil {
		return nil
	}
	profile.UpdatedAt = time.Now()
	return transaction.WithContext(dbc.Ctx).
		Session(&gorm.Session{FullSaveAssociations: false}).
		Omit("User").
		Save(profile).Error
}

func (r *styleProfileRepo) SetManualOverrides(dbc dbctx.Context, userID uuid.UUID, overrides map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil {
		return nil
	}
	if overrides == nil {
		overrides = map[string]interface{}{}
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.StyleProfile{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"manual_overrides": datatypes.JSONMap(overrides),
			"updated_at":       time.Now(),
		}).Error
}
