package services

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/echodraft/echodraft-backend/internal/clients/redis"
	"github.com/echodraft/echodraft-backend/internal/data/repos"
	types "github.com/echodraft/echodraft-backend/internal/domain"
	"github.com/echodraft/echodraft-backend/internal/domain/user"
	"github.com/echodraft/echodraft-backend/internal/platform/apperr"
	"github.com/echodraft/echodraft-backend/internal/platform/dbctx"
	"github.com/echodraft/echodraft-backend/internal/platform/logger"
)

// ProfileService is the user-facing surface of the style profile: reads,
// manual overrides, and version history. Learning writes go through
// LearningService only.
type ProfileService interface {
	GetProfile(dbc dbctx.Context, ownerUserID uuid.UUID) (*types.StyleProfile, error)
	SetOverrides(dbc dbctx.Context, ownerUserID uuid.UUID, overrides map[string]interface{}) (*types.StyleProfile, error)
	ListVersions(dbc dbctx.Context, ownerUserID uuid.UUID, limit int) ([]*types.ProfileVersion, error)
}

type profileService struct {
	db       *gorm.DB
	log      *logger.Logger
	profiles repos.StyleProfileRepo
	versions repos.ProfileVersionRepo
	cache    redis.ProfileCache
}

func NewProfileService(
	db *gorm.DB,
	baseLog *logger.Logger,
	profiles repos.StyleProfileRepo,
	versions repos.ProfileVersionRepo,
	cache redis.ProfileCache,
) ProfileService {
	if cache == nil {
		cache = redis.NewNoopProfileCache()
	}
	return &profileService{
		db:       db,
		log:      baseLog.With("service", "ProfileService"),
		profiles: profiles,
		versions: versions,
		cache:    cache,
	}
}

func (s *profileService) GetProfile(dbc dbctx.Context, ownerUserID uuid.UUID) (*types.StyleProfile, error) {
	p, err := s.profiles.GetByUserID(dbc, ownerUserID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("style profile for user %s: %w", ownerUserID, apperr.ErrNotFound)
	}
	return p, nil
}

// SetOverrides replaces the manual override map. Unknown keys are rejected
// so typos do not silently freeze nothing.
func (s *profileService) SetOverrides(dbc dbctx.Context, ownerUserID uuid.UUID, overrides map[string]interface{}) (*types.StyleProfile, error) {
	for key := range overrides {
		if !validOverrideKey(key) {
			return nil, fmt.Errorf("unknown override key %q: %w", key, apperr.ErrInvalidArgument)
		}
	}
	if _, err := s.GetProfile(dbc, ownerUserID); err != nil {
		return nil, err
	}
	if err := s.profiles.SetManualOverrides(dbc, ownerUserID, overrides); err != nil {
		return nil, err
	}
	if err := s.cache.Invalidate(dbc.Ctx, ownerUserID); err != nil {
		s.log.Warn("profile cache invalidation failed", "user_id", ownerUserID, "error", err)
	}
	s.log.Info("Manual overrides updated", "user_id", ownerUserID, "override_count", len(overrides))
	return s.profiles.GetByUserID(dbc, ownerUserID)
}

func (s *profileService) ListVersions(dbc dbctx.Context, ownerUserID uuid.UUID, limit int) ([]*types.ProfileVersion, error) {
	return s.versions.ListByUser(dbc, ownerUserID, limit)
}

func validOverrideKey(key string) bool {
	switch key {
	case user.OverrideAvgSentenceLength,
		user.OverrideUsesEmojis,
		user.OverrideEmojiFrequency,
		user.OverrideEndingStyle,
		user.OverrideFormality,
		user.OverrideEnthusiasm,
		user.OverrideDirectness,
		user.OverrideHumor,
		user.OverrideEmotionality:
		return true
	}
	return false
}
