package services

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/echodraft/echodraft-backend/internal/clients/gate"
	"github.com/echodraft/echodraft-backend/internal/clients/redis"
	"github.com/echodraft/echodraft-backend/internal/data/repos"
	types "github.com/echodraft/echodraft-backend/internal/domain"
	"github.com/echodraft/echodraft-backend/internal/domain/user"
	"github.com/echodraft/echodraft-backend/internal/observability"
	"github.com/echodraft/echodraft-backend/internal/platform/dbctx"
	"github.com/echodraft/echodraft-backend/internal/platform/envutil"
	"github.com/echodraft/echodraft-backend/internal/platform/logger"
	"github.com/echodraft/echodraft-backend/internal/style"
)

// Outcome labels for one learning cycle.
const (
	LearnOutcomeUpdated     = "updated"
	LearnOutcomeNoProfile   = "no_profile"
	LearnOutcomeRateLimited = "rate_limited"
	LearnOutcomeNoPatterns  = "no_patterns"
)

// LearningResult describes what one learning cycle did; it is stored on the
// job row as the result payload.
type LearningResult struct {
	Outcome       string   `json:"outcome"`
	EditCount     int      `json:"edit_count"`
	ChangedFields []string `json:"changed_fields,omitempty"`
	Iteration     int      `json:"iteration,omitempty"`
}

// LearningService runs the profile-update half of the pipeline: window the
// recent edits, detect patterns, and apply them to the style profile under
// the rate-limit gate. Every write snapshots the prior profile version.
type LearningService interface {
	UpdateProfileFromEdits(dbc dbctx.Context, ownerUserID uuid.UUID, sampleText string) (*LearningResult, error)
	GetEvolution(dbc dbctx.Context, ownerUserID uuid.UUID) (*Evolution, error)
}

// Evolution is a read-only summary of how far a user's voice model has come.
type Evolution struct {
	LearningIterations int       `json:"learning_iterations"`
	EditCount          int64     `json:"edit_count"`
	Score              int       `json:"score"`
	LastUpdated        time.Time `json:"last_updated"`
}

type learningService struct {
	db  *gorm.DB
	log *logger.Logger
	cfg style.Config

	profiles repos.StyleProfileRepo
	edits    repos.EditMetadataRepo
	versions repos.ProfileVersionRepo

	detector *style.Detector
	policy   *style.Policy

	gate  *gate.LearningGate
	cache redis.ProfileCache

	// versionRetention bounds stored profile snapshots per user.
	versionRetention int
}

func NewLearningService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg style.Config,
	profiles repos.StyleProfileRepo,
	edits repos.EditMetadataRepo,
	versions repos.ProfileVersionRepo,
	lg *gate.LearningGate,
	cache redis.ProfileCache,
) LearningService {
	log := baseLog.With("service", "LearningService")
	if cache == nil {
		cache = redis.NewNoopProfileCache()
	}
	return &learningService{
		db:               db,
		log:              log,
		cfg:              cfg,
		profiles:         profiles,
		edits:            edits,
		versions:         versions,
		detector:         style.NewDetector(cfg),
		policy:           style.NewPolicy(baseLog, cfg),
		gate:             lg,
		cache:            cache,
		versionRetention: envutil.Int("MAX_PROFILE_VERSIONS_PER_USER", 10),
	}
}

func (s *learningService) UpdateProfileFromEdits(dbc dbctx.Context, ownerUserID uuid.UUID, sampleText string) (*LearningResult, error) {
	profile, err := s.profiles.GetByUserID(dbc, ownerUserID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		// Nothing to learn into. The edit metadata is already stored, so a
		// profile created later starts from the accumulated history.
		s.log.Info("Skipping learning, user has no style profile", "user_id", ownerUserID)
		observability.ProfileUpdates.Inc(LearnOutcomeNoProfile)
		return &LearningResult{Outcome: LearnOutcomeNoProfile}, nil
	}

	allowed, err := s.gate.AllowProfileUpdate(dbc.Ctx, ownerUserID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.log.Info("Skipping learning, profile updated within rate-limit window", "user_id", ownerUserID)
		observability.ProfileUpdates.Inc(LearnOutcomeRateLimited)
		return &LearningResult{Outcome: LearnOutcomeRateLimited}, nil
	}

	window, err := s.edits.ListRecentByUser(dbc, ownerUserID, s.cfg.RecentEditWindow)
	if err != nil {
		return nil, err
	}

	patterns := s.detector.DetectPatterns(window)
	result := &LearningResult{EditCount: patterns.EditCount}
	if patterns.Empty() {
		result.Outcome = LearnOutcomeNoPatterns
		s.log.Info("No patterns cleared the thresholds", "user_id", ownerUserID, "edit_count", patterns.EditCount)
		if err := s.markProcessed(dbc, window); err != nil {
			return nil, err
		}
		// The profile was not touched, so hand the rate-limit window back
		// instead of deferring the next productive cycle.
		if err := s.gate.ReleaseProfileUpdate(dbc.Ctx, ownerUserID); err != nil {
			s.log.Warn("rate-limit release failed", "user_id", ownerUserID, "error", err)
		}
		observability.ProfileUpdates.Inc(LearnOutcomeNoPatterns)
		return result, nil
	}

	if err := s.snapshotProfile(dbc, profile); err != nil {
		return nil, err
	}

	canMakeMajorChanges := patterns.EditCount >= s.cfg.MinEditsForMajorChange
	next, changed := s.policy.ApplyWeightedUpdates(profile, patterns, profile.ManualOverrides, canMakeMajorChanges)

	if sampleText != "" {
		next.SamplePosts = appendSample(next.SamplePosts, sampleText, user.SamplePostCap)
	}

	if err := s.profiles.Save(dbc, next); err != nil {
		return nil, err
	}
	if err := s.markProcessed(dbc, window); err != nil {
		return nil, err
	}
	if err := s.cache.Invalidate(dbc.Ctx, ownerUserID); err != nil {
		s.log.Warn("profile cache invalidation failed", "user_id", ownerUserID, "error", err)
	}

	result.Outcome = LearnOutcomeUpdated
	result.ChangedFields = changed
	result.Iteration = next.LearningIterations
	observability.ProfileUpdates.Inc(LearnOutcomeUpdated)
	s.log.Info("Updated style profile from edits",
		"user_id", ownerUserID,
		"iteration", next.LearningIterations,
		"edit_count", patterns.EditCount,
		"changed_fields", changed,
		"major_changes_allowed", canMakeMajorChanges,
		"avg_sentence_length_before", profile.Traits.AvgSentenceLength,
		"avg_sentence_length_after", next.Traits.AvgSentenceLength,
		"emoji_frequency_before", profile.Traits.EmojiFrequency,
		"emoji_frequency_after", next.Traits.EmojiFrequency,
	)
	return result, nil
}

// snapshotProfile stores the pre-update profile as an immutable version and
// prunes versions beyond the retention cap.
func (s *learningService) snapshotProfile(dbc dbctx.Context, profile *types.StyleProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	v := &types.ProfileVersion{
		ID:          uuid.New(),
		OwnerUserID: profile.UserID,
		ProfileID:   profile.ID,
		Iteration:   profile.LearningIterations,
		Snapshot:    datatypes.JSON(raw),
	}
	if _, err := s.versions.Create(dbc, []*types.ProfileVersion{v}); err != nil {
		return err
	}
	if _, err := s.versions.PruneOldest(dbc, profile.UserID, s.versionRetention); err != nil {
		s.log.Warn("profile version prune failed", "user_id", profile.UserID, "error", err)
	}
	return nil
}

func (s *learningService) markProcessed(dbc dbctx.Context, window []*types.EditMetadata) error {
	var ids []uuid.UUID
	for _, e := range window {
		if !e.LearningProcessed {
			ids = append(ids, e.ID)
		}
	}
	return s.edits.MarkProcessed(dbc, ids)
}

func (s *learningService) GetEvolution(dbc dbctx.Context, ownerUserID uuid.UUID) (*Evolution, error) {
	profile, err := s.profiles.GetByUserID(dbc, ownerUserID)
	if err != nil {
		return nil, err
	}
	count, err := s.edits.CountByUser(dbc, ownerUserID)
	if err != nil {
		return nil, err
	}

	ev := &Evolution{EditCount: count}
	if profile != nil {
		ev.LearningIterations = profile.LearningIterations
		ev.LastUpdated = profile.LastUpdated
	}
	// Iterations weigh more than raw edits: applied updates are the real
	// signal that the voice model moved.
	score := ev.LearningIterations*10 + int(count)*2
	if score > 100 {
		score = 100
	}
	ev.Score = score
	return ev, nil
}

func appendSample(samples datatypes.JSONSlice[string], text string, limit int) datatypes.JSONSlice[string] {
	for _, s := range samples {
		if s == text {
			return samples
		}
	}
	samples = append(samples, text)
	if over := len(samples) - limit; over > 0 {
		samples = samples[over:]
	}
	return samples
}
