package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LearningGate owns the two per-user debounce windows of the learning
// pipeline: the profile-update rate limit and the enqueue batch window.
type LearningGate struct {
	gate        Gate
	rateLimit   time.Duration
	batchWindow time.Duration
}

func NewLearningGate(g Gate, rateLimit, batchWindow time.Duration) *LearningGate {
	return &LearningGate{
		gate:        g,
		rateLimit:   rateLimit,
		batchWindow: batchWindow,
	}
}

// AllowProfileUpdate returns true when the user's profile may be written
// now, and atomically starts the next rate-limit window. A false result
// means a write happened within the window; the caller skips the update
// but still records its inputs.
func (lg *LearningGate) AllowProfileUpdate(ctx context.Context, userID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	return lg.gate.TryAcquire(ctx, fmt.Sprintf("learn:rate:%s", userID), lg.rateLimit)
}

// ReleaseProfileUpdate ends the rate-limit window early. Called when an
// acquired cycle turns out not to mutate the profile, so the cooldown stays
// keyed to the last mutation rather than the last attempt.
func (lg *LearningGate) ReleaseProfileUpdate(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return nil
	}
	return lg.gate.Release(ctx, fmt.Sprintf("learn:rate:%s", userID))
}

// OpenBatch returns true for the first enqueue attempt of a batch window.
// Later attempts in the same window coalesce into the already-queued job.
func (lg *LearningGate) OpenBatch(ctx context.Context, userID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	return lg.gate.TryAcquire(ctx, fmt.Sprintf("learn:batch:%s", userID), lg.batchWindow)
}

func (lg *LearningGate) RateLimit() time.Duration   { return lg.rateLimit }
func (lg *LearningGate) BatchWindow() time.Duration { return lg.batchWindow }
