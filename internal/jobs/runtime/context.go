package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/echodraft/echodraft-backend/internal/data/repos"
	types "github.com/echodraft/echodraft-backend/internal/domain"
	"github.com/echodraft/echodraft-backend/internal/observability"
	"github.com/echodraft/echodraft-backend/internal/platform/dbctx"
	"github.com/echodraft/echodraft-backend/internal/services"
)

// Context is the execution handle for one claimed job. It wraps the job row,
// the repos that may touch it, and the only sanctioned ways to report
// progress or terminate the run. Pipelines never write job rows directly.
type Context struct {
	Ctx         context.Context
	DB          *gorm.DB
	Job         *types.LearningJob
	Repo        repos.LearningJobRepo
	DeadLetters repos.DeadLetterRepo
	Notify      services.JobNotifier

	// MaxAttempts is the retry budget; Fail dead-letters the job once the
	// current attempt reaches it.
	MaxAttempts int

	// RetryDelay is the base backoff; Fail doubles it per attempt when
	// scheduling the next claim window.
	RetryDelay time.Duration

	payload map[string]any
}

func NewContext(
	ctx context.Context,
	db *gorm.DB,
	job *types.LearningJob,
	repo repos.LearningJobRepo,
	deadLetters repos.DeadLetterRepo,
	notify services.JobNotifier,
	maxAttempts int,
	retryDelay time.Duration,
) *Context {
	c := &Context{
		Ctx:         ctx,
		DB:          db,
		Job:         job,
		Repo:        repo,
		DeadLetters: deadLetters,
		Notify:      notify,
		MaxAttempts: maxAttempts,
		RetryDelay:  retryDelay,
	}
	_ = c.decodePayload()
	return c
}

func (c *Context) decodePayload() error {
	if c.Job == nil {
		return nil
	}
	if len(c.Job.Payload) == 0 {
		c.payload = map[string]any{}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(c.Job.Payload, &m); err != nil {
		c.payload = map[string]any{}
		return err
	}
	c.payload = m
	return nil
}

// Payload never returns nil; an unset or unparseable payload reads as empty.
func (c *Context) Payload() map[string]any {
	if c.payload == nil {
		c.payload = map[string]any{}
	}
	return c.payload
}

func (c *Context) PayloadUUID(key string) (uuid.UUID, bool) {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(fmt.Sprint(v))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (c *Context) PayloadString(key string) string {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// Update applies raw field updates, guarded so completed jobs stay immutable.
// Prefer Progress/Fail/Succeed for lifecycle transitions.
func (c *Context) Update(updates map[string]any) error {
	if c.Job == nil || c.Job.ID == uuid.Nil {
		return nil
	}
	_, err := c.Repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: c.Ctx}, c.Job.ID,
		[]string{types.JobStatusCompleted}, toIfaceMap(updates))
	return err
}

// Progress records a non-terminal stage change and refreshes the heartbeat.
func (c *Context) Progress(stage string, msg string) {
	if c == nil {
		return
	}
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	now := time.Now()

	if c.Repo != nil && c.Job != nil && c.Job.ID != uuid.Nil {
		ok, _ := c.Repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: ctx}, c.Job.ID,
			[]string{types.JobStatusCompleted}, map[string]interface{}{
				"stage":        stage,
				"heartbeat_at": now,
				"updated_at":   now,
			})
		if !ok {
			return
		}
	}

	if c.Job != nil {
		c.Job.Stage = stage
		c.Job.HeartbeatAt = &now
		c.Job.UpdatedAt = now
	}

	if c.Notify != nil && c.Job != nil {
		c.Notify.JobProgress(c.Job.OwnerUserID, c.Job, stage, msg)
	}
}

// Fail marks the run failed, clears the lock, and schedules the next claim
// window with the base delay doubled per spent attempt. Once the retry budget
// is exhausted the job is dead-lettered and stays failed; the dead-letter row
// is the audit trail.
func (c *Context) Fail(stage string, err error) {
	if c == nil {
		return
	}
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	now := time.Now()
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	runAfter := now.Add(c.backoff())

	if c.Repo != nil && c.Job != nil && c.Job.ID != uuid.Nil {
		ok, _ := c.Repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: ctx}, c.Job.ID,
			[]string{types.JobStatusCompleted}, map[string]interface{}{
				"status":        types.JobStatusFailed,
				"stage":         stage,
				"error":         msg,
				"last_error_at": now,
				"run_after":     runAfter,
				"locked_at":     nil,
				"updated_at":    now,
			})
		if !ok {
			return
		}
	}

	if c.Job != nil {
		c.Job.Status = types.JobStatusFailed
		c.Job.Stage = stage
		c.Job.Error = msg
		c.Job.LastErrorAt = &now
		c.Job.RunAfter = &runAfter
		c.Job.LockedAt = nil
		c.Job.UpdatedAt = now
	}

	if c.Job != nil && c.MaxAttempts > 0 && c.Job.Attempts >= c.MaxAttempts {
		c.deadLetter(ctx, msg)
	}

	if c.Notify != nil && c.Job != nil {
		c.Notify.JobFailed(c.Job.OwnerUserID, c.Job, stage, msg)
	}
}

// backoff returns the delay before the next retry: the base delay doubled
// for each attempt already spent, so attempt n waits base * 2^(n-1).
func (c *Context) backoff() time.Duration {
	delay := c.RetryDelay
	if delay <= 0 {
		return 0
	}
	attempts := 1
	if c.Job != nil && c.Job.Attempts > 0 {
		attempts = c.Job.Attempts
	}
	for i := 1; i < attempts; i++ {
		delay *= 2
	}
	return delay
}

func (c *Context) deadLetter(ctx context.Context, msg string) {
	if c.DeadLetters == nil {
		return
	}
	dl := &types.DeadLetter{
		ID:          uuid.New(),
		JobID:       c.Job.ID,
		OwnerUserID: c.Job.OwnerUserID,
		ContentID:   c.Job.ContentID,
		JobType:     c.Job.JobType,
		Attempts:    c.Job.Attempts,
		Error:       msg,
		Payload:     c.Job.Payload,
	}
	if _, err := c.DeadLetters.Create(dbctx.Context{Ctx: ctx}, []*types.DeadLetter{dl}); err == nil {
		observability.JobsDeadLettered.Inc(c.Job.JobType)
	}
}

// Succeed marks the run completed and stores the result payload.
func (c *Context) Succeed(finalStage string, result any) {
	if c == nil {
		return
	}
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	now := time.Now()
	var res datatypes.JSON
	if result != nil {
		b, _ := json.Marshal(result)
		res = datatypes.JSON(b)
	}

	if c.Repo != nil && c.Job != nil && c.Job.ID != uuid.Nil {
		ok, _ := c.Repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: ctx}, c.Job.ID,
			[]string{types.JobStatusCompleted}, map[string]interface{}{
				"status":                  types.JobStatusCompleted,
				"stage":                   finalStage,
				"error":                   "",
				"result":                  res,
				"locked_at":               nil,
				"heartbeat_at":            now,
				"processing_completed_at": now,
				"updated_at":              now,
			})
		if !ok {
			return
		}
	}

	if c.Job != nil {
		c.Job.Status = types.JobStatusCompleted
		c.Job.Stage = finalStage
		c.Job.Error = ""
		c.Job.Result = res
		c.Job.LockedAt = nil
		c.Job.HeartbeatAt = &now
		c.Job.ProcessingCompletedAt = &now
		c.Job.UpdatedAt = now
	}

	if c.Notify != nil && c.Job != nil {
		c.Notify.JobDone(c.Job.OwnerUserID, c.Job)
	}
}

func toIfaceMap(in map[string]any) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
