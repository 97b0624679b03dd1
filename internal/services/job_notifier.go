package services

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/google/uuid"

	types "github.com/echodraft/echodraft-backend/internal/domain"
	"github.com/echodraft/echodraft-backend/internal/platform/logger"
)

const jobEventsChannel = "jobs.events"

// JobNotifier pushes job lifecycle events to interested listeners (the
// frontend polls job status; event consumers get them sooner).
type JobNotifier interface {
	JobCreated(userID uuid.UUID, job *types.LearningJob)
	JobProgress(userID uuid.UUID, job *types.LearningJob, stage string, message string)
	JobFailed(userID uuid.UUID, job *types.LearningJob, stage string, errorMessage string)
	JobDone(userID uuid.UUID, job *types.LearningJob)
}

type redisJobNotifier struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewRedisJobNotifier(rdb *goredis.Client, baseLog *logger.Logger) JobNotifier {
	return &redisJobNotifier{
		log: baseLog.With("service", "JobNotifier"),
		rdb: rdb,
	}
}

func (n *redisJobNotifier) publish(event string, userID uuid.UUID, data map[string]any) {
	data["event"] = event
	data["user_id"] = userID.String()
	raw, err := json.Marshal(data)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := n.rdb.Publish(ctx, jobEventsChannel, raw).Err(); err != nil {
		n.log.Warn("job event publish failed", "event", event, "error", err)
	}
}

func (n *redisJobNotifier) JobCreated(userID uuid.UUID, job *types.LearningJob) {
	n.publish("job.created", userID, map[string]any{
		"job_id":   job.ID,
		"job_type": job.JobType,
	})
}

func (n *redisJobNotifier) JobProgress(userID uuid.UUID, job *types.LearningJob, stage string, message string) {
	n.publish("job.progress", userID, map[string]any{
		"job_id":   job.ID,
		"job_type": job.JobType,
		"stage":    stage,
		"message":  message,
	})
}

func (n *redisJobNotifier) JobFailed(userID uuid.UUID, job *types.LearningJob, stage string, errorMessage string) {
	n.publish("job.failed", userID, map[string]any{
		"job_id":   job.ID,
		"job_type": job.JobType,
		"stage":    stage,
		"error":    errorMessage,
	})
}

func (n *redisJobNotifier) JobDone(userID uuid.UUID, job *types.LearningJob) {
	n.publish("job.done", userID, map[string]any{
		"job_id":   job.ID,
		"job_type": job.JobType,
	})
}

type noopJobNotifier struct{}

// NewNoopJobNotifier is used when Redis is not configured.
func NewNoopJobNotifier() JobNotifier { return noopJobNotifier{} }

func (noopJobNotifier) JobCreated(uuid.UUID, *types.LearningJob)                  {}
func (noopJobNotifier) JobProgress(uuid.UUID, *types.LearningJob, string, string) {}
func (noopJobNotifier) JobFailed(uuid.UUID, *types.LearningJob, string, string)   {}
func (noopJobNotifier) JobDone(uuid.UUID, *types.LearningJob)                     {}
