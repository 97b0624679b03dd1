package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/echodraft/echodraft-backend/internal/platform/apperr"
	"github.com/echodraft/echodraft-backend/internal/platform/dbctx"
	"github.com/echodraft/echodraft-backend/internal/services"
)

type JobsHandler struct {
	jobs services.JobService
}

func NewJobsHandler(jobs services.JobService) *JobsHandler {
	return &JobsHandler{jobs: jobs}
}

// GET /api/jobs/:id
func (h *JobsHandler) GetJobByID(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "missing_user", errors.New("missing X-User-ID"))
		return
	}
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	job, err := h.jobs.GetByIDForUser(dbctx.Context{Ctx: c.Request.Context()}, jobID, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			RespondError(c, http.StatusNotFound, "job_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "get_job_failed", err)
		return
	}
	RespondOK(c, gin.H{"job": job})
}

// GET /api/jobs?limit=N
func (h *JobsHandler) ListJobs(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "missing_user", errors.New("missing X-User-ID"))
		return
	}
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	jobs, err := h.jobs.ListForUser(dbctx.Context{Ctx: c.Request.Context()}, userID, limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_jobs_failed", err)
		return
	}
	RespondOK(c, gin.H{"jobs": jobs})
}

// POST /api/jobs/:id/restart
func (h *JobsHandler) RestartJob(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "missing_user", errors.New("missing X-User-ID"))
		return
	}
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	job, err := h.jobs.Restart(dbctx.Context{Ctx: c.Request.Context()}, jobID, userID)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			RespondError(c, http.StatusNotFound, "job_not_found", err)
		case errors.Is(err, apperr.ErrInvalidArgument):
			RespondError(c, http.StatusConflict, "job_not_restartable", err)
		default:
			RespondError(c, http.StatusInternalServerError, "restart_job_failed", err)
		}
		return
	}
	RespondOK(c, gin.H{"job": job})
}
