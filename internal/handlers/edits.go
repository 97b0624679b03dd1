package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/echodraft/echodraft-backend/internal/domain"
	"github.com/echodraft/echodraft-backend/internal/platform/apperr"
	"github.com/echodraft/echodraft-backend/internal/platform/dbctx"
	"github.com/echodraft/echodraft-backend/internal/services"
)

type EditsHandler struct {
	edits services.EditService
	jobs  services.JobService
}

func NewEditsHandler(edits services.EditService, jobs services.JobService) *EditsHandler {
	return &EditsHandler{edits: edits, jobs: jobs}
}

type saveEditRequest struct {
	EditedText string            `json:"edited_text"`
	Tweets     []types.TweetEdit `json:"tweets,omitempty"`
}

// POST /api/content/:id/edit
// Records the user's edit and queues a style-learning job for it.
func (h *EditsHandler) SaveEdit(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "missing_user", errors.New("missing X-User-ID"))
		return
	}
	contentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_content_id", err)
		return
	}
	var req saveEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if req.EditedText == "" && len(req.Tweets) == 0 {
		RespondError(c, http.StatusBadRequest, "empty_edit", errors.New("edited_text or tweets required"))
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	row, err := h.edits.RecordEdit(dbc, userID, contentID, req.EditedText, req.Tweets)
	if err != nil {
		var dex *apperr.DeltaExtractionError
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			RespondError(c, http.StatusNotFound, "content_not_found", err)
		case errors.As(err, &dex), errors.Is(err, apperr.ErrInvalidArgument):
			RespondError(c, http.StatusBadRequest, "invalid_edit", err)
		default:
			RespondError(c, http.StatusInternalServerError, "save_edit_failed", err)
		}
		return
	}

	job, enqueued, err := h.jobs.EnqueueStyleLearningIfNeeded(dbc, userID, contentID, "edit_saved")
	if err != nil {
		// The edit is stored; a failed enqueue only means learning waits for
		// the next trigger.
		RespondOK(c, gin.H{"edit": row, "job": nil, "enqueued": false})
		return
	}

	RespondOK(c, gin.H{"edit": row, "job": job, "enqueued": enqueued})
}

// GET /api/edits?limit=N
func (h *EditsHandler) ListRecent(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "missing_user", errors.New("missing X-User-ID"))
		return
	}
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	rows, err := h.edits.GetRecentEdits(dbctx.Context{Ctx: c.Request.Context()}, userID, limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_edits_failed", err)
		return
	}
	RespondOK(c, gin.H{"edits": rows})
}
