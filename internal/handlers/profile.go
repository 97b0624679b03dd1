package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/echodraft/echodraft-backend/internal/platform/apperr"
	"github.com/echodraft/echodraft-backend/internal/platform/dbctx"
	"github.com/echodraft/echodraft-backend/internal/services"
)

type ProfileHandler struct {
	profiles services.ProfileService
	learning services.LearningService
}

func NewProfileHandler(profiles services.ProfileService, learning services.LearningService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, learning: learning}
}

// GET /api/profile
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "missing_user", errors.New("missing X-User-ID"))
		return
	}
	p, err := h.profiles.GetProfile(dbctx.Context{Ctx: c.Request.Context()}, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			RespondError(c, http.StatusNotFound, "profile_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "get_profile_failed", err)
		return
	}
	RespondOK(c, gin.H{"profile": p})
}

type setOverridesRequest struct {
	Overrides map[string]interface{} `json:"overrides"`
}

// PUT /api/profile/overrides
func (h *ProfileHandler) SetOverrides(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "missing_user", errors.New("missing X-User-ID"))
		return
	}
	var req setOverridesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if req.Overrides == nil {
		req.Overrides = map[string]interface{}{}
	}
	p, err := h.profiles.SetOverrides(dbctx.Context{Ctx: c.Request.Context()}, userID, req.Overrides)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrInvalidArgument):
			RespondError(c, http.StatusBadRequest, "invalid_override", err)
		case errors.Is(err, apperr.ErrNotFound):
			RespondError(c, http.StatusNotFound, "profile_not_found", err)
		default:
			RespondError(c, http.StatusInternalServerError, "set_overrides_failed", err)
		}
		return
	}
	RespondOK(c, gin.H{"profile": p})
}

// GET /api/profile/versions?limit=N
func (h *ProfileHandler) ListVersions(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "missing_user", errors.New("missing X-User-ID"))
		return
	}
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 50 {
			limit = n
		}
	}
	versions, err := h.profiles.ListVersions(dbctx.Context{Ctx: c.Request.Context()}, userID, limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_versions_failed", err)
		return
	}
	RespondOK(c, gin.H{"versions": versions})
}

// GET /api/profile/evolution
func (h *ProfileHandler) GetEvolution(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "missing_user", errors.New("missing X-User-ID"))
		return
	}
	ev, err := h.learning.GetEvolution(dbctx.Context{Ctx: c.Request.Context()}, userID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "get_evolution_failed", err)
		return
	}
	RespondOK(c, gin.H{"evolution": ev})
}
