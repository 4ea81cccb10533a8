package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bebusy.app/inbox/internal/http/dto"
	"bebusy.app/inbox/internal/http/middleware"
	"bebusy.app/inbox/internal/model"
	"bebusy.app/inbox/internal/store"
)

// ProfileFinder mirrors service.ProfileService.
type ProfileFinder interface {
	Get(ctx context.Context, userID int64) (*model.Profile, error)
	Search(ctx context.Context, userID int64, query string, limit int32) ([]model.Profile, error)
}

type ProfileHandler struct {
	profiles ProfileFinder
}

func NewProfileHandler(profiles ProfileFinder) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

func (h *ProfileHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	profileID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid profile id"})
		return
	}

	profile, err := h.profiles.Get(ctx, profileID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to get profile", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get profile"})
		return
	}

	c.JSON(http.StatusOK, dto.ToProfileResponse(profile))
}

func (h *ProfileHandler) Search(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(ctx)

	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
		return
	}

	var limit int32 = 20
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 32); err == nil {
			limit = int32(n)
		}
	}

	profiles, err := h.profiles.Search(ctx, userID, query, limit)
	if err != nil {
		slog.ErrorContext(ctx, "failed to search profiles", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to search profiles"})
		return
	}

	out := make([]dto.ProfileResponse, 0, len(profiles))
	for i := range profiles {
		out = append(out, dto.ToProfileResponse(&profiles[i]))
	}

	c.JSON(http.StatusOK, dto.ProfileSearchResponse{Profiles: out})
}
