package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"disclone/internal/middleware"
	"disclone/internal/repositories"
)

// ProfileHandler lists direct-message candidates.
type ProfileHandler struct {
	profiles repositories.ProfileRepository
	limit    int
}

func NewProfileHandler(profiles repositories.ProfileRepository, limit int) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, limit: limit}
}

// ListProfiles returns up to limit profiles other than the caller, ordered by username.
func (h *ProfileHandler) ListProfiles(c *gin.Context) {
	profile, _ := middleware.CurrentProfile(c)
	list, err := h.profiles.ListOtherProfiles(c.Request.Context(), profile.ID, h.limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profiles": list})
}
