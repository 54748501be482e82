package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projecthub/internal/service"
)

type ProfileHandler struct {
	profiles *service.ProfileService
	logger   *zap.Logger
}

func NewProfileHandler(profiles *service.ProfileService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

func (h *ProfileHandler) ListProfiles(c *gin.Context) {
	p := CurrentPrincipal(c)
	profiles, err := h.profiles.List(c.Request.Context(), p)
	if err != nil {
		RespondError(c, h.logger, "ListProfiles", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profiles": profiles})
}

func (h *ProfileHandler) Me(c *gin.Context) {
	profile, err := h.profiles.Me(c.Request.Context(), CurrentPrincipal(c))
	if err != nil {
		RespondError(c, h.logger, "Me", err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	p := CurrentPrincipal(c)
	id, err := pathID(c)
	if err != nil {
		RespondError(c, h.logger, "GetProfile", err)
		return
	}

	profile, err := h.profiles.Get(c.Request.Context(), p, id)
	if err != nil {
		RespondError(c, h.logger, "GetProfile", err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	p := CurrentPrincipal(c)
	id, err := pathID(c)
	if err != nil {
		RespondError(c, h.logger, "UpdateProfile", err)
		return
	}
	h.logger.Info("UpdateProfile request received",
		zap.Int64("profile_id", id),
		zap.Int64("user_id", p.UserID()),
	)

	var in service.ProfileUpdate
	if err := bindJSON(c, &in); err != nil {
		RespondError(c, h.logger, "UpdateProfile", err)
		return
	}

	profile, err := h.profiles.Update(c.Request.Context(), p, id, in)
	if err != nil {
		RespondError(c, h.logger, "UpdateProfile", err)
		return
	}

	h.logger.Info("UpdateProfile: success", zap.Int64("profile_id", id))
	c.JSON(http.StatusOK, profile)
}

// DeleteProfile removes the profile together with its user account.
func (h *ProfileHandler) DeleteProfile(c *gin.Context) {
	p := CurrentPrincipal(c)
	id, err := pathID(c)
	if err != nil {
		RespondError(c, h.logger, "DeleteProfile", err)
		return
	}
	h.logger.Info("DeleteProfile request received",
		zap.Int64("profile_id", id),
		zap.Int64("user_id", p.UserID()),
	)

	if err := h.profiles.Delete(c.Request.Context(), p, id); err != nil {
		RespondError(c, h.logger, "DeleteProfile", err)
		return
	}

	h.logger.Info("DeleteProfile: success", zap.Int64("profile_id", id))
	c.Status(http.StatusNoContent)
}
