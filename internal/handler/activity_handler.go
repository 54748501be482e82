package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projecthub/internal/apperr"
	"projecthub/internal/service"
)

// ActivityHandler serves the read side of the event pipeline: project
// timelines and per-user notifications.
type ActivityHandler struct {
	timeline      *service.TimelineService
	notifications *service.NotificationService
	logger        *zap.Logger
}

func NewActivityHandler(timeline *service.TimelineService, notifications *service.NotificationService, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{timeline: timeline, notifications: notifications, logger: logger}
}

func (h *ActivityHandler) ListTimeline(c *gin.Context) {
	p := CurrentPrincipal(c)
	projectID, err := queryID(c, "project")
	if err != nil {
		RespondError(c, h.logger, "ListTimeline", err)
		return
	}

	events, err := h.timeline.List(c.Request.Context(), p, projectID)
	if err != nil {
		RespondError(c, h.logger, "ListTimeline", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (h *ActivityHandler) ListNotifications(c *gin.Context) {
	p := CurrentPrincipal(c)

	unreadOnly := false
	if raw := c.Query("unread"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			RespondError(c, h.logger, "ListNotifications", apperr.Field("unread", "must be a boolean"))
			return
		}
		unreadOnly = v
	}

	items, err := h.notifications.List(c.Request.Context(), p, unreadOnly)
	if err != nil {
		RespondError(c, h.logger, "ListNotifications", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": items})
}

func (h *ActivityHandler) MarkNotificationRead(c *gin.Context) {
	p := CurrentPrincipal(c)
	id, err := pathID(c)
	if err != nil {
		RespondError(c, h.logger, "MarkNotificationRead", err)
		return
	}

	n, err := h.notifications.MarkRead(c.Request.Context(), p, id)
	if err != nil {
		RespondError(c, h.logger, "MarkNotificationRead", err)
		return
	}

	h.logger.Info("MarkNotificationRead: success",
		zap.Int64("notification_id", id),
		zap.Int64("user_id", p.UserID()),
	)
	c.JSON(http.StatusOK, n)
}
