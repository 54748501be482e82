package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projecthub/internal/service"
)

type CommentHandler struct {
	comments *service.CommentService
	logger   *zap.Logger
}

func NewCommentHandler(comments *service.CommentService, logger *zap.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, logger: logger}
}

// ListComments accepts an optional ?task= filter.
func (h *CommentHandler) ListComments(c *gin.Context) {
	p := CurrentPrincipal(c)
	taskID, err := queryID(c, "task")
	if err != nil {
		RespondError(c, h.logger, "ListComments", err)
		return
	}

	comments, err := h.comments.List(c.Request.Context(), p, taskID)
	if err != nil {
		RespondError(c, h.logger, "ListComments", err)
		return
	}

	h.logger.Debug("ListComments: success",
		zap.Int64("user_id", p.UserID()),
		zap.Int("comment_count", len(comments)),
	)
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

func (h *CommentHandler) CreateComment(c *gin.Context) {
	p := CurrentPrincipal(c)
	h.logger.Info("CreateComment request received",
		zap.Int64("user_id", p.UserID()),
		zap.String("client_ip", c.ClientIP()),
	)

	var in service.CommentInput
	if err := bindJSON(c, &in); err != nil {
		RespondError(c, h.logger, "CreateComment", err)
		return
	}

	comment, err := h.comments.Create(c.Request.Context(), p, in)
	if err != nil {
		RespondError(c, h.logger, "CreateComment", err)
		return
	}

	h.logger.Info("CreateComment: success",
		zap.Int64("comment_id", comment.ID),
		zap.Int64("task_id", comment.TaskID),
	)
	c.JSON(http.StatusCreated, comment)
}

func (h *CommentHandler) UpdateComment(c *gin.Context) {
	p := CurrentPrincipal(c)
	id, err := pathID(c)
	if err != nil {
		RespondError(c, h.logger, "UpdateComment", err)
		return
	}

	var in service.CommentUpdate
	if err := bindJSON(c, &in); err != nil {
		RespondError(c, h.logger, "UpdateComment", err)
		return
	}

	comment, err := h.comments.Update(c.Request.Context(), p, id, in)
	if err != nil {
		RespondError(c, h.logger, "UpdateComment", err)
		return
	}

	h.logger.Info("UpdateComment: success", zap.Int64("comment_id", id))
	c.JSON(http.StatusOK, comment)
}

func (h *CommentHandler) DeleteComment(c *gin.Context) {
	p := CurrentPrincipal(c)
	id, err := pathID(c)
	if err != nil {
		RespondError(c, h.logger, "DeleteComment", err)
		return
	}

	if err := h.comments.Delete(c.Request.Context(), p, id); err != nil {
		RespondError(c, h.logger, "DeleteComment", err)
		return
	}

	h.logger.Info("DeleteComment: success",
		zap.Int64("comment_id", id),
		zap.Int64("user_id", p.UserID()),
	)
	c.Status(http.StatusNoContent)
}
