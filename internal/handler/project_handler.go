package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projecthub/internal/service"
)

type ProjectHandler struct {
	projects *service.ProjectService
	logger   *zap.Logger
}

func NewProjectHandler(projects *service.ProjectService, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{projects: projects, logger: logger}
}

func (h *ProjectHandler) ListProjects(c *gin.Context) {
	p := CurrentPrincipal(c)
	h.logger.Info("ListProjects request received",
		zap.Int64("user_id", p.UserID()),
		zap.String("client_ip", c.ClientIP()),
	)

	projects, err := h.projects.List(c.Request.Context(), p)
	if err != nil {
		RespondError(c, h.logger, "ListProjects", err)
		return
	}

	h.logger.Info("ListProjects: success",
		zap.Int64("user_id", p.UserID()),
		zap.Int("project_count", len(projects)),
	)
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

func (h *ProjectHandler) GetProject(c *gin.Context) {
	p := CurrentPrincipal(c)
	id, err := pathID(c)
	if err != nil {
		RespondError(c, h.logger, "GetProject", err)
		return
	}

	project, err := h.projects.Get(c.Request.Context(), p, id)
	if err != nil {
		RespondError(c, h.logger, "GetProject", err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) CreateProject(c *gin.Context) {
	p := CurrentPrincipal(c)
	h.logger.Info("CreateProject request received",
		zap.Int64("user_id", p.UserID()),
		zap.String("client_ip", c.ClientIP()),
	)

	var in service.ProjectInput
	if err := bindJSON(c, &in); err != nil {
		RespondError(c, h.logger, "CreateProject", err)
		return
	}

	project, err := h.projects.Create(c.Request.Context(), p, in)
	if err != nil {
		RespondError(c, h.logger, "CreateProject", err)
		return
	}

	h.logger.Info("CreateProject: success", zap.Int64("project_id", project.ID))
	c.JSON(http.StatusCreated, project)
}

// UpdateProject serves both PUT and PATCH; absent fields are left unchanged.
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	p := CurrentPrincipal(c)
	id, err := pathID(c)
	if err != nil {
		RespondError(c, h.logger, "UpdateProject", err)
		return
	}
	h.logger.Info("UpdateProject request received",
		zap.Int64("project_id", id),
		zap.Int64("user_id", p.UserID()),
	)

	var in service.ProjectUpdate
	if err := bindJSON(c, &in); err != nil {
		RespondError(c, h.logger, "UpdateProject", err)
		return
	}

	project, err := h.projects.Update(c.Request.Context(), p, id, in)
	if err != nil {
		RespondError(c, h.logger, "UpdateProject", err)
		return
	}

	h.logger.Info("UpdateProject: success", zap.Int64("project_id", id))
	c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	p := CurrentPrincipal(c)
	id, err := pathID(c)
	if err != nil {
		RespondError(c, h.logger, "DeleteProject", err)
		return
	}
	h.logger.Info("DeleteProject request received",
		zap.Int64("project_id", id),
		zap.Int64("user_id", p.UserID()),
	)

	if err := h.projects.Delete(c.Request.Context(), p, id); err != nil {
		RespondError(c, h.logger, "DeleteProject", err)
		return
	}

	h.logger.Info("DeleteProject: success", zap.Int64("project_id", id))
	c.Status(http.StatusNoContent)
}
