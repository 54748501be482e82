package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projecthub/internal/service"
)

type TaskHandler struct {
	tasks  *service.TaskService
	logger *zap.Logger
}

func NewTaskHandler(tasks *service.TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, logger: logger}
}

// ListTasks accepts an optional ?project= filter.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	p := CurrentPrincipal(c)
	h.logger.Info("ListTasks request received",
		zap.Int64("user_id", p.UserID()),
		zap.String("project", c.Query("project")),
		zap.String("client_ip", c.ClientIP()),
	)

	projectID, err := queryID(c, "project")
	if err != nil {
		RespondError(c, h.logger, "ListTasks", err)
		return
	}

	tasks, err := h.tasks.List(c.Request.Context(), p, projectID)
	if err != nil {
		RespondError(c, h.logger, "ListTasks", err)
		return
	}

	h.logger.Info("ListTasks: success",
		zap.Int64("user_id", p.UserID()),
		zap.Int("task_count", len(tasks)),
	)
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	p := CurrentPrincipal(c)
	id, err := pathID(c)
	if err != nil {
		RespondError(c, h.logger, "GetTask", err)
		return
	}

	task, err := h.tasks.Get(c.Request.Context(), p, id)
	if err != nil {
		RespondError(c, h.logger, "GetTask", err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	p := CurrentPrincipal(c)
	h.logger.Info("CreateTask request received",
		zap.Int64("user_id", p.UserID()),
		zap.String("client_ip", c.ClientIP()),
	)

	var in service.TaskInput
	if err := bindJSON(c, &in); err != nil {
		RespondError(c, h.logger, "CreateTask", err)
		return
	}

	task, err := h.tasks.Create(c.Request.Context(), p, in)
	if err != nil {
		RespondError(c, h.logger, "CreateTask", err)
		return
	}

	h.logger.Info("CreateTask: success",
		zap.Int64("task_id", task.ID),
		zap.Int64("project_id", task.ProjectID),
	)
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	p := CurrentPrincipal(c)
	id, err := pathID(c)
	if err != nil {
		RespondError(c, h.logger, "UpdateTask", err)
		return
	}
	h.logger.Info("UpdateTask request received",
		zap.Int64("task_id", id),
		zap.Int64("user_id", p.UserID()),
	)

	var in service.TaskUpdate
	if err := bindJSON(c, &in); err != nil {
		RespondError(c, h.logger, "UpdateTask", err)
		return
	}

	task, err := h.tasks.Update(c.Request.Context(), p, id, in)
	if err != nil {
		RespondError(c, h.logger, "UpdateTask", err)
		return
	}

	h.logger.Info("UpdateTask: success", zap.Int64("task_id", id))
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	p := CurrentPrincipal(c)
	id, err := pathID(c)
	if err != nil {
		RespondError(c, h.logger, "DeleteTask", err)
		return
	}
	h.logger.Info("DeleteTask request received",
		zap.Int64("task_id", id),
		zap.Int64("user_id", p.UserID()),
	)

	if err := h.tasks.Delete(c.Request.Context(), p, id); err != nil {
		RespondError(c, h.logger, "DeleteTask", err)
		return
	}

	h.logger.Info("DeleteTask: success", zap.Int64("task_id", id))
	c.Status(http.StatusNoContent)
}

func (h *TaskHandler) AssignTask(c *gin.Context) {
	p := CurrentPrincipal(c)
	id, err := pathID(c)
	if err != nil {
		RespondError(c, h.logger, "AssignTask", err)
		return
	}
	h.logger.Info("AssignTask request received",
		zap.Int64("task_id", id),
		zap.Int64("user_id", p.UserID()),
	)

	var in service.AssignInput
	if err := bindJSON(c, &in); err != nil {
		RespondError(c, h.logger, "AssignTask", err)
		return
	}

	task, err := h.tasks.Assign(c.Request.Context(), p, id, in)
	if err != nil {
		RespondError(c, h.logger, "AssignTask", err)
		return
	}

	h.logger.Info("AssignTask: success",
		zap.Int64("task_id", id),
		zap.Int64p("assignee_id", task.AssigneeID),
	)
	c.JSON(http.StatusOK, task)
}
